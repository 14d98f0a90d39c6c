package scoring

import (
	"fmt"
	"math"
	"strings"
)

// MaxBreakevenMonths caps the breakeven estimate.
const MaxBreakevenMonths = 36

const (
	notViableMonths   = 99
	baseStartupCost   = 50000.0
	rentMonthsUpfront = 6.0
)

const (
	DataSourceBenchmarks = "benchmarks"
	DataSourceMerchant   = "visa_api"
)

// Benchmark holds per-category industry averages.
type Benchmark struct {
	ConversionRate float64 `json:"conversion_rate"`
	AvgTicket      float64 `json:"avg_ticket"`
	Margin         float64 `json:"margin"`
}

// Benchmarks is keyed by lower-cased business type. "default" is the fallback.
var Benchmarks = map[string]Benchmark{
	"bubble tea":     {ConversionRate: 0.03, AvgTicket: 7.50, Margin: 0.65},
	"coffee shop":    {ConversionRate: 0.04, AvgTicket: 6.00, Margin: 0.60},
	"bakery":         {ConversionRate: 0.025, AvgTicket: 12.00, Margin: 0.55},
	"restaurant":     {ConversionRate: 0.02, AvgTicket: 25.00, Margin: 0.45},
	"pizza":          {ConversionRate: 0.03, AvgTicket: 20.00, Margin: 0.70},
	"bar":            {ConversionRate: 0.045, AvgTicket: 20.00, Margin: 0.75},
	"gym":            {ConversionRate: 0.015, AvgTicket: 60.00, Margin: 0.80},
	"clothing_store": {ConversionRate: 0.02, AvgTicket: 55.00, Margin: 0.55},
	"bookstore":      {ConversionRate: 0.02, AvgTicket: 25.00, Margin: 0.45},
	"default":        {ConversionRate: 0.025, AvgTicket: 10.00, Margin: 0.50},
}

func BenchmarkFor(businessType string) Benchmark {
	if b, ok := Benchmarks[strings.ToLower(strings.TrimSpace(businessType))]; ok {
		return b
	}
	return Benchmarks["default"]
}

// MarketActivity is merchant-transaction data for the area around a site.
// ActivityScore is 0-100.
type MarketActivity struct {
	MerchantCount            int     `json:"merchant_count"`
	AverageTransactionVolume float64 `json:"average_transaction_volume"`
	EstimatedMonthlySpending float64 `json:"estimated_monthly_spending"`
	ActivityScore            float64 `json:"market_activity_score"`
}

type RevenueInput struct {
	BusinessType     string
	Neighborhood     string
	FootTrafficScore int
	CompetitorCount  int
	Rent             float64
	HasCoordinates   bool
	// Market is nil when no merchant data was available.
	Market *MarketActivity
}

type RevenueProjection struct {
	Conservative    int        `json:"conservative"`
	Moderate        int        `json:"moderate"`
	Optimistic      int        `json:"optimistic"`
	BreakevenMonths int        `json:"breakeven_months"`
	Viable          bool       `json:"viable"`
	Confidence      Confidence `json:"confidence"`
	Assumptions     []string   `json:"assumptions"`
	DataSource      string     `json:"data_source"`
}

// EstimateDailyTraffic converts a foot-traffic score into daily passers-by.
func EstimateDailyTraffic(footTrafficScore int) int {
	return int(float64(footTrafficScore)/100*4500 + 500)
}

// AdjustConversion scales a conversion rate by competition bracket.
func AdjustConversion(base float64, competitorCount int) float64 {
	switch {
	case competitorCount <= 0:
		return base * 1.2
	case competitorCount <= 3:
		return base
	case competitorCount <= 6:
		return base * 0.8
	default:
		return base * 0.6
	}
}

// ProjectRevenue estimates monthly revenue in three scenarios and the months
// to recover startup cost. Scenarios are 0.6x, 1.0x and 1.5x of one base so
// conservative <= moderate <= optimistic always holds.
func ProjectRevenue(in RevenueInput) RevenueProjection {
	bench := BenchmarkFor(in.BusinessType)
	conversion := AdjustConversion(bench.ConversionRate, in.CompetitorCount)
	base := float64(EstimateDailyTraffic(in.FootTrafficScore)) * conversion * bench.AvgTicket * 30

	if m := in.Market; m != nil {
		activity := math.Max(0, math.Min(100, m.ActivityScore))
		boosted := conversion * (1 + 0.3*activity/100)
		if m.EstimatedMonthlySpending > 0 && bench.ConversionRate > 0 {
			base = m.EstimatedMonthlySpending * (boosted / bench.ConversionRate)
		} else {
			base = base * (boosted / conversion)
		}
	}
	if base < 0 || math.IsNaN(base) {
		base = 0
	}

	p := RevenueProjection{
		Conservative: int(base * 0.6),
		Moderate:     int(base),
		Optimistic:   int(base * 1.5),
		DataSource:   DataSourceBenchmarks,
	}

	startup := baseStartupCost + in.Rent*rentMonthsUpfront
	profit := float64(p.Moderate)*bench.Margin - in.Rent
	months := notViableMonths
	if profit > 0 {
		months = int(startup / profit)
		p.Viable = true
	}
	if months > MaxBreakevenMonths {
		months = MaxBreakevenMonths
	}
	p.BreakevenMonths = months

	switch {
	case in.Market != nil:
		p.Confidence = ConfidenceHigh
		p.DataSource = DataSourceMerchant
	case in.FootTrafficScore > 0:
		p.Confidence = ConfidenceMedium
	default:
		p.Confidence = ConfidenceLow
	}

	p.Assumptions = []string{
		fmt.Sprintf("Foot traffic score: %d/100", in.FootTrafficScore),
		fmt.Sprintf("Nearby competitors: %d", in.CompetitorCount),
		fmt.Sprintf("Estimated rent: $%d/mo", int(in.Rent)),
	}
	if in.Market != nil {
		p.Assumptions = append(p.Assumptions,
			fmt.Sprintf("Visa API data: %d nearby merchants with transaction data", in.Market.MerchantCount),
			"Revenue projections enhanced with real transaction volumes",
		)
	} else {
		p.Assumptions = append(p.Assumptions, "Industry-standard conversion rates applied")
		if !in.HasCoordinates {
			p.Assumptions = append(p.Assumptions, "Location data not available for Visa API lookup")
		}
	}
	return p
}
