// Package merchant enriches revenue projections with Visa Merchant Search data.
// It is optional: every failure is reported as an error or an absent result
// and the pipeline falls back to industry benchmarks.
package merchant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://sandbox.api.visa.com"
	searchPath     = "/merchantsearch/v2/search"
	dataSource     = "visa_merchant_search_v2"
	// usCountryCode is the ISO 3166 numeric code the search is restricted to.
	usCountryCode = 840
)

type Merchant struct {
	Name          string `json:"name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	CategoryCode  string `json:"merchant_category_code"`
	Distance      string `json:"distance"`
}

// Insights summarises the merchants found around a site.
type Insights struct {
	Merchants                []Merchant `json:"merchants"`
	MerchantCount            int        `json:"merchant_count"`
	TotalTransactionVolume   float64    `json:"total_transaction_volume"`
	AverageTransactionVolume float64    `json:"average_transaction_volume"`
	EstimatedMonthlySpending float64    `json:"estimated_monthly_spending"`
	MarketActivityScore      int        `json:"market_activity_score"`
	MarketMaturity           string     `json:"market_maturity"`
	DataSource               string     `json:"data_source"`
}

// Client looks up merchant insights. A nil result with a nil error means no
// data is available for the site.
type Client interface {
	Lookup(ctx context.Context, lat, lng float64, category string, radiusMeters int) (*Insights, error)
}

// Derive computes the aggregate insight fields from the merchant list.
//
//	activity = min(100, count*10 + avgVolume/1000)
//	spending = avgVolume * count
//	maturity: >=5 high, >=2 medium, else low
func Derive(merchants []Merchant, totalVolume float64) *Insights {
	n := len(merchants)
	in := &Insights{
		Merchants:              merchants,
		MerchantCount:          n,
		TotalTransactionVolume: totalVolume,
		DataSource:             dataSource,
	}
	if n > 0 {
		in.AverageTransactionVolume = totalVolume / float64(n)
	}
	activity := float64(n)*10 + in.AverageTransactionVolume/1000
	if activity > 100 {
		activity = 100
	}
	in.MarketActivityScore = int(activity)
	if in.AverageTransactionVolume > 0 {
		in.EstimatedMonthlySpending = in.AverageTransactionVolume * float64(n)
	}
	switch {
	case n >= 5:
		in.MarketMaturity = "high"
	case n >= 2:
		in.MarketMaturity = "medium"
	default:
		in.MarketMaturity = "low"
	}
	return in
}

type Option func(*HTTPClient)

func WithBaseURL(u string) Option {
	return func(c *HTTPClient) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

func WithRateLimit(perSecond float64) Option {
	return func(c *HTTPClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// HTTPClient calls the Merchant Search API with basic auth.
type HTTPClient struct {
	baseURL    string
	userID     string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

func NewHTTPClient(userID, password string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    defaultBaseURL,
		userID:     userID,
		password:   password,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	SearchOptions struct {
		MatchScore      string `json:"matchScore"`
		MaxRecords      string `json:"maxRecords"`
		MatchIndicators string `json:"matchIndicators"`
	} `json:"searchOptions"`
	Header struct {
		StartIndex       string `json:"startIndex"`
		RequestMessageID string `json:"requestMessageId"`
		MessageDateTime  string `json:"messageDateTime"`
	} `json:"header"`
	SearchAttrList struct {
		DistanceUnit        string `json:"distanceUnit"`
		Distance            string `json:"distance"`
		MerchantCountryCode int    `json:"merchantCountryCode"`
		Latitude            string `json:"latitude"`
		Longitude           string `json:"longitude"`
	} `json:"searchAttrList"`
	ResponseAttrList []string `json:"responseAttrList"`
}

type searchResponse struct {
	Response struct {
		Merchant []struct {
			Name          flexString `json:"visaMerchantName"`
			StreetAddress flexString `json:"visaStoreStreetAddress"`
			City          flexString `json:"visaStoreCity"`
			State         flexString `json:"visaStoreState"`
			PostalCode    flexString `json:"visaStorePostalCode"`
			CategoryCode  flexString `json:"merchantCategoryCode"`
			Distance      flexString `json:"distance"`
		} `json:"merchant"`
	} `json:"response"`
}

func (c *HTTPClient) buildRequest(lat, lng float64, radiusMeters int) searchRequest {
	now := c.now().UTC()
	var body searchRequest
	body.SearchOptions.MatchScore = "false"
	body.SearchOptions.MaxRecords = "10"
	body.SearchOptions.MatchIndicators = "true"
	body.Header.StartIndex = "0"
	body.Header.RequestMessageID = "Vantage_Locator_" + strconv.FormatInt(now.UnixMilli(), 10)
	body.Header.MessageDateTime = now.Format("2006-01-02T15:04:05.000")
	body.SearchAttrList.DistanceUnit = "m"
	body.SearchAttrList.Distance = strconv.Itoa(radiusMeters)
	body.SearchAttrList.MerchantCountryCode = usCountryCode
	body.SearchAttrList.Latitude = strconv.FormatFloat(lat, 'f', -1, 64)
	body.SearchAttrList.Longitude = strconv.FormatFloat(lng, 'f', -1, 64)
	body.ResponseAttrList = []string{"GNLOCATOR"}
	return body
}

// Lookup returns (nil, nil) when credentials are not configured or the search
// finds no merchants.
func (c *HTTPClient) Lookup(ctx context.Context, lat, lng float64, category string, radiusMeters int) (*Insights, error) {
	if c.userID == "" || c.password == "" {
		return nil, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("merchant: rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(c.buildRequest(lat, lng, radiusMeters))
	if err != nil {
		return nil, fmt.Errorf("merchant: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("merchant: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.userID, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("merchant: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("merchant: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("merchant: %d %s", resp.StatusCode, string(body))
	}

	var raw searchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("merchant: unmarshal response: %w", err)
	}
	if len(raw.Response.Merchant) == 0 {
		return nil, nil
	}

	merchants := make([]Merchant, 0, len(raw.Response.Merchant))
	for _, m := range raw.Response.Merchant {
		name := string(m.Name)
		if name == "" {
			name = "Unknown"
		}
		merchants = append(merchants, Merchant{
			Name:          name,
			StreetAddress: string(m.StreetAddress),
			City:          string(m.City),
			State:         string(m.State),
			PostalCode:    string(m.PostalCode),
			CategoryCode:  string(m.CategoryCode),
			Distance:      string(m.Distance),
		})
	}
	// the search API does not expose transaction volumes
	return Derive(merchants, 0), nil
}

// flexString accepts a JSON string, number, or array (first element).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var arr []flexString
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) > 0 {
			*f = arr[0]
		}
		return nil
	}
	*f = ""
	return nil
}
