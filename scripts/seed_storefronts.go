// seed_storefronts.go submits an analysis for each vacant storefront in a
// GeoJSON export, building up the result store.
//
// Usage:
//
//	go run scripts/seed_storefronts.go -geojson data/Storefronts_Vacant_or_Not.geojson -api http://localhost:8700 -limit 100
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type scoreRequest struct {
	Neighborhood string  `json:"neighborhood"`
	BusinessType string  `json:"business_type"`
	TargetDemo   string  `json:"target_demo"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RentEstimate float64 `json:"rent_estimate"`
}

type storefront struct {
	Address      string
	Borough      string
	Neighborhood string
	Latitude     float64
	Longitude    float64
	Activity     string
}

// Monthly commercial rent, roughly per-sqft rate times 1000 sqft.
var boroughRent = map[string]float64{
	"MANHATTAN":     12000,
	"BROOKLYN":      6500,
	"QUEENS":        5500,
	"BRONX":         4000,
	"STATEN ISLAND": 4500,
}

var boroughDemographics = map[string]string{
	"MANHATTAN":     "young professionals",
	"BROOKLYN":      "families and millennials",
	"QUEENS":        "diverse communities",
	"BRONX":         "local residents",
	"STATEN ISLAND": "suburban families",
}

const (
	defaultRent = 6000
	defaultDemo = "general public"
)

func main() {
	path := flag.String("geojson", "data/Storefronts_Vacant_or_Not.geojson", "path to storefront GeoJSON export")
	apiURL := flag.String("api", "http://localhost:8700", "Vantage API base URL")
	limit := flag.Int("limit", 100, "maximum storefronts to submit")
	delay := flag.Duration("delay", 500*time.Millisecond, "pause between submissions")
	dryRun := flag.Bool("dry-run", false, "print requests without posting")
	flag.Parse()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read geojson: %v", err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		log.Fatalf("parse geojson: %v", err)
	}

	fronts := vacantStorefronts(fc.Features, *limit)
	log.Printf("found %d vacant storefronts", len(fronts))

	client := &http.Client{Timeout: 30 * time.Second}
	submitted := 0
	for i, sf := range fronts {
		req := buildRequest(sf)

		if *dryRun {
			out, _ := json.MarshalIndent(req, "", "  ")
			fmt.Printf("[%d/%d] %s\n%s\n", i+1, len(fronts), sf.Address, out)
			continue
		}

		id, err := submit(client, *apiURL, req)
		if err != nil {
			log.Printf("[%d/%d] %s: %v", i+1, len(fronts), sf.Address, err)
			continue
		}
		submitted++
		log.Printf("[%d/%d] %s in %s (rent $%.0f) -> %s", i+1, len(fronts), sf.Address, sf.Neighborhood, req.RentEstimate, id)
		time.Sleep(*delay)
	}

	if !*dryRun {
		log.Printf("submitted %d/%d analyses", submitted, len(fronts))
	}
}

func vacantStorefronts(features []*geojson.Feature, limit int) []storefront {
	var out []storefront
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if v := stringProp(f.Properties, "vacant_on_12_31"); v != "Y" && v != "Yes" {
			continue
		}
		pt, ok := f.Geometry.(*geom.Point)
		if !ok || pt.Empty() || pt.X() == 0 || pt.Y() == 0 {
			continue
		}

		borough := strings.ToUpper(stringProp(f.Properties, "borough"))
		if borough == "" {
			borough = "MANHATTAN"
		}
		neighborhood := stringProp(f.Properties, "nbhd")
		if neighborhood == "" {
			neighborhood = stringProp(f.Properties, "nta")
		}
		if neighborhood == "" {
			neighborhood = "Unknown"
		}
		address := stringProp(f.Properties, "property_street_address_or")
		if address == "" {
			address = "Unknown Address"
		}

		out = append(out, storefront{
			Address:      address,
			Borough:      borough,
			Neighborhood: neighborhood,
			Latitude:     pt.Y(),
			Longitude:    pt.X(),
			Activity:     stringProp(f.Properties, "primary_business_activity"),
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}

func buildRequest(sf storefront) scoreRequest {
	rent, ok := boroughRent[sf.Borough]
	if !ok {
		rent = defaultRent
	}
	demo, ok := boroughDemographics[sf.Borough]
	if !ok {
		demo = defaultDemo
	}
	businessType := sf.Activity
	switch strings.ToLower(strings.TrimSpace(businessType)) {
	case "", "none", "unknown":
		businessType = "retail"
	}
	return scoreRequest{
		Neighborhood: sf.Neighborhood,
		BusinessType: businessType,
		TargetDemo:   demo,
		Latitude:     sf.Latitude,
		Longitude:    sf.Longitude,
		RentEstimate: rent,
	}
}

func submit(client *http.Client, apiURL string, req scoreRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resp, err := client.Post(strings.TrimRight(apiURL, "/")+"/api/v1/analyses?async=true", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		AnalysisID string `json:"analysis_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.AnalysisID, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
