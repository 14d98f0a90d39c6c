// Package places looks up nearby businesses of a category through the
// Google Places Nearby Search API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// MaxResults is the number of places kept from one search.
const MaxResults = 10

type Place struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	PriceLevel  int     `json:"price_level"`
	Address     string  `json:"address"`
}

type Client interface {
	SearchNearby(ctx context.Context, lat, lng float64, category string, radiusMeters int) ([]Place, error)
}

type Option func(*HTTPClient)

func WithBaseURL(u string) Option {
	return func(c *HTTPClient) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *HTTPClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHTTPClient(apiKey string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name             string  `json:"name"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		PriceLevel       int     `json:"price_level"`
		Vicinity         string  `json:"vicinity"`
	} `json:"results"`
}

// SearchNearby returns up to MaxResults places matching category around the
// point. ZERO_RESULTS is an empty list, not an error.
func (c *HTTPClient) SearchNearby(ctx context.Context, lat, lng float64, category string, radiusMeters int) ([]Place, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("places: rate limit: %w", err)
		}
	}

	q := url.Values{}
	q.Set("location", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radiusMeters))
	q.Set("keyword", category)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nearbysearch/json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("places: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("places: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("places: %d %s", resp.StatusCode, string(body))
	}

	var raw nearbyResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("places: unmarshal response: %w", err)
	}
	switch raw.Status {
	case "OK", "":
	case "ZERO_RESULTS":
		return []Place{}, nil
	default:
		return nil, fmt.Errorf("places: api status %s: %s", raw.Status, raw.ErrorMessage)
	}

	out := make([]Place, 0, MaxResults)
	for _, r := range raw.Results {
		if len(out) == MaxResults {
			break
		}
		out = append(out, Place{
			Name:        r.Name,
			Rating:      r.Rating,
			ReviewCount: r.UserRatingsTotal,
			PriceLevel:  r.PriceLevel,
			Address:     r.Vicinity,
		})
	}
	return out, nil
}
