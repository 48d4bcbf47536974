// Package places finds car dealerships through the Google Maps Places text search.
package places

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

const (
	dealerQueryPrefix = "car dealership "
	defaultLimit      = 4
)

var ErrMissingAPIKey = errors.New("places api key is required")

type Config struct {
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL string        `envconfig:"BASE_URL" split_words:"true"`
	Limit   int           `envconfig:"LIMIT" split_words:"true" default:"4"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type Dealer struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Rating       float32 `json:"rating"`
	TotalRatings int     `json:"total_ratings"`
	PlaceID      string  `json:"place_id"`
	OpenNow      *bool   `json:"open_now,omitempty"`
}

type Client struct {
	maps    *maps.Client
	limit   int
	timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		opts = append(opts, maps.WithBaseURL(base))
	}
	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{maps: mc, limit: limit, timeout: cfg.Timeout}, nil
}

// FindDealers searches for dealerships matching location, best results first.
func (c *Client) FindDealers(ctx context.Context, location string) ([]Dealer, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("dealer search location is empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.maps.TextSearch(ctx, &maps.TextSearchRequest{
		Query: dealerQueryPrefix + location,
	})
	if err != nil {
		return nil, fmt.Errorf("places text search: %w", err)
	}
	return toDealers(resp.Results, c.limit), nil
}

func toDealers(results []maps.PlacesSearchResult, limit int) []Dealer {
	out := make([]Dealer, 0, min(len(results), limit))
	for _, r := range results {
		if len(out) == limit {
			break
		}
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		d := Dealer{
			Name:         strings.TrimSpace(r.Name),
			Address:      strings.TrimSpace(r.FormattedAddress),
			Rating:       r.Rating,
			TotalRatings: r.UserRatingsTotal,
			PlaceID:      r.PlaceID,
		}
		if r.OpeningHours != nil {
			d.OpenNow = r.OpeningHours.OpenNow
		}
		out = append(out, d)
	}
	return out
}
