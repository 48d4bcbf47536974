package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "https://serpapi.com/search"
	defaultNumResults    = 10
	maxResponseSizeBytes = 4 << 20
)

var ErrMissingAPIKey = errors.New("serpapi api key is required")

type Config struct {
	APIKey     string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true" default:"https://serpapi.com/search"`
	NumResults int           `envconfig:"NUM_RESULTS" split_words:"true" default:"10"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

// Enabled reports whether the config carries credentials.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewsItem is one Google News result.
type NewsItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Link    string `json:"link"`
}

// Client queries the SerpAPI Google News engine over REST.
type Client struct {
	baseURL    string
	apiKey     string
	numResults int
	httpClient *http.Client
}

type searchResponse struct {
	NewsResults []newsResult `json:"news_results"`
	Error       string       `json:"error"`
}

// newsResult tolerates both the flat and the nested source shape SerpAPI returns.
type newsResult struct {
	Title   string          `json:"title"`
	Snippet string          `json:"snippet"`
	Source  json.RawMessage `json:"source"`
	Date    string          `json:"date"`
	Link    string          `json:"link"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid serpapi url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	num := cfg.NumResults
	if num <= 0 {
		num = defaultNumResults
	}

	client := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		numResults: num,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SearchNews runs a Google News search for query.
func (c *Client) SearchNews(ctx context.Context, query string) ([]NewsItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("serpapi query is empty")
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("tbm", "nws")
	params.Set("num", strconv.Itoa(c.numResults))
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serpapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute serpapi request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read serpapi response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("serpapi http status=%d body=%s", resp.StatusCode, truncate(string(raw), 256))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", parsed.Error)
	}

	items := make([]NewsItem, 0, len(parsed.NewsResults))
	for _, r := range parsed.NewsResults {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		items = append(items, NewsItem{
			Title:   strings.TrimSpace(r.Title),
			Snippet: strings.TrimSpace(r.Snippet),
			Source:  sourceName(r.Source),
			Date:    strings.TrimSpace(r.Date),
			Link:    strings.TrimSpace(r.Link),
		})
	}
	return items, nil
}

func sourceName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var nested struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Name)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
