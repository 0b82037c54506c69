package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Crossref REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit. Crossref's polite pool
	// allows substantially more, but 5 req/s is a safe default.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "Crossref"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref REST API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries Crossref for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the response (limit body to 10MB).
	var worksResp WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	items := make([]domain.SearchItem, 0, len(worksResp.Message.Items))
	for _, work := range worksResp.Message.Items {
		items = append(items, workToItem(work))
	}

	return &papersources.SearchResult{
		Items:          items,
		TotalResults:   worksResp.Message.TotalResults,
		Source:         domain.SourceTypeCrossref,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the /works search URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("works")

	rows := params.MaxResults
	if rows <= 0 || rows > c.config.MaxResults {
		rows = c.config.MaxResults
	}

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("rows", strconv.Itoa(rows))
	q.Set("sort", "relevance")
	q.Set("order", "desc")
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// workToItem converts a Crossref work to a normalized search item.
// The DOI serves as the identifier, falling back to the work URL.
func workToItem(work Work) domain.SearchItem {
	id := work.DOI
	if id == "" {
		id = work.URL
	}

	var title string
	if len(work.Title) > 0 {
		title = work.Title[0]
	}

	authors := make([]string, 0, len(work.Author))
	for _, a := range work.Author {
		if name := strings.TrimSpace(a.Given + " " + a.Family); name != "" {
			authors = append(authors, name)
		}
	}

	return domain.SearchItem{
		ID:       id,
		Source:   domain.SourceTypeCrossref,
		Title:    title,
		Authors:  authors,
		Abstract: work.Abstract,
		URL:      work.URL,
		Year:     work.Published.Year(),
	}
}
