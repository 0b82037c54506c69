package pubmed

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
	// DefaultBaseURL is the default base URL for the NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the default rate limit (3 req/s without an API key).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// articleURLPrefix is the public article URL prefix.
	articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

	// idPrefix namespaces PubMed IDs in normalized items.
	idPrefix = "pubmed:"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds configuration for the PubMed client.
type Config struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string

	// APIKey is the optional NCBI API key. Keyed requests get a higher
	// rate limit (10 req/s instead of 3).
	APIKey string

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

// Client implements the papersources.PaperSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
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

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries PubMed for articles matching the given parameters.
// It first resolves matching IDs via esearch, then fetches document
// summaries for those IDs via esummary.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	ids, total, err := c.searchIDs(ctx, params)
	if err != nil {
		return nil, err
	}

	result := &papersources.SearchResult{
		Items:          []domain.SearchItem{},
		TotalResults:   total,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}
	if len(ids) == 0 {
		return result, nil
	}

	summaries, err := c.fetchSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.SearchItem, 0, len(ids))
	for _, id := range ids {
		doc, ok := summaries[id]
		if !ok {
			continue
		}
		items = append(items, docToItem(id, doc))
	}

	result.Items = items
	result.SearchDuration = time.Since(startTime)
	return result, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// searchIDs queries esearch.fcgi and returns the matching PubMed IDs
// plus the total match count.
func (c *Client) searchIDs(ctx context.Context, params papersources.SearchParams) ([]string, int, error) {
	maxResults := params.MaxResults
	if maxResults <= 0 || maxResults > c.config.MaxResults {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("db", "pubmed")
	query.Set("term", params.Query)
	query.Set("retmax", strconv.Itoa(maxResults))
	query.Set("retmode", "json")
	if params.Offset > 0 {
		query.Set("retstart", strconv.Itoa(params.Offset))
	}
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}

	var searchResp ESearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", query, &searchResp); err != nil {
		return nil, 0, err
	}

	total, _ := strconv.Atoi(searchResp.ESearchResult.Count)
	return searchResp.ESearchResult.IDList, total, nil
}

// fetchSummaries queries esummary.fcgi for the given IDs and returns
// the decoded document summaries keyed by PubMed ID.
func (c *Client) fetchSummaries(ctx context.Context, ids []string) (map[string]DocSummary, error) {
	query := url.Values{}
	query.Set("db", "pubmed")
	query.Set("id", strings.Join(ids, ","))
	query.Set("retmode", "json")
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}

	var summaryResp ESummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", query, &summaryResp); err != nil {
		return nil, err
	}

	summaries := make(map[string]DocSummary, len(ids))
	for _, id := range ids {
		raw, ok := summaryResp.Result[id]
		if !ok {
			continue
		}
		var doc DocSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			// A single malformed summary does not fail the batch.
			continue
		}
		summaries[id] = doc
	}
	return summaries, nil
}

// getJSON performs a GET against the given E-utilities endpoint and
// decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}

	reqURL := baseURL.JoinPath(endpoint)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// docToItem converts a PubMed document summary to a normalized search item.
func docToItem(id string, doc DocSummary) domain.SearchItem {
	authors := make([]string, 0, len(doc.Authors))
	for _, a := range doc.Authors {
		authors = append(authors, a.Name)
	}

	return domain.SearchItem{
		ID:      idPrefix + id,
		Source:  domain.SourceTypePubMed,
		Title:   doc.Title,
		Authors: authors,
		URL:     articleURLPrefix + id + "/",
		Year:    yearFromPubDate(doc.PubDate),
	}
}

// yearFromPubDate extracts the publication year from a free-text pubdate
// like "2023 Jan 15" or "2021 Nov-Dec". Returns 0 when the leading token
// is not a year.
func yearFromPubDate(pubdate string) int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return 0
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil || year < 1000 || year > 9999 {
		return 0
	}
	return year
}
