// Package summarize implements paper summarization and abstract analysis
// backed by a generative model.
//
// Summaries are memoized by a content hash of the input text: repeated
// requests for the same text return the stored summary without another
// model call. Analysis is a stateless sibling operation with stricter
// failure semantics.
package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/llm"
	"github.com/scholarly/paper-search-service/internal/observability"
	"github.com/scholarly/paper-search-service/internal/repository"
	"github.com/scholarly/paper-search-service/internal/search"
)

const (
	// defaultTemperature is the sampling temperature for model calls.
	defaultTemperature = 0.3

	// defaultMaxTokens bounds summary completions.
	defaultMaxTokens = 1000

	// fallbackTruncateLen is how much raw model output is kept when the
	// response is not valid JSON.
	fallbackTruncateLen = 500

	// relatedPapersLimit is how many related papers are fetched.
	relatedPapersLimit = 5

	// relatedKeyIdeas is how many key ideas seed the related-paper query.
	relatedKeyIdeas = 3
)

// fallbackSummary is returned when the model call itself fails.
const fallbackSummary = "An error occurred while generating the summary"

// emptySummary substitutes a missing summary field in model output.
const emptySummary = "Could not generate a summary"

// Request describes a summarization request. Exactly one of PaperID,
// Text, or URL must be set.
type Request struct {
	// PaperID looks the text up in the paper cache by external ID.
	PaperID string

	// Text is raw text to summarize directly.
	Text string

	// URL is not supported yet and yields a not-implemented error.
	URL string
}

// RelatedPaper is a compact reference to a paper related to a summary.
type RelatedPaper struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	Source string `json:"source"`
}

// SummaryResponse is the result of a summarization.
type SummaryResponse struct {
	Summary       string         `json:"summary"`
	KeyIdeas      []string       `json:"keyIdeas"`
	RelatedPapers []RelatedPaper `json:"relatedPapers"`
}

// Searcher is the orchestrator surface needed for related-paper lookup.
type Searcher interface {
	Search(ctx context.Context, req search.Request) *search.Response
}

// Options tunes the model calls made by the service.
type Options struct {
	// Temperature is the sampling temperature. Zero means the default.
	Temperature float64

	// MaxTokens bounds summary completions. Zero means the default.
	MaxTokens int
}

// Service generates and memoizes paper summaries.
type Service struct {
	summaries repository.SummaryRepository
	cache     repository.PaperCacheRepository
	model     llm.ChatCompleter
	searcher  Searcher
	metrics   *observability.Metrics
	logger    zerolog.Logger

	temperature float64
	maxTokens   int
}

// NewService creates a summarization service. The searcher may be nil,
// in which case related papers are not looked up.
func NewService(
	summaries repository.SummaryRepository,
	cache repository.PaperCacheRepository,
	model llm.ChatCompleter,
	searcher Searcher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	opts Options,
) *Service {
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	return &Service{
		summaries:   summaries,
		cache:       cache,
		model:       model,
		searcher:    searcher,
		metrics:     metrics,
		logger:      logger.With().Str("component", "summarize").Logger(),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Summarize resolves the input text, returns a memoized summary when one
// exists for the same content hash, and otherwise generates, persists,
// and enriches a new one with related papers.
func (s *Service) Summarize(ctx context.Context, req Request, userID string) (*SummaryResponse, error) {
	text, inputSource, err := s.resolveInput(ctx, req)
	if err != nil {
		return nil, err
	}

	inputHash := hashInput(text)

	existing, err := s.summaries.GetByInputHash(ctx, inputHash)
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordSummaryMemoized()
		}
		return &SummaryResponse{
			Summary:       existing.Summary,
			KeyIdeas:      existing.KeyIdeas,
			RelatedPapers: []RelatedPaper{},
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up existing summary: %w", err)
	}

	content := s.generateSummary(ctx, text)

	summary := &domain.Summary{
		UserID:    userID,
		PaperID:   req.PaperID,
		Source:    inputSource,
		InputHash: inputHash,
		Summary:   content.Summary,
		KeyIdeas:  content.KeyIdeas,
	}
	if _, err := s.summaries.Create(ctx, summary); err != nil {
		// Two concurrent requests with identical text race on the hash's
		// unique constraint; the loser returns the winner's row.
		if errors.Is(err, domain.ErrAlreadyExists) {
			winner, fetchErr := s.summaries.GetByInputHash(ctx, inputHash)
			if fetchErr != nil {
				return nil, fmt.Errorf("re-fetching summary after conflict: %w", fetchErr)
			}
			if s.metrics != nil {
				s.metrics.RecordSummaryMemoized()
			}
			return &SummaryResponse{
				Summary:       winner.Summary,
				KeyIdeas:      winner.KeyIdeas,
				RelatedPapers: []RelatedPaper{},
			}, nil
		}
		return nil, fmt.Errorf("persisting summary: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSummaryGenerated()
	}

	return &SummaryResponse{
		Summary:       content.Summary,
		KeyIdeas:      content.KeyIdeas,
		RelatedPapers: s.findRelatedPapers(ctx, content.KeyIdeas),
	}, nil
}

// resolveInput validates the request and returns the text to summarize
// together with its input source label.
func (s *Service) resolveInput(ctx context.Context, req Request) (string, domain.SummaryInputSource, error) {
	provided := 0
	for _, v := range []string{req.PaperID, req.Text, req.URL} {
		if v != "" {
			provided++
		}
	}
	if provided == 0 {
		return "", "", domain.NewValidationError("input", "either paperId, text, or url must be provided")
	}
	if provided > 1 {
		return "", "", domain.NewValidationError("input", "only one of paperId, text, or url may be provided")
	}

	switch {
	case req.URL != "":
		return "", "", fmt.Errorf("url summarization: %w", domain.ErrNotImplemented)
	case req.PaperID != "":
		paper, err := s.cache.GetByExternalID(ctx, req.PaperID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				if s.metrics != nil {
					s.metrics.RecordCacheMiss()
				}
				return "", "", err
			}
			return "", "", fmt.Errorf("looking up cached paper: %w", err)
		}
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		text := paper.Abstract
		if text == "" {
			text = paper.Title
		}
		return text, domain.SummaryInputAbstract, nil
	default:
		return req.Text, domain.SummaryInputText, nil
	}
}

// generateSummary calls the model and parses its structured output.
// It never fails: a transport failure yields a fixed fallback summary,
// and unparseable output degrades to truncated raw text.
func (s *Service) generateSummary(ctx context.Context, text string) *llm.SummaryContent {
	start := time.Now()
	result, err := s.model.Complete(ctx, []llm.ChatMessage{
		{Role: llm.RoleUser, Content: llm.BuildSummaryPrompt(text)},
	}, llm.ChatOptions{
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("generating summary failed")
		if s.metrics != nil {
			s.metrics.RecordSummaryFailed()
			s.metrics.RecordLLMRequestFailed("summarize", s.model.Model(), "transport")
		}
		return &llm.SummaryContent{
			Summary:  fallbackSummary,
			KeyIdeas: []string{},
		}
	}

	if s.metrics != nil {
		s.metrics.RecordLLMRequest("summarize", result.Model, time.Since(start).Seconds(), result.InputTokens, result.OutputTokens)
	}

	content, err := llm.ParseSummaryContent(result.Content)
	if err != nil {
		s.logger.Warn().Err(err).Msg("model returned non-JSON summary, truncating raw output")
		return &llm.SummaryContent{
			Summary:  truncate(result.Content, fallbackTruncateLen) + "...",
			KeyIdeas: []string{},
		}
	}

	if content.Summary == "" {
		content.Summary = emptySummary
	}
	return content
}

// findRelatedPapers queries the orchestrator with the top key ideas.
// Best-effort: any problem yields an empty list.
func (s *Service) findRelatedPapers(ctx context.Context, keyIdeas []string) []RelatedPaper {
	if s.searcher == nil || len(keyIdeas) == 0 {
		return []RelatedPaper{}
	}

	ideas := keyIdeas
	if len(ideas) > relatedKeyIdeas {
		ideas = ideas[:relatedKeyIdeas]
	}

	resp := s.searcher.Search(ctx, search.Request{
		Query:    strings.Join(ideas, " "),
		Provider: domain.SourceTypeSemanticScholar,
		Limit:    relatedPapersLimit,
	})

	related := make([]RelatedPaper, 0, len(resp.Items))
	for _, item := range resp.Items {
		related = append(related, RelatedPaper{
			ID:     item.ID,
			Title:  item.Title,
			URL:    item.URL,
			Source: string(item.Source),
		})
	}
	return related
}

// hashInput computes the memoization key: a SHA-256 over the trimmed,
// lowercased text, so inputs differing only by case or surrounding
// whitespace share a summary.
func hashInput(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

// truncate returns at most n bytes of s, cutting back to a rune
// boundary so multi-byte characters are never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
