package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/llm"
)

// AnalyzeRequest carries the paper whose abstract should be analyzed.
// Abstract is required; the remaining fields are echoed back.
type AnalyzeRequest struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url"`
	Year     int      `json:"year"`
}

// AnalyzeResponse is the analyzed paper: the original fields plus the
// model's summary, keywords, and topic classification.
type AnalyzeResponse struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url,omitempty"`
	Year     int      `json:"year,omitempty"`

	Summary  string   `json:"summary"`
	KeyWords []string `json:"keyWords"`
	Topic    string   `json:"topic"`
}

// Analyze classifies a paper's abstract into a summary, keywords, and a
// topic. Unlike Summarize it is not memoized and does not degrade: a
// failed model call or unparseable output is an error.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	if req.Abstract == "" {
		return nil, fmt.Errorf("analyzing paper %q: abstract is empty: %w", req.ID, domain.ErrInternalError)
	}

	system, user := llm.BuildAnalysisPrompt(req.Abstract)

	start := time.Now()
	result, err := s.model.Complete(ctx, []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, llm.ChatOptions{
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("paper_id", req.ID).Msg("analyzing abstract failed")
		if s.metrics != nil {
			s.metrics.RecordAnalysisFailed()
			s.metrics.RecordLLMRequestFailed("analyze", s.model.Model(), "transport")
		}
		return nil, fmt.Errorf("analyzing abstract: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLLMRequest("analyze", result.Model, time.Since(start).Seconds(), result.InputTokens, result.OutputTokens)
	}

	content, err := llm.ParseAnalysisContent(result.Content)
	if err != nil {
		s.logger.Error().Err(err).Str("paper_id", req.ID).Msg("model returned unparseable analysis")
		if s.metrics != nil {
			s.metrics.RecordAnalysisFailed()
		}
		return nil, fmt.Errorf("parsing analysis output: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordAnalysisCompleted()
	}

	return &AnalyzeResponse{
		ID:       req.ID,
		Source:   req.Source,
		Title:    req.Title,
		Authors:  req.Authors,
		Abstract: req.Abstract,
		URL:      req.URL,
		Year:     req.Year,
		Summary:  content.Summary,
		KeyWords: content.KeyWords,
		Topic:    content.Topic,
	}, nil
}
