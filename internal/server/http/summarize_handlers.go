package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/observability"
	"github.com/scholarly/paper-search-service/internal/summarize"
)

// summarizeRequest is the JSON request body for a summarization.
// Exactly one of the fields must be set.
type summarizeRequest struct {
	PaperID string `json:"paperId,omitempty"`
	Text    string `json:"text,omitempty"`
	URL     string `json:"url,omitempty"`
}

// analyzeArticleRequest is the JSON request body for article analysis.
type analyzeArticleRequest struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url,omitempty"`
	Year     int      `json:"year,omitempty"`
}

// analyzeArticleResponse wraps an analysis in the success envelope.
type analyzeArticleResponse struct {
	Success bool                       `json:"success"`
	Data    *summarize.AnalyzeResponse `json:"data"`
}

type summaryHistoryEntry struct {
	ID        string    `json:"id"`
	PaperID   string    `json:"paperId,omitempty"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	KeyIdeas  []string  `json:"keyIdeas"`
	CreatedAt time.Time `json:"createdAt"`
}

type listSummariesResponse struct {
	Summaries []summaryHistoryEntry `json:"summaries"`
	Count     int                   `json:"count"`
}

// handleSummarize handles POST /summarize.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req summarizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	userID := observability.UserIDFromContext(r.Context())
	if userID == "" {
		userID = anonymousUserID
	}

	resp, err := s.summarizeSvc.Summarize(r.Context(), summarize.Request{
		PaperID: req.PaperID,
		Text:    req.Text,
		URL:     req.URL,
	}, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListSummaries handles GET /summaries.
// It returns the caller's most recent summaries, newest first.
func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	userID := observability.UserIDFromContext(r.Context())
	if userID == "" {
		userID = anonymousUserID
	}

	summaries, err := s.summaryRepo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]summaryHistoryEntry, len(summaries))
	for i, sum := range summaries {
		keyIdeas := sum.KeyIdeas
		if keyIdeas == nil {
			keyIdeas = []string{}
		}
		entries[i] = summaryHistoryEntry{
			ID:        sum.ID.String(),
			PaperID:   sum.PaperID,
			Source:    string(sum.Source),
			Summary:   sum.Summary,
			KeyIdeas:  keyIdeas,
			CreatedAt: sum.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, listSummariesResponse{
		Summaries: entries,
		Count:     len(entries),
	})
}

// handleAnalyzeArticle handles POST /analytics/article.
func (s *Server) handleAnalyzeArticle(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req analyzeArticleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	resp, err := s.summarizeSvc.Analyze(r.Context(), summarize.AnalyzeRequest{
		ID:       req.ID,
		Source:   req.Source,
		Title:    req.Title,
		Authors:  req.Authors,
		Abstract: req.Abstract,
		URL:      req.URL,
		Year:     req.Year,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeArticleResponse{
		Success: true,
		Data:    resp,
	})
}

// writeDomainError maps domain errors to HTTP status codes and writes a
// JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrNotImplemented):
		writeError(w, http.StatusBadRequest, "requested capability is not implemented")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
