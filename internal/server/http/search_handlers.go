package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/scholarly/paper-search-service/internal/domain"
	"github.com/scholarly/paper-search-service/internal/search"
)

// Validation constants.
const (
	maxQueryLength     = 10000
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// deepResearchRequest is the JSON request body for a deep research run.
type deepResearchRequest struct {
	Topic         string `json:"topic"`
	MaxSources    int    `json:"maxSources,omitempty"`
	ResearchDepth string `json:"researchDepth,omitempty"`
	Language      string `json:"language,omitempty"`
}

// handleSearch handles GET /search.
// It runs a single-provider or federated search and always answers 200
// once the query parameters validate.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("q must be at most %d characters", maxQueryLength))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		if parsed < search.MinLimit || parsed > search.MaxLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between %d and %d", search.MinLimit, search.MaxLimit))
			return
		}
		limit = parsed
	}

	resp := s.searchSvc.Search(r.Context(), search.Request{
		Query:    query,
		Provider: domain.SourceType(r.URL.Query().Get("provider")),
		Limit:    limit,
	})

	writeJSON(w, http.StatusOK, resp)
}

// handleDeepResearch handles POST /search/deep-research.
func (s *Server) handleDeepResearch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req deepResearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if len(req.Topic) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("topic must be at most %d characters", maxQueryLength))
		return
	}
	switch req.ResearchDepth {
	case "", search.DepthQuick, search.DepthStandard, search.DepthDeep:
	default:
		writeError(w, http.StatusBadRequest, "researchDepth must be one of quick, standard, deep")
		return
	}
	if req.MaxSources < 0 {
		writeError(w, http.StatusBadRequest, "maxSources must be positive")
		return
	}

	resp := s.searchSvc.DeepResearch(r.Context(), search.DeepResearchRequest{
		Topic:      req.Topic,
		MaxSources: req.MaxSources,
		Depth:      req.ResearchDepth,
		Language:   req.Language,
	})

	writeJSON(w, http.StatusOK, resp)
}
