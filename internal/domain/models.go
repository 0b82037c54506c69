// Package domain provides domain models and business logic for the Paper Search Service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType represents the provider API that produced a search result.
// These values must match the database enum source_type.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeCrossref        SourceType = "crossref"
	SourceTypeWebSearch       SourceType = "web_search"

	// SourceTypeAllSources is a provider selector for federated search across all
	// sources. It is never attached to an individual result item.
	SourceTypeAllSources SourceType = "all_sources"
)

// IsValidSourceType returns true if the source type identifies a real provider
// or the all-sources selector.
func IsValidSourceType(s SourceType) bool {
	switch s {
	case SourceTypeSemanticScholar, SourceTypeArXiv, SourceTypePubMed,
		SourceTypeCrossref, SourceTypeWebSearch, SourceTypeAllSources:
		return true
	default:
		return false
	}
}

// SearchItem is a normalized paper record returned by a provider client.
//
// ID is a provider-scoped external identifier; uniqueness is only guaranteed
// within a single provider. Year is zero when the publication year is unknown.
type SearchItem struct {
	ID       string     `json:"id"`
	Source   SourceType `json:"source"`
	Title    string     `json:"title"`
	Authors  []string   `json:"authors"`
	Abstract string     `json:"abstract,omitempty"`
	URL      string     `json:"url,omitempty"`
	Year     int        `json:"year,omitempty"`
}

// CachedPaper is the persisted mirror of a SearchItem plus the raw provider
// payload. Rows are keyed by ExternalID alone, without namespacing by source;
// identifiers that collide across providers overwrite each other. That is the
// historical contract of the cache and lookups depend on it.
type CachedPaper struct {
	ExternalID string
	Source     SourceType
	Title      string
	Authors    []string
	Abstract   string
	URL        string
	Year       int
	RawPayload []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SummaryInputSource records what kind of input a summary was generated from.
type SummaryInputSource string

const (
	SummaryInputAbstract SummaryInputSource = "abstract"
	SummaryInputText     SummaryInputSource = "text"
)

// Summary is a memoized generative-model summary, unique per InputHash.
// Rows are immutable after creation; a repeated request with identical
// normalized input returns the stored row instead of calling the model again.
type Summary struct {
	ID        uuid.UUID
	UserID    string
	PaperID   string
	Source    SummaryInputSource
	InputHash string
	Summary   string
	KeyIdeas  []string
	CreatedAt time.Time
}
