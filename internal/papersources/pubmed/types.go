// Package pubmed provides a client for the NCBI PubMed E-utilities API.
//
// Searching PubMed is a two-step process: esearch.fcgi returns matching
// PubMed IDs for a query, and esummary.fcgi returns document summaries
// for a batch of IDs. Both endpoints are queried in JSON mode.
//
// API Documentation: https://www.ncbi.nlm.nih.gov/books/NBK25501/
package pubmed

import "encoding/json"

// ESearchResponse represents the response from the esearch.fcgi endpoint.
type ESearchResponse struct {
	ESearchResult ESearchResult `json:"esearchresult"`
}

// ESearchResult contains the search result payload of an esearch response.
type ESearchResult struct {
	// Count is the total number of records matching the query.
	Count string `json:"count"`

	// IDList contains the matching PubMed IDs, most relevant first.
	IDList []string `json:"idlist"`
}

// ESummaryResponse represents the response from the esummary.fcgi endpoint.
type ESummaryResponse struct {
	// Result maps each PubMed ID to its document summary. The map also
	// contains a "uids" key holding the ID list, so values are decoded
	// individually.
	Result map[string]json.RawMessage `json:"result"`
}

// DocSummary represents a single article summary in an esummary response.
type DocSummary struct {
	// UID is the PubMed ID of the article.
	UID string `json:"uid"`

	// Title is the article title.
	Title string `json:"title"`

	// Authors is the list of article authors.
	Authors []DocAuthor `json:"authors"`

	// PubDate is the free-text publication date, e.g. "2023 Jan 15".
	PubDate string `json:"pubdate"`
}

// DocAuthor represents an author entry in a document summary.
type DocAuthor struct {
	// Name is the author's display name, e.g. "Doe J".
	Name string `json:"name"`
}
