// Package crossref provides a client for the Crossref REST API.
//
// Crossref is the DOI registration agency for scholarly publishing; its
// /works endpoint searches across registered publication metadata. This
// package implements the papersources.PaperSource interface for it.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse represents the response from the Crossref /works endpoint.
type WorksResponse struct {
	// Status is "ok" on success.
	Status string `json:"status"`

	// Message contains the result payload.
	Message WorksMessage `json:"message"`
}

// WorksMessage contains the works matching a query.
type WorksMessage struct {
	// TotalResults is the total number of works matching the query.
	TotalResults int `json:"total-results"`

	// Items contains the works returned for this page.
	Items []Work `json:"items"`
}

// Work represents a single registered work in a Crossref response.
type Work struct {
	// DOI is the Digital Object Identifier of the work.
	DOI string `json:"DOI"`

	// URL is the canonical URL for the work.
	URL string `json:"URL"`

	// Title holds the work's title(s); the first entry is the primary title.
	Title []string `json:"title"`

	// Abstract is the work's abstract, when deposited (often JATS markup).
	Abstract string `json:"abstract"`

	// Author is the list of work authors.
	Author []WorkAuthor `json:"author"`

	// Published holds the earliest known publication date.
	Published *PartedDate `json:"published"`
}

// WorkAuthor represents an author with separate given and family names.
type WorkAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// PartedDate is Crossref's date representation: an array of
// [year, month, day] parts, any suffix of which may be absent.
type PartedDate struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component of the date, or 0 if absent.
func (d *PartedDate) Year() int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}
