package service

import (
	"encoding/json"
)

// Per-URL outcome labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	ReasonInsufficientContent = "insufficient content"
)

// URLResult is the outcome of ingesting one URL: either a success with
// counts or a failure with a reason.
type URLResult struct {
	URL         string
	ChunksAdded int
	TotalChars  int
	Err         error
}

// Succeeded reports whether the URL was ingested.
func (r URLResult) Succeeded() bool { return r.Err == nil }

// Reason is the failure message, empty on success.
func (r URLResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON emits the success shape {url,status,chunks_added,total_chars}
// or the failure shape {url,status,reason}.
func (r URLResult) MarshalJSON() ([]byte, error) {
	if r.Succeeded() {
		return json.Marshal(struct {
			URL         string `json:"url"`
			Status      string `json:"status"`
			ChunksAdded int    `json:"chunks_added"`
			TotalChars  int    `json:"total_chars"`
		}{r.URL, StatusSuccess, r.ChunksAdded, r.TotalChars})
	}
	return json.Marshal(struct {
		URL    string `json:"url"`
		Status string `json:"status"`
		Reason string `json:"reason"`
	}{r.URL, StatusFailed, r.Reason()})
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Status       string      `json:"status"`
	Results      []URLResult `json:"results"`
	TotalURLs    int         `json:"total_urls"`
	Successful   int         `json:"successful"`
	TotalVectors int         `json:"total_vectors"`
}

func newReport(results []URLResult, totalVectors int) IngestReport {
	ok := 0
	for _, r := range results {
		if r.Succeeded() {
			ok++
		}
	}
	return IngestReport{
		Status:       "completed",
		Results:      results,
		TotalURLs:    len(results),
		Successful:   ok,
		TotalVectors: totalVectors,
	}
}
