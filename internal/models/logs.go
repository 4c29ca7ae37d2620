package models

import "github.com/kubedeck/kubedeck-backend/internal/logsearch"

// LogSearchLine is one matching log line with highlight markup applied.
type LogSearchLine struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp,omitempty"`
	Content   string `json:"content"`
	HTML      string `json:"html"`
}

// LogSearchResult is the response body for the pod log search endpoint.
type LogSearchResult struct {
	Query        string            `json:"query"`
	TotalLines   int               `json:"totalLines"`
	TotalMatches int               `json:"totalMatches"`
	Matches      []logsearch.Match `json:"matches"`
	Lines        []LogSearchLine   `json:"lines"`
}
