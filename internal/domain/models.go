package domain

import "time"

// Snapshot is the share-count state of one target.
type Snapshot struct {
	URL         string            `json:"url"`
	ResolvedURL string            `json:"resolved_url"`
	Counts      map[string]int64  `json:"counts"`
	Deltas      map[string]int64  `json:"deltas,omitempty"`
	Failures    map[string]string `json:"failures,omitempty"`
	Total       int64             `json:"total"`
}

// Published is the last state of a target that reached at least one sink.
// Counts holds only networks whose lookup succeeded.
type Published struct {
	ResolvedURL string           `json:"resolved_url"`
	Counts      map[string]int64 `json:"counts"`
	PublishedAt time.Time        `json:"published_at"`
}
