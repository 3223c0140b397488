package cache

import "time"

// Entry is a cached raw API response.
type Entry struct {
	// Data is the raw response body.
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// FetchedAt is when the response was fetched from the API.
	FetchedAt time.Time `json:"fetched_at"`
}
