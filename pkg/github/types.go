package github

import (
	"encoding/json"
	"fmt"
)

// ListEntry is the minimal record returned by the list phase. It carries just
// enough to drive the detail phase and is never persisted standalone.
type ListEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
	HTMLURL string `json:"html_url"`
}

// ParseListPage decodes a raw list-phase response body.
func ParseListPage(data []byte) ([]ListEntry, error) {
	var entries []ListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse list page: %w", err)
	}
	return entries, nil
}
