package cache

import "fmt"

// Kind distinguishes the two request identities the pipeline caches.
type Kind string

const (
	// KindList identifies a list-phase page, keyed by since-cursor and
	// page size.
	KindList Kind = "list"

	// KindDetail identifies a detail-phase fetch, keyed by repository ID.
	KindDetail Kind = "detail"
)

// Key is the logical identity of a cached response.
type Key struct {
	Kind Kind

	// Since is the list-phase cursor parameter (KindList only).
	Since int64

	// PerPage is the list-phase page size (KindList only). It is part of
	// the identity: pages fetched at different sizes hold different slices
	// of the catalog and must not share an entry.
	PerPage int

	// RepoID is the repository identifier (KindDetail only).
	RepoID int64
}

// String generates a deterministic cache key string.
//
// Example:
//
//	ghx:list:since=6100:per=100
//	ghx:detail:id=28457823
func (k Key) String() string {
	switch k.Kind {
	case KindList:
		return fmt.Sprintf("ghx:list:since=%d:per=%d", k.Since, k.PerPage)
	case KindDetail:
		return fmt.Sprintf("ghx:detail:id=%d", k.RepoID)
	default:
		return fmt.Sprintf("ghx:%s", k.Kind)
	}
}

// Filename returns the file name used by the filesystem store.
func (k Key) Filename() string {
	switch k.Kind {
	case KindList:
		return fmt.Sprintf("list_since_%d_per_%d.json", k.Since, k.PerPage)
	case KindDetail:
		return fmt.Sprintf("detail_%d.json", k.RepoID)
	default:
		return fmt.Sprintf("%s.json", k.Kind)
	}
}
