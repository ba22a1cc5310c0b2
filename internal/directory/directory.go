// Package directory exposes the member directory sourced from an external
// spreadsheet collaborator. The service consumes the upstream only through
// the Fetcher port and caches the last result in a single slot, since one
// operator identity means one shared view of the data.
package directory

import "context"

// Member is one directory row, keyed by the sheet's column headers. The
// column schema is the sheet's business, not ours.
type Member map[string]string

// Fetcher pulls the full member list from the upstream collaborator.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Member, error)
}

// Cache is a single-slot TTL cache for the directory. Load returns
// sentinel.ErrNotFound (wrapped) when the slot is empty or stale.
type Cache interface {
	Load(ctx context.Context) ([]Member, error)
	Store(ctx context.Context, members []Member) error
}
