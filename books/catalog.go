package books

import "context"

// CatalogEntry is one record as the external catalog describes it.
type CatalogEntry struct {
	ID       string
	Title    string
	Author   *string
	CoverURL *string
}

// Catalog is the remote, read-only book lookup service.
//
// Lookup must fail with an error wrapping common.ErrUnknownBook when the
// catalog has no such record, and common.ErrUpstreamUnavailable for any other
// failure.
type Catalog interface {
	Lookup(ctx context.Context, id string) (*CatalogEntry, error)
	Search(ctx context.Context, query string, limit int) ([]CatalogEntry, error)
}
