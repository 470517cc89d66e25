// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when no record matches the given id.
var ErrNotFound = errors.New("record not found")

// Record is a single stored row keyed by field name.
type Record map[string]any

// Query narrows a listing to a window of filtered, ordered records.
type Query struct {
	// Offset is the number of matching records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int

	// SortField orders results by this field. Empty means the store's
	// primary key.
	SortField string

	// SortDesc reverses the order.
	SortDesc bool

	// Filters restricts results to records whose fields equal these values.
	Filters map[string]any
}

// UpdateResult reports what an update operation touched.
type UpdateResult struct {
	RowsAffected int64 `json:"rows_affected"`
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// Model is the storage capability a resource needs to serve CRUD traffic.
type Model interface {
	// FindAndCount returns one page of records plus the total number of
	// records matching the query's filters, ignoring the page window.
	FindAndCount(ctx context.Context, q Query) ([]Record, int64, error)

	// FindByID retrieves a single record. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (Record, error)

	// Create stores a new record and returns it as stored, with any
	// generated fields filled in.
	Create(ctx context.Context, rec Record) (Record, error)

	// UpdateByID applies changes to an existing record and reports how
	// many rows changed. Updating an absent id reports zero rows and is
	// not an error.
	UpdateByID(ctx context.Context, id string, changes Record) (UpdateResult, error)

	// DeleteByID removes a record. Deleting an absent id is not an error.
	DeleteByID(ctx context.Context, id string) error
}
