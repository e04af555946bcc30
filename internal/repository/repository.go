package repository

import (
	"context"

	"coursebook/internal/domain"
)

// Repository defines the interface for course data access.
// Every method is a single statement against the backing store.
type Repository interface {
	// Read operations
	Query(ctx context.Context, q Query) (Cursor, error)
	Count(ctx context.Context) (int64, error)

	// Write operations
	Insert(ctx context.Context, values domain.Values) (int64, error)
	Update(ctx context.Context, values domain.Values, filter domain.Filter) (int64, error)
	Delete(ctx context.Context, filter domain.Filter) (int64, error)

	// Close releases resources
	Close() error
}

// Query describes a read against the courses table
type Query struct {
	// Columns is the projection; empty selects every column
	Columns []string
	Filter  domain.Filter
	// Order is an ORDER BY clause without the keywords
	Order string
}

// Cursor is a forward-only, one-shot sequence of query rows.
// Close must be called unless Next has returned false.
type Cursor interface {
	Next() bool
	Course() *domain.Course
	Columns() []string
	Err() error
	Close() error
}
