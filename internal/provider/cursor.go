package provider

import (
	"iter"
	"sync"

	"coursebook/internal/domain"
	"coursebook/internal/notify"
	"coursebook/internal/repository"
)

// Cursor is a lazy, forward-only, one-shot sequence of courses. It watches
// the resource it was queried for and reports when its rows are stale.
// Close releases both the rows and the watch.
type Cursor struct {
	repository.Cursor

	uri     string
	sub     *notify.Subscription
	changed chan struct{}
	once    sync.Once
}

// URI returns the canonical identifier of the queried resource
func (c *Cursor) URI() string {
	return c.uri
}

// Changed is closed once the data behind the cursor changes
func (c *Cursor) Changed() <-chan struct{} {
	return c.changed
}

// Stale reports whether a change was signalled since the query started.
// Once stale, a cursor stays stale; callers re-query to refresh.
func (c *Cursor) Stale() bool {
	select {
	case <-c.changed:
		return true
	default:
		return false
	}
}

func (c *Cursor) markStale(notify.Change) {
	c.once.Do(func() { close(c.changed) })
}

// Close releases the rows and stops watching for changes
func (c *Cursor) Close() error {
	c.sub.Close()
	return c.Cursor.Close()
}

// All iterates the remaining rows. The cursor is closed when iteration
// stops for any reason, including an early break by the caller. An
// iteration error is yielded last with a nil course.
func (c *Cursor) All() iter.Seq2[*domain.Course, error] {
	return func(yield func(*domain.Course, error) bool) {
		defer c.Close()

		for c.Next() {
			if !yield(c.Course(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Collect drains the cursor into a slice and closes it
func (c *Cursor) Collect() ([]domain.Course, error) {
	var out []domain.Course
	for course, err := range c.All() {
		if err != nil {
			return out, err
		}
		out = append(out, *course)
	}
	return out, nil
}
