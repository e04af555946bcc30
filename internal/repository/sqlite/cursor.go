package sqlite

import (
	"database/sql"
	"fmt"

	"coursebook/internal/domain"
)

// cursor streams courses from *sql.Rows. It closes the rows as soon as they
// are exhausted or a scan fails, so a fully consumed cursor holds nothing.
type cursor struct {
	rows    *sql.Rows
	columns []string
	current *domain.Course
	err     error
	closed  bool
}

func newCursor(rows *sql.Rows, columns []string) *cursor {
	return &cursor{rows: rows, columns: columns}
}

// Next advances to the next row
func (c *cursor) Next() bool {
	if c.closed {
		return false
	}

	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.Close()
		return false
	}

	course := &domain.Course{}
	args, err := scanArgs(course, c.columns)
	if err != nil {
		c.err = err
		c.Close()
		return false
	}
	if err := c.rows.Scan(args...); err != nil {
		c.err = fmt.Errorf("failed to scan course: %w", err)
		c.Close()
		return false
	}

	c.current = course
	return true
}

// Course returns the row Next advanced to
func (c *cursor) Course() *domain.Course {
	return c.current
}

// Columns returns the projected columns
func (c *cursor) Columns() []string {
	return c.columns
}

// Err returns the first error met while iterating
func (c *cursor) Err() error {
	return c.err
}

// Close releases the rows. Safe to call more than once.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.current = nil
	return c.rows.Close()
}

// scanArgs returns pointers into course for each projected column.
// Order MUST match the SELECT column list.
func scanArgs(course *domain.Course, columns []string) ([]any, error) {
	args := make([]any, len(columns))
	for i, col := range columns {
		ptr := course.Field(col)
		if ptr == nil {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		args[i] = ptr
	}
	return args, nil
}
