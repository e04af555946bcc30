// Package domain defines the core types for coursebook.
//
// Course is the single entity: a schedule entry with a required name and
// free-form room, teacher, time and day fields. Values carries a partial set
// of column values for inserts and updates, and Filter carries an optional
// SQL predicate with positional arguments.
//
// The only invariant enforced on writes is that a stored course always has
// a non-empty name.
package domain
