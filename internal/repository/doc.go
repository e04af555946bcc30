// Package repository defines the data access interfaces for coursebook.
//
// This package provides the repository abstraction over the single courses
// table. The actual implementation is in the sqlite subpackage.
//
// # Repository Interface
//
// Repository exposes single-statement query, insert, update and delete
// operations. Queries return a Cursor that streams rows lazily and must be
// closed by the caller; the sqlite cursor also closes itself once exhausted.
//
// # SQLite Implementation
//
// The sqlite implementation opens its database lazily on first use and keeps
// the handle until Close. It runs in WAL mode with a busy timeout so that
// concurrent writers are serialized by SQLite's own locking.
//
// # Schema Versioning
//
// The schema version is stored in PRAGMA user_version. Any difference between
// the stored and the expected version drops and recreates the courses table;
// there is no in-place migration.
package repository
