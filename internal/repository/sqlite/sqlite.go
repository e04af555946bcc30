package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"coursebook/internal/contract"
	"coursebook/internal/domain"
	"coursebook/internal/repository"
)

// DefaultSchemaVersion is the schema version written by this build
const DefaultSchemaVersion = 1

// ErrClosed is returned by every operation after Close
var ErrClosed = errors.New("store is closed")

// Options configures the SQLite store
type Options struct {
	// Path to the database file, or ":memory:"
	Path string
	// SchemaVersion stored in PRAGMA user_version; any mismatch drops and
	// recreates the table
	SchemaVersion int
	BusyTimeout   time.Duration
	Logger        *zap.Logger
}

// Repository implements repository.Repository using SQLite
type Repository struct {
	opts Options
	sb   squirrel.StatementBuilderType
	log  *zap.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

var _ repository.Repository = (*Repository)(nil)

// New creates a SQLite repository. The database is not opened until the
// first operation needs it.
func New(opts Options) *Repository {
	if opts.SchemaVersion <= 0 {
		opts.SchemaVersion = DefaultSchemaVersion
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Repository{
		opts: opts,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log:  opts.Logger,
	}
}

// Open creates a repository and opens the database immediately
func Open(ctx context.Context, opts Options) (*Repository, error) {
	repo := New(opts)
	if _, err := repo.conn(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// conn returns the shared handle, opening and migrating it on first use.
// Concurrent first callers wait on the mutex so only one open happens.
func (r *Repository) conn(ctx context.Context) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.db != nil {
		return r.db, nil
	}

	db, err := sql.Open("sqlite", r.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if r.opts.Path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, db, r.opts.SchemaVersion, r.log); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	r.log.Info("database opened", zap.String("path", r.opts.Path), zap.Int("schema_version", r.opts.SchemaVersion))
	r.db = db
	return db, nil
}

func (r *Repository) dsn() string {
	if r.opts.Path == ":memory:" {
		return ":memory:"
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		r.opts.Path, r.opts.BusyTimeout.Milliseconds())
}

const createCourses = `
	CREATE TABLE IF NOT EXISTS ` + contract.Table + ` (
		` + contract.ColumnID + ` INTEGER PRIMARY KEY AUTOINCREMENT,
		` + contract.ColumnName + ` TEXT NOT NULL,
		` + contract.ColumnRoom + ` TEXT NOT NULL DEFAULT '',
		` + contract.ColumnTeacher + ` TEXT NOT NULL DEFAULT '',
		` + contract.ColumnTime + ` TEXT NOT NULL DEFAULT '',
		` + contract.ColumnDay + ` TEXT NOT NULL DEFAULT ''
	);`

// migrate brings the schema to version. A database at any other non-zero
// version loses its courses table.
func migrate(ctx context.Context, db *sql.DB, version int, log *zap.Logger) error {
	var current int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if current != 0 && current != version {
		log.Warn("schema version changed, dropping courses table",
			zap.Int("from", current), zap.Int("to", version))
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+contract.Table); err != nil {
			return fmt.Errorf("failed to drop courses: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, createCourses); err != nil {
		return fmt.Errorf("failed to create courses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SchemaVersion returns the version stored in the database
func (r *Repository) SchemaVersion(ctx context.Context) (int, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Query runs a select and returns a lazy cursor over the rows
func (r *Repository) Query(ctx context.Context, q repository.Query) (repository.Cursor, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = contract.Columns
	}

	sel := r.sb.Select(columns...).From(contract.Table)
	if !q.Filter.IsZero() {
		sel = sel.Where(q.Filter.Where, q.Filter.Args...)
	}
	if q.Order != "" {
		sel = sel.OrderBy(q.Order)
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}

	return newCursor(rows, columns), nil
}

// Count returns the number of stored courses
func (r *Repository) Count(ctx context.Context) (int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := r.sb.Select("COUNT(*)").From(contract.Table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

// Insert stores a new course and returns its id. Optional columns that are
// absent from values are stored empty.
func (r *Repository) Insert(ctx context.Context, values domain.Values) (int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	row := make(map[string]any, len(contract.WritableColumns))
	for _, c := range contract.WritableColumns {
		if c != contract.ColumnName {
			row[c] = ""
		}
	}
	for k, v := range values {
		row[k] = v
	}

	query, args, err := r.sb.Insert(contract.Table).SetMap(row).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert course: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// Update sets values on every row matching filter and returns the count
func (r *Repository) Update(ctx context.Context, values domain.Values, filter domain.Filter) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}

	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	set := make(map[string]any, len(values))
	for k, v := range values {
		set[k] = v
	}

	upd := r.sb.Update(contract.Table).SetMap(set)
	if !filter.IsZero() {
		upd = upd.Where(filter.Where, filter.Args...)
	}

	query, args, err := upd.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update: %w", err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update courses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// Delete removes every row matching filter; an empty filter removes all rows
func (r *Repository) Delete(ctx context.Context, filter domain.Filter) (int64, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	del := r.sb.Delete(contract.Table)
	if !filter.IsZero() {
		del = del.Where(filter.Where, filter.Args...)
	}

	query, args, err := del.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete: %w", err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete courses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// Close closes the database connection. Later operations fail with ErrClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
