// Package margaux is the public face of the library: a Database handle over
// one SQLite file, exposing the element, relation, time-series, comparison
// and migration operations of the underlying engine.
//
// A Database is not safe for concurrent use. Callers that share one handle
// across goroutines must serialise access themselves.
package margaux

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/margauxdb/margaux/internal/element"
	"github.com/margauxdb/margaux/internal/logging"
	"github.com/margauxdb/margaux/internal/migrate"
	"github.com/margauxdb/margaux/internal/observability"
	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/internal/sqlexec"
	"github.com/margauxdb/margaux/pkg/types"
)

// Options configures how a Database is opened.
type Options struct {
	// ReadOnly opens the file without write access.
	ReadOnly bool

	// LogLevel is one of debug, info, warn, error, off. Empty means off.
	LogLevel string

	// BusyTimeout is how long a locked database is retried before the
	// operation fails. Zero means 5s.
	BusyTimeout time.Duration
}

// Database is a handle on one database file.
type Database struct {
	exec   *sqlexec.Executor
	engine *element.Engine
	log    *zap.SugaredLogger
	stats  *observability.OpStats
	closed bool
}

func buildLogger(level string) (*zap.SugaredLogger, error) {
	if level == "" {
		return zap.NewNop().Sugar(), nil
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(parsed), nil
}

// Open opens an existing database file and loads its schema.
func Open(ctx context.Context, path string, opts Options) (*Database, error) {
	log, err := buildLogger(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	exec, err := sqlexec.Open(ctx, path, sqlexec.Options{
		ReadOnly:    opts.ReadOnly,
		BusyTimeout: opts.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	s, err := schema.Load(ctx, exec)
	if err != nil {
		exec.Close()
		return nil, err
	}
	return &Database{
		exec:   exec,
		engine: element.New(exec, s, log),
		log:    log,
		stats:  observability.NewOpStats(),
	}, nil
}

// FromSchema creates or opens the database file, applies the given schema
// text, and loads the resulting schema.
func FromSchema(ctx context.Context, path, schemaText string, opts Options) (*Database, error) {
	db, err := Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if err := schema.Apply(ctx, db.exec, schemaText); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.ReloadSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// FromMigrations creates or opens the database file, applies the pending
// migrations from dir, and loads the resulting schema.
func FromMigrations(ctx context.Context, path, dir string, opts Options) (*Database, error) {
	db, err := Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if _, err := db.ApplyMigrations(ctx, dir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (d *Database) Path() string { return d.exec.Path() }

// IsHealthy reports whether the handle is open and the connection answers a
// trivial query.
func (d *Database) IsHealthy(ctx context.Context) bool {
	if d.closed {
		return false
	}
	_, err := d.exec.Execute(ctx, "SELECT 1")
	return err == nil
}

// Close releases the connection. The handle is unusable afterwards.
func (d *Database) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Sync()
	return d.exec.Close()
}

// ReloadSchema re-reads the schema from the database. Call it after Execute
// runs DDL that the handle should see.
func (d *Database) ReloadSchema(ctx context.Context) error {
	s, err := schema.Load(ctx, d.exec)
	if err != nil {
		return err
	}
	d.engine.SetSchema(s)
	return nil
}

// Result holds the column names and typed rows of one executed statement.
type Result struct {
	Columns []string
	Rows    [][]types.Value
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int { return len(r.Rows) }

// Execute runs one SQL statement with bound parameters and returns its typed
// result. The schema is not reloaded automatically; see ReloadSchema.
func (d *Database) Execute(ctx context.Context, query string, params ...types.Value) (*Result, error) {
	d.stats.Record("sql", observability.OpExecute)
	res, err := d.exec.Execute(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: res.Columns, Rows: res.Rows}, nil
}

// Begin starts an explicit transaction.
func (d *Database) Begin(ctx context.Context) error { return d.exec.Begin(ctx) }

// Commit commits the open transaction.
func (d *Database) Commit(ctx context.Context) error { return d.exec.Commit(ctx) }

// Rollback rolls back the open transaction.
func (d *Database) Rollback(ctx context.Context) error { return d.exec.Rollback(ctx) }

// InTransaction reports whether an explicit transaction is open.
func (d *Database) InTransaction() bool { return d.exec.InTransaction() }

// Savepoint creates a savepoint. An empty name generates one; the name in
// effect is returned.
func (d *Database) Savepoint(ctx context.Context, name string) (string, error) {
	return d.exec.Savepoint(ctx, name)
}

// ReleaseSavepoint releases the named savepoint.
func (d *Database) ReleaseSavepoint(ctx context.Context, name string) error {
	return d.exec.ReleaseSavepoint(ctx, name)
}

// RollbackToSavepoint rolls back to the named savepoint.
func (d *Database) RollbackToSavepoint(ctx context.Context, name string) error {
	return d.exec.RollbackToSavepoint(ctx, name)
}

// ApplyMigrations applies pending migration versions from dir and reloads
// the schema. The applied version numbers are returned; on failure the
// versions applied before the failing one are returned with the error.
func (d *Database) ApplyMigrations(ctx context.Context, dir string) ([]int64, error) {
	runner := migrate.New(d.exec, d.log)
	applied, err := runner.Apply(ctx, dir)
	if reloadErr := d.ReloadSchema(ctx); reloadErr != nil && err == nil {
		err = reloadErr
	}
	return applied, err
}

// Version returns the database's user_version.
func (d *Database) Version(ctx context.Context) (int64, error) {
	return d.exec.UserVersion(ctx)
}

// SetVersion sets the database's user_version.
func (d *Database) SetVersion(ctx context.Context, v int64) error {
	return d.exec.SetUserVersion(ctx, v)
}
