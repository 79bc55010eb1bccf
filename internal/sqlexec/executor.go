// Package sqlexec is the typed layer over the embedded SQLite engine: it owns
// the single connection of a database handle, binds Value parameters, and
// materialises typed result sets.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/margauxdb/margaux/pkg/types"
)

// Result holds the column names and typed rows of one executed statement.
type Result struct {
	Columns []string
	Rows    [][]types.Value
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int { return len(r.Rows) }

// Options configures how a database file is opened.
type Options struct {
	ReadOnly    bool
	BusyTimeout time.Duration
}

// Executor runs statements against one database file over a single
// connection. Operations on one executor are totally ordered; it is not safe
// for concurrent use.
type Executor struct {
	db   *sql.DB
	conn *sql.Conn
	path string

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt

	inTx bool
}

// Open opens the database file and acquires its connection.
func Open(ctx context.Context, path string, opts Options) (*Executor, error) {
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, busy.Milliseconds())
	if opts.ReadOnly {
		dsn += "&mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.SqlError, "sqlexec: failed to open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, mapSQLiteError(err, "sqlexec: failed to acquire connection")
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		db.Close()
		return nil, mapSQLiteError(err, "sqlexec: failed to enable foreign keys")
	}

	return &Executor{
		db:        db,
		conn:      conn,
		path:      path,
		stmtCache: make(map[string]*sql.Stmt),
	}, nil
}

// Path returns the database file path.
func (e *Executor) Path() string { return e.path }

// InTransaction reports whether an explicit transaction is open.
func (e *Executor) InTransaction() bool { return e.inTx }

// prepare returns a cached prepared statement for the query text.
func (e *Executor) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	e.stmtMu.RLock()
	stmt, ok := e.stmtCache[query]
	e.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	e.stmtMu.Lock()
	defer e.stmtMu.Unlock()
	if stmt, ok := e.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := e.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, mapSQLiteError(err, "sqlexec: failed to prepare statement")
	}
	e.stmtCache[query] = stmt
	return stmt, nil
}

// bindArgs converts Value parameters into driver arguments. Vector variants
// never reach the executor; callers flatten them first.
func bindArgs(params []types.Value) ([]interface{}, error) {
	args := make([]interface{}, len(params))
	for i, p := range params {
		switch p.Kind() {
		case types.KindNull:
			args[i] = nil
		case types.KindInt:
			v, _ := p.AsInt()
			args[i] = v
		case types.KindReal:
			v, _ := p.AsReal()
			args[i] = v
		case types.KindText:
			v, _ := p.AsText()
			args[i] = v
		case types.KindBlob:
			v, _ := p.AsBlob()
			args[i] = v
		default:
			return nil, types.NewError(types.InternalError,
				fmt.Sprintf("sqlexec: cannot bind %s parameter at position %d", p.Kind(), i+1))
		}
	}
	return args, nil
}

// countPlaceholders counts '?' markers outside quoted literals.
func countPlaceholders(query string) int {
	count := 0
	var quote byte
	escaped := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '?':
			count++
		}
	}
	return count
}

// Execute runs one statement with positional Value parameters and returns
// the typed result. Statements that produce no rows return an empty Result.
func (e *Executor) Execute(ctx context.Context, query string, params ...types.Value) (*Result, error) {
	if want := countPlaceholders(query); want != len(params) {
		return nil, types.NewError(types.InternalError,
			fmt.Sprintf("sqlexec: statement expects %d parameters, got %d", want, len(params)))
	}

	args, err := bindArgs(params)
	if err != nil {
		return nil, err
	}

	stmt, err := e.prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, mapSQLiteError(err, "sqlexec: failed to execute statement")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapSQLiteError(err, "sqlexec: failed to read result columns")
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapSQLiteError(err, "sqlexec: failed to scan row")
		}
		row := make([]types.Value, len(cols))
		for i, cell := range raw {
			row[i] = cellToValue(cell)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err, "sqlexec: failed to iterate rows")
	}
	return result, nil
}

// cellToValue converts one scanned driver cell into a Value.
func cellToValue(cell interface{}) types.Value {
	switch v := cell.(type) {
	case nil:
		return types.Null()
	case int64:
		return types.Int(v)
	case float64:
		return types.Real(v)
	case string:
		return types.Text(v)
	case []byte:
		b := make([]byte, len(v))
		copy(b, v)
		return types.Blob(b)
	case bool:
		if v {
			return types.Int(1)
		}
		return types.Int(0)
	case time.Time:
		return types.Text(v.Format("2006-01-02 15:04:05"))
	default:
		return types.Text(fmt.Sprintf("%v", v))
	}
}

// LastInsertRowID returns the rowid of the most recent insert on this
// connection.
func (e *Executor) LastInsertRowID(ctx context.Context) (int64, error) {
	res, err := e.Execute(ctx, "SELECT last_insert_rowid()")
	if err != nil {
		return 0, err
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		return 0, types.NewError(types.InternalError, "sqlexec: last_insert_rowid returned no row")
	}
	return res.Rows[0][0].AsInt()
}

// Changes returns the number of rows changed by the most recent statement.
func (e *Executor) Changes(ctx context.Context) (int64, error) {
	res, err := e.Execute(ctx, "SELECT changes()")
	if err != nil {
		return 0, err
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		return 0, types.NewError(types.InternalError, "sqlexec: changes returned no row")
	}
	return res.Rows[0][0].AsInt()
}

// Begin opens an explicit transaction.
func (e *Executor) Begin(ctx context.Context) error {
	if e.inTx {
		return types.NewError(types.SqlError, "sqlexec: transaction already open")
	}
	if _, err := e.conn.ExecContext(ctx, "BEGIN"); err != nil {
		return mapSQLiteError(err, "sqlexec: failed to begin transaction")
	}
	e.inTx = true
	return nil
}

// Commit commits the open transaction.
func (e *Executor) Commit(ctx context.Context) error {
	if !e.inTx {
		return types.NewError(types.SqlError, "sqlexec: no open transaction to commit")
	}
	if _, err := e.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return mapSQLiteError(err, "sqlexec: failed to commit transaction")
	}
	e.inTx = false
	return nil
}

// Rollback rolls back the open transaction.
func (e *Executor) Rollback(ctx context.Context) error {
	if !e.inTx {
		return types.NewError(types.SqlError, "sqlexec: no open transaction to roll back")
	}
	if _, err := e.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		return mapSQLiteError(err, "sqlexec: failed to roll back transaction")
	}
	e.inTx = false
	return nil
}

// GenerateSavepointName returns a fresh identifier-safe savepoint name.
func GenerateSavepointName() string {
	return "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Savepoint creates a named savepoint. An empty name gets a generated one;
// the used name is returned either way.
func (e *Executor) Savepoint(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = GenerateSavepointName()
	}
	if !validSavepointName(name) {
		return "", types.NewError(types.InvalidIdentifier,
			fmt.Sprintf("sqlexec: invalid savepoint name %q", name))
	}
	if _, err := e.conn.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return "", mapSQLiteError(err, "sqlexec: failed to create savepoint")
	}
	return name, nil
}

// ReleaseSavepoint releases a named savepoint.
func (e *Executor) ReleaseSavepoint(ctx context.Context, name string) error {
	if !validSavepointName(name) {
		return types.NewError(types.InvalidIdentifier,
			fmt.Sprintf("sqlexec: invalid savepoint name %q", name))
	}
	if _, err := e.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return mapSQLiteError(err, "sqlexec: failed to release savepoint")
	}
	return nil
}

// RollbackToSavepoint rolls back to a named savepoint without releasing it.
func (e *Executor) RollbackToSavepoint(ctx context.Context, name string) error {
	if !validSavepointName(name) {
		return types.NewError(types.InvalidIdentifier,
			fmt.Sprintf("sqlexec: invalid savepoint name %q", name))
	}
	if _, err := e.conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return mapSQLiteError(err, "sqlexec: failed to roll back to savepoint")
	}
	return nil
}

func validSavepointName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		digit := c >= '0' && c <= '9'
		if i == 0 && !letter {
			return false
		}
		if !letter && !digit {
			return false
		}
	}
	return true
}

// UserVersion reads PRAGMA user_version.
func (e *Executor) UserVersion(ctx context.Context) (int64, error) {
	res, err := e.Execute(ctx, "PRAGMA user_version")
	if err != nil {
		return 0, err
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		return 0, types.NewError(types.InternalError, "sqlexec: user_version returned no row")
	}
	return res.Rows[0][0].AsInt()
}

// SetUserVersion writes PRAGMA user_version.
func (e *Executor) SetUserVersion(ctx context.Context, v int64) error {
	if v < 0 {
		return types.NewError(types.InvalidValue, fmt.Sprintf("sqlexec: negative user_version %d", v))
	}
	if _, err := e.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return mapSQLiteError(err, "sqlexec: failed to set user_version")
	}
	return nil
}

// Close releases prepared statements and the connection. An open transaction
// is rolled back by closing the connection.
func (e *Executor) Close() error {
	e.stmtMu.Lock()
	for _, stmt := range e.stmtCache {
		stmt.Close()
	}
	e.stmtCache = make(map[string]*sql.Stmt)
	e.stmtMu.Unlock()

	var firstErr error
	if e.conn != nil {
		if err := e.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.conn = nil
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.db = nil
	}
	if firstErr != nil {
		return types.WrapError(types.SqlError, "sqlexec: failed to close database", firstErr)
	}
	return nil
}
