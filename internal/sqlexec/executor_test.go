package sqlexec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/margauxdb/margaux/pkg/types"
)

func openTestExecutor(t *testing.T) *Executor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exec_test.db")
	exec, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("failed to open executor: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestExecutor_ExecuteTypedRoundTrip(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "CREATE TABLE t (i INTEGER, r REAL, s TEXT, b BLOB)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	_, err := exec.Execute(ctx, "INSERT INTO t (i, r, s, b) VALUES (?, ?, ?, ?)",
		types.Int(7), types.Real(2.5), types.Text("hello"), types.Blob([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	_, err = exec.Execute(ctx, "INSERT INTO t (i, r, s, b) VALUES (?, ?, ?, ?)",
		types.Null(), types.Null(), types.Null(), types.Null())
	if err != nil {
		t.Fatalf("failed to insert nulls: %v", err)
	}

	res, err := exec.Execute(ctx, "SELECT i, r, s, b FROM t ORDER BY rowid")
	if err != nil {
		t.Fatalf("failed to select: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if len(res.Columns) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(res.Columns))
	}

	want := []types.Value{types.Int(7), types.Real(2.5), types.Text("hello"), types.Blob([]byte{1, 2, 3})}
	for i, w := range want {
		if !res.Rows[0][i].Equal(w) {
			t.Errorf("column %d: got %s, want %s", i, res.Rows[0][i], w)
		}
	}
	for i := range res.Rows[1] {
		if !res.Rows[1][i].IsNull() {
			t.Errorf("column %d: expected null, got %s", i, res.Rows[1][i])
		}
	}
}

func TestExecutor_ParameterCountMismatch(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "CREATE TABLE t (i INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	_, err := exec.Execute(ctx, "INSERT INTO t (i) VALUES (?)")
	if types.KindOf(err) != types.InternalError {
		t.Fatalf("expected InternalError, got %v", err)
	}

	_, err = exec.Execute(ctx, "INSERT INTO t (i) VALUES (?)", types.Int(1), types.Int(2))
	if types.KindOf(err) != types.InternalError {
		t.Fatalf("expected InternalError, got %v", err)
	}

	// A '?' inside a quoted literal is not a placeholder.
	if _, err := exec.Execute(ctx, "INSERT INTO t (i) VALUES (length('?'))"); err != nil {
		t.Fatalf("quoted question mark counted as placeholder: %v", err)
	}
}

func TestExecutor_VectorParameterRejected(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "CREATE TABLE t (i INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	_, err := exec.Execute(ctx, "INSERT INTO t (i) VALUES (?)", types.IntVector([]int64{1}))
	if types.KindOf(err) != types.InternalError {
		t.Fatalf("expected InternalError for vector bind, got %v", err)
	}
}

func TestExecutor_LastInsertRowIDAndChanges(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, v TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	if _, err := exec.Execute(ctx, "INSERT INTO t (v) VALUES (?)", types.Text("a")); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	id, err := exec.LastInsertRowID(ctx)
	if err != nil {
		t.Fatalf("failed to read last insert rowid: %v", err)
	}
	if id != 1 {
		t.Errorf("expected rowid 1, got %d", id)
	}

	if _, err := exec.Execute(ctx, "UPDATE t SET v = ?", types.Text("b")); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	n, err := exec.Changes(ctx)
	if err != nil {
		t.Fatalf("failed to read changes: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 change, got %d", n)
	}
}

func TestExecutor_TransactionRollback(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "CREATE TABLE t (i INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	if err := exec.Begin(ctx); err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	if !exec.InTransaction() {
		t.Fatal("expected open transaction")
	}
	if _, err := exec.Execute(ctx, "INSERT INTO t (i) VALUES (?)", types.Int(1)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if err := exec.Rollback(ctx); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}

	res, err := exec.Execute(ctx, "SELECT i FROM t")
	if err != nil {
		t.Fatalf("failed to select: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("expected empty table after rollback, got %d rows", len(res.Rows))
	}

	if err := exec.Commit(ctx); types.KindOf(err) != types.SqlError {
		t.Errorf("expected SqlError committing without transaction, got %v", err)
	}
}

func TestExecutor_Savepoints(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Execute(ctx, "CREATE TABLE t (i INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	if err := exec.Begin(ctx); err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	if _, err := exec.Execute(ctx, "INSERT INTO t (i) VALUES (?)", types.Int(1)); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	name, err := exec.Savepoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to create savepoint: %v", err)
	}
	if name == "" {
		t.Fatal("expected generated savepoint name")
	}

	if _, err := exec.Execute(ctx, "INSERT INTO t (i) VALUES (?)", types.Int(2)); err != nil {
		t.Fatalf("failed to insert inside savepoint: %v", err)
	}
	if err := exec.RollbackToSavepoint(ctx, name); err != nil {
		t.Fatalf("failed to roll back to savepoint: %v", err)
	}
	if err := exec.ReleaseSavepoint(ctx, name); err != nil {
		t.Fatalf("failed to release savepoint: %v", err)
	}
	if err := exec.Commit(ctx); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	res, err := exec.Execute(ctx, "SELECT i FROM t")
	if err != nil {
		t.Fatalf("failed to select: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row after savepoint rollback, got %d", len(res.Rows))
	}
	if !res.Rows[0][0].Equal(types.Int(1)) {
		t.Errorf("expected value 1, got %s", res.Rows[0][0])
	}
}

func TestExecutor_SavepointNameValidation(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	if _, err := exec.Savepoint(ctx, "bad name; DROP TABLE t"); types.KindOf(err) != types.InvalidIdentifier {
		t.Fatalf("expected InvalidIdentifier, got %v", err)
	}
}

func TestExecutor_UserVersion(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	v, err := exec.UserVersion(ctx)
	if err != nil {
		t.Fatalf("failed to read user_version: %v", err)
	}
	if v != 0 {
		t.Errorf("expected fresh database version 0, got %d", v)
	}

	if err := exec.SetUserVersion(ctx, 12); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	v, err = exec.UserVersion(ctx)
	if err != nil {
		t.Fatalf("failed to re-read user_version: %v", err)
	}
	if v != 12 {
		t.Errorf("expected version 12, got %d", v)
	}

	if err := exec.SetUserVersion(ctx, -1); types.KindOf(err) != types.InvalidValue {
		t.Errorf("expected InvalidValue for negative version, got %v", err)
	}
}

func TestExecutor_ConstraintErrorKinds(t *testing.T) {
	exec := openTestExecutor(t)
	ctx := context.Background()

	stmts := []string{
		"CREATE TABLE parent (id INTEGER PRIMARY KEY AUTOINCREMENT, label TEXT UNIQUE NOT NULL)",
		"CREATE TABLE child (id INTEGER PRIMARY KEY AUTOINCREMENT, parent_id INTEGER, " +
			"FOREIGN KEY(parent_id) REFERENCES parent(id) ON DELETE CASCADE ON UPDATE CASCADE)",
	}
	for _, s := range stmts {
		if _, err := exec.Execute(ctx, s); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	if _, err := exec.Execute(ctx, "INSERT INTO parent (label) VALUES (?)", types.Text("a")); err != nil {
		t.Fatalf("failed to insert parent: %v", err)
	}

	_, err := exec.Execute(ctx, "INSERT INTO parent (label) VALUES (?)", types.Text("a"))
	if types.KindOf(err) != types.UniqueViolation {
		t.Errorf("expected UniqueViolation, got %v", err)
	}

	_, err = exec.Execute(ctx, "INSERT INTO parent (label) VALUES (?)", types.Null())
	if types.KindOf(err) != types.NotNullViolation {
		t.Errorf("expected NotNullViolation, got %v", err)
	}

	_, err = exec.Execute(ctx, "INSERT INTO child (parent_id) VALUES (?)", types.Int(999))
	if types.KindOf(err) != types.ForeignKeyViolation {
		t.Errorf("expected ForeignKeyViolation, got %v", err)
	}

	_, err = exec.Execute(ctx, "SELEC broken")
	if types.KindOf(err) != types.SqlSyntaxError {
		t.Errorf("expected SqlSyntaxError, got %v", err)
	}
}

func TestExecutor_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro_test.db")
	ctx := context.Background()

	rw, err := Open(ctx, path, Options{})
	if err != nil {
		t.Fatalf("failed to open writable: %v", err)
	}
	if _, err := rw.Execute(ctx, "CREATE TABLE t (i INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	rw.Close()

	ro, err := Open(ctx, path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("failed to open read-only: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Execute(ctx, "SELECT i FROM t"); err != nil {
		t.Fatalf("read failed on read-only handle: %v", err)
	}
	if _, err := ro.Execute(ctx, "INSERT INTO t (i) VALUES (?)", types.Int(1)); err == nil {
		t.Fatal("expected write to fail on read-only handle")
	}
}
