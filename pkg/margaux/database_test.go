package margaux

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margauxdb/margaux/pkg/types"
)

const testSchema = `
CREATE TABLE "Cost" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"label" TEXT UNIQUE NOT NULL,
	"value" REAL
) STRICT;

CREATE TABLE "Plant" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"label" TEXT UNIQUE NOT NULL,
	"capacity" REAL,
	"cost_id" INTEGER,
	FOREIGN KEY ("cost_id") REFERENCES "Cost" ("id") ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;

CREATE TABLE "Plant_vector_weights" (
	"id" INTEGER NOT NULL,
	"vector_index" INTEGER NOT NULL,
	"weight" REAL,
	FOREIGN KEY ("id") REFERENCES "Plant" ("id") ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;

CREATE TABLE "Plant_set_tags" (
	"id" INTEGER NOT NULL,
	"tag" TEXT,
	FOREIGN KEY ("id") REFERENCES "Plant" ("id") ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;

CREATE TABLE "Plant_time_series_generation" (
	"id" INTEGER NOT NULL,
	"date_time" TEXT NOT NULL,
	"generation" REAL,
	FOREIGN KEY ("id") REFERENCES "Plant" ("id") ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;

CREATE TABLE "Plant_time_series_files" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"generation" TEXT
) STRICT;
`

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "margaux.db")
	db, err := FromSchema(context.Background(), path, testSchema, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFromSchema_Collections(t *testing.T) {
	db := newTestDatabase(t)

	assert.Equal(t, []string{"Cost", "Plant"}, db.Collections())
	assert.Equal(t, []string{"weights"}, db.VectorGroups("Plant"))
	assert.Equal(t, []string{"tags"}, db.SetGroups("Plant"))
	assert.Equal(t, []string{"generation"}, db.TimeSeriesGroups("Plant"))
}

func TestOpen_ExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "margaux.db")

	db, err := FromSchema(ctx, path, testSchema, Options{})
	require.NoError(t, err)
	_, err = db.CreateElement(ctx, "Cost", types.NewElement().
		SetText("label", "C1").SetReal("value", 1.5))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(ctx, path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	labels, err := reopened.ElementLabels(ctx, "Cost")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, labels)
	assert.Equal(t, path, reopened.Path())
}

func TestOpen_BadLogLevel(t *testing.T) {
	_, err := Open(context.Background(),
		filepath.Join(t.TempDir(), "margaux.db"), Options{LogLevel: "verbose"})
	assert.Equal(t, types.InvalidValue, types.KindOf(err))
}

func TestFromMigrations(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	v1 := filepath.Join(dir, "1")
	require.NoError(t, os.MkdirAll(v1, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(v1, "001_schema.sql"),
		[]byte(testSchema), 0o644))

	db, err := FromMigrations(ctx, filepath.Join(t.TempDir(), "margaux.db"), dir, Options{})
	require.NoError(t, err)
	defer db.Close()

	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, []string{"Cost", "Plant"}, db.Collections())
}

func TestExecute_TypedResult(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	_, err := db.CreateElement(ctx, "Cost", types.NewElement().
		SetText("label", "C1").SetReal("value", 2.5))
	require.NoError(t, err)

	res, err := db.Execute(ctx, `SELECT "label", "value" FROM "Cost"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "value"}, res.Columns)
	require.Equal(t, 1, res.RowCount())
	assert.True(t, res.Rows[0][0].Equal(types.Text("C1")))
	assert.True(t, res.Rows[0][1].Equal(types.Real(2.5)))
}

func TestExecute_DDLThenReloadSchema(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	_, err := db.Execute(ctx, `CREATE TABLE "Fuel" (
		"id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"label" TEXT UNIQUE NOT NULL
	) STRICT`)
	require.NoError(t, err)
	assert.NotContains(t, db.Collections(), "Fuel")

	require.NoError(t, db.ReloadSchema(ctx))
	assert.Contains(t, db.Collections(), "Fuel")
}

func TestTransaction_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.Begin(ctx))
	assert.True(t, db.InTransaction())
	_, err := db.CreateElement(ctx, "Cost", types.NewElement().
		SetText("label", "C1").SetReal("value", 1.0))
	require.NoError(t, err)
	require.NoError(t, db.Rollback(ctx))
	assert.False(t, db.InTransaction())

	labels, err := db.ElementLabels(ctx, "Cost")
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestSavepoint_PartialRollback(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.Begin(ctx))
	_, err := db.CreateElement(ctx, "Cost", types.NewElement().
		SetText("label", "C1").SetReal("value", 1.0))
	require.NoError(t, err)

	name, err := db.Savepoint(ctx, "")
	require.NoError(t, err)
	_, err = db.CreateElement(ctx, "Cost", types.NewElement().
		SetText("label", "C2").SetReal("value", 2.0))
	require.NoError(t, err)

	require.NoError(t, db.RollbackToSavepoint(ctx, name))
	require.NoError(t, db.ReleaseSavepoint(ctx, name))
	require.NoError(t, db.Commit(ctx))

	labels, err := db.ElementLabels(ctx, "Cost")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, labels)
}

func TestIsHealthy(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	assert.True(t, db.IsHealthy(ctx))
	require.NoError(t, db.Close())
	assert.False(t, db.IsHealthy(ctx))
}

func TestAttributeIntrospection(t *testing.T) {
	db := newTestDatabase(t)

	isScalar, err := db.IsScalarAttribute("Plant", "capacity")
	require.NoError(t, err)
	assert.True(t, isScalar)

	isVector, err := db.IsVectorAttribute("Plant", "weight")
	require.NoError(t, err)
	assert.True(t, isVector)

	isSet, err := db.IsSetAttribute("Plant", "tag")
	require.NoError(t, err)
	assert.True(t, isSet)

	typeName, err := db.AttributeType("Plant", "capacity")
	require.NoError(t, err)
	assert.Equal(t, "REAL", typeName)
}
