package element

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/internal/sqlexec"
	"github.com/margauxdb/margaux/pkg/types"
)

const elementTestSchema = `
CREATE TABLE Cost (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT UNIQUE NOT NULL,
	value REAL NOT NULL DEFAULT 0
) STRICT;
CREATE TABLE Plant (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT UNIQUE NOT NULL,
	capacity REAL NOT NULL DEFAULT 0,
	cost_id INTEGER,
	FOREIGN KEY (cost_id) REFERENCES Cost(id) ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;
CREATE TABLE Plant_vector_costs (
	id INTEGER,
	vector_index INTEGER NOT NULL,
	cost INTEGER,
	weight REAL,
	PRIMARY KEY (id, vector_index),
	FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE,
	FOREIGN KEY (cost) REFERENCES Cost(id) ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;
CREATE TABLE Plant_set_tags (
	id INTEGER,
	tag TEXT NOT NULL,
	FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;
CREATE TABLE Plant_set_links (
	id INTEGER,
	cost_ref INTEGER,
	FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE,
	FOREIGN KEY (cost_ref) REFERENCES Cost(id) ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;
CREATE TABLE Plant_time_series_generation (
	id INTEGER,
	date_time TEXT NOT NULL,
	block INTEGER NOT NULL DEFAULT 1,
	generation REAL,
	FOREIGN KEY (id) REFERENCES Plant(id) ON DELETE CASCADE ON UPDATE CASCADE
) STRICT;
CREATE TABLE Plant_time_series_files (
	id INTEGER,
	generation TEXT
) STRICT;
`

func newTestEngine(t *testing.T) (*Engine, *sqlexec.Executor) {
	t.Helper()
	ctx := context.Background()
	exec, err := sqlexec.Open(ctx, filepath.Join(t.TempDir(), "element_test.db"), sqlexec.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })

	require.NoError(t, schema.Apply(ctx, exec, elementTestSchema))
	s, err := schema.Load(ctx, exec)
	require.NoError(t, err)
	return New(exec, s, nil), exec
}

// createCost inserts a Cost element and returns its id.
func createCost(t *testing.T, e *Engine, label string, value float64) int64 {
	t.Helper()
	id, err := e.CreateElement(context.Background(), "Cost",
		types.NewElement().SetText("label", label).SetReal("value", value))
	require.NoError(t, err)
	return id
}

func TestEngine_NoSchemaLoaded(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetSchema(nil)

	_, err := e.GetElementID(context.Background(), "Plant", "P1")
	assert.Equal(t, types.NoSchemaLoaded, types.KindOf(err))
}

func TestEngine_CollectionNotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.GetElementID(context.Background(), "Nope", "P1")
	assert.Equal(t, types.CollectionNotFound, types.KindOf(err))

	// Auxiliary tables are not collections.
	_, err = e.GetElementID(context.Background(), "Plant_set_tags", "P1")
	assert.Equal(t, types.CollectionNotFound, types.KindOf(err))
}

func TestEngine_GetElementID(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	id := createCost(t, e, "C1", 10)
	got, err := e.GetElementID(ctx, "Cost", "C1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = e.GetElementID(ctx, "Cost", "missing")
	assert.Equal(t, types.ElementNotFound, types.KindOf(err))
}

func TestEngine_ElementIDsAndLabels(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	createCost(t, e, "C1", 1)
	createCost(t, e, "C2", 2)
	createCost(t, e, "C3", 3)

	ids, err := e.ElementIDs(ctx, "Cost")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	labels, err := e.ElementLabels(ctx, "Cost")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2", "C3"}, labels)
}

func TestEngine_CanonicalID(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	id := createCost(t, e, "C1", 1)

	got, err := e.canonicalID(ctx, "Cost", types.ByID(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = e.canonicalID(ctx, "Cost", types.ByLabel("C1"))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = e.canonicalID(ctx, "Cost", types.ByID(99))
	assert.Equal(t, types.ElementNotFound, types.KindOf(err))
}

func TestEngine_AttributeIntrospection(t *testing.T) {
	e, _ := newTestEngine(t)

	ok, err := e.IsScalarAttribute("Plant", "capacity")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsVectorAttribute("Plant", "weight")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsSetAttribute("Plant", "tag")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsScalarAttribute("Plant", "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	ct, err := e.AttributeType("Plant", "capacity")
	require.NoError(t, err)
	assert.Equal(t, schema.ColumnReal, ct)
}
