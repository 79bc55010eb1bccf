package element

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margauxdb/margaux/pkg/types"
)

func TestSetScalarRelation_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	createCost(t, e, "C1", 1)
	c2 := createCost(t, e, "C2", 2)
	_, err := e.CreateElement(ctx, "Plant", types.NewElement().SetText("label", "P1"))
	require.NoError(t, err)

	require.NoError(t, e.SetScalarRelation(ctx, "Plant", "Cost", "P1", "C2", "cost_id"))
	require.NoError(t, e.SetScalarRelation(ctx, "Plant", "Cost", "P1", "C2", "cost_id"))

	v, err := e.ReadScalarByLabel(ctx, "Plant", "cost_id", "P1")
	require.NoError(t, err)
	got, _ := v.AsInt()
	assert.Equal(t, c2, got)

	// Still exactly one Plant row.
	ids, err := e.ElementIDs(ctx, "Plant")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSetScalarRelation_NotARelationColumn(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	createCost(t, e, "C1", 1)
	_, err := e.CreateElement(ctx, "Plant", types.NewElement().SetText("label", "P1"))
	require.NoError(t, err)

	err = e.SetScalarRelation(ctx, "Plant", "Cost", "P1", "C1", "capacity")
	assert.Equal(t, types.InvalidSchema, types.KindOf(err))

	err = e.SetScalarRelation(ctx, "Plant", "Cost", "P1", "C1", "nope")
	assert.Equal(t, types.AttributeNotFound, types.KindOf(err))

	err = e.SetScalarRelation(ctx, "Plant", "Plant", "P1", "P1", "cost_id")
	assert.Equal(t, types.InvalidSchema, types.KindOf(err))
}

func TestSetVectorRelation_ReplacesWithAscendingIndex(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	c1 := createCost(t, e, "C1", 1)
	c2 := createCost(t, e, "C2", 2)
	_, err := e.CreateElement(ctx, "Plant",
		types.NewElement().SetText("label", "P1").SetTextVector("cost", []string{"C1"}))
	require.NoError(t, err)

	require.NoError(t, e.SetVectorRelation(ctx, "Plant", "Cost", "P1",
		[]string{"C2", "C1"}, "cost"))

	costs, err := e.ReadVectorByLabel(ctx, "Plant", "cost", "P1")
	require.NoError(t, err)
	require.Len(t, costs, 2)
	got0, _ := costs[0].AsInt()
	got1, _ := costs[1].AsInt()
	assert.Equal(t, c2, got0)
	assert.Equal(t, c1, got1)
}

func TestSetVectorRelation_MissingChildRollsBack(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	createCost(t, e, "C1", 1)
	_, err := e.CreateElement(ctx, "Plant",
		types.NewElement().SetText("label", "P1").SetTextVector("cost", []string{"C1"}))
	require.NoError(t, err)

	err = e.SetVectorRelation(ctx, "Plant", "Cost", "P1", []string{"C1", "missing"}, "cost")
	assert.Equal(t, types.ElementNotFound, types.KindOf(err))

	// The original row survives the failed replacement.
	costs, err := e.ReadVectorByLabel(ctx, "Plant", "cost", "P1")
	require.NoError(t, err)
	assert.Len(t, costs, 1)
}

func TestSetSetRelation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	c1 := createCost(t, e, "C1", 1)
	c2 := createCost(t, e, "C2", 2)
	_, err := e.CreateElement(ctx, "Plant", types.NewElement().SetText("label", "P1"))
	require.NoError(t, err)

	require.NoError(t, e.SetSetRelation(ctx, "Plant", "Cost", "P1",
		[]string{"C1", "C2"}, "cost_ref"))

	refs, err := e.ReadSetByLabel(ctx, "Plant", "cost_ref", "P1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	got0, _ := refs[0].AsInt()
	got1, _ := refs[1].AsInt()
	assert.Equal(t, c1, got0)
	assert.Equal(t, c2, got1)
}

func TestSetTimeSeriesFile_Upserts(t *testing.T) {
	e, exec := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateElement(ctx, "Plant", types.NewElement().SetText("label", "P1"))
	require.NoError(t, err)

	require.NoError(t, e.SetTimeSeriesFile(ctx, "Plant", "generation", "/data/gen.csv"))
	path, err := e.ReadTimeSeriesFile(ctx, "Plant", "generation")
	require.NoError(t, err)
	assert.Equal(t, "/data/gen.csv", path)

	require.NoError(t, e.SetTimeSeriesFile(ctx, "Plant", "generation", "/data/gen2.csv"))
	path, err = e.ReadTimeSeriesFile(ctx, "Plant", "generation")
	require.NoError(t, err)
	assert.Equal(t, "/data/gen2.csv", path)

	res, err := exec.Execute(ctx, `SELECT COUNT(*) FROM "Plant_time_series_files"`)
	require.NoError(t, err)
	n, _ := res.Rows[0][0].AsInt()
	assert.Equal(t, int64(1), n)
}

func TestSetTimeSeriesFile_UnknownParameter(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.SetTimeSeriesFile(context.Background(), "Plant", "nope", "/data/x.csv")
	assert.Equal(t, types.AttributeNotFound, types.KindOf(err))
}
