package element

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margauxdb/margaux/pkg/types"
)

func countRowsWithID(t *testing.T, e *Engine, table string, id int64) int64 {
	t.Helper()
	res, err := e.exec.Execute(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE id = ?", table), types.Int(id))
	require.NoError(t, err)
	n, err := res.Rows[0][0].AsInt()
	require.NoError(t, err)
	return n
}

func TestDeleteElement_Cascades(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	createCost(t, e, "C1", 1)
	id, err := e.CreateElement(ctx, "Plant",
		types.NewElement().
			SetText("label", "P1").
			SetTextVector("cost", []string{"C1", "C1", "C1"}).
			SetTextVector("tag", []string{"hydro", "south"}))
	require.NoError(t, err)

	require.Equal(t, int64(3), countRowsWithID(t, e, "Plant_vector_costs", id))
	require.Equal(t, int64(2), countRowsWithID(t, e, "Plant_set_tags", id))

	require.NoError(t, e.DeleteElement(ctx, "Plant", types.ByLabel("P1")))

	labels, err := e.ElementLabels(ctx, "Plant")
	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.Equal(t, int64(0), countRowsWithID(t, e, "Plant_vector_costs", id))
	assert.Equal(t, int64(0), countRowsWithID(t, e, "Plant_set_tags", id))
}

func TestDeleteElement_ByID(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	id := createCost(t, e, "C1", 1)
	require.NoError(t, e.DeleteElement(ctx, "Cost", types.ByID(id)))

	err := e.DeleteElement(ctx, "Cost", types.ByID(id))
	assert.Equal(t, types.ElementNotFound, types.KindOf(err))
}

func TestDeleteTimeSeries(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	ts := types.NewTimeSeries().
		AddColumn("date_time", []types.Value{types.Text("2020-01-01"), types.Text("2021-01-01")}).
		AddColumn("generation", []types.Value{types.Real(1.0), types.Real(2.0)})
	id, err := e.CreateElement(ctx, "Plant",
		types.NewElement().SetText("label", "P1").AddTimeSeries("generation", ts))
	require.NoError(t, err)
	require.Equal(t, int64(2), countRowsWithID(t, e, "Plant_time_series_generation", id))

	require.NoError(t, e.DeleteTimeSeries(ctx, "Plant", "generation", "P1"))
	assert.Equal(t, int64(0), countRowsWithID(t, e, "Plant_time_series_generation", id))

	// The element itself survives.
	labels, err := e.ElementLabels(ctx, "Plant")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, labels)
}

func TestDeleteTimeSeries_UnknownGroup(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateElement(ctx, "Plant", types.NewElement().SetText("label", "P1"))
	require.NoError(t, err)

	err = e.DeleteTimeSeries(ctx, "Plant", "nope", "P1")
	assert.Equal(t, types.AttributeNotFound, types.KindOf(err))
}
