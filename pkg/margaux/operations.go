package margaux

import (
	"context"

	"github.com/margauxdb/margaux/internal/compare"
	"github.com/margauxdb/margaux/internal/observability"
	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// CreateElement inserts an element and returns its id.
func (d *Database) CreateElement(ctx context.Context, collection string, el *types.Element) (int64, error) {
	d.stats.Record(collection, observability.OpCreate)
	return d.engine.CreateElement(ctx, collection, el)
}

// CreateElements inserts the elements in one transaction and returns their
// ids. Any failure leaves none of them behind.
func (d *Database) CreateElements(ctx context.Context, collection string, elements []*types.Element) ([]int64, error) {
	d.stats.Record(collection, observability.OpCreate)
	return d.engine.CreateElements(ctx, collection, elements)
}

// UpdateElement writes the element's scalar fields and vector groups over an
// existing element.
func (d *Database) UpdateElement(ctx context.Context, collection string, h types.Handle, el *types.Element) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.UpdateElement(ctx, collection, h, el)
}

// DeleteElement removes the element; FK cascades clear its group rows.
func (d *Database) DeleteElement(ctx context.Context, collection string, h types.Handle) error {
	d.stats.Record(collection, observability.OpDelete)
	return d.engine.DeleteElement(ctx, collection, h)
}

// DeleteTimeSeries removes the element's rows from one time-series group.
func (d *Database) DeleteTimeSeries(ctx context.Context, collection, group, label string) error {
	d.stats.Record(collection, observability.OpDelete)
	return d.engine.DeleteTimeSeries(ctx, collection, group, label)
}

// GetElementID resolves a label to its id.
func (d *Database) GetElementID(ctx context.Context, collection, label string) (int64, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.GetElementID(ctx, collection, label)
}

// ElementIDs returns all ids in the collection in insertion order.
func (d *Database) ElementIDs(ctx context.Context, collection string) ([]int64, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ElementIDs(ctx, collection)
}

// ElementLabels returns all labels in the collection in insertion order.
func (d *Database) ElementLabels(ctx context.Context, collection string) ([]string, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ElementLabels(ctx, collection)
}

// ReadScalar reads one scalar attribute for every element, in id order.
func (d *Database) ReadScalar(ctx context.Context, collection, attr string) ([]types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadScalar(ctx, collection, attr)
}

// ReadScalarByLabel reads one scalar attribute of the labelled element.
func (d *Database) ReadScalarByLabel(ctx context.Context, collection, attr, label string) (types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadScalarByLabel(ctx, collection, attr, label)
}

// ReadScalarOf reads one scalar attribute of the element named by the handle.
func (d *Database) ReadScalarOf(ctx context.Context, collection, attr string, h types.Handle) (types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadScalarOf(ctx, collection, attr, h)
}

// ReadVector reads one vector attribute for every element, in id order.
func (d *Database) ReadVector(ctx context.Context, collection, attr string) ([][]types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadVector(ctx, collection, attr)
}

// ReadVectorByLabel reads one vector attribute of the labelled element.
func (d *Database) ReadVectorByLabel(ctx context.Context, collection, attr, label string) ([]types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadVectorByLabel(ctx, collection, attr, label)
}

// ReadVectorOf reads one vector attribute of the element named by the handle.
func (d *Database) ReadVectorOf(ctx context.Context, collection, attr string, h types.Handle) ([]types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadVectorOf(ctx, collection, attr, h)
}

// ReadSet reads one set attribute for every element, in id order.
func (d *Database) ReadSet(ctx context.Context, collection, attr string) ([][]types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadSet(ctx, collection, attr)
}

// ReadSetByLabel reads one set attribute of the labelled element.
func (d *Database) ReadSetByLabel(ctx context.Context, collection, attr, label string) ([]types.Value, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadSetByLabel(ctx, collection, attr, label)
}

// ReadElementScalarAttributes reads every scalar attribute of one element.
func (d *Database) ReadElementScalarAttributes(ctx context.Context, collection string, h types.Handle) ([]types.NamedValue, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadElementScalarAttributes(ctx, collection, h)
}

// ReadElementVectorGroup reads one element's vector group as named columns.
func (d *Database) ReadElementVectorGroup(ctx context.Context, collection string, h types.Handle, group string) ([]types.NamedVector, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadElementVectorGroup(ctx, collection, h, group)
}

// ReadElementSetGroup reads one element's set group as rows of named values.
func (d *Database) ReadElementSetGroup(ctx context.Context, collection string, h types.Handle, group string) ([][]types.NamedValue, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadElementSetGroup(ctx, collection, h, group)
}

// ReadElementTimeSeriesGroup reads one element's time-series rows ordered by
// the given dimension keys. Nil keys means the group's declared dimension
// columns.
func (d *Database) ReadElementTimeSeriesGroup(ctx context.Context, collection string, h types.Handle, group string, dimensionKeys []string) ([]types.Row, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadElementTimeSeriesGroup(ctx, collection, h, group, dimensionKeys)
}

// ReadTimeSeriesFile reads the registered file path of a time-series
// parameter.
func (d *Database) ReadTimeSeriesFile(ctx context.Context, collection, parameter string) (string, error) {
	d.stats.Record(collection, observability.OpRead)
	return d.engine.ReadTimeSeriesFile(ctx, collection, parameter)
}

// UpdateScalarParameter sets one scalar attribute of the labelled element.
func (d *Database) UpdateScalarParameter(ctx context.Context, collection, attr, label string, value types.Value) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.UpdateScalarParameter(ctx, collection, attr, label, value)
}

// UpdateVectorParameters overwrites one vector attribute of the labelled
// element. The value count must match the stored vector length.
func (d *Database) UpdateVectorParameters(ctx context.Context, collection, attr, label string, values []types.Value) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.UpdateVectorParameters(ctx, collection, attr, label, values)
}

// UpdateSetParameters replaces one set attribute of the labelled element.
func (d *Database) UpdateSetParameters(ctx context.Context, collection, attr, label string, values []types.Value) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.UpdateSetParameters(ctx, collection, attr, label, values)
}

// UpdateTimeSeriesRow sets one time-series value at the given date-time.
func (d *Database) UpdateTimeSeriesRow(ctx context.Context, collection, attr, label string, value, dateTime types.Value) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.UpdateTimeSeriesRow(ctx, collection, attr, label, value, dateTime)
}

// SetScalarRelation points the parent's scalar relation at the child.
func (d *Database) SetScalarRelation(ctx context.Context, collection, targetCollection, parentLabel, childLabel, relationName string) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.SetScalarRelation(ctx, collection, targetCollection, parentLabel, childLabel, relationName)
}

// SetVectorRelation replaces the parent's vector relation with the children,
// in order.
func (d *Database) SetVectorRelation(ctx context.Context, collection, targetCollection, parentLabel string, childLabels []string, relationName string) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.SetVectorRelation(ctx, collection, targetCollection, parentLabel, childLabels, relationName)
}

// SetSetRelation replaces the parent's set relation with the children.
func (d *Database) SetSetRelation(ctx context.Context, collection, targetCollection, parentLabel string, childLabels []string, relationName string) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.SetSetRelation(ctx, collection, targetCollection, parentLabel, childLabels, relationName)
}

// SetTimeSeriesFile registers the file path behind a time-series parameter.
func (d *Database) SetTimeSeriesFile(ctx context.Context, collection, parameter, filePath string) error {
	d.stats.Record(collection, observability.OpUpdate)
	return d.engine.SetTimeSeriesFile(ctx, collection, parameter, filePath)
}

// Collections lists the main-table collections, sorted.
func (d *Database) Collections() []string {
	return d.engine.Schema().Collections()
}

// VectorGroups lists the collection's vector group names, sorted.
func (d *Database) VectorGroups(collection string) []string {
	return d.engine.Schema().GroupsFor(collection, schema.AttributeVector)
}

// SetGroups lists the collection's set group names, sorted.
func (d *Database) SetGroups(collection string) []string {
	return d.engine.Schema().GroupsFor(collection, schema.AttributeSet)
}

// TimeSeriesGroups lists the collection's time-series group names, sorted.
func (d *Database) TimeSeriesGroups(collection string) []string {
	return d.engine.Schema().GroupsFor(collection, schema.AttributeTimeSeries)
}

// IsScalarAttribute reports whether attr is a scalar attribute of the
// collection.
func (d *Database) IsScalarAttribute(collection, attr string) (bool, error) {
	return d.engine.IsScalarAttribute(collection, attr)
}

// IsVectorAttribute reports whether attr is a vector attribute of the
// collection.
func (d *Database) IsVectorAttribute(collection, attr string) (bool, error) {
	return d.engine.IsVectorAttribute(collection, attr)
}

// IsSetAttribute reports whether attr is a set attribute of the collection.
func (d *Database) IsSetAttribute(collection, attr string) (bool, error) {
	return d.engine.IsSetAttribute(collection, attr)
}

// AttributeType returns the declared column type name of the attribute, one
// of INTEGER, REAL, TEXT, BLOB.
func (d *Database) AttributeType(collection, attr string) (string, error) {
	t, err := d.engine.AttributeType(collection, attr)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func (d *Database) comparer(other *Database) *compare.Comparer {
	return compare.New(d.engine, other.engine, d.log)
}

func (d *Database) recordCompare(collection string) {
	d.stats.Record(collection, observability.OpCompare)
}

// CompareDatabases compares every common collection of the two databases and
// returns the merged, sorted diff sentences. An empty slice means the
// databases hold the same modelled content.
func (d *Database) CompareDatabases(ctx context.Context, other *Database) ([]string, error) {
	for _, c := range d.Collections() {
		if other.engine.Schema().HasCollection(c) {
			d.recordCompare(c)
		}
	}
	return d.comparer(other).Databases(ctx)
}

// CompareScalarParameters diffs one collection's scalar parameters.
func (d *Database) CompareScalarParameters(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).ScalarParameters(ctx, collection)
}

// CompareScalarRelations diffs one collection's scalar relations by target
// label.
func (d *Database) CompareScalarRelations(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).ScalarRelations(ctx, collection)
}

// CompareVectorParameters diffs one collection's vector parameters.
func (d *Database) CompareVectorParameters(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).VectorParameters(ctx, collection)
}

// CompareVectorRelations diffs one collection's vector relations by target
// label.
func (d *Database) CompareVectorRelations(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).VectorRelations(ctx, collection)
}

// CompareSetParameters diffs one collection's set parameters as multisets.
func (d *Database) CompareSetParameters(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).SetParameters(ctx, collection)
}

// CompareSetRelations diffs one collection's set relations as multisets of
// target labels.
func (d *Database) CompareSetRelations(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).SetRelations(ctx, collection)
}

// CompareTimeSeries diffs one collection's time-series groups.
func (d *Database) CompareTimeSeries(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).TimeSeries(ctx, collection)
}

// CompareTimeSeriesFiles diffs one collection's time-series file
// registrations.
func (d *Database) CompareTimeSeriesFiles(ctx context.Context, other *Database, collection string) ([]string, error) {
	d.recordCompare(collection)
	return d.comparer(other).TimeSeriesFiles(ctx, collection)
}

// OpCounts is the operation tally of one collection, as reported by Stats.
type OpCounts struct {
	Collection string
	Creates    int64
	Reads      int64
	Updates    int64
	Deletes    int64
	Compares   int64
	Executes   int64
	Total      int64
}

// Stats returns the handle's per-collection operation counters, sorted by
// collection. Execute calls are tallied under the pseudo-collection "sql".
func (d *Database) Stats() []OpCounts {
	snap := d.stats.Snapshot()
	out := make([]OpCounts, 0, len(snap))
	for _, cs := range snap {
		out = append(out, OpCounts{
			Collection: cs.Collection,
			Creates:    cs.Ops[observability.OpCreate],
			Reads:      cs.Ops[observability.OpRead],
			Updates:    cs.Ops[observability.OpUpdate],
			Deletes:    cs.Ops[observability.OpDelete],
			Compares:   cs.Ops[observability.OpCompare],
			Executes:   cs.Ops[observability.OpExecute],
			Total:      cs.Total,
		})
	}
	return out
}

// ResetStats clears the handle's operation counters.
func (d *Database) ResetStats() { d.stats.Reset() }
