package element

import (
	"context"
	"fmt"
	"strings"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// scalarAttributeInfo returns the attribute's info when attr is a scalar of
// the collection, and TypeMismatch when it is another kind of attribute.
func (e *Engine) scalarAttributeInfo(collection, attr string) (*schema.AttributeInfo, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	info, err := s.ClassifyAttribute(collection, attr)
	if err != nil {
		return nil, err
	}
	if info.Kind != schema.AttributeScalar {
		return nil, types.NewErrorWithContext(types.TypeMismatch,
			fmt.Sprintf("element: attribute %q on collection %q is a %s attribute, not scalar",
				attr, collection, info.Kind),
			collection+"."+attr)
	}
	return info, nil
}

// ReadScalar reads one scalar attribute across all elements of a
// collection, in insertion order.
func (e *Engine) ReadScalar(ctx context.Context, collection, attr string) ([]types.Value, error) {
	if _, err := e.scalarAttributeInfo(collection, attr); err != nil {
		return nil, err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT %q FROM %q ORDER BY id", attr, collection))
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, row[0])
	}
	return out, nil
}

// ReadScalarByLabel reads one scalar attribute of one element.
func (e *Engine) ReadScalarByLabel(ctx context.Context, collection, attr, label string) (types.Value, error) {
	return e.ReadScalarOf(ctx, collection, attr, types.ByLabel(label))
}

// ReadScalarOf reads one scalar attribute of the element addressed by a
// handle.
func (e *Engine) ReadScalarOf(ctx context.Context, collection, attr string, h types.Handle) (types.Value, error) {
	if _, err := e.scalarAttributeInfo(collection, attr); err != nil {
		return types.Null(), err
	}
	id, err := e.canonicalID(ctx, collection, h)
	if err != nil {
		return types.Null(), err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT %q FROM %q WHERE id = ?", attr, collection), types.Int(id))
	if err != nil {
		return types.Null(), err
	}
	if len(res.Rows) == 0 {
		return types.Null(), types.NewErrorWithContext(types.ElementNotFound,
			fmt.Sprintf("element: no element %s in collection %q", h, collection), collection)
	}
	return res.Rows[0][0], nil
}

// vectorTableFor resolves the vector table owning attr.
func (e *Engine) vectorTableFor(collection, attr string) (*schema.Table, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	t, ok := s.VectorTableFor(collection, attr)
	if !ok {
		return nil, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no vector attribute %q on collection %q", attr, collection),
			collection+"."+attr)
	}
	return t, nil
}

// ReadVector reads a vector attribute for every element of the collection:
// outer index follows element insertion order, inner lists are ordered by
// vector_index.
func (e *Engine) ReadVector(ctx context.Context, collection, attr string) ([][]types.Value, error) {
	t, err := e.vectorTableFor(collection, attr)
	if err != nil {
		return nil, err
	}
	ids, err := e.ElementIDs(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([][]types.Value, 0, len(ids))
	for _, id := range ids {
		res, err := e.exec.Execute(ctx,
			fmt.Sprintf("SELECT %q FROM %q WHERE id = ? ORDER BY vector_index ASC", attr, t.Name),
			types.Int(id))
		if err != nil {
			return nil, err
		}
		vec := make([]types.Value, 0, len(res.Rows))
		for _, row := range res.Rows {
			vec = append(vec, row[0])
		}
		out = append(out, vec)
	}
	return out, nil
}

// ReadVectorByLabel reads a vector attribute of one element.
func (e *Engine) ReadVectorByLabel(ctx context.Context, collection, attr, label string) ([]types.Value, error) {
	return e.ReadVectorOf(ctx, collection, attr, types.ByLabel(label))
}

// ReadVectorOf reads a vector attribute of the element addressed by a
// handle, ordered by vector_index.
func (e *Engine) ReadVectorOf(ctx context.Context, collection, attr string, h types.Handle) ([]types.Value, error) {
	t, err := e.vectorTableFor(collection, attr)
	if err != nil {
		return nil, err
	}
	id, err := e.canonicalID(ctx, collection, h)
	if err != nil {
		return nil, err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT %q FROM %q WHERE id = ? ORDER BY vector_index ASC", attr, t.Name),
		types.Int(id))
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, row[0])
	}
	return out, nil
}

// setTableFor resolves the set table owning attr.
func (e *Engine) setTableFor(collection, attr string) (*schema.Table, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	t, ok := s.SetTableFor(collection, attr)
	if !ok {
		return nil, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no set attribute %q on collection %q", attr, collection),
			collection+"."+attr)
	}
	return t, nil
}

// ReadSet reads a set attribute for every element of the collection. The
// inner order is unspecified but deterministic within one process (rowid
// order).
func (e *Engine) ReadSet(ctx context.Context, collection, attr string) ([][]types.Value, error) {
	t, err := e.setTableFor(collection, attr)
	if err != nil {
		return nil, err
	}
	ids, err := e.ElementIDs(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([][]types.Value, 0, len(ids))
	for _, id := range ids {
		res, err := e.exec.Execute(ctx,
			fmt.Sprintf("SELECT %q FROM %q WHERE id = ? ORDER BY rowid", attr, t.Name),
			types.Int(id))
		if err != nil {
			return nil, err
		}
		set := make([]types.Value, 0, len(res.Rows))
		for _, row := range res.Rows {
			set = append(set, row[0])
		}
		out = append(out, set)
	}
	return out, nil
}

// ReadSetByLabel reads a set attribute of one element.
func (e *Engine) ReadSetByLabel(ctx context.Context, collection, attr, label string) ([]types.Value, error) {
	t, err := e.setTableFor(collection, attr)
	if err != nil {
		return nil, err
	}
	id, err := e.canonicalID(ctx, collection, types.ByLabel(label))
	if err != nil {
		return nil, err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT %q FROM %q WHERE id = ? ORDER BY rowid", attr, t.Name),
		types.Int(id))
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, row[0])
	}
	return out, nil
}

// ReadElementScalarAttributes reads the whole main row of one element as
// ordered name/value pairs.
func (e *Engine) ReadElementScalarAttributes(ctx context.Context, collection string, h types.Handle) ([]types.NamedValue, error) {
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	id, err := e.canonicalID(ctx, collection, h)
	if err != nil {
		return nil, err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT * FROM %q WHERE id = ?", collection), types.Int(id))
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, types.NewErrorWithContext(types.ElementNotFound,
			fmt.Sprintf("element: no element %s in collection %q", h, collection), collection)
	}
	out := make([]types.NamedValue, 0, len(res.Columns))
	for i, col := range res.Columns {
		out = append(out, types.NamedValue{Name: col, Value: res.Rows[0][i]})
	}
	return out, nil
}

// ReadElementVectorGroup reads all vector attributes of one group for one
// element: one entry per value column in declaration order, inner lists
// index-aligned by vector_index. An existing group with no rows returns
// the column names paired with empty lists.
func (e *Engine) ReadElementVectorGroup(ctx context.Context, collection string, h types.Handle, group string) ([]types.NamedVector, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	t, ok := s.GroupTable(collection, schema.AttributeVector, group)
	if !ok {
		return nil, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no vector group %q on collection %q", group, collection),
			collection+"."+group)
	}
	id, err := e.canonicalID(ctx, collection, h)
	if err != nil {
		return nil, err
	}

	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT * FROM %q WHERE id = ? ORDER BY vector_index ASC", t.Name),
		types.Int(id))
	if err != nil {
		return nil, err
	}

	var out []types.NamedVector
	for colIdx, col := range res.Columns {
		if col == "id" || col == "vector_index" {
			continue
		}
		nv := types.NamedVector{Name: col, Values: make([]types.Value, 0, len(res.Rows))}
		for _, row := range res.Rows {
			nv.Values = append(nv.Values, row[colIdx])
		}
		out = append(out, nv)
	}
	return out, nil
}

// ReadElementSetGroup reads all rows of one set group for one element; each
// row is an ordered list of name/value pairs over the group's value
// columns.
func (e *Engine) ReadElementSetGroup(ctx context.Context, collection string, h types.Handle, group string) ([][]types.NamedValue, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	t, ok := s.GroupTable(collection, schema.AttributeSet, group)
	if !ok {
		return nil, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no set group %q on collection %q", group, collection),
			collection+"."+group)
	}
	id, err := e.canonicalID(ctx, collection, h)
	if err != nil {
		return nil, err
	}

	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT * FROM %q WHERE id = ? ORDER BY rowid", t.Name), types.Int(id))
	if err != nil {
		return nil, err
	}

	out := make([][]types.NamedValue, 0, len(res.Rows))
	for _, row := range res.Rows {
		var named []types.NamedValue
		for colIdx, col := range res.Columns {
			if col == "id" {
				continue
			}
			named = append(named, types.NamedValue{Name: col, Value: row[colIdx]})
		}
		out = append(out, named)
	}
	return out, nil
}

// ReadElementTimeSeriesGroup reads all rows of one time-series group for
// one element, dimension columns carried through. Rows are ordered by the
// supplied dimension keys, or by the group's natural dimensions when none
// are given.
func (e *Engine) ReadElementTimeSeriesGroup(ctx context.Context, collection string, h types.Handle, group string, dimensionKeys []string) ([]types.Row, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	t, ok := s.GroupTable(collection, schema.AttributeTimeSeries, group)
	if !ok {
		return nil, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no time-series group %q on collection %q", group, collection),
			collection+"."+group)
	}
	id, err := e.canonicalID(ctx, collection, h)
	if err != nil {
		return nil, err
	}

	keys := dimensionKeys
	if len(keys) == 0 {
		keys = t.DimensionColumns()
	}
	for _, k := range keys {
		if _, ok := t.Column(k); !ok {
			return nil, types.NewErrorWithContext(types.AttributeNotFound,
				fmt.Sprintf("element: no dimension column %q in time-series group %q", k, group),
				t.Name+"."+k)
		}
	}

	order := "rowid"
	if len(keys) > 0 {
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = fmt.Sprintf("%q ASC", k)
		}
		order = strings.Join(quoted, ", ")
	}

	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT * FROM %q WHERE id = ? ORDER BY %s", t.Name, order), types.Int(id))
	if err != nil {
		return nil, err
	}

	out := make([]types.Row, 0, len(res.Rows))
	for _, row := range res.Rows {
		r := make(types.Row, len(res.Columns))
		for colIdx, col := range res.Columns {
			if col == "id" {
				continue
			}
			r[col] = row[colIdx]
		}
		out = append(out, r)
	}
	return out, nil
}

// ReadTimeSeriesFile reads the stored file path of one parameter from the
// collection's time-series file sidecar.
func (e *Engine) ReadTimeSeriesFile(ctx context.Context, collection, parameter string) (string, error) {
	s, err := e.requireSchema()
	if err != nil {
		return "", err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return "", err
	}
	t, ok := s.GroupTable(collection, schema.AttributeTimeSeriesFile, "")
	if !ok {
		return "", types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: collection %q has no time-series file table", collection),
			collection)
	}
	if _, ok := t.Column(parameter); !ok {
		return "", types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no time-series file parameter %q on collection %q", parameter, collection),
			t.Name+"."+parameter)
	}
	res, err := e.exec.Execute(ctx, fmt.Sprintf("SELECT %q FROM %q", parameter, t.Name))
	if err != nil {
		return "", err
	}
	if len(res.Rows) == 0 || res.Rows[0][0].IsNull() {
		return "", types.NewErrorWithContext(types.ElementNotFound,
			fmt.Sprintf("element: no file registered for parameter %q on collection %q", parameter, collection),
			t.Name+"."+parameter)
	}
	return res.Rows[0][0].AsText()
}

// IsScalarAttribute reports whether attr is a scalar attribute of the
// collection.
func (e *Engine) IsScalarAttribute(collection, attr string) (bool, error) {
	return e.isAttributeKind(collection, attr, schema.AttributeScalar)
}

// IsVectorAttribute reports whether attr is a vector attribute of the
// collection.
func (e *Engine) IsVectorAttribute(collection, attr string) (bool, error) {
	return e.isAttributeKind(collection, attr, schema.AttributeVector)
}

// IsSetAttribute reports whether attr is a set attribute of the collection.
func (e *Engine) IsSetAttribute(collection, attr string) (bool, error) {
	return e.isAttributeKind(collection, attr, schema.AttributeSet)
}

func (e *Engine) isAttributeKind(collection, attr string, kind schema.AttributeKind) (bool, error) {
	s, err := e.requireSchema()
	if err != nil {
		return false, err
	}
	info, err := s.ClassifyAttribute(collection, attr)
	if err != nil {
		if types.IsKind(err, types.AttributeNotFound) {
			return false, nil
		}
		return false, err
	}
	return info.Kind == kind, nil
}

// AttributeType returns the declared column type of an attribute.
func (e *Engine) AttributeType(collection, attr string) (schema.ColumnType, error) {
	s, err := e.requireSchema()
	if err != nil {
		return 0, err
	}
	info, err := s.ClassifyAttribute(collection, attr)
	if err != nil {
		return 0, err
	}
	return info.Column, nil
}
