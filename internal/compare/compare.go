// Package compare diffs the contents of two databases that share a schema
// shape. Elements are matched by label, never by id, so two databases whose
// ids drifted apart still compare clean when their contents agree.
package compare

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/margauxdb/margaux/internal/element"
	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// Comparer diffs two databases through their element engines. The first
// engine is "the first database" in every diff sentence.
type Comparer struct {
	a, b *element.Engine
	log  *zap.SugaredLogger
}

// New creates a comparer over two engines.
func New(a, b *element.Engine, log *zap.SugaredLogger) *Comparer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Comparer{a: a, b: b, log: log}
}

// diff is one difference with its sort key. Diffs render sorted by
// (collection, label, attribute, text) so repeated compares of the same pair
// of databases produce byte-identical output.
type diff struct {
	collection string
	label      string
	attribute  string
	text       string
}

func render(ds []diff) []string {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].collection != ds[j].collection {
			return ds[i].collection < ds[j].collection
		}
		if ds[i].label != ds[j].label {
			return ds[i].label < ds[j].label
		}
		if ds[i].attribute != ds[j].attribute {
			return ds[i].attribute < ds[j].attribute
		}
		return ds[i].text < ds[j].text
	})
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.text
	}
	return out
}

// commonLabels returns the sorted intersection of both sides' labels.
func (c *Comparer) commonLabels(ctx context.Context, collection string) ([]string, error) {
	la, err := c.a.ElementLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	lb, err := c.b.ElementLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	inB := make(map[string]struct{}, len(lb))
	for _, l := range lb {
		inB[l] = struct{}{}
	}
	var common []string
	for _, l := range la {
		if _, ok := inB[l]; ok {
			common = append(common, l)
		}
	}
	sort.Strings(common)
	return common, nil
}

// elementPresence reports labels that exist on only one side.
func (c *Comparer) elementPresence(ctx context.Context, collection string) ([]diff, error) {
	la, err := c.a.ElementLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	lb, err := c.b.ElementLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	inA := make(map[string]struct{}, len(la))
	for _, l := range la {
		inA[l] = struct{}{}
	}
	inB := make(map[string]struct{}, len(lb))
	for _, l := range lb {
		inB[l] = struct{}{}
	}
	var ds []diff
	for _, l := range la {
		if _, ok := inB[l]; !ok {
			ds = append(ds, diff{collection, l, "", fmt.Sprintf(
				"collection %q: element %q exists only in the first database", collection, l)})
		}
	}
	for _, l := range lb {
		if _, ok := inA[l]; !ok {
			ds = append(ds, diff{collection, l, "", fmt.Sprintf(
				"collection %q: element %q exists only in the second database", collection, l)})
		}
	}
	return ds, nil
}

// mainColumns splits the non-identifying main-table columns present on both
// sides into parameter and relation columns.
func (c *Comparer) mainColumns(collection string) (params, relations []string, err error) {
	ta, err := mainTable(c.a.Schema(), collection)
	if err != nil {
		return nil, nil, err
	}
	tb, err := mainTable(c.b.Schema(), collection)
	if err != nil {
		return nil, nil, err
	}
	for _, col := range ta.AttributeColumns() {
		if _, ok := tb.Column(col.Name); !ok {
			continue
		}
		if _, ok := ta.ForeignKeyOn(col.Name); ok {
			relations = append(relations, col.Name)
		} else {
			params = append(params, col.Name)
		}
	}
	return params, relations, nil
}

func mainTable(s *schema.Schema, collection string) (*schema.Table, error) {
	if s == nil {
		return nil, types.NewError(types.NoSchemaLoaded, "compare: no schema loaded")
	}
	t, ok := s.Table(collection)
	if !ok || t.Role != schema.RoleMain {
		return nil, types.NewErrorWithContext(types.CollectionNotFound,
			fmt.Sprintf("compare: no collection named %q", collection), collection)
	}
	return t, nil
}

// commonGroups returns the sorted intersection of both sides' groups of one
// attribute kind.
func (c *Comparer) commonGroups(collection string, kind schema.AttributeKind) []string {
	ga := c.a.Schema().GroupsFor(collection, kind)
	gb := c.b.Schema().GroupsFor(collection, kind)
	inB := make(map[string]struct{}, len(gb))
	for _, g := range gb {
		inB[g] = struct{}{}
	}
	var common []string
	for _, g := range ga {
		if _, ok := inB[g]; ok {
			common = append(common, g)
		}
	}
	sort.Strings(common)
	return common
}

// targetLabel resolves a relation cell to the target element's label. Null
// cells render as "null".
func targetLabel(ctx context.Context, e *element.Engine, fk *schema.ForeignKey, v types.Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	id, err := v.AsInt()
	if err != nil {
		return "", err
	}
	label, err := e.ReadScalarOf(ctx, fk.TargetTable, "label", types.ByID(id))
	if err != nil {
		return "", err
	}
	return label.String(), nil
}

// ScalarParameters diffs the non-relation scalar attributes of one
// collection, element by element.
func (c *Comparer) ScalarParameters(ctx context.Context, collection string) ([]string, error) {
	params, _, err := c.mainColumns(collection)
	if err != nil {
		return nil, err
	}
	labels, err := c.commonLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	var ds []diff
	for _, label := range labels {
		va, err := c.a.ReadElementScalarAttributes(ctx, collection, types.ByLabel(label))
		if err != nil {
			return nil, err
		}
		vb, err := c.b.ReadElementScalarAttributes(ctx, collection, types.ByLabel(label))
		if err != nil {
			return nil, err
		}
		ma, mb := namedValueMap(va), namedValueMap(vb)
		for _, name := range params {
			av, bv := ma[name], mb[name]
			if av.Equal(bv) {
				continue
			}
			ds = append(ds, diff{collection, label, name, fmt.Sprintf(
				"collection %q: element %q: scalar parameter %q differs: %s vs %s",
				collection, label, name, av.String(), bv.String())})
		}
	}
	return render(ds), nil
}

func namedValueMap(nvs []types.NamedValue) map[string]types.Value {
	m := make(map[string]types.Value, len(nvs))
	for _, nv := range nvs {
		m[nv.Name] = nv.Value
	}
	return m
}

// ScalarRelations diffs the main-table relation columns of one collection,
// compared through the labels they point at.
func (c *Comparer) ScalarRelations(ctx context.Context, collection string) ([]string, error) {
	_, relations, err := c.mainColumns(collection)
	if err != nil {
		return nil, err
	}
	labels, err := c.commonLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	ta, _ := mainTable(c.a.Schema(), collection)
	tb, _ := mainTable(c.b.Schema(), collection)

	var ds []diff
	for _, label := range labels {
		for _, name := range relations {
			fka, _ := ta.ForeignKeyOn(name)
			fkb, _ := tb.ForeignKeyOn(name)
			av, err := c.a.ReadScalarByLabel(ctx, collection, name, label)
			if err != nil {
				return nil, err
			}
			bv, err := c.b.ReadScalarByLabel(ctx, collection, name, label)
			if err != nil {
				return nil, err
			}
			la, err := targetLabel(ctx, c.a, fka, av)
			if err != nil {
				return nil, err
			}
			lb, err := targetLabel(ctx, c.b, fkb, bv)
			if err != nil {
				return nil, err
			}
			if la == lb {
				continue
			}
			ds = append(ds, diff{collection, label, name, fmt.Sprintf(
				"collection %q: element %q: scalar relation %q differs: %s vs %s",
				collection, label, name, la, lb)})
		}
	}
	return render(ds), nil
}

// groupColumnsOn splits a group table's non-identifying columns present on
// both sides into parameter and relation columns.
func groupColumnsOn(ta, tb *schema.Table) (params, relations []string) {
	for _, col := range ta.AttributeColumns() {
		if _, ok := tb.Column(col.Name); !ok {
			continue
		}
		if _, ok := ta.ForeignKeyOn(col.Name); ok {
			relations = append(relations, col.Name)
		} else {
			params = append(params, col.Name)
		}
	}
	return params, relations
}

func (c *Comparer) vectorDiffs(ctx context.Context, collection string, wantRelations bool) ([]diff, error) {
	labels, err := c.commonLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	var ds []diff
	for _, group := range c.commonGroups(collection, schema.AttributeVector) {
		ta, _ := c.a.Schema().GroupTable(collection, schema.AttributeVector, group)
		tb, _ := c.b.Schema().GroupTable(collection, schema.AttributeVector, group)
		params, relations := groupColumnsOn(ta, tb)
		names := params
		if wantRelations {
			names = relations
		}
		if len(names) == 0 {
			continue
		}
		for _, label := range labels {
			cols, err := c.a.ReadElementVectorGroup(ctx, collection, types.ByLabel(label), group)
			if err != nil {
				return nil, err
			}
			colsB, err := c.b.ReadElementVectorGroup(ctx, collection, types.ByLabel(label), group)
			if err != nil {
				return nil, err
			}
			ma, mb := namedVectorMap(cols), namedVectorMap(colsB)
			for _, name := range names {
				va, vb := ma[name], mb[name]
				if len(va) != len(vb) {
					ds = append(ds, diff{collection, label, name, fmt.Sprintf(
						"collection %q: element %q: vector %s %q differs in length: %d vs %d",
						collection, label, kindWord(wantRelations), name, len(va), len(vb))})
					continue
				}
				for i := range va {
					sa, sb, err := c.renderVectorCell(ctx, ta, tb, name, va[i], vb[i], wantRelations)
					if err != nil {
						return nil, err
					}
					if sa == sb {
						continue
					}
					ds = append(ds, diff{collection, label, name, fmt.Sprintf(
						"collection %q: element %q: vector %s %q differs at index %d: %s vs %s",
						collection, label, kindWord(wantRelations), name, i, sa, sb)})
				}
			}
		}
	}
	return ds, nil
}

func kindWord(relation bool) string {
	if relation {
		return "relation"
	}
	return "parameter"
}

// renderVectorCell renders one pair of vector cells for diffing. Relation
// cells resolve to target labels first; parameter cells that compare equal
// render identically.
func (c *Comparer) renderVectorCell(ctx context.Context, ta, tb *schema.Table, name string, av, bv types.Value, relation bool) (string, string, error) {
	if relation {
		fka, _ := ta.ForeignKeyOn(name)
		fkb, _ := tb.ForeignKeyOn(name)
		sa, err := targetLabel(ctx, c.a, fka, av)
		if err != nil {
			return "", "", err
		}
		sb, err := targetLabel(ctx, c.b, fkb, bv)
		if err != nil {
			return "", "", err
		}
		return sa, sb, nil
	}
	if av.Equal(bv) {
		return "", "", nil
	}
	return av.String(), bv.String(), nil
}

func namedVectorMap(nvs []types.NamedVector) map[string][]types.Value {
	m := make(map[string][]types.Value, len(nvs))
	for _, nv := range nvs {
		m[nv.Name] = nv.Values
	}
	return m
}

// VectorParameters diffs the non-relation vector attributes of one
// collection, element-wise in vector order.
func (c *Comparer) VectorParameters(ctx context.Context, collection string) ([]string, error) {
	ds, err := c.vectorDiffs(ctx, collection, false)
	if err != nil {
		return nil, err
	}
	return render(ds), nil
}

// VectorRelations diffs the vector relation columns of one collection,
// compared through the label sequence they point at.
func (c *Comparer) VectorRelations(ctx context.Context, collection string) ([]string, error) {
	ds, err := c.vectorDiffs(ctx, collection, true)
	if err != nil {
		return nil, err
	}
	return render(ds), nil
}

func (c *Comparer) setDiffs(ctx context.Context, collection string, wantRelations bool) ([]diff, error) {
	labels, err := c.commonLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	var ds []diff
	for _, group := range c.commonGroups(collection, schema.AttributeSet) {
		ta, _ := c.a.Schema().GroupTable(collection, schema.AttributeSet, group)
		tb, _ := c.b.Schema().GroupTable(collection, schema.AttributeSet, group)
		params, relations := groupColumnsOn(ta, tb)
		names := params
		if wantRelations {
			names = relations
		}
		if len(names) == 0 {
			continue
		}
		keep := make(map[string]struct{}, len(names))
		for _, n := range names {
			keep[n] = struct{}{}
		}
		for _, label := range labels {
			rowsA, err := c.setRows(ctx, c.a, ta, collection, label, group, keep, wantRelations)
			if err != nil {
				return nil, err
			}
			rowsB, err := c.setRows(ctx, c.b, tb, collection, label, group, keep, wantRelations)
			if err != nil {
				return nil, err
			}
			for _, d := range newMultiset(rowsA).diffAgainst(newMultiset(rowsB)) {
				ds = append(ds, diff{collection, label, group, fmt.Sprintf(
					"collection %q: element %q: set group %q row %s occurs %d times vs %d times",
					collection, label, group, d.encoding, d.a, d.b)})
			}
		}
	}
	return ds, nil
}

// setRows reads the set rows of one element, filtered to the compared
// columns, with relation cells resolved to target labels.
func (c *Comparer) setRows(ctx context.Context, e *element.Engine, t *schema.Table, collection, label, group string, keep map[string]struct{}, relations bool) ([][]types.NamedValue, error) {
	rows, err := e.ReadElementSetGroup(ctx, collection, types.ByLabel(label), group)
	if err != nil {
		return nil, err
	}
	out := make([][]types.NamedValue, 0, len(rows))
	for _, row := range rows {
		var filtered []types.NamedValue
		for _, nv := range row {
			if _, ok := keep[nv.Name]; !ok {
				continue
			}
			if relations {
				fk, _ := t.ForeignKeyOn(nv.Name)
				target, err := targetLabel(ctx, e, fk, nv.Value)
				if err != nil {
					return nil, err
				}
				nv = types.NamedValue{Name: nv.Name, Value: types.Text(target)}
			}
			filtered = append(filtered, nv)
		}
		if len(filtered) > 0 {
			out = append(out, filtered)
		}
	}
	return out, nil
}

// SetParameters diffs the non-relation set attributes of one collection as
// multisets of rows.
func (c *Comparer) SetParameters(ctx context.Context, collection string) ([]string, error) {
	ds, err := c.setDiffs(ctx, collection, false)
	if err != nil {
		return nil, err
	}
	return render(ds), nil
}

// SetRelations diffs the set relation columns of one collection as multisets
// of target labels.
func (c *Comparer) SetRelations(ctx context.Context, collection string) ([]string, error) {
	ds, err := c.setDiffs(ctx, collection, true)
	if err != nil {
		return nil, err
	}
	return render(ds), nil
}

// TimeSeries diffs the time-series groups of one collection row by row in
// dimension order.
func (c *Comparer) TimeSeries(ctx context.Context, collection string) ([]string, error) {
	labels, err := c.commonLabels(ctx, collection)
	if err != nil {
		return nil, err
	}
	var ds []diff
	for _, group := range c.commonGroups(collection, schema.AttributeTimeSeries) {
		ta, _ := c.a.Schema().GroupTable(collection, schema.AttributeTimeSeries, group)
		tb, _ := c.b.Schema().GroupTable(collection, schema.AttributeTimeSeries, group)
		var names []string
		dims := make(map[string]struct{})
		for _, d := range ta.DimensionColumns() {
			dims[d] = struct{}{}
		}
		for _, col := range ta.AttributeColumns() {
			if _, ok := dims[col.Name]; ok {
				continue
			}
			if _, ok := tb.Column(col.Name); ok {
				names = append(names, col.Name)
			}
		}
		for _, label := range labels {
			rowsA, err := c.a.ReadElementTimeSeriesGroup(ctx, collection, types.ByLabel(label), group, nil)
			if err != nil {
				return nil, err
			}
			rowsB, err := c.b.ReadElementTimeSeriesGroup(ctx, collection, types.ByLabel(label), group, nil)
			if err != nil {
				return nil, err
			}
			if len(rowsA) != len(rowsB) {
				ds = append(ds, diff{collection, label, group, fmt.Sprintf(
					"collection %q: element %q: time series %q differs in row count: %d vs %d",
					collection, label, group, len(rowsA), len(rowsB))})
				continue
			}
			for i := range rowsA {
				for _, name := range names {
					av, bv := rowsA[i][name], rowsB[i][name]
					if av.Equal(bv) {
						continue
					}
					ds = append(ds, diff{collection, label, group + "." + name, fmt.Sprintf(
						"collection %q: element %q: time series %q column %q differs at row %d: %s vs %s",
						collection, label, group, name, i, av.String(), bv.String())})
				}
			}
		}
	}
	return render(ds), nil
}

// TimeSeriesFiles diffs the registered time-series file paths of one
// collection parameter by parameter. A missing registration compares as the
// empty path.
func (c *Comparer) TimeSeriesFiles(ctx context.Context, collection string) ([]string, error) {
	ta, okA := c.a.Schema().GroupTable(collection, schema.AttributeTimeSeriesFile, "")
	tb, okB := c.b.Schema().GroupTable(collection, schema.AttributeTimeSeriesFile, "")
	if !okA || !okB {
		return nil, nil
	}
	var ds []diff
	for _, col := range ta.AttributeColumns() {
		if _, ok := tb.Column(col.Name); !ok {
			continue
		}
		pa, err := c.filePath(ctx, c.a, collection, col.Name)
		if err != nil {
			return nil, err
		}
		pb, err := c.filePath(ctx, c.b, collection, col.Name)
		if err != nil {
			return nil, err
		}
		if pa == pb {
			continue
		}
		ds = append(ds, diff{collection, "", col.Name, fmt.Sprintf(
			"collection %q: time-series file %q differs: %q vs %q",
			collection, col.Name, pa, pb)})
	}
	return render(ds), nil
}

func (c *Comparer) filePath(ctx context.Context, e *element.Engine, collection, parameter string) (string, error) {
	path, err := e.ReadTimeSeriesFile(ctx, collection, parameter)
	if err != nil {
		if types.IsKind(err, types.ElementNotFound) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// categories lists every per-collection comparison in a fixed order.
func (c *Comparer) categories() []func(context.Context, string) ([]string, error) {
	return []func(context.Context, string) ([]string, error){
		c.ScalarParameters,
		c.VectorParameters,
		c.SetParameters,
		c.ScalarRelations,
		c.VectorRelations,
		c.SetRelations,
		c.TimeSeries,
		c.TimeSeriesFiles,
	}
}

// Databases runs every category over the intersection of both sides'
// collections and returns one merged, sorted diff list. Elements present on
// only one side are reported once per collection.
func (c *Comparer) Databases(ctx context.Context) ([]string, error) {
	if c.a.Schema() == nil || c.b.Schema() == nil {
		return nil, types.NewError(types.NoSchemaLoaded, "compare: no schema loaded")
	}
	ca := c.a.Schema().Collections()
	inB := make(map[string]struct{})
	for _, col := range c.b.Schema().Collections() {
		inB[col] = struct{}{}
	}

	var out []string
	for _, collection := range ca {
		if _, ok := inB[collection]; !ok {
			continue
		}
		presence, err := c.elementPresence(ctx, collection)
		if err != nil {
			return nil, err
		}
		out = append(out, render(presence)...)
		for _, category := range c.categories() {
			ds, err := category(ctx, collection)
			if err != nil {
				return nil, err
			}
			out = append(out, ds...)
		}
	}
	sort.Strings(out)
	c.log.Debugw("compared databases", "diffs", len(out))
	return out, nil
}
