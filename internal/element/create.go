package element

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// writePlan is the bucket classification of one element against a
// collection's schema, computed before anything touches the database.
type writePlan struct {
	mainColumns []string
	mainValues  []types.Value
	mainFKLabel map[string]string

	vectorGroups map[string]*groupColumns
	setGroups    map[string]*groupColumns

	groupOrder    []string
	setGroupOrder []string
}

// groupColumns holds the vector-form attributes of one auxiliary group in
// element insertion order.
type groupColumns struct {
	table   *schema.Table
	names   []string
	vectors []types.Value
	length  int
}

func (g *groupColumns) add(name string, v types.Value) error {
	n, err := v.VectorLen()
	if err != nil {
		return err
	}
	if len(g.names) == 0 {
		g.length = n
	} else if n != g.length {
		return types.NewErrorWithContext(types.InvalidValue,
			fmt.Sprintf("element: attribute %q has %d entries, group %q expects %d",
				name, n, g.table.Group, g.length),
			g.table.Name+"."+name)
	}
	g.names = append(g.names, name)
	g.vectors = append(g.vectors, v)
	return nil
}

// classify walks the element's fields and buckets them per the schema.
func (e *Engine) classify(collection string, el *types.Element) (*writePlan, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}

	plan := &writePlan{
		mainFKLabel:  make(map[string]string),
		vectorGroups: make(map[string]*groupColumns),
		setGroups:    make(map[string]*groupColumns),
	}

	var firstErr error
	el.Fields(func(name string, v types.Value) {
		if firstErr != nil {
			return
		}
		info, err := s.ClassifyAttribute(collection, name)
		if err != nil {
			firstErr = err
			return
		}
		switch info.Kind {
		case schema.AttributeScalar:
			if v.IsVector() {
				firstErr = types.NewErrorWithContext(types.TypeMismatch,
					fmt.Sprintf("element: scalar attribute %q may not be supplied as a vector", name),
					collection+"."+name)
				return
			}
			if info.Column == schema.ColumnInteger && v.Kind() == types.KindText {
				label, _ := v.AsText()
				plan.mainFKLabel[name] = label
				plan.mainColumns = append(plan.mainColumns, name)
				plan.mainValues = append(plan.mainValues, v)
				return
			}
			if err := schema.ValidateScalar(info.Column, v, collection+"."+name); err != nil {
				firstErr = err
				return
			}
			plan.mainColumns = append(plan.mainColumns, name)
			plan.mainValues = append(plan.mainValues, v)

		case schema.AttributeVector, schema.AttributeSet:
			if !v.IsVector() {
				firstErr = types.NewErrorWithContext(types.TypeMismatch,
					fmt.Sprintf("element: %s attribute %q requires a vector value", info.Kind, name),
					collection+"."+name)
				return
			}
			groups := plan.vectorGroups
			order := &plan.groupOrder
			if info.Kind == schema.AttributeSet {
				groups = plan.setGroups
				order = &plan.setGroupOrder
			}
			g, ok := groups[info.Group]
			if !ok {
				t, _ := s.Table(info.Table)
				g = &groupColumns{table: t}
				groups[info.Group] = g
				*order = append(*order, info.Group)
			}
			if err := g.add(name, v); err != nil {
				firstErr = err
				return
			}

		case schema.AttributeTimeSeries:
			firstErr = types.NewErrorWithContext(types.InvalidValue,
				fmt.Sprintf("element: time-series attribute %q must be supplied through a time-series block", name),
				collection+"."+name)

		case schema.AttributeTimeSeriesFile:
			firstErr = types.NewErrorWithContext(types.InvalidValue,
				fmt.Sprintf("element: time-series file attribute %q is written through its own operation", name),
				collection+"."+name)
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return plan, nil
}

// validateGroups type-checks every vector and set cell against its declared
// column type. FK-by-label cells (text into an integer FK column) pass here
// and resolve at insert time.
func (e *Engine) validateGroups(plan *writePlan) error {
	for _, groups := range []map[string]*groupColumns{plan.vectorGroups, plan.setGroups} {
		for _, g := range groups {
			for i, name := range g.names {
				col, _ := g.table.Column(name)
				_, hasFK := g.table.ForeignKeyOn(name)
				labelOK := col.Type == schema.ColumnInteger && hasFK
				for j := 0; j < g.length; j++ {
					cell, err := g.vectors[i].VectorElement(j)
					if err != nil {
						return err
					}
					if labelOK && cell.Kind() == types.KindText {
						continue
					}
					ctxStr := fmt.Sprintf("%s.%s[%d]", g.table.Name, name, j)
					if err := schema.ValidateScalar(col.Type, cell, ctxStr); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func quoteColumns(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// CreateElement writes one element into a collection: the main row, one row
// per vector index into each vector table, one row per member into each set
// table, and the bulk rows of each time-series group, all in one
// transaction. It returns the new element id.
func (e *Engine) CreateElement(ctx context.Context, collection string, el *types.Element) (int64, error) {
	main, err := e.requireCollection(collection)
	if err != nil {
		return 0, err
	}
	if el == nil || el.IsEmpty() {
		return 0, types.NewErrorWithContext(types.EmptyElement,
			"element: element has no fields", collection)
	}

	plan, err := e.classify(collection, el)
	if err != nil {
		return 0, err
	}
	if err := e.validateGroups(plan); err != nil {
		return 0, err
	}

	// Main-table type validation ran during classification; FK labels
	// resolve inside the transaction so reads and writes see one snapshot.
	var newID int64
	err = e.withTransaction(ctx, func() error {
		values := make([]types.Value, len(plan.mainValues))
		copy(values, plan.mainValues)
		for i, name := range plan.mainColumns {
			if label, ok := plan.mainFKLabel[name]; ok {
				id, err := e.resolveLabelFK(ctx, main, name, label)
				if err != nil {
					return err
				}
				values[i] = types.Int(id)
			}
		}

		if len(plan.mainColumns) == 0 {
			if _, err := e.exec.Execute(ctx,
				fmt.Sprintf("INSERT INTO %q DEFAULT VALUES", collection)); err != nil {
				return err
			}
		} else {
			stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
				collection, quoteColumns(plan.mainColumns), placeholders(len(values)))
			if _, err := e.exec.Execute(ctx, stmt, values...); err != nil {
				return err
			}
		}

		id, err := e.exec.LastInsertRowID(ctx)
		if err != nil {
			return err
		}
		newID = id

		for _, group := range plan.groupOrder {
			if err := e.insertGroupRows(ctx, plan.vectorGroups[group], newID, true); err != nil {
				return err
			}
		}
		for _, group := range plan.setGroupOrder {
			if err := e.insertGroupRows(ctx, plan.setGroups[group], newID, false); err != nil {
				return err
			}
		}
		for _, group := range el.TimeSeriesGroups() {
			ts, _ := el.TimeSeriesGroup(group)
			if err := e.insertTimeSeriesRows(ctx, collection, group, newID, ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.log.Debugw("created element", "collection", collection, "id", newID)
	return newID, nil
}

// insertGroupRows writes the rows of one vector or set group for an
// element. Vector rows carry an ascending vector_index; FK labels resolve
// per row.
func (e *Engine) insertGroupRows(ctx context.Context, g *groupColumns, id int64, withIndex bool) error {
	cols := []string{"id"}
	if withIndex {
		cols = append(cols, "vector_index")
	}
	cols = append(cols, g.names...)
	stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		g.table.Name, quoteColumns(cols), placeholders(len(cols)))

	for row := 0; row < g.length; row++ {
		params := []types.Value{types.Int(id)}
		if withIndex {
			params = append(params, types.Int(int64(row)))
		}
		for i, name := range g.names {
			cell, err := g.vectors[i].VectorElement(row)
			if err != nil {
				return err
			}
			col, _ := g.table.Column(name)
			if col.Type == schema.ColumnInteger && cell.Kind() == types.KindText {
				label, _ := cell.AsText()
				resolved, err := e.resolveLabelFK(ctx, g.table, name, label)
				if err != nil {
					return err
				}
				cell = types.Int(resolved)
			}
			params = append(params, cell)
		}
		if _, err := e.exec.Execute(ctx, stmt, params...); err != nil {
			return err
		}
	}
	return nil
}

// insertTimeSeriesRows bulk-inserts the rows of one time-series block.
func (e *Engine) insertTimeSeriesRows(ctx context.Context, collection, group string, id int64, ts *types.TimeSeries) error {
	s, err := e.requireSchema()
	if err != nil {
		return err
	}
	t, ok := s.GroupTable(collection, schema.AttributeTimeSeries, group)
	if !ok {
		return types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no time-series group %q on collection %q", group, collection),
			collection+"."+group)
	}

	names := ts.Columns()
	for _, name := range names {
		if _, ok := t.Column(name); ok {
			continue
		}
		return types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no column %q in time-series group %q of collection %q", name, group, collection),
			t.Name+"."+name)
	}

	rows, err := ts.RowCount()
	if err != nil {
		return err
	}
	if rows == 0 {
		return nil
	}

	for _, name := range names {
		col, _ := t.Column(name)
		values, _ := ts.Column(name)
		for j, v := range values {
			ctxStr := fmt.Sprintf("%s.%s[%d]", t.Name, name, j)
			if err := schema.ValidateScalar(col.Type, v, ctxStr); err != nil {
				return err
			}
		}
	}

	cols := append([]string{"id"}, names...)
	stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		t.Name, quoteColumns(cols), placeholders(len(cols)))
	for row := 0; row < rows; row++ {
		params := []types.Value{types.Int(id)}
		for _, name := range names {
			values, _ := ts.Column(name)
			params = append(params, values[row])
		}
		if _, err := e.exec.Execute(ctx, stmt, params...); err != nil {
			return err
		}
	}
	return nil
}

// CreateElements writes a batch of elements in one transaction, stopping at
// the first failure, which rolls the whole batch back.
func (e *Engine) CreateElements(ctx context.Context, collection string, elements []*types.Element) ([]int64, error) {
	if len(elements) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(elements))
	err := e.withTransaction(ctx, func() error {
		for i, el := range elements {
			id, err := e.CreateElement(ctx, collection, el)
			if err != nil {
				return types.WrapError(types.KindOf(err),
					fmt.Sprintf("element: batch create failed at element %d", i), err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateElement rewrites the scalar fields and vector groups of an existing
// element in one transaction. Vector groups are replaced wholesale.
func (e *Engine) UpdateElement(ctx context.Context, collection string, h types.Handle, el *types.Element) error {
	main, err := e.requireCollection(collection)
	if err != nil {
		return err
	}
	if el == nil || el.IsEmpty() {
		return types.NewErrorWithContext(types.EmptyElement,
			"element: element has no fields", collection)
	}
	plan, err := e.classify(collection, el)
	if err != nil {
		return err
	}
	if err := e.validateGroups(plan); err != nil {
		return err
	}
	if len(plan.setGroups) > 0 {
		groups := make([]string, 0, len(plan.setGroups))
		for g := range plan.setGroups {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		return types.NewErrorWithContext(types.InvalidValue,
			fmt.Sprintf("element: set group %q is updated through its own operation", groups[0]),
			collection)
	}

	return e.withTransaction(ctx, func() error {
		id, err := e.canonicalID(ctx, collection, h)
		if err != nil {
			return err
		}

		for i, name := range plan.mainColumns {
			v := plan.mainValues[i]
			if label, ok := plan.mainFKLabel[name]; ok {
				resolved, err := e.resolveLabelFK(ctx, main, name, label)
				if err != nil {
					return err
				}
				v = types.Int(resolved)
			}
			stmt := fmt.Sprintf("UPDATE %q SET %q = ? WHERE id = ?", collection, name)
			if _, err := e.exec.Execute(ctx, stmt, v, types.Int(id)); err != nil {
				return err
			}
		}

		for _, group := range plan.groupOrder {
			g := plan.vectorGroups[group]
			if _, err := e.exec.Execute(ctx,
				fmt.Sprintf("DELETE FROM %q WHERE id = ?", g.table.Name), types.Int(id)); err != nil {
				return err
			}
			if err := e.insertGroupRows(ctx, g, id, true); err != nil {
				return err
			}
		}
		return nil
	})
}
