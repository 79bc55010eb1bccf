package element

import (
	"context"
	"fmt"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// UpdateScalarParameter sets one scalar attribute of the element named by
// label. A Text value into a declared integer FK column resolves by label.
func (e *Engine) UpdateScalarParameter(ctx context.Context, collection, attr, label string, value types.Value) error {
	main, err := e.requireCollection(collection)
	if err != nil {
		return err
	}
	s := e.schema
	info, err := s.ClassifyAttribute(collection, attr)
	if err != nil {
		return err
	}
	if info.Kind != schema.AttributeScalar {
		return types.NewErrorWithContext(types.TypeMismatch,
			fmt.Sprintf("element: attribute %q of collection %q is a %s attribute, not a scalar", attr, collection, info.Kind),
			collection+"."+attr)
	}
	fkLabel := ""
	isFKLabel := info.Column == schema.ColumnInteger && value.Kind() == types.KindText
	if isFKLabel {
		fkLabel, _ = value.AsText()
	} else if err := schema.ValidateScalar(info.Column, value, collection+"."+attr); err != nil {
		return err
	}

	return e.withTransaction(ctx, func() error {
		id, err := e.GetElementID(ctx, collection, label)
		if err != nil {
			return err
		}
		v := value
		if isFKLabel {
			resolved, err := e.resolveLabelFK(ctx, main, attr, fkLabel)
			if err != nil {
				return err
			}
			v = types.Int(resolved)
		}
		_, err = e.exec.Execute(ctx,
			fmt.Sprintf("UPDATE %q SET %q = ? WHERE id = ?", collection, attr),
			v, types.Int(id))
		return err
	})
}

// UpdateVectorParameters rewrites one vector attribute of the element named
// by label. The stored row count must equal len(values); this operation does
// not resize a vector.
func (e *Engine) UpdateVectorParameters(ctx context.Context, collection, attr, label string, values []types.Value) error {
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	t, err := e.vectorTableFor(collection, attr)
	if err != nil {
		return err
	}
	col, _ := t.Column(attr)
	_, hasFK := t.ForeignKeyOn(attr)
	labelOK := col.Type == schema.ColumnInteger && hasFK
	for i, v := range values {
		if labelOK && v.Kind() == types.KindText {
			continue
		}
		ctxStr := fmt.Sprintf("%s.%s[%d]", t.Name, attr, i)
		if err := schema.ValidateScalar(col.Type, v, ctxStr); err != nil {
			return err
		}
	}

	return e.withTransaction(ctx, func() error {
		id, err := e.GetElementID(ctx, collection, label)
		if err != nil {
			return err
		}
		res, err := e.exec.Execute(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE id = ?", t.Name), types.Int(id))
		if err != nil {
			return err
		}
		stored, err := res.Rows[0][0].AsInt()
		if err != nil {
			return err
		}
		if stored != int64(len(values)) {
			return types.NewErrorWithContext(types.InvalidValue,
				fmt.Sprintf("element: vector attribute %q of %q.%q holds %d entries, update supplies %d",
					attr, collection, label, stored, len(values)),
				t.Name+"."+attr)
		}
		for i, v := range values {
			if labelOK && v.Kind() == types.KindText {
				fkLabel, _ := v.AsText()
				resolved, err := e.resolveLabelFK(ctx, t, attr, fkLabel)
				if err != nil {
					return err
				}
				v = types.Int(resolved)
			}
			_, err = e.exec.Execute(ctx,
				fmt.Sprintf("UPDATE %q SET %q = ? WHERE id = ? AND vector_index = ?", t.Name, attr),
				v, types.Int(id), types.Int(int64(i)))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateSetParameters replaces the members of one set attribute of the
// element named by label. The old rows are deleted and one row per supplied
// value is inserted, all in one transaction.
func (e *Engine) UpdateSetParameters(ctx context.Context, collection, attr, label string, values []types.Value) error {
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	t, err := e.setTableFor(collection, attr)
	if err != nil {
		return err
	}
	col, _ := t.Column(attr)
	_, hasFK := t.ForeignKeyOn(attr)
	labelOK := col.Type == schema.ColumnInteger && hasFK
	for i, v := range values {
		if labelOK && v.Kind() == types.KindText {
			continue
		}
		ctxStr := fmt.Sprintf("%s.%s[%d]", t.Name, attr, i)
		if err := schema.ValidateScalar(col.Type, v, ctxStr); err != nil {
			return err
		}
	}

	return e.withTransaction(ctx, func() error {
		id, err := e.GetElementID(ctx, collection, label)
		if err != nil {
			return err
		}
		if _, err := e.exec.Execute(ctx,
			fmt.Sprintf("DELETE FROM %q WHERE id = ?", t.Name), types.Int(id)); err != nil {
			return err
		}
		stmt := fmt.Sprintf("INSERT INTO %q (\"id\", %q) VALUES (?, ?)", t.Name, attr)
		for _, v := range values {
			if labelOK && v.Kind() == types.KindText {
				fkLabel, _ := v.AsText()
				resolved, err := e.resolveLabelFK(ctx, t, attr, fkLabel)
				if err != nil {
					return err
				}
				v = types.Int(resolved)
			}
			if _, err := e.exec.Execute(ctx, stmt, types.Int(id), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateTimeSeriesRow sets the value of one time-series attribute in the row
// matching dateTime on the group's leading dimension column.
func (e *Engine) UpdateTimeSeriesRow(ctx context.Context, collection, attr, label string, value, dateTime types.Value) error {
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	s := e.schema
	info, err := s.ClassifyAttribute(collection, attr)
	if err != nil {
		return err
	}
	if info.Kind != schema.AttributeTimeSeries {
		return types.NewErrorWithContext(types.TypeMismatch,
			fmt.Sprintf("element: attribute %q of collection %q is a %s attribute, not a time series", attr, collection, info.Kind),
			collection+"."+attr)
	}
	t, _ := s.Table(info.Table)
	dims := t.DimensionColumns()
	if len(dims) == 0 {
		return types.NewErrorWithContext(types.InvalidSchema,
			fmt.Sprintf("element: time-series table %q declares no dimension column", t.Name),
			t.Name)
	}
	dim := dims[0]
	if err := schema.ValidateScalar(info.Column, value, t.Name+"."+attr); err != nil {
		return err
	}

	return e.withTransaction(ctx, func() error {
		id, err := e.GetElementID(ctx, collection, label)
		if err != nil {
			return err
		}
		if _, err := e.exec.Execute(ctx,
			fmt.Sprintf("UPDATE %q SET %q = ? WHERE id = ? AND %q = ?", t.Name, attr, dim),
			value, types.Int(id), dateTime); err != nil {
			return err
		}
		n, err := e.exec.Changes(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return types.NewErrorWithContext(types.ElementNotFound,
				fmt.Sprintf("element: no time-series row of %q.%q where %s = %s",
					collection, label, dim, dateTime.String()),
				t.Name+"."+attr)
		}
		return nil
	})
}
