package element

import (
	"context"
	"fmt"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// requireRelationColumn checks that relationName is a declared FK column on
// table t whose parent side is targetCollection.
func requireRelationColumn(t *schema.Table, targetCollection, relationName string) (*schema.ForeignKey, error) {
	if _, ok := t.Column(relationName); !ok {
		return nil, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no column %q on table %q", relationName, t.Name),
			t.Name+"."+relationName)
	}
	fk, ok := t.ForeignKeyOn(relationName)
	if !ok {
		return nil, types.NewErrorWithContext(types.InvalidSchema,
			fmt.Sprintf("element: column %q of table %q declares no foreign key", relationName, t.Name),
			t.Name+"."+relationName)
	}
	if fk.TargetTable != targetCollection {
		return nil, types.NewErrorWithContext(types.InvalidSchema,
			fmt.Sprintf("element: relation %q of table %q targets %q, not %q",
				relationName, t.Name, fk.TargetTable, targetCollection),
			t.Name+"."+relationName)
	}
	return fk, nil
}

// SetScalarRelation points the FK column relationName of the parent element
// at the child element of targetCollection. Repeating the call with the same
// arguments leaves the database unchanged.
func (e *Engine) SetScalarRelation(ctx context.Context, collection, targetCollection, parentLabel, childLabel, relationName string) error {
	main, err := e.requireCollection(collection)
	if err != nil {
		return err
	}
	if _, err := e.requireCollection(targetCollection); err != nil {
		return err
	}
	if _, err := requireRelationColumn(main, targetCollection, relationName); err != nil {
		return err
	}

	return e.withTransaction(ctx, func() error {
		parentID, err := e.GetElementID(ctx, collection, parentLabel)
		if err != nil {
			return err
		}
		childID, err := e.GetElementID(ctx, targetCollection, childLabel)
		if err != nil {
			return err
		}
		_, err = e.exec.Execute(ctx,
			fmt.Sprintf("UPDATE %q SET %q = ? WHERE id = ?", collection, relationName),
			types.Int(childID), types.Int(parentID))
		return err
	})
}

// SetVectorRelation replaces the vector rows carrying relationName for the
// parent element with one row per child label, indexed in the order given.
func (e *Engine) SetVectorRelation(ctx context.Context, collection, targetCollection, parentLabel string, childLabels []string, relationName string) error {
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	if _, err := e.requireCollection(targetCollection); err != nil {
		return err
	}
	t, err := e.vectorTableFor(collection, relationName)
	if err != nil {
		return err
	}
	if _, err := requireRelationColumn(t, targetCollection, relationName); err != nil {
		return err
	}

	return e.withTransaction(ctx, func() error {
		parentID, err := e.GetElementID(ctx, collection, parentLabel)
		if err != nil {
			return err
		}
		if _, err := e.exec.Execute(ctx,
			fmt.Sprintf("DELETE FROM %q WHERE id = ?", t.Name), types.Int(parentID)); err != nil {
			return err
		}
		stmt := fmt.Sprintf("INSERT INTO %q (\"id\", \"vector_index\", %q) VALUES (?, ?, ?)",
			t.Name, relationName)
		for i, child := range childLabels {
			childID, err := e.GetElementID(ctx, targetCollection, child)
			if err != nil {
				return err
			}
			if _, err := e.exec.Execute(ctx, stmt,
				types.Int(parentID), types.Int(int64(i)), types.Int(childID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetSetRelation replaces the set rows carrying relationName for the parent
// element with one row per child label.
func (e *Engine) SetSetRelation(ctx context.Context, collection, targetCollection, parentLabel string, childLabels []string, relationName string) error {
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	if _, err := e.requireCollection(targetCollection); err != nil {
		return err
	}
	t, err := e.setTableFor(collection, relationName)
	if err != nil {
		return err
	}
	if _, err := requireRelationColumn(t, targetCollection, relationName); err != nil {
		return err
	}

	return e.withTransaction(ctx, func() error {
		parentID, err := e.GetElementID(ctx, collection, parentLabel)
		if err != nil {
			return err
		}
		if _, err := e.exec.Execute(ctx,
			fmt.Sprintf("DELETE FROM %q WHERE id = ?", t.Name), types.Int(parentID)); err != nil {
			return err
		}
		stmt := fmt.Sprintf("INSERT INTO %q (\"id\", %q) VALUES (?, ?)", t.Name, relationName)
		for _, child := range childLabels {
			childID, err := e.GetElementID(ctx, targetCollection, child)
			if err != nil {
				return err
			}
			if _, err := e.exec.Execute(ctx, stmt,
				types.Int(parentID), types.Int(childID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetTimeSeriesFile upserts the file path of one parameter into the
// collection's single-row time-series file sidecar.
func (e *Engine) SetTimeSeriesFile(ctx context.Context, collection, parameter, filePath string) error {
	s, err := e.requireSchema()
	if err != nil {
		return err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	t, ok := s.GroupTable(collection, schema.AttributeTimeSeriesFile, "")
	if !ok {
		return types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: collection %q has no time-series file table", collection),
			collection)
	}
	if _, ok := t.Column(parameter); !ok {
		return types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no time-series file parameter %q on collection %q", parameter, collection),
			t.Name+"."+parameter)
	}

	return e.withTransaction(ctx, func() error {
		res, err := e.exec.Execute(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", t.Name))
		if err != nil {
			return err
		}
		n, err := res.Rows[0][0].AsInt()
		if err != nil {
			return err
		}
		if n == 0 {
			_, err = e.exec.Execute(ctx,
				fmt.Sprintf("INSERT INTO %q (%q) VALUES (?)", t.Name, parameter),
				types.Text(filePath))
			return err
		}
		_, err = e.exec.Execute(ctx,
			fmt.Sprintf("UPDATE %q SET %q = ?", t.Name, parameter),
			types.Text(filePath))
		return err
	})
}
