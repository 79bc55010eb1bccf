package element

import (
	"context"
	"fmt"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/pkg/types"
)

// DeleteElement removes one element from a collection. Auxiliary vector, set
// and time-series rows go with it through the cascading foreign keys.
func (e *Engine) DeleteElement(ctx context.Context, collection string, h types.Handle) error {
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	err := e.withTransaction(ctx, func() error {
		id, err := e.canonicalID(ctx, collection, h)
		if err != nil {
			return err
		}
		_, err = e.exec.Execute(ctx,
			fmt.Sprintf("DELETE FROM %q WHERE id = ?", collection), types.Int(id))
		return err
	})
	if err != nil {
		return err
	}
	e.log.Debugw("deleted element", "collection", collection, "handle", h.String())
	return nil
}

// DeleteTimeSeries removes every row of one time-series group belonging to
// the element named by label.
func (e *Engine) DeleteTimeSeries(ctx context.Context, collection, group, label string) error {
	s, err := e.requireSchema()
	if err != nil {
		return err
	}
	if _, err := e.requireCollection(collection); err != nil {
		return err
	}
	t, ok := s.GroupTable(collection, schema.AttributeTimeSeries, group)
	if !ok {
		return types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("element: no time-series group %q on collection %q", group, collection),
			collection+"."+group)
	}
	return e.withTransaction(ctx, func() error {
		id, err := e.GetElementID(ctx, collection, label)
		if err != nil {
			return err
		}
		_, err = e.exec.Execute(ctx,
			fmt.Sprintf("DELETE FROM %q WHERE id = ?", t.Name), types.Int(id))
		return err
	})
}
