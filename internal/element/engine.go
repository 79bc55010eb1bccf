// Package element implements the element engine: creating, reading,
// updating and deleting collection elements and their vector, set and
// time-series groups.
package element

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/margauxdb/margaux/internal/schema"
	"github.com/margauxdb/margaux/internal/sqlexec"
	"github.com/margauxdb/margaux/pkg/types"
)

// Engine executes element operations against one database handle. It is not
// safe for concurrent use; it shares the ordering guarantees of its
// executor.
type Engine struct {
	exec   *sqlexec.Executor
	schema *schema.Schema
	log    *zap.SugaredLogger
}

// New creates an engine over an executor and a loaded schema model.
func New(exec *sqlexec.Executor, s *schema.Schema, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{exec: exec, schema: s, log: log}
}

// SetSchema replaces the schema model after a migration reloads it.
func (e *Engine) SetSchema(s *schema.Schema) { e.schema = s }

// Schema returns the current schema model.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// requireSchema returns the schema model or a NoSchemaLoaded error.
func (e *Engine) requireSchema() (*schema.Schema, error) {
	if e.schema == nil {
		return nil, types.NewError(types.NoSchemaLoaded, "element: no schema loaded")
	}
	return e.schema, nil
}

// requireCollection returns the Main table of a collection.
func (e *Engine) requireCollection(collection string) (*schema.Table, error) {
	s, err := e.requireSchema()
	if err != nil {
		return nil, err
	}
	t, ok := s.Table(collection)
	if !ok || t.Role != schema.RoleMain {
		return nil, types.NewErrorWithContext(types.CollectionNotFound,
			fmt.Sprintf("element: no collection named %q", collection), collection)
	}
	return t, nil
}

// GetElementID resolves a label to the element's id.
func (e *Engine) GetElementID(ctx context.Context, collection, label string) (int64, error) {
	if _, err := e.requireCollection(collection); err != nil {
		return 0, err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT id FROM %q WHERE label = ?", collection), types.Text(label))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, types.NewErrorWithContext(types.ElementNotFound,
			fmt.Sprintf("element: no element with label %q in collection %q", label, collection),
			collection+"."+label)
	}
	return res.Rows[0][0].AsInt()
}

// ElementIDs returns all element ids of a collection in insertion order.
func (e *Engine) ElementIDs(ctx context.Context, collection string) ([]int64, error) {
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	res, err := e.exec.Execute(ctx, fmt.Sprintf("SELECT id FROM %q ORDER BY id", collection))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, err := row[0].AsInt()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ElementLabels returns all labels of a collection in insertion order.
func (e *Engine) ElementLabels(ctx context.Context, collection string) ([]string, error) {
	if _, err := e.requireCollection(collection); err != nil {
		return nil, err
	}
	res, err := e.exec.Execute(ctx, fmt.Sprintf("SELECT label FROM %q ORDER BY id", collection))
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		l, err := row[0].AsText()
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// canonicalID resolves a handle to an element id, verifying existence for
// id handles.
func (e *Engine) canonicalID(ctx context.Context, collection string, h types.Handle) (int64, error) {
	if !h.IsID() {
		return e.GetElementID(ctx, collection, h.Label())
	}
	if _, err := e.requireCollection(collection); err != nil {
		return 0, err
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT id FROM %q WHERE id = ?", collection), types.Int(h.ID()))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, types.NewErrorWithContext(types.ElementNotFound,
			fmt.Sprintf("element: no element with id %d in collection %q", h.ID(), collection),
			collection)
	}
	return h.ID(), nil
}

// resolveLabelFK resolves a label into the id of the FK target declared on
// table.column. The substitution is refused when no FK edge exists.
func (e *Engine) resolveLabelFK(ctx context.Context, t *schema.Table, column, label string) (int64, error) {
	fk, ok := t.ForeignKeyOn(column)
	if !ok {
		return 0, types.NewErrorWithContext(types.TypeMismatch,
			fmt.Sprintf("element: text value for integer column %q without a declared foreign key", column),
			t.Name+"."+column)
	}
	res, err := e.exec.Execute(ctx,
		fmt.Sprintf("SELECT %q FROM %q WHERE label = ?", fk.TargetColumn, fk.TargetTable),
		types.Text(label))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, types.NewErrorWithContext(types.ForeignKeyViolation,
			fmt.Sprintf("element: no element with label %q in target collection %q", label, fk.TargetTable),
			t.Name+"."+column)
	}
	return res.Rows[0][0].AsInt()
}

// withTransaction runs fn inside a transaction unless one is already open,
// in which case fn joins it.
func (e *Engine) withTransaction(ctx context.Context, fn func() error) error {
	if e.exec.InTransaction() {
		return fn()
	}
	if err := e.exec.Begin(ctx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if rbErr := e.exec.Rollback(ctx); rbErr != nil {
			e.log.Warnw("rollback failed after write error", "error", rbErr)
		}
		return err
	}
	return e.exec.Commit(ctx)
}
