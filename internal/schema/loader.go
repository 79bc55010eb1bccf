package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/margauxdb/margaux/internal/sqlexec"
	"github.com/margauxdb/margaux/pkg/types"
)

// Load builds the schema model from the live catalog: table list from
// sqlite_master, columns from PRAGMA table_info, FK edges from
// PRAGMA foreign_key_list.
func Load(ctx context.Context, exec *sqlexec.Executor) (*Schema, error) {
	res, err := exec.Execute(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
	if err != nil {
		return nil, types.WrapError(types.InvalidSchema, "schema: failed to list tables", err)
	}

	var tables []*Table
	for _, row := range res.Rows {
		name, err := row[0].AsText()
		if err != nil {
			return nil, types.WrapError(types.InternalError, "schema: unexpected catalog row", err)
		}
		t, err := loadTable(ctx, exec, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return NewSchema(tables), nil
}

func loadTable(ctx context.Context, exec *sqlexec.Executor, name string) (*Table, error) {
	role, collection, group := ClassifyTableName(name)
	t := &Table{Name: name, Role: role, Collection: collection, Group: group}

	info, err := exec.Execute(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return nil, types.WrapError(types.InvalidSchema,
			fmt.Sprintf("schema: failed to read columns of %q", name), err)
	}
	// table_info columns: cid, name, type, notnull, dflt_value, pk
	for _, row := range info.Rows {
		colName, err := row[1].AsText()
		if err != nil {
			return nil, types.WrapError(types.InternalError, "schema: unexpected table_info row", err)
		}
		declType, _ := row[2].AsText()
		notNull, _ := row[3].AsInt()
		pk, _ := row[5].AsInt()

		col := Column{
			Name:       colName,
			Type:       ParseColumnType(declType),
			NotNull:    notNull != 0,
			PrimaryKey: pk != 0,
		}
		if !row[4].IsNull() {
			d := row[4].String()
			col.Default = &d
		}
		t.Columns = append(t.Columns, col)
	}

	fks, err := exec.Execute(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", name))
	if err != nil {
		return nil, types.WrapError(types.InvalidSchema,
			fmt.Sprintf("schema: failed to read foreign keys of %q", name), err)
	}
	// foreign_key_list columns: id, seq, table, from, to, on_update, on_delete, match
	for _, row := range fks.Rows {
		target, _ := row[2].AsText()
		from, _ := row[3].AsText()
		to := "id"
		if !row[4].IsNull() {
			to, _ = row[4].AsText()
		}
		onUpdate, _ := row[5].AsText()
		onDelete, _ := row[6].AsText()
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Column:       from,
			TargetTable:  target,
			TargetColumn: to,
			OnDelete:     strings.ToUpper(onDelete),
			OnUpdate:     strings.ToUpper(onUpdate),
		})
	}
	return t, nil
}
