package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/margauxdb/margaux/pkg/types"
)

// ColumnType is the declared storage type of a column.
type ColumnType int

const (
	ColumnInteger ColumnType = iota
	ColumnReal
	ColumnText
	ColumnBlob
)

// String returns the SQL name of the column type.
func (t ColumnType) String() string {
	switch t {
	case ColumnInteger:
		return "INTEGER"
	case ColumnReal:
		return "REAL"
	case ColumnText:
		return "TEXT"
	case ColumnBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// ParseColumnType maps a declared SQL type to a ColumnType following
// SQLite affinity rules. An empty declaration maps to blob.
func ParseColumnType(decl string) ColumnType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return ColumnInteger
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return ColumnText
	case d == "", strings.Contains(d, "BLOB"):
		return ColumnBlob
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return ColumnReal
	default:
		return ColumnReal
	}
}

// Role classifies a table by its name pattern.
type Role int

const (
	RoleMain Role = iota
	RoleVector
	RoleSet
	RoleTimeSeries
	RoleTimeSeriesFiles
	RoleConfiguration
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleMain:
		return "main"
	case RoleVector:
		return "vector"
	case RoleSet:
		return "set"
	case RoleTimeSeries:
		return "time series"
	case RoleTimeSeriesFiles:
		return "time series files"
	case RoleConfiguration:
		return "configuration"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ForeignKey is one FK edge declared on a table.
type ForeignKey struct {
	Column       string
	TargetTable  string
	TargetColumn string
	OnDelete     string
	OnUpdate     string
}

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       ColumnType
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// Table describes one table: ordered columns, FK edges, and the role
// derived from its name.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	Role        Role
	Collection  string
	Group       string
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ForeignKeyOn returns the FK edge declared on the named column.
func (t *Table) ForeignKeyOn(column string) (*ForeignKey, bool) {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Column == column {
			return &t.ForeignKeys[i], true
		}
	}
	return nil, false
}

// identifying columns carried by auxiliary tables.
func isIdentifyingColumn(name string) bool {
	return name == "id" || name == "vector_index" || name == "label"
}

// AttributeColumns returns the table's columns excluding id, vector_index
// and label, in declaration order.
func (t *Table) AttributeColumns() []Column {
	var out []Column
	for _, c := range t.Columns {
		if isIdentifyingColumn(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

const (
	reservedConfigurationTable = "Configuration"
	vectorInfix                = "_vector_"
	setInfix                   = "_set_"
	timeSeriesInfix            = "_time_series_"
	timeSeriesFilesSuffix      = "_time_series_files"
	filesSuffix                = "_files"
)

// ClassifyTableName derives (role, collection, group) from a table name.
func ClassifyTableName(name string) (Role, string, string) {
	switch {
	case name == reservedConfigurationTable:
		return RoleConfiguration, "", ""
	case strings.HasSuffix(name, timeSeriesFilesSuffix):
		return RoleTimeSeriesFiles, strings.TrimSuffix(name, timeSeriesFilesSuffix), ""
	case strings.Contains(name, vectorInfix):
		i := strings.Index(name, vectorInfix)
		return RoleVector, name[:i], name[i+len(vectorInfix):]
	case strings.Contains(name, setInfix):
		i := strings.Index(name, setInfix)
		return RoleSet, name[:i], name[i+len(setInfix):]
	case strings.Contains(name, timeSeriesInfix):
		i := strings.Index(name, timeSeriesInfix)
		return RoleTimeSeries, name[:i], name[i+len(timeSeriesInfix):]
	default:
		return RoleMain, name, ""
	}
}

// AttributeKind says where an attribute lives for a collection.
type AttributeKind int

const (
	AttributeScalar AttributeKind = iota
	AttributeVector
	AttributeSet
	AttributeTimeSeries
	AttributeTimeSeriesFile
)

// String returns the kind name.
func (k AttributeKind) String() string {
	switch k {
	case AttributeScalar:
		return "scalar"
	case AttributeVector:
		return "vector"
	case AttributeSet:
		return "set"
	case AttributeTimeSeries:
		return "time series"
	case AttributeTimeSeriesFile:
		return "time series file"
	default:
		return fmt.Sprintf("AttributeKind(%d)", int(k))
	}
}

// AttributeInfo is the resolution of an attribute name on a collection.
type AttributeInfo struct {
	Kind   AttributeKind
	Group  string
	Table  string
	Column ColumnType
}

// Schema is the read-only in-memory model of a loaded database.
type Schema struct {
	tables map[string]*Table
	order  []string
}

// NewSchema builds a schema from tables in catalog order.
func NewSchema(tables []*Table) *Schema {
	s := &Schema{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		s.tables[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	return s
}

// Table returns the named table.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// TableNames returns all table names in catalog order.
func (s *Schema) TableNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Collections returns the Main tables excluding the reserved Configuration
// table and any sidecar, sorted by name.
func (s *Schema) Collections() []string {
	var out []string
	for _, name := range s.order {
		t := s.tables[name]
		if t.Role == RoleMain && !strings.HasSuffix(name, filesSuffix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HasCollection reports whether a Main table of that name exists.
func (s *Schema) HasCollection(collection string) bool {
	t, ok := s.tables[collection]
	return ok && t.Role == RoleMain
}

// auxTablesFor returns the tables of one role belonging to a collection, in
// catalog order.
func (s *Schema) auxTablesFor(collection string, role Role) []*Table {
	var out []*Table
	for _, name := range s.order {
		t := s.tables[name]
		if t.Role == role && t.Collection == collection {
			out = append(out, t)
		}
	}
	return out
}

// GroupsFor returns the group names of one attribute kind on a collection,
// sorted by name.
func (s *Schema) GroupsFor(collection string, kind AttributeKind) []string {
	var role Role
	switch kind {
	case AttributeVector:
		role = RoleVector
	case AttributeSet:
		role = RoleSet
	case AttributeTimeSeries:
		role = RoleTimeSeries
	default:
		return nil
	}
	var out []string
	for _, t := range s.auxTablesFor(collection, role) {
		out = append(out, t.Group)
	}
	sort.Strings(out)
	return out
}

// GroupTable returns the auxiliary table of one kind and group on a
// collection.
func (s *Schema) GroupTable(collection string, kind AttributeKind, group string) (*Table, bool) {
	var name string
	switch kind {
	case AttributeVector:
		name = collection + vectorInfix + group
	case AttributeSet:
		name = collection + setInfix + group
	case AttributeTimeSeries:
		name = collection + timeSeriesInfix + group
	case AttributeTimeSeriesFile:
		name = collection + timeSeriesFilesSuffix
	default:
		return nil, false
	}
	t, ok := s.tables[name]
	return t, ok
}

// ClassifyAttribute resolves an attribute name on a collection to its kind,
// owning table and declared column type.
func (s *Schema) ClassifyAttribute(collection, attr string) (*AttributeInfo, error) {
	main, ok := s.tables[collection]
	if !ok || main.Role != RoleMain {
		return nil, types.NewErrorWithContext(types.CollectionNotFound,
			fmt.Sprintf("no collection named %q", collection), collection)
	}

	if c, ok := main.Column(attr); ok {
		return &AttributeInfo{Kind: AttributeScalar, Table: collection, Column: c.Type}, nil
	}

	for _, role := range []Role{RoleVector, RoleSet, RoleTimeSeries} {
		for _, t := range s.auxTablesFor(collection, role) {
			c, ok := t.Column(attr)
			if !ok || isIdentifyingColumn(attr) {
				continue
			}
			kind := AttributeVector
			switch role {
			case RoleSet:
				kind = AttributeSet
			case RoleTimeSeries:
				kind = AttributeTimeSeries
			}
			return &AttributeInfo{Kind: kind, Group: t.Group, Table: t.Name, Column: c.Type}, nil
		}
	}

	if t, ok := s.tables[collection+timeSeriesFilesSuffix]; ok {
		if c, ok := t.Column(attr); ok {
			return &AttributeInfo{Kind: AttributeTimeSeriesFile, Table: t.Name, Column: c.Type}, nil
		}
	}

	return nil, types.NewErrorWithContext(types.AttributeNotFound,
		fmt.Sprintf("no attribute %q on collection %q", attr, collection),
		collection+"."+attr)
}

// VectorElementType returns the declared type of a vector attribute's value
// column.
func (s *Schema) VectorElementType(collection, group, attr string) (ColumnType, error) {
	t, ok := s.GroupTable(collection, AttributeVector, group)
	if !ok {
		return 0, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("no vector group %q on collection %q", group, collection),
			collection+"."+group)
	}
	c, ok := t.Column(attr)
	if !ok {
		return 0, types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("no attribute %q in vector group %q of collection %q", attr, group, collection),
			t.Name+"."+attr)
	}
	return c.Type, nil
}

// VectorTableFor returns the vector table owning attr on a collection.
func (s *Schema) VectorTableFor(collection, attr string) (*Table, bool) {
	for _, t := range s.auxTablesFor(collection, RoleVector) {
		if _, ok := t.Column(attr); ok && !isIdentifyingColumn(attr) {
			return t, true
		}
	}
	return nil, false
}

// SetTableFor returns the set table owning attr on a collection.
func (s *Schema) SetTableFor(collection, attr string) (*Table, bool) {
	for _, t := range s.auxTablesFor(collection, RoleSet) {
		if _, ok := t.Column(attr); ok && !isIdentifyingColumn(attr) {
			return t, true
		}
	}
	return nil, false
}

// TimeSeriesTableFor returns the time-series table owning attr on a
// collection.
func (s *Schema) TimeSeriesTableFor(collection, attr string) (*Table, bool) {
	for _, t := range s.auxTablesFor(collection, RoleTimeSeries) {
		if _, ok := t.Column(attr); ok && !isIdentifyingColumn(attr) {
			return t, true
		}
	}
	return nil, false
}

// DimensionColumns returns the dimension columns of a time-series table:
// the non-id columns that are not value columns. By convention the
// dimension columns are the leading non-id text or integer columns named
// before any real-typed value column; the loader keeps declaration order,
// so dimensions are the columns up to the first value column.
func (t *Table) DimensionColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Name == "id" {
			continue
		}
		if c.Type == ColumnReal {
			break
		}
		out = append(out, c.Name)
	}
	return out
}
