package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/margauxdb/margaux/internal/sqlexec"
	"github.com/margauxdb/margaux/pkg/types"
)

var (
	createTableRe = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?["']?(\w+)["']?\s*\((.*)\)\s*(?:STRICT\s*)?;?\s*$`)
	onDeleteCascadeRe = regexp.MustCompile(`(?i)ON\s+DELETE\s+CASCADE`)
	onUpdateCascadeRe = regexp.MustCompile(`(?i)ON\s+UPDATE\s+CASCADE`)
	vectorIndexColRe  = regexp.MustCompile(`(?i)^\s*["']?vector_index["']?\s+INTEGER\b`)
)

// table constraint prefixes that do not introduce a column.
var constraintPrefixes = []string{"FOREIGN", "PRIMARY", "UNIQUE", "CHECK", "CONSTRAINT"}

// parsedTable is the textual view of one CREATE TABLE statement used by the
// structural validator.
type parsedTable struct {
	name     string
	segments []string
	columns  []string
}

// splitSegments splits a CREATE TABLE body at top-level commas.
func splitSegments(body string) []string {
	var segments []string
	var current strings.Builder
	depth := 0
	var quote byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		if quote != 0 {
			current.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			current.WriteByte(c)
		case '(':
			depth++
			current.WriteByte(c)
		case ')':
			depth--
			current.WriteByte(c)
		case ',':
			if depth == 0 {
				segments = append(segments, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteByte(c)
			}
		default:
			current.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		segments = append(segments, s)
	}
	return segments
}

func isConstraintSegment(segment string) bool {
	upper := strings.ToUpper(segment)
	for _, p := range constraintPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// parseCreateTable extracts the table name, body segments and column names
// from one CREATE TABLE statement. Non-CREATE-TABLE statements return nil.
func parseCreateTable(stmt string) *parsedTable {
	m := createTableRe.FindStringSubmatch(stmt)
	if m == nil {
		return nil
	}
	t := &parsedTable{name: m[1], segments: splitSegments(m[2])}
	for _, seg := range t.segments {
		if isConstraintSegment(seg) {
			continue
		}
		name := strings.Trim(strings.Fields(seg)[0], `"'`)
		t.columns = append(t.columns, name)
	}
	return t
}

// ValidateStatements enforces the structural rules of the dialect over a
// whole schema text before anything executes:
//   - an FK with ON DELETE CASCADE must also declare ON UPDATE CASCADE;
//   - every table named *_vector_* must declare a vector_index INTEGER column;
//   - a collection and its vector/set tables may not share attribute names
//     beyond id, vector_index and label;
//   - every collection table must declare a label column;
//   - table and column names must be valid identifiers.
func ValidateStatements(statements []string) error {
	var tables []*parsedTable
	for _, stmt := range statements {
		t := parseCreateTable(stmt)
		if t == nil {
			continue
		}
		tables = append(tables, t)
	}

	byName := make(map[string]*parsedTable, len(tables))
	for _, t := range tables {
		byName[t.name] = t
	}

	for _, t := range tables {
		if err := ValidateIdentifier(t.name); err != nil {
			return types.WrapError(types.InvalidSchema,
				fmt.Sprintf("schema: table %q has an invalid name", t.name), err)
		}
		for _, c := range t.columns {
			if err := ValidateIdentifier(c); err != nil {
				return types.WrapError(types.InvalidSchema,
					fmt.Sprintf("schema: table %q has an invalid column name %q", t.name, c), err)
			}
		}

		for _, seg := range t.segments {
			if onDeleteCascadeRe.MatchString(seg) && !onUpdateCascadeRe.MatchString(seg) {
				return types.NewErrorWithContext(types.InvalidSchema,
					fmt.Sprintf("schema: table %q declares ON DELETE CASCADE without ON UPDATE CASCADE in %q", t.name, seg),
					t.name)
			}
		}

		role, _, _ := ClassifyTableName(t.name)
		if role == RoleVector {
			found := false
			for _, seg := range t.segments {
				if vectorIndexColRe.MatchString(seg) {
					found = true
					break
				}
			}
			if !found {
				return types.NewErrorWithContext(types.InvalidSchema,
					fmt.Sprintf("schema: vector table %q must declare a vector_index INTEGER column", t.name),
					t.name)
			}
		}

		if role == RoleMain && t.name != reservedConfigurationTable && !strings.HasSuffix(t.name, filesSuffix) {
			found := false
			for _, c := range t.columns {
				if strings.EqualFold(c, "label") {
					found = true
					break
				}
			}
			if !found {
				return types.NewErrorWithContext(types.InvalidSchema,
					fmt.Sprintf("schema: collection table %q must declare a label column", t.name),
					t.name)
			}
		}
	}

	// Attribute names may not repeat between a collection and its vector or
	// set tables.
	for _, t := range tables {
		role, collection, _ := ClassifyTableName(t.name)
		if role != RoleVector && role != RoleSet {
			continue
		}
		main, ok := byName[collection]
		if !ok {
			continue
		}
		mainCols := make(map[string]struct{}, len(main.columns))
		for _, c := range main.columns {
			if isIdentifyingColumn(strings.ToLower(c)) {
				continue
			}
			mainCols[strings.ToLower(c)] = struct{}{}
		}
		for _, c := range t.columns {
			lc := strings.ToLower(c)
			if isIdentifyingColumn(lc) {
				continue
			}
			if _, dup := mainCols[lc]; dup {
				return types.NewErrorWithContext(types.InvalidSchema,
					fmt.Sprintf("schema: attribute %q appears on both %q and %q", c, collection, t.name),
					t.name+"."+c)
			}
		}
	}

	return nil
}

// Apply validates the whole schema text and then executes it statement by
// statement. Any failure aborts the load and is reported; the caller
// discards the database file in that case.
func Apply(ctx context.Context, exec *sqlexec.Executor, text string) error {
	statements := SplitStatements(text)
	if len(statements) == 0 {
		return types.NewError(types.InvalidSchema, "schema: empty schema text")
	}
	if err := ValidateStatements(statements); err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := exec.Execute(ctx, stmt); err != nil {
			return types.WrapError(types.InvalidSchema,
				fmt.Sprintf("schema: failed to apply statement %q", truncateStatement(stmt)), err)
		}
	}
	return nil
}

func truncateStatement(stmt string) string {
	const max = 80
	if len(stmt) <= max {
		return stmt
	}
	return stmt[:max] + "..."
}
