package schema

import (
	"fmt"
	"strings"

	"github.com/margauxdb/margaux/pkg/types"
)

const maxIdentifierLength = 128

// reservedWords are SQL keywords rejected as table or column names.
var reservedWords = map[string]struct{}{
	"abort": {}, "action": {}, "add": {}, "after": {}, "all": {}, "alter": {},
	"analyze": {}, "and": {}, "as": {}, "asc": {}, "attach": {}, "autoincrement": {},
	"before": {}, "begin": {}, "between": {}, "by": {}, "cascade": {}, "case": {},
	"cast": {}, "check": {}, "collate": {}, "column": {}, "commit": {}, "conflict": {},
	"constraint": {}, "create": {}, "cross": {}, "current_date": {}, "current_time": {},
	"current_timestamp": {}, "database": {}, "default": {}, "deferrable": {},
	"deferred": {}, "delete": {}, "desc": {}, "detach": {}, "distinct": {}, "drop": {},
	"each": {}, "else": {}, "end": {}, "escape": {}, "except": {}, "exclusive": {},
	"exists": {}, "explain": {}, "fail": {}, "for": {}, "foreign": {}, "from": {},
	"full": {}, "glob": {}, "group": {}, "having": {}, "if": {}, "ignore": {},
	"immediate": {}, "in": {}, "index": {}, "indexed": {}, "initially": {}, "inner": {},
	"insert": {}, "instead": {}, "intersect": {}, "into": {}, "is": {}, "isnull": {},
	"join": {}, "key": {}, "left": {}, "like": {}, "limit": {}, "match": {},
	"natural": {}, "no": {}, "not": {}, "notnull": {}, "null": {}, "of": {},
	"offset": {}, "on": {}, "or": {}, "order": {}, "outer": {}, "plan": {},
	"pragma": {}, "primary": {}, "query": {}, "raise": {}, "recursive": {},
	"references": {}, "regexp": {}, "reindex": {}, "release": {}, "rename": {},
	"replace": {}, "restrict": {}, "right": {}, "rollback": {}, "row": {},
	"savepoint": {}, "select": {}, "set": {}, "table": {}, "temp": {}, "temporary": {},
	"then": {}, "to": {}, "transaction": {}, "trigger": {}, "union": {}, "unique": {},
	"update": {}, "using": {}, "vacuum": {}, "values": {}, "view": {}, "virtual": {},
	"when": {}, "where": {}, "with": {}, "without": {},
}

// ValidateIdentifier checks a table or column name: it must start with a
// letter or underscore, contain only letters, digits and underscores, stay
// within 128 bytes, and not be a reserved SQL keyword.
func ValidateIdentifier(name string) error {
	if name == "" {
		return types.NewError(types.InvalidIdentifier, "identifier is empty")
	}
	if len(name) > maxIdentifierLength {
		return types.NewError(types.InvalidIdentifier,
			fmt.Sprintf("identifier %q exceeds %d characters", name, maxIdentifierLength))
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		digit := c >= '0' && c <= '9'
		if i == 0 && !letter {
			return types.NewError(types.InvalidIdentifier,
				fmt.Sprintf("identifier %q must start with a letter or underscore", name))
		}
		if !letter && !digit {
			return types.NewError(types.InvalidIdentifier,
				fmt.Sprintf("identifier %q contains invalid character %q", name, string(c)))
		}
	}
	if _, ok := reservedWords[strings.ToLower(name)]; ok {
		return types.NewError(types.InvalidIdentifier,
			fmt.Sprintf("identifier %q is a reserved word", name))
	}
	return nil
}
