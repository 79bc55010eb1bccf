package schema

import (
	"fmt"

	"github.com/margauxdb/margaux/pkg/types"
)

// ValidateScalar checks a runtime value against a declared column type.
// Null and blob are accepted for every declared type; an integer is
// accepted where a real is expected and promotes.
func ValidateScalar(expected ColumnType, v types.Value, context string) error {
	if v.IsNull() || v.Kind() == types.KindBlob {
		return nil
	}
	ok := false
	switch expected {
	case ColumnInteger:
		ok = v.Kind() == types.KindInt
	case ColumnReal:
		ok = v.Kind() == types.KindReal || v.Kind() == types.KindInt
	case ColumnText:
		ok = v.Kind() == types.KindText
	case ColumnBlob:
		ok = true
	}
	if !ok {
		return types.NewErrorWithContext(types.TypeMismatch,
			fmt.Sprintf("value of kind %s does not satisfy declared type %s", v.Kind(), expected),
			context)
	}
	return nil
}

// ValidateVector checks every element of a vector value against the value
// column type of the vector table owning attr on collection.
func (s *Schema) ValidateVector(collection, attr string, v types.Value) error {
	if !v.IsVector() {
		return types.NewErrorWithContext(types.TypeMismatch,
			fmt.Sprintf("value of kind %s is not a vector", v.Kind()),
			collection+"."+attr)
	}
	t, ok := s.VectorTableFor(collection, attr)
	if !ok {
		return types.NewErrorWithContext(types.AttributeNotFound,
			fmt.Sprintf("no vector attribute %q on collection %q", attr, collection),
			collection+"."+attr)
	}
	col, _ := t.Column(attr)
	n, err := v.VectorLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		elem, err := v.VectorElement(i)
		if err != nil {
			return err
		}
		ctxStr := fmt.Sprintf("%s.%s[%d]", collection, attr, i)
		if err := ValidateScalar(col.Type, elem, ctxStr); err != nil {
			return err
		}
	}
	return nil
}
