package types

import "fmt"

// field is one named value of an element, kept in insertion order.
type field struct {
	Name  string
	Value Value
}

// Element is the in-memory builder passed to the element engine. Fields keep
// insertion order for deterministic binding. The builder stays usable after
// submission; the engine copies what it needs.
type Element struct {
	fields     []field
	index      map[string]int
	timeSeries map[string]*TimeSeries
	tsOrder    []string
}

// NewElement returns an empty element builder.
func NewElement() *Element {
	return &Element{index: make(map[string]int)}
}

// Set stores a value under name, replacing any previous value in place.
// It returns the element for chaining.
func (e *Element) Set(name string, v Value) *Element {
	if i, ok := e.index[name]; ok {
		e.fields[i].Value = v
		return e
	}
	e.index[name] = len(e.fields)
	e.fields = append(e.fields, field{Name: name, Value: v})
	return e
}

// SetNull stores a null value under name.
func (e *Element) SetNull(name string) *Element { return e.Set(name, Null()) }

// SetInt stores an integer value under name.
func (e *Element) SetInt(name string, v int64) *Element { return e.Set(name, Int(v)) }

// SetReal stores a real value under name.
func (e *Element) SetReal(name string, v float64) *Element { return e.Set(name, Real(v)) }

// SetText stores a text value under name.
func (e *Element) SetText(name string, v string) *Element { return e.Set(name, Text(v)) }

// SetBlob stores a blob value under name.
func (e *Element) SetBlob(name string, v []byte) *Element { return e.Set(name, Blob(v)) }

// SetIntVector stores an integer vector under name.
func (e *Element) SetIntVector(name string, v []int64) *Element { return e.Set(name, IntVector(v)) }

// SetRealVector stores a real vector under name.
func (e *Element) SetRealVector(name string, v []float64) *Element {
	return e.Set(name, RealVector(v))
}

// SetTextVector stores a text vector under name.
func (e *Element) SetTextVector(name string, v []string) *Element {
	return e.Set(name, TextVector(v))
}

// Get returns the value stored under name.
func (e *Element) Get(name string) (Value, bool) {
	i, ok := e.index[name]
	if !ok {
		return Null(), false
	}
	return e.fields[i].Value, true
}

// Names returns the field names in insertion order.
func (e *Element) Names() []string {
	out := make([]string, len(e.fields))
	for i, f := range e.fields {
		out[i] = f.Name
	}
	return out
}

// Fields calls fn for each field in insertion order.
func (e *Element) Fields(fn func(name string, v Value)) {
	for _, f := range e.fields {
		fn(f.Name, f.Value)
	}
}

// Len returns the number of named fields (time-series groups excluded).
func (e *Element) Len() int { return len(e.fields) }

// IsEmpty reports whether the element has no fields and no time-series data.
func (e *Element) IsEmpty() bool { return len(e.fields) == 0 && len(e.tsOrder) == 0 }

// HasScalars reports whether any field holds a non-vector value.
func (e *Element) HasScalars() bool {
	for _, f := range e.fields {
		if !f.Value.IsVector() {
			return true
		}
	}
	return false
}

// HasVectors reports whether any field holds a vector value.
func (e *Element) HasVectors() bool {
	for _, f := range e.fields {
		if f.Value.IsVector() {
			return true
		}
	}
	return false
}

// AddTimeSeries attaches a time-series block under the given group name.
func (e *Element) AddTimeSeries(group string, ts *TimeSeries) *Element {
	if e.timeSeries == nil {
		e.timeSeries = make(map[string]*TimeSeries)
	}
	if _, ok := e.timeSeries[group]; !ok {
		e.tsOrder = append(e.tsOrder, group)
	}
	e.timeSeries[group] = ts
	return e
}

// TimeSeriesGroups returns the attached group names in insertion order.
func (e *Element) TimeSeriesGroups() []string {
	out := make([]string, len(e.tsOrder))
	copy(out, e.tsOrder)
	return out
}

// TimeSeriesGroup returns the block attached under group.
func (e *Element) TimeSeriesGroup(group string) (*TimeSeries, bool) {
	ts, ok := e.timeSeries[group]
	return ts, ok
}

// Clear resets the builder to empty.
func (e *Element) Clear() {
	e.fields = nil
	e.index = make(map[string]int)
	e.timeSeries = nil
	e.tsOrder = nil
}

// TimeSeries holds the columns of one time-series group: ordered column
// name to list of values. Column lengths must agree; the engine checks this
// at write time.
type TimeSeries struct {
	columns []string
	values  map[string][]Value
}

// NewTimeSeries returns an empty time-series block.
func NewTimeSeries() *TimeSeries {
	return &TimeSeries{values: make(map[string][]Value)}
}

// AddColumn stores a column, replacing any previous column of the same name.
func (t *TimeSeries) AddColumn(name string, values []Value) *TimeSeries {
	if _, ok := t.values[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.values[name] = values
	return t
}

// Columns returns the column names in insertion order.
func (t *TimeSeries) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the values of one column.
func (t *TimeSeries) Column(name string) ([]Value, bool) {
	v, ok := t.values[name]
	return v, ok
}

// RowCount returns the shared column length, or an error when columns
// disagree.
func (t *TimeSeries) RowCount() (int, error) {
	n := -1
	for _, name := range t.columns {
		l := len(t.values[name])
		if n == -1 {
			n = l
			continue
		}
		if l != n {
			return 0, NewError(InvalidValue,
				fmt.Sprintf("time series column %q has %d rows, expected %d", name, l, n))
		}
	}
	if n == -1 {
		return 0, nil
	}
	return n, nil
}
