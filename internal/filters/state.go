package filters

import (
	"slices"
	"sort"
)

// Value holds one facet's current selection. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Text  string
	Items []string
	Order Order
}

// TextValue builds a free-text value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// SetValue builds a multi-select value; duplicates are dropped and the first occurrence kept.
func SetValue(items ...string) Value {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return Value{Kind: KindMultiSelect, Items: out}
}

// OrderValue builds an order flag value.
func OrderValue(o Order) Value {
	return Value{Kind: KindOrder, Order: o}
}

// Equal compares two values; multi-select items compare as sets.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindOrder:
		return v.Order == o.Order
	default:
		if len(v.Items) != len(o.Items) {
			return false
		}
		a, b := sortedCopy(v.Items), sortedCopy(o.Items)
		return slices.Equal(a, b)
	}
}

// State maps facet names to their values.
type State map[string]Value

// Text returns the text value of facet, or "".
func (s State) Text(facet string) string {
	return s[facet].Text
}

// Items returns the selected values of a multi-select facet.
//
// The returned slice is shared with the state and must not be modified.
func (s State) Items(facet string) []string {
	return s[facet].Items
}

// Has reports whether value is selected in facet.
func (s State) Has(facet, value string) bool {
	return slices.Contains(s[facet].Items, value)
}

// Order returns the order flag of facet, or "" when facet is not an order facet.
func (s State) Order(facet string) Order {
	return s[facet].Order
}

// Clone returns a shallow copy. Item slices are never mutated in place so sharing them is safe.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both states hold equal values for the same facets.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Active counts facets that differ from their schema default.
func (s State) Active(schema Schema) int {
	defaults := schema.Defaults()
	n := 0
	for name, v := range s {
		if d, ok := defaults[name]; ok && !v.Equal(d) {
			n++
		}
	}
	return n
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
