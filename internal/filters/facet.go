package filters

import "strings"

// Kind identifies the shape of a facet's value.
type Kind int

const (
	KindText Kind = iota
	KindMultiSelect
	KindOrder
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindMultiSelect:
		return "multiselect"
	case KindOrder:
		return "order"
	default:
		return ""
	}
}

// Order is the two-valued sort direction flag.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Valid reports whether o is one of [Asc] or [Desc].
func (o Order) Valid() bool {
	return o == Asc || o == Desc
}

// Toggle flips the direction.
func (o Order) Toggle() Order {
	if o == Asc {
		return Desc
	}
	return Asc
}

// ParseOrder returns the [Order] named by s, or fallback when s is not a direction.
func ParseOrder(s string, fallback Order) Order {
	o := Order(strings.ToLower(strings.TrimSpace(s)))
	if o.Valid() {
		return o
	}
	return fallback
}

// Option is a selectable value within a multi-select facet.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Display returns the label, falling back to the raw value.
func (o Option) Display() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// Facet declares one filterable dimension of a list page.
//
// Options lists the static choices; a multi-select facet with Dynamic set also
// receives choices from the backend's filter-options endpoint. Static options
// are always listed first so synthetic choices stay on top.
type Facet struct {
	Name       string
	Label      string
	Kind       Kind
	Default    Order
	Options    []Option
	Dynamic    bool
	Searchable bool
	SortBy     string
}

// Schema is the fixed, ordered facet set of one entity's list page.
type Schema struct {
	Entity string
	Facets []Facet
}

// Facet returns the facet with the given name.
func (s Schema) Facet(name string) (Facet, bool) {
	for _, f := range s.Facets {
		if f.Name == name {
			return f, true
		}
	}
	return Facet{}, false
}

// SearchFacet returns the name of the first text facet, or "" when the schema has none.
func (s Schema) SearchFacet() string {
	for _, f := range s.Facets {
		if f.Kind == KindText {
			return f.Name
		}
	}
	return ""
}

// OrderFacet returns the first order facet.
func (s Schema) OrderFacet() (Facet, bool) {
	for _, f := range s.Facets {
		if f.Kind == KindOrder {
			return f, true
		}
	}
	return Facet{}, false
}

// MultiSelectFacets returns the multi-select facets in declaration order.
func (s Schema) MultiSelectFacets() []Facet {
	out := make([]Facet, 0, len(s.Facets))
	for _, f := range s.Facets {
		if f.Kind == KindMultiSelect {
			out = append(out, f)
		}
	}
	return out
}

// Defaults returns a fresh State holding every facet's empty value.
func (s Schema) Defaults() State {
	st := make(State, len(s.Facets))
	for _, f := range s.Facets {
		st[f.Name] = f.zero()
	}
	return st
}

// Normalize returns a copy of st restricted to the schema's facets.
//
// Unknown keys are dropped, missing facets take their default, and values of
// the wrong kind are reset. Multi-select items are de-duplicated.
func (s Schema) Normalize(st State) State {
	out := make(State, len(s.Facets))
	for _, f := range s.Facets {
		v, ok := st[f.Name]
		if !ok || v.Kind != f.Kind {
			out[f.Name] = f.zero()
			continue
		}
		switch f.Kind {
		case KindText:
			out[f.Name] = TextValue(v.Text)
		case KindMultiSelect:
			out[f.Name] = SetValue(v.Items...)
		case KindOrder:
			if !v.Order.Valid() {
				out[f.Name] = f.zero()
			} else {
				out[f.Name] = OrderValue(v.Order)
			}
		}
	}
	return out
}

func (f Facet) zero() Value {
	switch f.Kind {
	case KindMultiSelect:
		return SetValue()
	case KindOrder:
		d := f.Default
		if !d.Valid() {
			d = Desc
		}
		return OrderValue(d)
	default:
		return TextValue("")
	}
}

// StaticValues returns the raw values of the facet's static options.
func (f Facet) StaticValues() []string {
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Value
	}
	return out
}

// MergeOptions combines the facet's static options with dynamic values,
// skipping duplicates.
func (f Facet) MergeOptions(dynamic []string) []Option {
	seen := make(map[string]bool, len(f.Options)+len(dynamic))
	out := make([]Option, 0, len(f.Options)+len(dynamic))
	for _, o := range f.Options {
		seen[o.Value] = true
		out = append(out, o)
	}
	for _, v := range dynamic {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, Option{Value: v})
	}
	return out
}
