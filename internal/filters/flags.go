package filters

import (
	"net/url"
	"strings"
)

// FromValues builds a State from query values or flag maps.
//
// Multi-select facets accept repeated keys and comma-separated lists. Values
// that do not belong to a facet are ignored; the result is normalized.
func FromValues(schema Schema, values url.Values) State {
	st := schema.Defaults()
	for _, f := range schema.Facets {
		raw, ok := values[f.Name]
		if !ok || len(raw) == 0 {
			continue
		}
		switch f.Kind {
		case KindText:
			st[f.Name] = TextValue(strings.TrimSpace(raw[0]))
		case KindMultiSelect:
			var items []string
			for _, r := range raw {
				for _, part := range strings.Split(r, ",") {
					if part = strings.TrimSpace(part); part != "" {
						items = append(items, part)
					}
				}
			}
			st[f.Name] = SetValue(items...)
		case KindOrder:
			st[f.Name] = OrderValue(ParseOrder(raw[0], st[f.Name].Order))
		}
	}
	return schema.Normalize(st)
}
