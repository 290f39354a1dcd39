package main

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ticketscope/internal/filters"
	"github.com/desertthunder/ticketscope/internal/shared"
)

// flagName turns a facet name into a flag name ("promoter_presence" -> "promoter-presence").
func flagName(facet string) string {
	return strings.ReplaceAll(facet, "_", "-")
}

// facetFlags builds one flag per facet of schema.
func facetFlags(schema filters.Schema) []cli.Flag {
	flags := make([]cli.Flag, 0, len(schema.Facets))
	for _, f := range schema.Facets {
		name := flagName(f.Name)
		switch f.Kind {
		case filters.KindText:
			flags = append(flags, &cli.StringFlag{
				Name:    name,
				Aliases: []string{"q"},
				Usage:   f.Label + " text",
			})
		case filters.KindMultiSelect:
			usage := f.Label + " (repeatable or comma-separated)"
			if !f.Dynamic && len(f.Options) > 0 {
				usage = fmt.Sprintf("%s: %s", f.Label, strings.Join(optionValues(f.Options), ", "))
			}
			flags = append(flags, &cli.StringSliceFlag{Name: name, Usage: usage})
		case filters.KindOrder:
			flags = append(flags, &cli.StringFlag{
				Name:  name,
				Usage: fmt.Sprintf("%s sort order (asc or desc)", f.Label),
				Value: string(f.Default),
			})
		}
	}
	return flags
}

func optionValues(opts []filters.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

// facetValues collects the facet flags that were set on cmd.
func facetValues(cmd *cli.Command, schema filters.Schema) url.Values {
	values := url.Values{}
	for _, f := range schema.Facets {
		name := flagName(f.Name)
		if !cmd.IsSet(name) {
			continue
		}
		switch f.Kind {
		case filters.KindMultiSelect:
			values[f.Name] = cmd.StringSlice(name)
		default:
			values.Set(f.Name, cmd.String(name))
		}
	}
	return values
}

// checkFacetValues rejects unknown values for facets with a fixed option list
// and sort orders other than asc/desc.
func checkFacetValues(schema filters.Schema, values url.Values) error {
	for _, f := range schema.Facets {
		raw, ok := values[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case filters.KindOrder:
			if o := filters.Order(strings.ToLower(strings.TrimSpace(raw[0]))); !o.Valid() {
				return fmt.Errorf("%w: --%s must be asc or desc, got %q", shared.ErrInvalidFlag, flagName(f.Name), raw[0])
			}
		case filters.KindMultiSelect:
			if f.Dynamic || len(f.Options) == 0 {
				continue
			}
			allowed := optionValues(f.Options)
			for _, r := range raw {
				for _, v := range strings.Split(r, ",") {
					v = strings.TrimSpace(v)
					if v != "" && !slices.Contains(allowed, v) {
						return fmt.Errorf("%w: --%s %q (expected one of %s)", shared.ErrInvalidFlag, flagName(f.Name), v, strings.Join(allowed, ", "))
					}
				}
			}
		}
	}
	return nil
}

// stateFromFlags reads the facet flags of cmd into a normalized state.
func stateFromFlags(cmd *cli.Command, schema filters.Schema) (filters.State, error) {
	values := facetValues(cmd, schema)
	if err := checkFacetValues(schema, values); err != nil {
		return nil, err
	}
	return filters.FromValues(schema, values), nil
}
