package filters

import (
	"slices"
	"strings"
)

// Sentinel tokens understood by the search functions.
const (
	SentinelAny  = ""
	SentinelHas  = "%"
	SentinelNull = "NULL"
)

// Presence is the tri-state form of a "has / has not" facet.
type Presence int

const (
	PresenceAny Presence = iota
	PresenceHas
	PresenceHasNot
)

func (p Presence) String() string {
	switch p {
	case PresenceHas:
		return "has"
	case PresenceHasNot:
		return "has_not"
	default:
		return "any"
	}
}

// Sentinel encodes p in the backend's string convention.
func (p Presence) Sentinel() string {
	switch p {
	case PresenceHas:
		return SentinelHas
	case PresenceHasNot:
		return SentinelNull
	default:
		return SentinelAny
	}
}

// PresenceOf reads a two-checkbox facet. Exactly one checked option selects
// that side; none or both mean no filter.
func PresenceOf(items []string, hasOption, hasNotOption string) Presence {
	has := slices.Contains(items, hasOption)
	not := slices.Contains(items, hasNotOption)
	switch {
	case has && !not:
		return PresenceHas
	case not && !has:
		return PresenceHasNot
	default:
		return PresenceAny
	}
}

// MultiSelect returns a sorted copy of items, or nil when nothing is selected.
func MultiSelect(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := sortedCopy(items)
	return slices.Compact(out)
}

// AgencyFilter encodes an agency selection that may include the synthetic
// nullOption. The null token comes first, followed by the real values joined
// with "|". An empty selection yields "".
func AgencyFilter(items []string, nullOption string) string {
	if len(items) == 0 {
		return ""
	}

	hasNull := false
	real := make([]string, 0, len(items))
	for _, it := range items {
		if it == nullOption {
			hasNull = true
			continue
		}
		if it != "" {
			real = append(real, it)
		}
	}
	real = MultiSelect(real)

	parts := make([]string, 0, len(real)+1)
	if hasNull {
		parts = append(parts, SentinelNull)
	}
	parts = append(parts, real...)
	return strings.Join(parts, "|")
}

// Activity bucket names.
const (
	ActivityVeryActive = "very_active"
	ActivityActive     = "active"
	ActivityModerate   = "moderate"
	ActivityEmerging   = "emerging"
	ActivityNoEvents   = "no_events"
)

// ActivityThresholds maps each activity bucket to its minimum event count.
var ActivityThresholds = map[string]int{
	ActivityVeryActive: 50,
	ActivityActive:     20,
	ActivityModerate:   5,
	ActivityEmerging:   1,
	ActivityNoEvents:   0,
}

// ActivityThreshold returns the smallest threshold among the selected buckets,
// so several buckets widen the match. Unknown buckets are ignored; nil means no filter.
func ActivityThreshold(items []string) *int {
	var minEvents *int
	for _, it := range items {
		n, ok := ActivityThresholds[it]
		if !ok {
			continue
		}
		if minEvents == nil || n < *minEvents {
			v := n
			minEvents = &v
		}
	}
	return minEvents
}

// PriceTier is a closed price range in the ticket currency.
type PriceTier struct {
	Min float64
	Max float64
}

// Price tier names.
const (
	TierBudget  = "budget"
	TierMid     = "mid"
	TierPremium = "premium"
)

// PriceTiers maps tier names to their ranges.
var PriceTiers = map[string]PriceTier{
	TierBudget:  {Min: 0, Max: 100},
	TierMid:     {Min: 100, Max: 300},
	TierPremium: {Min: 300, Max: 1000},
}

// PriceRange returns the bounds covering every selected tier: the lowest
// minimum and the highest maximum. Non-adjacent tiers therefore also match
// the prices between them. Both bounds are nil when no known tier is selected.
func PriceRange(items []string) (minPrice, maxPrice *float64) {
	for _, it := range items {
		t, ok := PriceTiers[it]
		if !ok {
			continue
		}
		if minPrice == nil || t.Min < *minPrice {
			v := t.Min
			minPrice = &v
		}
		if maxPrice == nil || t.Max > *maxPrice {
			v := t.Max
			maxPrice = &v
		}
	}
	return minPrice, maxPrice
}
