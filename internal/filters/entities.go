package filters

import (
	"fmt"
	"strings"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// Translator converts a facet state into the search request for page.
type Translator func(st State, page, limit int) SearchParams

// Entity ties a list page's facet schema to its translator and backend function.
type Entity struct {
	Name      string
	Schema    Schema
	Translate Translator
	// RPC is the search function name, e.g. "search_events".
	RPC string
	// ResultKey names the items array in the search response.
	ResultKey string
}

// Params translates st on page, clamping page and limit to at least 1.
func (e Entity) Params(st State, page, limit int) SearchParams {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	return e.Translate(e.Schema.Normalize(st), page, limit)
}

// Entity names.
const (
	EntityEvents    = "events"
	EntityArtists   = "artists"
	EntityVenues    = "venues"
	EntityPromoters = "promoters"
)

// Facet names shared across entities.
const (
	FacetSearch           = "search"
	FacetGenres           = "genres"
	FacetCities           = "cities"
	FacetVenues           = "venues"
	FacetArtists          = "artists"
	FacetPromoters        = "promoters"
	FacetProviders        = "providers"
	FacetPrice            = "price"
	FacetPromoterPresence = "promoter_presence"
	FacetDateOrder        = "date_order"
	FacetAgencies         = "agencies"
	FacetActivity         = "activity"
	FacetVenueTypes       = "venue_types"
	FacetOrder            = "order"
)

// Option values of the two-checkbox promoter facet.
const (
	OptionHasPromoter = "has_promoter"
	OptionNoPromoter  = "no_promoter"
)

// NoAgency is the synthetic agency option for artists without representation.
const NoAgency = "No Agency / Local Artists"

var (
	searchFacet = Facet{Name: FacetSearch, Label: "Search", Kind: KindText}

	activityFacet = Facet{
		Name:  FacetActivity,
		Label: "Activity",
		Kind:  KindMultiSelect,
		Options: []Option{
			{Value: ActivityVeryActive, Label: "Very active (50+ events)"},
			{Value: ActivityActive, Label: "Active (20+ events)"},
			{Value: ActivityModerate, Label: "Moderate (5+ events)"},
			{Value: ActivityEmerging, Label: "Emerging (1+ events)"},
			{Value: ActivityNoEvents, Label: "No events"},
		},
	}

	eventCountOrder = Facet{Name: FacetOrder, Label: "Event count", Kind: KindOrder, Default: Desc, SortBy: "event_count"}
)

func dynamic(name, label string, searchable bool) Facet {
	return Facet{Name: name, Label: label, Kind: KindMultiSelect, Dynamic: true, Searchable: searchable}
}

// Events is the events list page.
var Events = Entity{
	Name:      EntityEvents,
	RPC:       "search_events",
	ResultKey: "events",
	Schema: Schema{
		Entity: EntityEvents,
		Facets: []Facet{
			searchFacet,
			dynamic(FacetGenres, "Genres", false),
			dynamic(FacetCities, "Cities", true),
			dynamic(FacetVenues, "Venues", true),
			dynamic(FacetArtists, "Artists", true),
			dynamic(FacetPromoters, "Promoters", true),
			{
				Name:  FacetProviders,
				Label: "Providers",
				Kind:  KindMultiSelect,
				Options: []Option{
					{Value: "ticketmaster", Label: "Ticketmaster"},
					{Value: "eventbrite", Label: "Eventbrite"},
					{Value: "dice", Label: "DICE"},
					{Value: "axs", Label: "AXS"},
					{Value: "seetickets", Label: "See Tickets"},
				},
			},
			{
				Name:  FacetPrice,
				Label: "Price",
				Kind:  KindMultiSelect,
				Options: []Option{
					{Value: TierBudget, Label: "Budget (under $100)"},
					{Value: TierMid, Label: "Mid ($100-$300)"},
					{Value: TierPremium, Label: "Premium ($300+)"},
				},
			},
			{
				Name:  FacetPromoterPresence,
				Label: "Promoter",
				Kind:  KindMultiSelect,
				Options: []Option{
					{Value: OptionHasPromoter, Label: "Has promoter"},
					{Value: OptionNoPromoter, Label: "No promoter"},
				},
			},
			{Name: FacetDateOrder, Label: "Date", Kind: KindOrder, Default: Desc, SortBy: "event_date"},
		},
	},
	Translate: func(st State, page, limit int) SearchParams {
		minPrice, maxPrice := PriceRange(st.Items(FacetPrice))
		return SearchParams{
			SearchTerm:  strings.TrimSpace(st.Text(FacetSearch)),
			Page:        page,
			Limit:       limit,
			SortBy:      "event_date",
			SortOrder:   st.Order(FacetDateOrder),
			Genres:      MultiSelect(st.Items(FacetGenres)),
			Cities:      MultiSelect(st.Items(FacetCities)),
			Venues:      MultiSelect(st.Items(FacetVenues)),
			Artists:     MultiSelect(st.Items(FacetArtists)),
			Promoters:   MultiSelect(st.Items(FacetPromoters)),
			Providers:   MultiSelect(st.Items(FacetProviders)),
			HasPromoter: PresenceOf(st.Items(FacetPromoterPresence), OptionHasPromoter, OptionNoPromoter).Sentinel(),
			MinPrice:    minPrice,
			MaxPrice:    maxPrice,
		}
	},
}

// Artists is the artists list page.
var Artists = Entity{
	Name:      EntityArtists,
	RPC:       "search_artists",
	ResultKey: "artists",
	Schema: Schema{
		Entity: EntityArtists,
		Facets: []Facet{
			searchFacet,
			dynamic(FacetGenres, "Genres", false),
			dynamic(FacetCities, "Cities", true),
			{
				Name:       FacetAgencies,
				Label:      "Agency",
				Kind:       KindMultiSelect,
				Dynamic:    true,
				Searchable: true,
				Options:    []Option{{Value: NoAgency}},
			},
			activityFacet,
			eventCountOrder,
		},
	},
	Translate: func(st State, page, limit int) SearchParams {
		return SearchParams{
			SearchTerm: strings.TrimSpace(st.Text(FacetSearch)),
			Page:       page,
			Limit:      limit,
			SortBy:     "event_count",
			SortOrder:  st.Order(FacetOrder),
			Genres:     MultiSelect(st.Items(FacetGenres)),
			Cities:     MultiSelect(st.Items(FacetCities)),
			Agency:     AgencyFilter(st.Items(FacetAgencies), NoAgency),
			MinEvents:  ActivityThreshold(st.Items(FacetActivity)),
		}
	},
}

// Venues is the venues list page.
var Venues = Entity{
	Name:      EntityVenues,
	RPC:       "search_venues",
	ResultKey: "venues",
	Schema: Schema{
		Entity: EntityVenues,
		Facets: []Facet{
			searchFacet,
			dynamic(FacetCities, "Cities", true),
			dynamic(FacetVenueTypes, "Venue types", false),
			activityFacet,
			eventCountOrder,
		},
	},
	Translate: func(st State, page, limit int) SearchParams {
		return SearchParams{
			SearchTerm: strings.TrimSpace(st.Text(FacetSearch)),
			Page:       page,
			Limit:      limit,
			SortBy:     "event_count",
			SortOrder:  st.Order(FacetOrder),
			Cities:     MultiSelect(st.Items(FacetCities)),
			VenueTypes: MultiSelect(st.Items(FacetVenueTypes)),
			MinEvents:  ActivityThreshold(st.Items(FacetActivity)),
		}
	},
}

// Promoters is the promoters list page.
var Promoters = Entity{
	Name:      EntityPromoters,
	RPC:       "search_promoters",
	ResultKey: "promoters",
	Schema: Schema{
		Entity: EntityPromoters,
		Facets: []Facet{
			searchFacet,
			dynamic(FacetCities, "Cities", true),
			dynamic(FacetGenres, "Genres", false),
			activityFacet,
			eventCountOrder,
		},
	},
	Translate: func(st State, page, limit int) SearchParams {
		return SearchParams{
			SearchTerm: strings.TrimSpace(st.Text(FacetSearch)),
			Page:       page,
			Limit:      limit,
			SortBy:     "event_count",
			SortOrder:  st.Order(FacetOrder),
			Cities:     MultiSelect(st.Items(FacetCities)),
			Genres:     MultiSelect(st.Items(FacetGenres)),
			MinEvents:  ActivityThreshold(st.Items(FacetActivity)),
		}
	},
}

// Entities returns every list page in display order.
func Entities() []Entity {
	return []Entity{Events, Artists, Venues, Promoters}
}

// Names returns the entity names in display order.
func Names() []string {
	all := Entities()
	out := make([]string, len(all))
	for i, e := range all {
		out[i] = e.Name
	}
	return out
}

// Lookup returns the entity called name.
func Lookup(name string) (Entity, error) {
	for _, e := range Entities() {
		if e.Name == name {
			return e, nil
		}
	}
	return Entity{}, fmt.Errorf("%w: %q", shared.ErrUnknownEntity, name)
}
