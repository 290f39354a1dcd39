package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is a ticketed show.
type Event struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	EventDate string   `json:"event_date"`
	VenueName string   `json:"venue_name"`
	City      string   `json:"city"`
	Genre     string   `json:"genre"`
	Provider  string   `json:"provider"`
	Promoter  string   `json:"promoter,omitempty"`
	Artists   []string `json:"artists,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	URL       string   `json:"url,omitempty"`
}

func (e Event) Key() string   { return e.ID }
func (e Event) Title() string { return e.Name }

func (e Event) Subtitle() string {
	return joinNonEmpty(" · ", e.EventDate, e.VenueName, e.City)
}

func (Event) Header() []string {
	return []string{"ID", "Name", "Date", "Venue", "City", "Genre", "Provider", "Promoter", "Price"}
}

func (e Event) Row() []string {
	return []string{e.ID, e.Name, e.EventDate, e.VenueName, e.City, e.Genre, e.Provider, e.Promoter, e.PriceRange()}
}

// PriceRange formats the ticket price bounds, "" when unknown.
func (e Event) PriceRange() string {
	switch {
	case e.MinPrice != nil && e.MaxPrice != nil && *e.MinPrice != *e.MaxPrice:
		return fmt.Sprintf("$%.2f-$%.2f", *e.MinPrice, *e.MaxPrice)
	case e.MinPrice != nil:
		return fmt.Sprintf("$%.2f", *e.MinPrice)
	case e.MaxPrice != nil:
		return fmt.Sprintf("$%.2f", *e.MaxPrice)
	default:
		return ""
	}
}

// Artist is a performer.
type Artist struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Genres         []string `json:"genres,omitempty"`
	City           string   `json:"city,omitempty"`
	Agency         string   `json:"agency,omitempty"`
	EventCount     int      `json:"event_count"`
	UpcomingEvents int      `json:"upcoming_events"`
}

func (a Artist) Key() string   { return a.ID }
func (a Artist) Title() string { return a.Name }

func (a Artist) Subtitle() string {
	agency := a.Agency
	if agency == "" {
		agency = "Independent"
	}
	return joinNonEmpty(" · ", strings.Join(a.Genres, ", "), agency, plural(a.EventCount, "event"))
}

func (Artist) Header() []string {
	return []string{"ID", "Name", "Genres", "City", "Agency", "Events", "Upcoming"}
}

func (a Artist) Row() []string {
	return []string{a.ID, a.Name, strings.Join(a.Genres, ", "), a.City, a.Agency, strconv.Itoa(a.EventCount), strconv.Itoa(a.UpcomingEvents)}
}

// Venue is a room that hosts events.
type Venue struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	City       string `json:"city"`
	VenueType  string `json:"venue_type,omitempty"`
	Capacity   *int   `json:"capacity,omitempty"`
	EventCount int    `json:"event_count"`
}

func (v Venue) Key() string   { return v.ID }
func (v Venue) Title() string { return v.Name }

func (v Venue) Subtitle() string {
	return joinNonEmpty(" · ", v.City, v.VenueType, plural(v.EventCount, "event"))
}

func (Venue) Header() []string {
	return []string{"ID", "Name", "City", "Type", "Capacity", "Events"}
}

func (v Venue) Row() []string {
	capacity := ""
	if v.Capacity != nil {
		capacity = strconv.Itoa(*v.Capacity)
	}
	return []string{v.ID, v.Name, v.City, v.VenueType, capacity, strconv.Itoa(v.EventCount)}
}

// Promoter is an organizer booking events.
type Promoter struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Cities     []string `json:"cities,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	EventCount int      `json:"event_count"`
	VenueCount int      `json:"venue_count"`
}

func (p Promoter) Key() string   { return p.ID }
func (p Promoter) Title() string { return p.Name }

func (p Promoter) Subtitle() string {
	return joinNonEmpty(" · ", strings.Join(p.Cities, ", "), plural(p.EventCount, "event"), plural(p.VenueCount, "venue"))
}

func (Promoter) Header() []string {
	return []string{"ID", "Name", "Cities", "Genres", "Events", "Venues"}
}

func (p Promoter) Row() []string {
	return []string{p.ID, p.Name, strings.Join(p.Cities, ", "), strings.Join(p.Genres, ", "), strconv.Itoa(p.EventCount), strconv.Itoa(p.VenueCount)}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
