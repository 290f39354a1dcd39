// Package ui implements the interactive dashboard using bubbletea's Elm architecture.
//
// The dashboard has one tab per entity list (events, artists, venues, promoters) and three views:
//  1. [ListView] : the current page with search, active filters and paging
//  2. [FilterView] : facet sections with per-section option search
//  3. [DetailView] : one record with its analytics
//
// Each tab owns a [filters.Controller]. Its dispatch callback takes a token from the tab's
// [filters.Tracker] and hands the request to the update loop through a channel, so when
// several searches are in flight only the most recently dispatched one is rendered.
// Typing in the search box is debounced by the controller; facet toggles go out immediately
// and always return to page 1.
//
// A failed fetch shows an error banner (r retries); an empty filtered page offers x to
// clear every facet.
package ui
