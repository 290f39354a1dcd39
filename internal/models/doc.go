// Package models defines the payloads exchanged with the ticketing analytics backend.
//
// The package contains two categories of types:
//
// 1. Records: rows returned by the search functions, opaque to the filter layer
//   - [Event] : a ticketed show with venue, lineup and price range
//   - [Artist] : a performer with agency and activity counters
//   - [Venue] : a room with capacity and activity counters
//   - [Promoter] : an organizer with the cities and genres it books
//
// 2. Envelopes: the shapes around records
//   - [Page] : one page of records plus [PaginationMeta]
//   - [AnalyticsReport] : pre-aggregated analytics JSON for one record
//   - [FilterOptions] : dynamic option values per facet
//
// Every record implements [Record], which is what the formatter, exporter and
// dashboard render.
package models
