// Package filters reconciles list-page filter selections into backend search requests.
//
// # Facets
//
// Every list page declares a fixed [Schema] of facets. A facet is free text,
// a multi-select set, or a two-valued [Order] flag. The facet set is known up
// front, so a [State] never lacks a key: text defaults to "", sets to empty
// and order flags to their declared default.
//
// # Store and Controller
//
// [Store] is the single source of truth for one page. Every facet mutation
// resets the page to 1 in the same critical section. [Controller] wraps a
// store with a [Debouncer] for the search box and a [Coordinator] that clamps
// page navigation, translating and dispatching each change in order:
//
//	mutate → reset page → translate → dispatch
//
// # Translation
//
// Each [Entity] carries a [Translator] producing [SearchParams]. The rules
// shared by all entities live in translate.go:
//   - empty multi-selects become nil, never empty slices
//   - "has / has not" facets encode as "" (any), "%" (has) or "NULL" (has not)
//   - the synthetic [NoAgency] option encodes as "NULL", optionally followed by real agencies ("NULL|A|B")
//   - activity buckets emit the smallest selected minimum-events threshold
//   - price tiers emit the union of their bounds
//
// [Tracker] follows the fetch lifecycle (idle, fetching, error) with
// last-request-wins semantics.
package filters
