// Package server exposes the list pages over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [NewRouter] installs request ids, request logging and panic recovery.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally, so handlers may register
// method-qualified wildcard patterns.
//
// # List API
//
// [ListHandler] serves every entity under /api/{entity}. Facets are passed by name in the
// query string and go through the same translation as the dashboard, so
//
//	GET /api/artists?agencies=No+Agency+/+Local+Artists,WME&activity=active
//
// searches with agency "NULL|WME" and min_events 20. /api/{entity}/params returns the
// translated request without calling the backend. A page past the end is refetched at the
// last page and flagged as clamped.
//
// Errors are JSON objects with the message and request id. Unknown entities and missing
// records are 404s, bad input is a 400, backend errors are 502s and anything else is a 503.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
