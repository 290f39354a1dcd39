// Package services talks to the hosted ticketing backend.
//
// # Backend Interface
//
// [Backend] is deliberately small: run a database function, read one row, or
// invoke an analytics endpoint, all returning raw JSON. Typed helpers
// ([SearchEvents], [SearchArtists], [SearchVenues], [SearchPromoters], [Get],
// [FilterOptions]) decode responses into [models] types.
//
// # Implementations
//
// [RESTBackend] uses [APIService] against the REST gateway:
//   - POST /rest/v1/rpc/<fn> : search and option functions
//   - GET /rest/v1/<table>?<column>=eq.<value> : single rows
//   - POST /functions/v1/<name> : analytics edge functions
//
// Requests carry the project key as the apikey header and as an OAuth2 bearer
// token, and may be rate limited.
//
// [PostgresBackend] calls the same functions over a pgx pool.
//
// # Analytics
//
// [AnalyticsResolver] runs a small state machine (primary, fallback, failed).
// The primary edge function sits behind a circuit breaker. Server errors,
// transport failures and an open breaker move to the basic analytics table;
// client errors fail immediately.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which matches [shared.ErrAPIRequest]
// (and [shared.ErrNotFound] for 404) and reports [APIError.Temporary] for the
// query client's retry policy.
package services
