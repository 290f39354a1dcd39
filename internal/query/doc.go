// Package query caches backend responses for the dashboard.
//
// Every response is stored under a key built from the function name and the
// canonical JSON of its arguments (see [Key]). A cached entry is served until
// it is older than the client's stale time; after that it is refetched.
// Identical fetches in flight at the same time share one backend call.
//
// Failed fetches are retried per [RetryPolicy]: client errors never, server
// and transport errors with exponential backoff.
//
// [Backend] wraps a [services.Backend] so the typed helpers in services go
// through the cache without knowing about it.
package query
