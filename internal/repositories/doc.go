// Package repositories implements SQLite persistence for the local cache.
//
// Key Implementations:
//   - [QueryCacheRepository] : cached backend responses, implementing [query.Store]
//   - [ExportJobRepository] : history of filtered-list exports
//
// Both expect the schema from the embedded migrations in shared.
package repositories
