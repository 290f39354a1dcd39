// Package tasks runs the long operations behind the export and analytics commands.
//
// # Core Operations
//
//  1. [Engine.Export] : write a filtered list to CSV, Markdown, JSON or a text table
//     - Translates the facet state once per page with the entity's translator
//     - Pages through the search function behind a rate limiter
//     - Streams records through a formatter.RecordWriter
//     - Records the run in export_jobs and optionally writes a manifest
//
//  2. [Engine.BulkAnalytics] : resolve analytics for many records
//     - Worker pool fed by a rate-limited producer
//     - Per-record errors are collected, not fatal
//
//  3. [Engine.Detail] : one record and its analytics fetched concurrently
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// [ProgressUpdate] carries the phase, step counters and a display message.
// Updates use select with default so a slow reader never stalls the work.
package tasks
