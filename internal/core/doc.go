// Package core provides the business logic for transfer certificate records.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers and by tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Readers: [ReadSpreadsheet] turns .xlsx, .xlsm, .xls and .csv files into
//     typed [TaggedRow] values.
//   - Importer: maps rows positionally onto the field schema and appends them
//     to the store, isolating failures per row.
//   - Filter: an in-memory, case-insensitive regular expression over every
//     displayed cell of a record.
//   - BatchRunner: renders many records with continue-on-error semantics.
//   - Service: the entry point for every operation (import, save, search,
//     generate, export) and for asynchronous batch jobs.
//
// # Batch Jobs
//
// Batches can run synchronously through [Service.GenerateBatch] or in the
// background:
//
//  1. Client calls [Service.StartBatch] with record ids
//  2. Progress is broadcast to subscribers via [Service.SubscribeBatch]
//  3. [Service.CancelBatch] stops the job before its next record
//  4. [Service.BatchResult] returns the summary once the job ends
//
// Concurrent imports and jobs are bounded by a [Limiter] each.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL002: Validation errors (required field, bad id)
//   - REC001: Record not found
//   - IMP001-IMP004: Import errors (format, size, empty, unreadable)
//   - RND001: Certificate or report could not be written
//   - JOB001-JOB003: Batch job and concurrency errors
//   - DB001-DB004: Storage errors
package core
