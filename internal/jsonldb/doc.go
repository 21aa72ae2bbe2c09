// Package jsonldb provides a generic, concurrent-safe, JSONL-backed row store.
//
// # Overview
//
// [Table] stores rows in a JSONL (JSON Lines) file and keeps all of them in
// memory for fast reads. Every theme, submission, portfolio item and
// testimonial of showroom lives in one such table. Tables are safe for
// concurrent use by multiple goroutines.
//
// # Concurrency
//
// [Table.Modify] holds the write lock for the whole read-modify-write cycle,
// so callers never need a retry loop.
//
// # Secondary Indexes
//
// [UniqueIndex] and [Index] provide O(1) lookups by arbitrary keys and stay
// synchronized with table mutations via [TableObserver].
//
// # File Format
//
// Line 1 is a schema header derived from the row type through JSON Schema
// reflection; subsequent lines are JSON rows. Rows are sorted by ID on load.
// Every mutation rewrites the file through a temporary file and a rename.
package jsonldb
