// Package store persists episodes, segments, library assets, and per-user
// storage counters in SQLite.
//
// Mutations are single-row, single-statement updates. The edit workflow
// deliberately orders "write new file, update row, delete old file" with no
// transaction spanning disk I/O, so a crash at any point leaves every segment
// pointing at an existing audio file.
package store
