// Package journal persists a local history of dispatched workflow actions in
// SQLite so `tuner history` can show what was attempted and how it ended.
//
// The journal is advisory. The dispatcher logs and ignores write failures,
// and schema changes require deleting the database file.
package journal
