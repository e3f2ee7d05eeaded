// Package repository defines the data access interfaces for IntraTEL.
//
// Only saved labs are persisted. Sessions, consoles and the live topology
// are in-memory and disappear with the process.
//
// # SQLite Implementation
//
// The sqlite subpackage stores each lab as one row holding its topology
// snapshot as JSON. The schema is created on startup. Tests run against
// in-memory databases.
package repository
