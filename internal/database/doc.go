// Package database provides the PostgreSQL connection pool for the watcher.
//
// One pool is created at startup and shared by every writer for the life of
// the process. Per-record connect/disconnect cycles are deliberately absent.
package database
