// Package catalog persists the import history in SQLite. Each import run and
// every file it placed in the library are recorded so later runs can skip
// files already imported, and so the status command can report recent
// activity.
package catalog
