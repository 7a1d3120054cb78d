//go:build !cgo_sqlite

package repository

// Pure Go SQLite driver; no C toolchain required.
import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used by OpenSQLite.
const DriverName = "sqlite"
