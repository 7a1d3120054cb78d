//go:build cgo_sqlite

package repository

// Build with -tags cgo_sqlite (CGO_ENABLED=1) to use the C SQLite library.
import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver used by OpenSQLite.
const DriverName = "sqlite3"
