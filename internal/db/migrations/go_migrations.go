// Package migrations holds the Go migrations whose DDL differs per database
// dialect. Plain cross-database schema lives in the .sql files next to it.
package migrations

// dialect is the goose dialect name the parent db package is migrating.
var dialect string

// SetDialect records the goose dialect ("sqlite3", "postgres" or "mysql")
// for the Go migrations. It must be called before goose.Up.
func SetDialect(d string) {
	dialect = d
}

// Dialect returns the dialect recorded by SetDialect.
func Dialect() string {
	return dialect
}
