// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/frequency/internal/db"
)

var seq atomic.Int64

// NewTestDB opens a migrated in-memory SQLite database private to t.
//
// The database name is derived from the test name plus a counter, so two
// calls in one test get separate databases. The pool is pinned to one
// connection: shared-cache memory databases report SQLITE_LOCKED rather than
// waiting on busy_timeout, and a single connection also keeps the database
// alive between queries.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	name = fmt.Sprintf("%s_%d", name, seq.Add(1))
	conn, err := sqlx.Open("sqlite", db.SQLiteDSN("file:"+name+"?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(conn, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}
