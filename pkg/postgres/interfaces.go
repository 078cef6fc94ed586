package postgres

import (
	"context"
	"database/sql"
)

// Client is the narrow Postgres surface the alert store needs. Alerts are
// single-row inserts, so there is no query or transaction surface to carry.
type Client interface {
	// Connect opens the pool and verifies the connection
	Connect(ctx context.Context) error

	// Disconnect closes the pool
	Disconnect() error

	// Exec runs a statement that returns no rows
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
