package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/sentra-safety/sentra-platform/pkg/config"
)

type pgClient struct {
	db     *sql.DB
	cfg    *config.Config
	logger *slog.Logger
}

// NewClient creates an unconnected Postgres client; call Connect before use
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &pgClient{cfg: cfg, logger: logger}
}

// Connect opens the connection pool and pings it so a misconfigured DSN
// fails at agent startup instead of at the first alert
func (c *pgClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Postgres",
		"host", c.cfg.PostgresHost,
		"port", c.cfg.PostgresPort,
		"database", c.cfg.PostgresDB)

	db, err := sql.Open("postgres", c.cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(c.cfg.PostgresMaxConnections)
	db.SetMaxIdleConns(c.cfg.PostgresMaxIdleConnections)
	db.SetConnMaxLifetime(c.cfg.PostgresConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	c.db = db
	c.logger.Info("Connected to Postgres")
	return nil
}

func (c *pgClient) Disconnect() error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	c.db = nil
	c.logger.Info("Disconnected from Postgres")
	return nil
}

func (c *pgClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if c.db == nil {
		return nil, fmt.Errorf("postgres client not connected")
	}
	return c.db.ExecContext(ctx, query, args...)
}
