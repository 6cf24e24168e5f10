package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pool is an alias for pgxpool.Pool
type Pool = pgxpool.Pool

const (
	// A device only ever runs one read-modify-write of the queue at a time
	maxConns        = 4
	maxConnIdleTime = 5 * time.Minute
	applicationName = "meter-reading-sync"
)

// Connect creates a small PostgreSQL pool for the record store and pings it. The
// caller owns the returned pool.
func Connect(ctx context.Context, logger *zap.Logger, databaseURL string) (*Pool, error) {
	log := logger.With(zap.String("url", MaskPassword(databaseURL)))
	log.Info("initializing database connection pool")

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to parse database URL: %w", err)
	}
	config.MaxConns = maxConns
	config.MaxConnIdleTime = maxConnIdleTime
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error("database ping failed", zap.Error(err))
		return nil, fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach the record store database. Check that it is running and that DATABASE_URL is correct. Error: %w", err)
	}
	log.Info("database connection established", zap.Int32("max_conns", config.MaxConns))

	return pool, nil
}

// MaskPassword hides the password of a database URL for logging
func MaskPassword(databaseURL string) string {
	if databaseURL == "" {
		return "<empty>"
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "<unparsable>"
	}
	if u.User == nil {
		return u.String()
	}
	if _, ok := u.User.Password(); !ok {
		return u.String()
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
