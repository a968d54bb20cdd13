package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"staylens/models"
)

// PostgresStore is the long-term price history sink. It is optional: the
// daemon runs fine without a configured connection string.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_observations (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL,
			site_id TEXT NOT NULL,
			range_key TEXT NOT NULL,
			checkin DATE NOT NULL,
			checkout DATE NOT NULL,
			min_price DOUBLE PRECISION NOT NULL,
			max_price DOUBLE PRECISION NOT NULL,
			avg_price DOUBLE PRECISION NOT NULL,
			sample_count INTEGER NOT NULL,
			currency TEXT,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_observations_key
			ON price_observations (site_id, range_key, observed_at);
	`)
	return err
}

func (s *PostgresStore) InsertObservation(ctx context.Context, obs *models.PriceObservation) error {
	query := `
		INSERT INTO price_observations (
			run_id, site_id, range_key, checkin, checkout,
			min_price, max_price, avg_price, sample_count, currency, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		obs.RunID, obs.SiteID, obs.Key, obs.Checkin, obs.Checkout,
		obs.Min, obs.Max, obs.Avg, obs.Count, obs.Currency, obs.ObservedAt,
	).Scan(&obs.ID)
}

// ObservationsForKey returns the history for one date range, newest first.
func (s *PostgresStore) ObservationsForKey(ctx context.Context, siteID string, key models.DateRangeKey, limit int) ([]models.PriceObservation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, run_id, site_id, range_key, checkin, checkout,
			min_price, max_price, avg_price, sample_count, COALESCE(currency, ''), observed_at
		FROM price_observations
		WHERE site_id = $1 AND range_key = $2
		ORDER BY observed_at DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, siteID, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		var o models.PriceObservation
		if err := rows.Scan(&o.ID, &o.RunID, &o.SiteID, &o.Key, &o.Checkin, &o.Checkout,
			&o.Min, &o.Max, &o.Avg, &o.Count, &o.Currency, &o.ObservedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LatestObservation returns the most recent history row for a key, or nil.
func (s *PostgresStore) LatestObservation(ctx context.Context, siteID string, key models.DateRangeKey) (*models.PriceObservation, error) {
	query := `
		SELECT id, run_id, site_id, range_key, checkin, checkout,
			min_price, max_price, avg_price, sample_count, COALESCE(currency, ''), observed_at
		FROM price_observations
		WHERE site_id = $1 AND range_key = $2
		ORDER BY observed_at DESC
		LIMIT 1`

	var o models.PriceObservation
	err := s.pool.QueryRow(ctx, query, siteID, key).Scan(
		&o.ID, &o.RunID, &o.SiteID, &o.Key, &o.Checkin, &o.Checkout,
		&o.Min, &o.Max, &o.Avg, &o.Count, &o.Currency, &o.ObservedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
