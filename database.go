package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrFlavorNotFound is returned when no row matches the requested id.
var ErrFlavorNotFound = errors.New("flavor not found")

// FlavorStore is the data access surface the handlers depend on.
type FlavorStore interface {
	Ping(ctx context.Context) error
	ResetSchema(ctx context.Context) error
	SeedFlavors(ctx context.Context) error
	ListFlavors(ctx context.Context) ([]Flavor, error)
	GetFlavor(ctx context.Context, id int) (*Flavor, error)
	CreateFlavor(ctx context.Context, in FlavorInput) (*Flavor, error)
	UpdateFlavor(ctx context.Context, id int, in FlavorInput) (*Flavor, error)
	DeleteFlavor(ctx context.Context, id int) error
}

// pgxPool is the subset of *pgxpool.Pool used by Database.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const flavorColumns = "id, name, is_favorite, created_at, updated_at"

const (
	listFlavorsSQL  = "SELECT " + flavorColumns + " FROM flavors ORDER BY id"
	getFlavorSQL    = "SELECT " + flavorColumns + " FROM flavors WHERE id = $1"
	createFlavorSQL = "INSERT INTO flavors (name, is_favorite) VALUES ($1::text, COALESCE($2::text::boolean, FALSE)) RETURNING " + flavorColumns
	updateFlavorSQL = "UPDATE flavors SET name = $1::text, is_favorite = COALESCE($2::text::boolean, is_favorite), updated_at = CURRENT_TIMESTAMP WHERE id = $3 RETURNING " + flavorColumns
	deleteFlavorSQL = "DELETE FROM flavors WHERE id = $1"
)

// Database wraps the pgx pool shared by every request handler
type Database struct {
	pool   pgxPool
	logger *zap.Logger
}

// Open connects to Postgres. The pool is capped at cfg.DBMaxConns, which
// defaults to a single connection so that queries run one at a time.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (*Database, error) {
	parsedConfig, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, parsedConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newDatabase(pool, logger), nil
}

// poolConfig builds the pgxpool configuration for cfg. Query tracing via
// otelpgx is attached only when tracing is enabled.
func poolConfig(cfg *Config) (*pgxpool.Config, error) {
	parsedConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	parsedConfig.MaxConns = int32(cfg.DBMaxConns)
	parsedConfig.MinConns = 1

	if cfg.TracingEnabled {
		parsedConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	return parsedConfig, nil
}

func newDatabase(pool pgxPool, logger *zap.Logger) *Database {
	return &Database{
		pool:   pool,
		logger: logger,
	}
}

// Close closes the database connection pool
func (db *Database) Close() {
	db.pool.Close()
}

// Ping checks the database connection
func (db *Database) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func scanFlavor(row pgx.Row) (*Flavor, error) {
	var f Flavor
	if err := row.Scan(&f.ID, &f.Name, &f.IsFavorite, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFlavors returns every flavor ordered by id
func (db *Database) ListFlavors(ctx context.Context) ([]Flavor, error) {
	rows, err := db.pool.Query(ctx, listFlavorsSQL)
	if err != nil {
		return nil, fmt.Errorf("query flavors: %w", err)
	}
	defer rows.Close()

	flavors := []Flavor{}
	for rows.Next() {
		f, err := scanFlavor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flavor: %w", err)
		}
		flavors = append(flavors, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flavors: %w", err)
	}

	return flavors, nil
}

// GetFlavor retrieves a flavor by ID
func (db *Database) GetFlavor(ctx context.Context, id int) (*Flavor, error) {
	f, err := scanFlavor(db.pool.QueryRow(ctx, getFlavorSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlavorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flavor %d: %w", id, err)
	}
	return f, nil
}

// CreateFlavor inserts a flavor and returns the stored row
func (db *Database) CreateFlavor(ctx context.Context, in FlavorInput) (*Flavor, error) {
	f, err := scanFlavor(db.pool.QueryRow(ctx, createFlavorSQL, in.Name, in.IsFavorite))
	if err != nil {
		return nil, fmt.Errorf("create flavor: %w", err)
	}
	return f, nil
}

// UpdateFlavor overwrites name and is_favorite and refreshes updated_at.
// An absent is_favorite keeps the stored value. Postgres casts both fields
// from text, so a value it cannot read as boolean fails with 22P02.
func (db *Database) UpdateFlavor(ctx context.Context, id int, in FlavorInput) (*Flavor, error) {
	f, err := scanFlavor(db.pool.QueryRow(ctx, updateFlavorSQL, in.Name, in.IsFavorite, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlavorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update flavor %d: %w", id, err)
	}
	return f, nil
}

// DeleteFlavor removes a flavor. Deleting an absent id is not an error.
func (db *Database) DeleteFlavor(ctx context.Context, id int) error {
	tag, err := db.pool.Exec(ctx, deleteFlavorSQL, id)
	if err != nil {
		return fmt.Errorf("delete flavor %d: %w", id, err)
	}
	db.logger.Debug("Flavor deleted", zap.Int("id", id), zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}
