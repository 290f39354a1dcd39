package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// Querier is the part of [pgxpool.Pool] the Postgres backend uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresBackend implements [Backend] by calling the same database functions
// directly, bypassing the REST gateway.
//
// Analytics endpoint names map to functions by replacing dashes with
// underscores ("promoter-analytics" -> public.promoter_analytics).
type PostgresBackend struct {
	db     Querier
	schema string
}

// NewPostgresBackend wraps an open pool or connection.
func NewPostgresBackend(db Querier) *PostgresBackend {
	return &PostgresBackend{db: db, schema: "public"}
}

// ConnectPostgres opens a pool for dsn.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse postgres dsn: %w", shared.ErrInvalidConfig, err)
	}

	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pool: %w", shared.ErrServiceUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", shared.ErrServiceUnavailable, err)
	}
	return pool, nil
}

func (p *PostgresBackend) Name() string { return "postgres" }

// Call runs select <schema>.<fn>($1::jsonb).
func (p *PostgresBackend) Call(ctx context.Context, fn string, args any) (json.RawMessage, error) {
	name, err := p.qualified(fn)
	if err != nil {
		return nil, err
	}

	payload, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	var out []byte
	query := fmt.Sprintf("select to_jsonb(%s($1::jsonb))", name)
	if err := p.db.QueryRow(ctx, query, string(payload)).Scan(&out); err != nil {
		return nil, p.wrap(fn, err)
	}
	return json.RawMessage(out), nil
}

// Row runs select to_jsonb(t) from <schema>.<table> t where <column> = $1.
func (p *PostgresBackend) Row(ctx context.Context, table, column, value string) (json.RawMessage, error) {
	name, err := p.qualified(table)
	if err != nil {
		return nil, err
	}
	if !identifier.MatchString(column) {
		return nil, fmt.Errorf("%w: column %q", shared.ErrInvalidArgument, column)
	}

	var out []byte
	query := fmt.Sprintf("select to_jsonb(t) from %s t where t.%s::text = $1 limit 1", name, pgx.Identifier{column}.Sanitize())
	if err := p.db.QueryRow(ctx, query, value).Scan(&out); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %s=%s", shared.ErrNotFound, table, column, value)
		}
		return nil, p.wrap(table, err)
	}
	return json.RawMessage(out), nil
}

// Function calls the database function backing an analytics endpoint.
func (p *PostgresBackend) Function(ctx context.Context, name string, args any) (json.RawMessage, error) {
	return p.Call(ctx, strings.ReplaceAll(name, "-", "_"), args)
}

func (p *PostgresBackend) qualified(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("%w: identifier %q", shared.ErrInvalidArgument, name)
	}
	return pgx.Identifier{p.schema, name}.Sanitize(), nil
}

func (p *PostgresBackend) wrap(target string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: postgres %s: %w", shared.ErrServiceUnavailable, target, err)
}
