package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// Postgres stores positions in a table (id, x, y, z, updated_at) and run
// records in a second table.
type Postgres struct {
	DB        *sql.DB
	Table     string
	RunsTable string
}

// NewPostgres opens and pings a connection.
func NewPostgres(dsn, table, runsTable string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{DB: db, Table: table, RunsTable: runsTable}, nil
}

func (p *Postgres) Close() error { return p.DB.Close() }

// EnsureSchema creates the position and run tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			x DOUBLE PRECISION NOT NULL,
			y DOUBLE PRECISION NOT NULL,
			z DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, pq.QuoteIdentifier(p.Table)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			dim INT NOT NULL,
			nodes INT NOT NULL,
			iterations BIGINT[] NOT NULL,
			state TEXT NOT NULL,
			params JSONB
		)`, pq.QuoteIdentifier(p.RunsTable)),
	}
	for _, s := range stmts {
		if _, err := p.DB.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) LoadPositions(ctx context.Context) ([]Record, error) {
	rows, err := p.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, x, y, z FROM %s ORDER BY id`, pq.QuoteIdentifier(p.Table)))
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			id int64
			r  Record
		)
		if err := rows.Scan(&id, &r.X, &r.Y, &r.Z); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		r.ID = uint32(id)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// SavePositions bulk-copies recs into a temporary table and upserts them in
// one transaction.
func (p *Postgres) SavePositions(ctx context.Context, recs []Record) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`CREATE TEMP TABLE staged_positions (id BIGINT, x DOUBLE PRECISION, y DOUBLE PRECISION, z DOUBLE PRECISION) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("staged_positions", "id", "x", "y", "z"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, int64(r.ID), r.X, r.Y, r.Z); err != nil {
			stmt.Close()
			return fmt.Errorf("copy position %d: %w", r.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, x, y, z, updated_at)
		SELECT id, x, y, z, now() FROM staged_positions
		ON CONFLICT (id) DO UPDATE
		SET x = EXCLUDED.x, y = EXCLUDED.y, z = EXCLUDED.z, updated_at = EXCLUDED.updated_at`,
		pq.QuoteIdentifier(p.Table))); err != nil {
		return fmt.Errorf("upsert positions: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) RecordRun(ctx context.Context, r Run) error {
	params := pqtype.NullRawMessage{RawMessage: r.Params, Valid: len(r.Params) > 0}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, started_at, finished_at, dim, nodes, iterations, state, params)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, pq.QuoteIdentifier(p.RunsTable)),
		r.ID, r.StartedAt, r.FinishedAt, r.Dim, r.Nodes, pq.Array(r.Iterations), r.State, params)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent run record, or nil when there is none.
func (p *Postgres) LatestRun(ctx context.Context) (*Run, error) {
	var (
		r      Run
		params pqtype.NullRawMessage
	)
	err := p.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, started_at, finished_at, dim, nodes, iterations, state, params
		FROM %s ORDER BY started_at DESC LIMIT 1`, pq.QuoteIdentifier(p.RunsTable))).
		Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Dim, &r.Nodes, pq.Array(&r.Iterations), &r.State, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if params.Valid {
		r.Params = params.RawMessage
	}
	return &r, nil
}
