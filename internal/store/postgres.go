package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

type postgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgres opens the database, verifies the connection and creates the report table if needed.
func NewPostgres(ctx context.Context, dsn string, table string) (core.ReportStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := newPostgresStore(db, table)
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func newPostgresStore(db *sql.DB, table string) *postgresStore {
	return &postgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

func (s *postgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			digest          TEXT PRIMARY KEY,
			device_id       TEXT NOT NULL,
			site_id         TEXT NOT NULL,
			report_date     TEXT,
			store_code      TEXT,
			region_id       TEXT,
			organization_id TEXT,
			source_file     TEXT,
			document        JSONB NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	logx.As().Debug().
		Str("store_type", TypePostgres).
		Str("table", s.table).
		Msg("Report table ready")

	return nil
}

func (s *postgresStore) Type() string {
	return TypePostgres
}

// Upsert inserts the record, or overwrites every column of the row already stored under digest.
func (s *postgresStore) Upsert(ctx context.Context, digest string, record *core.EnrichedRecord) error {
	doc, err := json.Marshal(record.Document())
	if err != nil {
		return fmt.Errorf("failed to encode report document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (digest, device_id, site_id, report_date, store_code, region_id, organization_id, source_file, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (digest) DO UPDATE SET
			device_id = EXCLUDED.device_id,
			site_id = EXCLUDED.site_id,
			report_date = EXCLUDED.report_date,
			store_code = EXCLUDED.store_code,
			region_id = EXCLUDED.region_id,
			organization_id = EXCLUDED.organization_id,
			source_file = EXCLUDED.source_file,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`, s.table),
		digest, record.DeviceID, record.SiteID, record.ReportDate, record.StoreCode,
		record.RegionID, record.OrganizationID, record.SourceFile, string(doc), record.UpdatedAt)
	if err != nil {
		return err
	}

	return nil
}

func (s *postgresStore) Close(ctx context.Context) error {
	return s.db.Close()
}
