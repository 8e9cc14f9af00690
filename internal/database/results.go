package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_run (
	run_id      TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	total_rows  INTEGER NOT NULL DEFAULT 0,
	summary     JSONB
);

CREATE TABLE IF NOT EXISTS scrape_result (
	id                   BIGSERIAL PRIMARY KEY,
	run_id               TEXT NOT NULL,
	timestamp_utc        TIMESTAMPTZ NOT NULL,
	mode                 TEXT NOT NULL,
	source_url           TEXT NOT NULL,
	final_url            TEXT NOT NULL DEFAULT '',
	product_url          TEXT NOT NULL DEFAULT '',
	title                TEXT NOT NULL DEFAULT '',
	price_regular        NUMERIC(14,2),
	price_promo          NUMERIC(14,2),
	promo_low_confidence BOOLEAN NOT NULL DEFAULT FALSE,
	currency             TEXT NOT NULL DEFAULT '',
	availability         TEXT NOT NULL DEFAULT '',
	record               JSONB NOT NULL,
	http_status          INTEGER,
	page_type_detected   TEXT NOT NULL,
	status               TEXT NOT NULL,
	error                TEXT NOT NULL DEFAULT '',
	attempts             INTEGER NOT NULL DEFAULT 0,
	elapsed_sec          DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_scrape_result_run ON scrape_result (run_id);
CREATE INDEX IF NOT EXISTS idx_scrape_result_product_url ON scrape_result (product_url);
`

// ResultStore persists result rows and run summaries.
type ResultStore struct {
	db *DB
}

func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StartRun registers a run before any row is stored.
func (s *ResultStore) StartRun(ctx context.Context, runID string, mode models.Mode) error {
	query := `
		INSERT INTO scrape_run (run_id, mode)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO NOTHING`

	if _, err := s.db.pool.Exec(ctx, query, runID, string(mode)); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// HandleRow stores one row as it is emitted.
func (s *ResultStore) HandleRow(ctx context.Context, row *models.ResultRow) error {
	return s.InsertRow(ctx, row)
}

func (s *ResultStore) InsertRow(ctx context.Context, row *models.ResultRow) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return insertRow(ctx, tx, row)
	})
}

// FinishRun stores the final summary of a run.
func (s *ResultStore) FinishRun(ctx context.Context, runID string, summary models.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		UPDATE scrape_run
		SET finished_at = now(), total_rows = $2, summary = $3
		WHERE run_id = $1`

	tag, err := s.db.pool.Exec(ctx, query, runID, summary.Total(), data)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// CountByStatus returns the stored row count per status for a run.
func (s *ResultStore) CountByStatus(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM scrape_result
		WHERE run_id = $1
		GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func insertRow(ctx context.Context, tx pgx.Tx, row *models.ResultRow) error {
	args, err := rowArgs(row)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scrape_result (
			run_id, timestamp_utc, mode, source_url, final_url,
			product_url, title, price_regular, price_promo, promo_low_confidence,
			currency, availability, record, http_status, page_type_detected,
			status, error, attempts, elapsed_sec
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)`

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert row for %s: %w", row.SourceURL, err)
	}
	return nil
}

// rowArgs maps a row to the scrape_result insert parameters. The full
// product record is kept as JSON so that no extracted field is lost.
func rowArgs(row *models.ResultRow) ([]interface{}, error) {
	record, err := json.Marshal(row.ProductRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	return []interface{}{
		row.RunID,
		row.Timestamp,
		string(row.Mode),
		row.SourceURL,
		row.FinalURL,
		row.ProductURL,
		row.Title,
		row.PriceRegular,
		row.PricePromo,
		row.PromoLowConfidence,
		row.Currency,
		row.Availability,
		record,
		row.HTTPStatus,
		string(row.PageTypeDetected),
		string(row.Status),
		row.Error,
		row.Attempts,
		row.ElapsedSec,
	}, nil
}
