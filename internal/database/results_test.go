package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Test database not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, Config{URL: url, MaxConns: 2})
	require.NoError(t, err)
	return db
}

func testRow(runID string, status models.Status) *models.ResultRow {
	price := 1499.5
	code := 200
	row := models.NewResultRow(runID, models.ModePDP, "https://site.example/p/1")
	row.Title = "Widget"
	row.PriceRegular = &price
	row.HTTPStatus = &code
	row.Images = []string{"https://img.example/1.jpg"}
	row.Status = status
	row.Attempts = 1
	return row
}

func TestRowArgs(t *testing.T) {
	row := testRow("run-1", models.StatusOK)

	args, err := rowArgs(row)
	require.NoError(t, err)
	require.Len(t, args, 19)

	assert.Equal(t, "run-1", args[0])
	assert.Equal(t, "pdp", args[2])
	assert.Equal(t, row.PriceRegular, args[7])
	assert.Nil(t, args[8].(*float64))
	assert.Equal(t, "OK", args[15])

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(args[12].([]byte), &record))
	assert.Equal(t, "Widget", record["title"])
	assert.Equal(t, []interface{}{"https://img.example/1.jpg"}, record["images"])
}

func TestResultStore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	store := NewResultStore(db)
	require.NoError(t, store.EnsureSchema(ctx))

	runID := uuid.NewString()
	require.NoError(t, store.StartRun(ctx, runID, models.ModePDP))

	t.Run("insert rows", func(t *testing.T) {
		require.NoError(t, store.HandleRow(ctx, testRow(runID, models.StatusOK)))
		require.NoError(t, store.HandleRow(ctx, testRow(runID, models.StatusOK)))
		require.NoError(t, store.HandleRow(ctx, testRow(runID, models.StatusBlock)))

		counts, err := store.CountByStatus(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"OK": 2, "BLOCK": 1}, counts)
	})

	t.Run("finish run", func(t *testing.T) {
		summary := models.Summary{
			"pdp":   {"OK": 2, "BLOCK": 1},
			"plp":   {},
			"total": {"OK": 2, "BLOCK": 1},
		}
		require.NoError(t, store.FinishRun(ctx, runID, summary))

		var total int
		err := db.Pool().QueryRow(ctx, `SELECT total_rows FROM scrape_run WHERE run_id = $1`, runID).Scan(&total)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("finish unknown run", func(t *testing.T) {
		err := store.FinishRun(ctx, uuid.NewString(), models.NewSummary())
		assert.Error(t, err)
	})
}
