package training

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-risk-service/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "training-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "training.db"))
	require.NoError(t, err)
	return store
}

func sampleBatch(n int) []*domain.TrainingSample {
	out := make([]*domain.TrainingSample, n)
	for i := range out {
		out[i] = &domain.TrainingSample{
			Department:        "CARDIOLOGY",
			Priority:          "HIGH",
			AppointmentType:   "FOLLOW_UP",
			SymptomCount:      i + 1,
			TimeOfDay:         9,
			DayOfWeek:         2,
			ActualDuration:    float64(20 + i),
			PredictedDuration: 22,
			Source:            "api",
		}
	}
	return out
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "training-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "training.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveBatch(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	samples := sampleBatch(3)
	require.NoError(t, store.SaveBatch(ctx, "batch-a", samples))

	for i, s := range samples {
		assert.Equal(t, "batch-a", s.BatchID)
		assert.Equal(t, i, s.Seq)
		assert.NotZero(t, s.ID)
		assert.False(t, s.CreatedAt.IsZero())
	}

	require.NoError(t, store.SaveBatch(ctx, "batch-b", sampleBatch(2)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	batches, err := store.CountBatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), batches)
}

func TestSQLiteStore_SaveBatch_Idempotent(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, "batch-a", sampleBatch(3)))
	require.NoError(t, store.SaveBatch(ctx, "batch-a", sampleBatch(3)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteStore_List(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, "batch-a", sampleBatch(5)))

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Same timestamp within a batch, so id breaks the tie.
	assert.Equal(t, 4, page[0].Seq)
	assert.Equal(t, 3, page[1].Seq)
	assert.Equal(t, "CARDIOLOGY", page[0].Department)
	assert.Equal(t, 24.0, page[0].ActualDuration)

	rest, err := store.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestSQLiteStore_ExportImportJSON(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	ctx := context.Background()

	require.NoError(t, source.SaveBatch(ctx, "batch-a", sampleBatch(4)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	var export SampleExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 4, export.Count)
	assert.Len(t, export.Samples, 4)

	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 4, imported)
	assert.Equal(t, 0, skipped)

	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 4, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSQLiteStore_ImportJSON_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, _, err := store.ImportJSON(ctx, strings.NewReader("not json"))
	assert.Error(t, err)

	_, _, err = store.ImportJSON(ctx, strings.NewReader(`{"samples":[{"department":"DENTAL"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch id")
}

func TestSQLiteStore_ExportCSV(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, "batch-a", sampleBatch(2)))

	var buf bytes.Buffer
	require.NoError(t, store.ExportCSV(ctx, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "batch-a", records[1][0])
	assert.Equal(t, "CARDIOLOGY", records[1][1])
	assert.Equal(t, "2", records[1][4])
	assert.Equal(t, "21", records[1][7])
}
