package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/triage-risk-service/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite training store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the API write while the CLI exports.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		department TEXT NOT NULL,
		priority TEXT NOT NULL,
		appointment_type TEXT NOT NULL,
		symptom_count INTEGER NOT NULL DEFAULT 1,
		time_of_day INTEGER NOT NULL DEFAULT 12,
		day_of_week INTEGER NOT NULL DEFAULT 0,
		actual_duration REAL NOT NULL,
		predicted_duration REAL NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(batch_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_training_batch ON training_samples(batch_id);
	CREATE INDEX IF NOT EXISTS idx_training_created_at ON training_samples(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

const sqliteInsert = `
	INSERT INTO training_samples (
		batch_id, seq, department, priority, appointment_type,
		symptom_count, time_of_day, day_of_week,
		actual_duration, predicted_duration, source, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(batch_id, seq) DO NOTHING
`

func insertArgs(s *domain.TrainingSample) []interface{} {
	return []interface{}{
		s.BatchID, s.Seq, s.Department, s.Priority, s.AppointmentType,
		s.SymptomCount, s.TimeOfDay, s.DayOfWeek,
		s.ActualDuration, s.PredictedDuration, s.Source, s.CreatedAt,
	}
}

// SaveBatch stores all samples of one upload in a single transaction.
func (s *SQLiteStore) SaveBatch(ctx context.Context, batchID string, samples []*domain.TrainingSample) error {
	prepareBatch(batchID, samples)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		result, err := stmt.ExecContext(ctx, insertArgs(sample)...)
		if err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", sample.Seq, err)
		}
		if id, err := result.LastInsertId(); err == nil {
			sample.ID = id
		}
	}

	return tx.Commit()
}

// List returns samples newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.TrainingSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sampleColumns+`
		FROM training_samples
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.TrainingSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sample)
	}
	return result, rows.Err()
}

// Count returns the total number of samples.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM training_samples").Scan(&count)
	return count, err
}

// CountBatches returns the number of distinct uploads.
func (s *SQLiteStore) CountBatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT batch_id) FROM training_samples").Scan(&count)
	return count, err
}

// ExportJSON exports all samples to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list samples: %w", err)
	}

	export := &SampleExport{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(all),
		Samples:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ExportCSV exports all samples as CSV.
func (s *SQLiteStore) ExportCSV(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list samples: %w", err)
	}
	return writeCSV(writer, all)
}

// ImportJSON imports samples from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export SampleExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, sample := range export.Samples {
		if sample.BatchID == "" {
			return imported, skipped, fmt.Errorf("sample without batch id")
		}
		if sample.CreatedAt.IsZero() {
			sample.CreatedAt = time.Now().UTC()
		}

		result, err := s.db.ExecContext(ctx, sqliteInsert, insertArgs(sample)...)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to read result: %w", err)
		}
		if n == 0 {
			skipped++
			continue
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
