package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/triage-risk-service/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL training store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL training store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

const postgresInsert = `
	INSERT INTO training_samples (
		batch_id, seq, department, priority, appointment_type,
		symptom_count, time_of_day, day_of_week,
		actual_duration, predicted_duration, source, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (batch_id, seq) DO NOTHING
	RETURNING id
`

// SaveBatch stores all samples of one upload in a single transaction.
func (s *PostgresStore) SaveBatch(ctx context.Context, batchID string, samples []*domain.TrainingSample) error {
	prepareBatch(batchID, samples)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, sample := range samples {
		err := tx.QueryRowContext(ctx, postgresInsert, insertArgs(sample)...).Scan(&sample.ID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to insert sample %d: %w", sample.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// List returns samples newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.TrainingSample, error) {
	query := `
		SELECT ` + sampleColumns + `
		FROM training_samples
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM training_samples").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return count, nil
}

// CountBatches returns the number of distinct uploads.
func (s *PostgresStore) CountBatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT batch_id) FROM training_samples").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

// ExportJSON exports all samples to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *PostgresStore) ExportCSV(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list samples: %w", err)
	}
	return writeCSV(writer, all)
}

// ImportJSON imports samples from a JSON reader. Existing (batch_id, seq)
// pairs are skipped by the conflict clause.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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

		err := s.db.QueryRowContext(ctx, postgresInsert, insertArgs(sample)...).Scan(&sample.ID)
		if err == sql.ErrNoRows {
			skipped++
			continue
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
