// Package training stores completed-consultation samples used to retrain the
// duration model. Uploads are grouped into batches; each sample is keyed by
// its batch id and position so re-imports are idempotent.
package training

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/triage-risk-service/internal/domain"
)

// Store defines the interface for training sample storage operations.
type Store interface {
	// SaveBatch stores all samples of one upload atomically. Sample
	// sequence numbers are assigned from their position in the slice.
	SaveBatch(ctx context.Context, batchID string, samples []*domain.TrainingSample) error

	// List returns samples newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*domain.TrainingSample, error)

	// Count returns the total number of samples.
	Count(ctx context.Context) (int64, error)

	// CountBatches returns the number of distinct uploads.
	CountBatches(ctx context.Context) (int64, error)

	// ExportJSON writes every sample as a SampleExport document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ExportCSV writes every sample in the column layout used by the
	// offline trainer.
	ExportCSV(ctx context.Context, writer io.Writer) error

	// ImportJSON loads a SampleExport document, skipping samples whose
	// batch id and sequence number already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// SampleExport is the JSON export format.
type SampleExport struct {
	Version    string                   `json:"version"`
	ExportedAt time.Time                `json:"exported_at"`
	Count      int                      `json:"count"`
	Samples    []*domain.TrainingSample `json:"samples"`
}

// exportVersion identifies the export document layout.
const exportVersion = "1.0"

// maxExportLimit is the maximum number of samples exported at once.
const maxExportLimit = 1000000

// csvHeader matches the column names the trainer reads.
var csvHeader = []string{
	"batch_id", "department", "priority", "appointment_type",
	"symptom_count", "time_of_day", "day_of_week",
	"actual_duration", "predicted_duration", "source", "created_at",
}

func writeCSV(writer io.Writer, samples []*domain.TrainingSample) error {
	w := csv.NewWriter(writer)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, s := range samples {
		record := []string{
			s.BatchID,
			s.Department,
			s.Priority,
			s.AppointmentType,
			strconv.Itoa(s.SymptomCount),
			strconv.Itoa(s.TimeOfDay),
			strconv.Itoa(s.DayOfWeek),
			strconv.FormatFloat(s.ActualDuration, 'f', -1, 64),
			strconv.FormatFloat(s.PredictedDuration, 'f', -1, 64),
			s.Source,
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const sampleColumns = `id, batch_id, seq, department, priority, appointment_type,
	symptom_count, time_of_day, day_of_week, actual_duration, predicted_duration,
	source, created_at`

func scanSample(s scanner) (*domain.TrainingSample, error) {
	sample := &domain.TrainingSample{}
	err := s.Scan(
		&sample.ID, &sample.BatchID, &sample.Seq,
		&sample.Department, &sample.Priority, &sample.AppointmentType,
		&sample.SymptomCount, &sample.TimeOfDay, &sample.DayOfWeek,
		&sample.ActualDuration, &sample.PredictedDuration,
		&sample.Source, &sample.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sample, nil
}

func prepareBatch(batchID string, samples []*domain.TrainingSample) {
	now := time.Now().UTC()
	for i, s := range samples {
		s.BatchID = batchID
		s.Seq = i
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}
}
