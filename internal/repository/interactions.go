// Package repository reads completed consultations from the booking
// backend's Interaction and Appointment tables.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
)

// SourceInteractions tags samples pulled from the interaction history.
const SourceInteractions = "interactions"

// defaultSymptomCount is used when an interaction has no recorded count.
const defaultSymptomCount = 1

var dialect = goqu.Dialect("postgres")

// InteractionRepository implements domain.TrainingSource on a pgx pool.
type InteractionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *pgxpool.Pool, logger *logrus.Logger) *InteractionRepository {
	return &InteractionRepository{
		db:  db,
		log: logger,
	}
}

// trainingDataQuery selects completed interactions newest first. A limit of
// zero or less means no limit.
func trainingDataQuery(limit int) (string, []interface{}, error) {
	ds := dialect.
		From(goqu.T("Interaction").As("i")).
		InnerJoin(goqu.T("Appointment").As("a"), goqu.On(goqu.I("i.appointmentId").Eq(goqu.I("a.id")))).
		Select(
			goqu.I("i.id"),
			goqu.I("i.department"),
			goqu.I("i.priority"),
			goqu.I("i.appointmentType"),
			goqu.I("i.symptomCount"),
			goqu.I("i.checkInTime"),
			goqu.Cast(goqu.I("i.totalDuration"), "DOUBLE PRECISION"),
			goqu.Cast(goqu.I("i.predictedDuration"), "DOUBLE PRECISION"),
		).
		Where(
			goqu.I("i.totalDuration").IsNotNull(),
			goqu.I("i.predictedDuration").IsNotNull(),
			goqu.I("i.totalDuration").Gt(0),
		).
		Order(goqu.I("i.checkInTime").Desc()).
		Prepared(true)

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return ds.ToSQL()
}

// FetchTrainingData returns completed interactions as training samples.
func (r *InteractionRepository) FetchTrainingData(ctx context.Context, limit int) ([]*domain.TrainingSample, error) {
	query, args, err := trainingDataQuery(limit)
	if err != nil {
		return nil, fmt.Errorf("building training data query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithError(err).Error("Failed to fetch training data")
		return nil, fmt.Errorf("fetching training data: %w", err)
	}
	defer rows.Close()

	var samples []*domain.TrainingSample
	for rows.Next() {
		var (
			id           string
			symptomCount *int32
			checkIn      time.Time
			sample       domain.TrainingSample
		)
		if err := rows.Scan(
			&id,
			&sample.Department,
			&sample.Priority,
			&sample.AppointmentType,
			&symptomCount,
			&checkIn,
			&sample.ActualDuration,
			&sample.PredictedDuration,
		); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		samples = append(samples, toSample(&sample, symptomCount, checkIn))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interactions: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"count": len(samples),
		"limit": limit,
	}).Info("Fetched training data from interactions")

	return samples, nil
}

func toSample(sample *domain.TrainingSample, symptomCount *int32, checkIn time.Time) *domain.TrainingSample {
	sample.SymptomCount = defaultSymptomCount
	if symptomCount != nil {
		sample.SymptomCount = int(*symptomCount)
	}
	sample.TimeOfDay = checkIn.Hour()
	// Monday=0.
	sample.DayOfWeek = (int(checkIn.Weekday()) + 6) % 7
	sample.Source = SourceInteractions
	sample.CreatedAt = checkIn
	return sample
}
