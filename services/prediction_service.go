package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"
)

const (
	PredictionsChannel = "fleetops:predictions"

	sampleDriverMin = 1
	sampleDriverMax = 10
)

// PredictionRequest is the POST /predict payload. Pointers distinguish
// missing fields from zero values.
type PredictionRequest struct {
	DistanceKM *float64 `json:"distance_km"`
	FuelUsed   *float64 `json:"fuel_used"`
	DriverID   *int64   `json:"driver_id"`
}

func (r PredictionRequest) Validate() error {
	if r.DistanceKM == nil {
		return fmt.Errorf("%w: missing input: distance_km", ErrBadRequest)
	}
	if r.FuelUsed == nil {
		return fmt.Errorf("%w: missing input: fuel_used", ErrBadRequest)
	}
	if !isFinite(*r.DistanceKM) {
		return fmt.Errorf("%w: distance_km must be a finite number", ErrBadRequest)
	}
	if !isFinite(*r.FuelUsed) {
		return fmt.Errorf("%w: fuel_used must be a finite number", ErrBadRequest)
	}
	if r.DriverID != nil && *r.DriverID <= 0 {
		return fmt.Errorf("%w: driver_id must be a positive integer", ErrBadRequest)
	}
	return nil
}

// PredictionResult carries the ETA together with the outcome of the
// compliance write. WriteErr never invalidates ETAMinutes.
type PredictionResult struct {
	RequestID  string
	DriverID   int64
	ETAMinutes float64
	Batch      *ComplianceBatch
	WriteErr   error
}

// Degraded reports whether the compliance batch was not committed.
func (r *PredictionResult) Degraded() bool {
	return r.WriteErr != nil
}

// PredictionEvent is published for live dashboard consumers.
type PredictionEvent struct {
	RequestID         string    `json:"request_id"`
	TS                time.Time `json:"ts"`
	DriverID          int64     `json:"driver_id"`
	DistanceKM        float64   `json:"distance_km"`
	FuelUsed          float64   `json:"fuel_used"`
	ETAMinutes        float64   `json:"eta_minutes"`
	ComplianceWritten bool      `json:"compliance_written"`
	ViolationRecorded bool      `json:"violation_recorded"`
}

type ModelProvider interface {
	Ensure(ctx context.Context) (*Model, error)
}

type BatchWriter interface {
	WriteSampleBatch(ctx context.Context, driverID int64) (*ComplianceBatch, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// ChartInvalidator drops cached chart aggregates after new compliance rows
// are committed.
type ChartInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type PredictionService struct {
	models ModelProvider
	writer BatchWriter
	events EventPublisher
	charts ChartInvalidator

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPredictionService wires the pipeline. events may be nil.
func NewPredictionService(models ModelProvider, writer BatchWriter, events EventPublisher, src rand.Source) *PredictionService {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, ^seed)
	}
	return &PredictionService{
		models: models,
		writer: writer,
		events: events,
		rng:    rand.New(src),
	}
}

// WithChartCache makes committed batches evict the cached chart responses.
func (s *PredictionService) WithChartCache(charts ChartInvalidator) *PredictionService {
	s.charts = charts
	return s
}

// Predict validates req, computes the ETA and records a compliance batch
// for the driver. The batch write is best-effort.
func (s *PredictionService) Predict(ctx context.Context, req PredictionRequest) (*PredictionResult, error) {
	start := time.Now()
	defer func() {
		predictionDuration.Observe(time.Since(start).Seconds())
	}()

	if err := req.Validate(); err != nil {
		predictionsFailed.WithLabelValues("bad_request").Inc()
		return nil, err
	}

	model, err := s.models.Ensure(ctx)
	if err != nil {
		predictionsFailed.WithLabelValues("model_unavailable").Inc()
		if !errors.Is(err, ErrModelUnavailable) {
			err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return nil, err
	}

	eta := model.Predict(*req.DistanceKM, *req.FuelUsed)
	if !isFinite(eta) {
		predictionsFailed.WithLabelValues("bad_request").Inc()
		return nil, fmt.Errorf("%w: inputs out of range", ErrBadRequest)
	}

	result := &PredictionResult{
		RequestID:  uuid.NewString(),
		DriverID:   s.resolveDriver(req.DriverID),
		ETAMinutes: RoundETA(eta),
	}
	entry := logrus.WithFields(logrus.Fields{
		"request_id":  result.RequestID,
		"driver_id":   result.DriverID,
		"eta_minutes": result.ETAMinutes,
	})

	result.Batch, result.WriteErr = s.writer.WriteSampleBatch(ctx, result.DriverID)
	if result.WriteErr != nil {
		entry.WithError(result.WriteErr).Warn("compliance batch not recorded, returning prediction anyway")
	} else {
		s.invalidateCharts(ctx, entry)
	}

	s.publish(ctx, entry, PredictionEvent{
		RequestID:         result.RequestID,
		TS:                time.Now().UTC(),
		DriverID:          result.DriverID,
		DistanceKM:        *req.DistanceKM,
		FuelUsed:          *req.FuelUsed,
		ETAMinutes:        result.ETAMinutes,
		ComplianceWritten: result.WriteErr == nil,
		ViolationRecorded: result.Batch != nil && result.Batch.Violation != nil,
	})

	predictionsServed.Inc()
	entry.Info("prediction served")
	return result, nil
}

func (s *PredictionService) publish(ctx context.Context, entry *logrus.Entry, event PredictionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, PredictionsChannel, event); err != nil {
		entry.WithError(err).Warn("prediction event publish failed")
		return
	}
	eventsPublished.Inc()
}

func (s *PredictionService) invalidateCharts(ctx context.Context, entry *logrus.Entry) {
	if s.charts == nil {
		return
	}
	if err := s.charts.Delete(ctx, ChartCacheKeys...); err != nil {
		entry.WithError(err).Warn("chart cache invalidation failed")
	}
}

func (s *PredictionService) resolveDriver(requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(sampleDriverMin + s.rng.IntN(sampleDriverMax-sampleDriverMin+1))
}

// RoundETA rounds the exact binary value of v to two decimal places,
// halves to even.
func RoundETA(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
