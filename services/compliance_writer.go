package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	logrus "github.com/sirupsen/logrus"

	"fleet-ops-api/config"
	"fleet-ops-api/models"
)

const (
	violationProbability = 0.5
	credentialRemark     = "auto-generated credential check"
)

// ComplianceBatch is the set of rows committed for one prediction request.
type ComplianceBatch struct {
	DriverID   int64
	DrugTest   models.DrugTest
	Violation  *models.Violation
	Credential models.Credential
}

// ComplianceWriter commits synthetic compliance batches, one transaction
// per batch.
type ComplianceWriter struct {
	provisioner Provisioner
	timeout     time.Duration
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewComplianceWriter uses src for all random draws; nil seeds from the clock.
func NewComplianceWriter(p Provisioner, cfg config.ComplianceConfig, src rand.Source) *ComplianceWriter {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1)
	}
	return &ComplianceWriter{
		provisioner: p,
		timeout:     cfg.WriteTimeout,
		now:         time.Now,
		rng:         rand.New(src),
	}
}

// WriteSampleBatch draws and commits a drug test, an optional violation and
// a credential check for driverID. Either every row commits or none does.
func (w *ComplianceWriter) WriteSampleBatch(ctx context.Context, driverID int64) (*ComplianceBatch, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	batch := w.drawBatch(driverID)

	err := WithConn(ctx, w.provisioner, func(conn Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: begin transaction: %v", ErrWriteFailure, err)
		}
		defer tx.Rollback(ctx)

		if err := insertBatch(ctx, tx, batch); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("%w: commit: %v", ErrWriteFailure, err)
		}
		return nil
	})
	if err != nil {
		complianceBatchesFailed.Inc()
		return nil, err
	}

	complianceBatchesCommitted.Inc()
	if batch.Violation != nil {
		violationsRecorded.Inc()
	}
	logrus.WithFields(logrus.Fields{
		"driver_id":  driverID,
		"drug_test":  batch.DrugTest.Result,
		"violation":  batch.Violation != nil,
		"credential": batch.Credential.CredentialType,
	}).Debug("compliance batch committed")
	return &batch, nil
}

func (w *ComplianceWriter) drawBatch(driverID int64) ComplianceBatch {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	batch := ComplianceBatch{
		DriverID: driverID,
		DrugTest: models.DrugTest{
			DriverID: driverID,
			Result:   pick(w.rng, models.DrugTestResults),
			TestDate: today,
		},
	}

	if w.rng.Float64() < violationProbability {
		vt := pick(w.rng, models.ViolationTypes)
		batch.Violation = &models.Violation{
			DriverID:    driverID,
			Type:        vt,
			Description: fmt.Sprintf("%s violation recorded for driver %d", vt, driverID),
			Date:        today,
		}
	}

	batch.Credential = models.Credential{
		DriverID:       driverID,
		CredentialType: pick(w.rng, models.CredentialTypes),
		Valid:          w.rng.IntN(2) == 1,
		Remarks:        credentialRemark,
		CheckDate:      today,
	}
	return batch
}

func insertBatch(ctx context.Context, tx pgx.Tx, b ComplianceBatch) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO drug_tests (driver_id, result, test_date)
		VALUES ($1, $2, $3)
	`, b.DriverID, b.DrugTest.Result, b.DrugTest.TestDate); err != nil {
		return fmt.Errorf("%w: insert drug test: %v", ErrWriteFailure, err)
	}

	if v := b.Violation; v != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO violations (driver_id, type, description, date)
			VALUES ($1, $2, $3, $4)
		`, b.DriverID, v.Type, v.Description, v.Date); err != nil {
			return fmt.Errorf("%w: insert violation: %v", ErrWriteFailure, err)
		}
	}

	c := b.Credential
	if _, err := tx.Exec(ctx, `
		INSERT INTO credentials (driver_id, credential_type, valid, remarks, check_date)
		VALUES ($1, $2, $3, $4, $5)
	`, b.DriverID, c.CredentialType, c.Valid, c.Remarks, c.CheckDate); err != nil {
		return fmt.Errorf("%w: insert credential check: %v", ErrWriteFailure, err)
	}
	return nil
}

func pick(r *rand.Rand, choices []string) string {
	return choices[r.IntN(len(choices))]
}
