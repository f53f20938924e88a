package services

import (
	"context"
	"errors"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet-ops-api/models"
)

type CredentialReport struct {
	DriverID int64               `json:"driver_id"`
	Found    bool                `json:"found"`
	Checked  int                 `json:"checked"`
	Expired  []models.Credential `json:"expired"`
}

// CredentialValidator inspects a driver's credential checks and reports the
// ones that failed. It runs in the worker, off the request path.
type CredentialValidator struct {
	db *gorm.DB
}

func NewCredentialValidator(db *gorm.DB) *CredentialValidator {
	return &CredentialValidator{db: db}
}

func (v *CredentialValidator) Validate(ctx context.Context, driverID int64) (*CredentialReport, error) {
	report := &CredentialReport{DriverID: driverID}

	var driver models.Driver
	if err := v.db.WithContext(ctx).First(&driver, driverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return report, nil
		}
		return nil, err
	}
	report.Found = true

	var credentials []models.Credential
	if err := v.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("check_date DESC").
		Find(&credentials).Error; err != nil {
		return nil, err
	}

	report.Checked = len(credentials)
	for _, c := range credentials {
		if c.Expired() {
			report.Expired = append(report.Expired, c)
		}
	}
	return report, nil
}

// Handle is the JobQueue handler for credential validation jobs.
func (v *CredentialValidator) Handle(ctx context.Context, job *CredentialValidationJob) error {
	report, err := v.Validate(ctx, job.DriverID)
	if err != nil {
		return err
	}

	entry := logrus.WithFields(logrus.Fields{"job_id": job.JobID, "driver_id": job.DriverID})
	if !report.Found {
		entry.Warn("driver not found, skipping credential validation")
		return nil
	}
	for _, c := range report.Expired {
		entry.WithFields(logrus.Fields{
			"credential_type": c.CredentialType,
			"check_date":      c.CheckDate.Format("2006-01-02"),
		}).Warn("credential is not valid")
	}
	entry.WithFields(logrus.Fields{
		"checked": report.Checked,
		"expired": len(report.Expired),
	}).Info("credentials validated")
	return nil
}
