package models

import "time"

const (
	DrugTestPass = "pass"
	DrugTestFail = "fail"
)

const (
	ViolationSpeeding        = "speeding"
	ViolationDUI             = "dui"
	ViolationRecklessDriving = "reckless-driving"
)

const (
	CredentialLicense  = "license"
	CredentialMedical  = "medical"
	CredentialTraining = "training"
)

var (
	DrugTestResults = []string{DrugTestPass, DrugTestFail}
	ViolationTypes  = []string{ViolationSpeeding, ViolationDUI, ViolationRecklessDriving}
	CredentialTypes = []string{CredentialLicense, CredentialMedical, CredentialTraining}
)

type DrugTest struct {
	ID       int64     `gorm:"column:id;primaryKey" json:"id"`
	DriverID int64     `gorm:"column:driver_id;not null;index" json:"driver_id"`
	Driver   *Driver   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Result   string    `gorm:"column:result;type:varchar(8);not null" json:"result"`
	TestDate time.Time `gorm:"column:test_date;type:date;not null" json:"test_date"`
}

func (DrugTest) TableName() string { return "drug_tests" }

type Violation struct {
	ID          int64     `gorm:"column:id;primaryKey" json:"id"`
	DriverID    int64     `gorm:"column:driver_id;not null;index" json:"driver_id"`
	Driver      *Driver   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type        string    `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Description string    `gorm:"column:description" json:"description"`
	Date        time.Time `gorm:"column:date;type:date;not null" json:"date"`
}

func (Violation) TableName() string { return "violations" }

type Credential struct {
	ID             int64     `gorm:"column:id;primaryKey" json:"id"`
	DriverID       int64     `gorm:"column:driver_id;not null;index" json:"driver_id"`
	Driver         *Driver   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CredentialType string    `gorm:"column:credential_type;type:varchar(16);not null" json:"credential_type"`
	Valid          bool      `gorm:"column:valid;not null" json:"valid"`
	Remarks        string    `gorm:"column:remarks" json:"remarks"`
	CheckDate      time.Time `gorm:"column:check_date;type:date;not null" json:"check_date"`
}

func (Credential) TableName() string { return "credentials" }

// Expired reports whether the credential failed its check.
func (c Credential) Expired() bool { return !c.Valid }
