package models

import "time"

type DrugTestTrend struct {
	TestDate  time.Time `gorm:"column:test_date" json:"test_date"`
	PassCount int64     `gorm:"column:pass_count" json:"pass_count"`
	FailCount int64     `gorm:"column:fail_count" json:"fail_count"`
}

type DriverViolationCount struct {
	DriverID       int64 `gorm:"column:driver_id" json:"driver_id"`
	ViolationCount int64 `gorm:"column:violation_count" json:"violation_count"`
}

type CredentialValidity struct {
	CredentialType string `gorm:"column:credential_type" json:"credential_type"`
	ValidCount     int64  `gorm:"column:valid_count" json:"valid_count"`
	InvalidCount   int64  `gorm:"column:invalid_count" json:"invalid_count"`
}

type MonthlyInfraction struct {
	Month           time.Time `gorm:"column:month" json:"month"`
	Type            string    `gorm:"column:type" json:"type"`
	InfractionCount int64     `gorm:"column:infraction_count" json:"infraction_count"`
}
