package models

import (
	"fmt"
	"time"
)

type Driver struct {
	ID            int64      `gorm:"column:id;primaryKey" json:"id"`
	Name          string     `gorm:"column:name;not null" json:"name"`
	LicenseNumber string     `gorm:"column:license_number;uniqueIndex" json:"license_number"`
	Birthdate     *time.Time `gorm:"column:birthdate;type:date" json:"birthdate,omitempty"`
	Contact       string     `gorm:"column:contact" json:"contact"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Driver) TableName() string { return "drivers" }

// SeedDrivers returns the placeholder drivers 1..n that back the sample
// driver range used when a prediction request carries no driver_id.
func SeedDrivers(n int) []Driver {
	birthdate := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	drivers := make([]Driver, 0, n)
	for i := 1; i <= n; i++ {
		bd := birthdate
		drivers = append(drivers, Driver{
			ID:            int64(i),
			Name:          fmt.Sprintf("Test Driver %d", i),
			LicenseNumber: fmt.Sprintf("ABC%05d", i),
			Birthdate:     &bd,
			Contact:       fmt.Sprintf("0917%07d", i),
		})
	}
	return drivers
}
