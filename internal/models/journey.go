package models

import (
	"time"

	"gorm.io/gorm"
)

type JourneyStatus string

const (
	JourneyStatusScheduled  JourneyStatus = "scheduled"
	JourneyStatusInProgress JourneyStatus = "in_progress"
	JourneyStatusCompleted  JourneyStatus = "completed"
	JourneyStatusCancelled  JourneyStatus = "cancelled"
)

// Journey is a driver-posted trip offer. AvailableSeats stays within
// [0, TotalSeats] at all times; seat changes go through conditional updates.
type Journey struct {
	gorm.Model
	DriverID       uint          `json:"driverId" gorm:"not null;index"`
	Driver         *User         `json:"driver,omitempty"`
	DepartureCity  string        `json:"departureCity" gorm:"not null"`
	ArrivalCity    string        `json:"arrivalCity" gorm:"not null"`
	DepartureDate  string        `json:"departureDate" gorm:"not null"` // YYYY-MM-DD
	DepartureTime  string        `json:"departureTime" gorm:"not null"` // HH:MM
	TotalSeats     int           `json:"totalSeats" gorm:"not null"`
	AvailableSeats int           `json:"availableSeats" gorm:"not null"`
	PricePerSeat   int64         `json:"pricePerSeat" gorm:"not null"` // minor units
	Currency       string        `json:"currency" gorm:"not null;default:'XAF'"`
	Vehicle        string        `json:"vehicle"`
	Status         JourneyStatus `json:"status" gorm:"not null;default:'scheduled';index"`
	StartedAt      *time.Time    `json:"startedAt,omitempty"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
}

func (Journey) TableName() string {
	return "journeys"
}
