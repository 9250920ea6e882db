package models

import (
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// Booking is a passenger reservation against a Journey. TotalAmount is always
// Seats * the journey's PricePerSeat at creation time. A booking only becomes
// confirmed once its payment reaches held.
type Booking struct {
	gorm.Model
	JourneyID   uint          `json:"journeyId" gorm:"not null;index"`
	Journey     *Journey      `json:"journey,omitempty"`
	PassengerID uint          `json:"passengerId" gorm:"not null;index"`
	Passenger   *User         `json:"passenger,omitempty"`
	Seats       int           `json:"seats" gorm:"not null"`
	TotalAmount int64         `json:"totalAmount" gorm:"not null"` // minor units
	Status      BookingStatus `json:"status" gorm:"not null;default:'pending'"`
}

func (Booking) TableName() string {
	return "bookings"
}
