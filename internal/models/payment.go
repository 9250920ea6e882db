package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusHeld     PaymentStatus = "held"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Terminal reports whether no further transition is permitted out of s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusReleased || s == PaymentStatusRefunded || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodMTNMomo     PaymentMethod = "MTN_MOMO"
	PaymentMethodOrangeMoney PaymentMethod = "ORANGE_MONEY"
	PaymentMethodCard        PaymentMethod = "CARD"
	PaymentMethodCash        PaymentMethod = "CASH"
)

// Payment is the escrow record for a booking, one-to-one. PlatformFee and
// DriverPayout always sum to Amount. TxRef correlates outbound gateway calls;
// FlwRef and TransactionID are assigned by the gateway after a charge is
// acknowledged.
type Payment struct {
	gorm.Model
	BookingID     uint          `json:"bookingId" gorm:"not null;uniqueIndex"`
	JourneyID     uint          `json:"journeyId" gorm:"not null;index"`
	PassengerID   uint          `json:"passengerId" gorm:"not null"`
	DriverID      uint          `json:"driverId" gorm:"not null"`
	Amount        int64         `json:"amount" gorm:"not null"`      // minor units
	PlatformFee   int64         `json:"platformFee" gorm:"not null"` // minor units
	DriverPayout  int64         `json:"driverPayout" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"not null;default:'XAF'"`
	Method        PaymentMethod `json:"method" gorm:"not null"`
	Status        PaymentStatus `json:"status" gorm:"not null;default:'pending';index"`
	TxRef         string        `json:"txRef" gorm:"uniqueIndex;not null"`
	FlwRef        string        `json:"flwRef,omitempty"`
	TransactionID int64         `json:"transactionId,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
	ReleasedAt    *time.Time    `json:"releasedAt,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
