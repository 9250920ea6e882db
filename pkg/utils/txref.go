package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewTxRef generates a globally unique transaction reference for correlating
// a payment record with its gateway charge. Every logical charge attempt gets
// a fresh one.
func NewTxRef() string {
	return fmt.Sprintf("CVT-%d-%s", time.Now().Unix(), uuid.NewString())
}
