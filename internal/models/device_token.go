package models

import (
	"gorm.io/gorm"
)

// DeviceToken stores an FCM registration token for push delivery.
type DeviceToken struct {
	gorm.Model
	UserID   uint   `json:"userId" gorm:"not null;index"`
	Token    string `json:"token" gorm:"not null;uniqueIndex"`
	Platform string `json:"platform"` // android, ios, web
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}
