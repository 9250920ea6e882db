package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypePassenger UserType = "passenger"
	UserTypeDriver    UserType = "driver"
)

type User struct {
	gorm.Model
	Username     string `gorm:"column:username;unique;not null" json:"username"`
	Email        string `gorm:"column:email;unique;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	PhoneNumber  string `gorm:"column:phone_number" json:"phoneNumber"`
	UserType     string `gorm:"column:user_type;not null" json:"userType"`

	// Driver vehicle details, empty for passengers
	CarPlate     string `gorm:"column:car_plate" json:"carPlate,omitempty"`
	CarMake      string `gorm:"column:car_make" json:"carMake,omitempty"`
	CarColor     string `gorm:"column:car_color" json:"carColor,omitempty"`
	VehiclePhoto string `gorm:"column:vehicle_photo" json:"vehiclePhoto,omitempty"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
