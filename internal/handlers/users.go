package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/takumbeng/covoit-backend/internal/models"
	"github.com/takumbeng/covoit-backend/internal/services"
)

// GetProfile returns the authenticated user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		c.JSON(200, user)
	}
}

// UpdateProfile updates the authenticated user's profile
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Username string `json:"username"`
			Phone    string `json:"phone"`
			CarPlate string `json:"carPlate"`
			CarMake  string `json:"carMake"`
			CarColor string `json:"carColor"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if input.Username != "" {
			user.Username = input.Username
		}
		if input.Phone != "" {
			user.PhoneNumber = input.Phone
		}
		if input.CarPlate != "" {
			user.CarPlate = input.CarPlate
		}
		if input.CarMake != "" {
			user.CarMake = input.CarMake
		}
		if input.CarColor != "" {
			user.CarColor = input.CarColor
		}

		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, user)
	}
}

// UploadVehiclePhoto stores a driver's vehicle photo and saves its URL
func UploadVehiclePhoto(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can upload vehicle photos"})
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "Photo file is required"})
			return
		}

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		path, err := services.UploadImage(file, "vehicles")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload photo"})
			return
		}
		url := services.GetImageURL(path)

		if err := db.Model(&models.User{}).Where("id = ?", userId).
			Update("vehicle_photo", url).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save photo URL"})
			return
		}

		// Replacing a photo orphans the previous upload
		if user.VehiclePhoto != "" && user.VehiclePhoto != url {
			if err := services.DeleteImage(user.VehiclePhoto); err != nil {
				log.Printf("Failed to delete previous vehicle photo for user %d: %v", userId, err)
			}
		}

		c.JSON(200, gin.H{"vehiclePhoto": url})
	}
}
