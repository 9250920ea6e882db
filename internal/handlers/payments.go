package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/takumbeng/covoit-backend/internal/gateway"
	"github.com/takumbeng/covoit-backend/internal/models"
	"github.com/takumbeng/covoit-backend/internal/services"
)

// InitiatePayment starts the escrow charge for a booking. A gateway that
// cannot be reached is not a failure: the payment stays pending and the
// client is told to poll.
func InitiatePayment(payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			BookingID   uint   `json:"bookingId" binding:"required"`
			Method      string `json:"method" binding:"required,oneof=MTN_MOMO ORANGE_MONEY CARD CASH"`
			PhoneNumber string `json:"phoneNumber"`
			CardNumber  string `json:"cardNumber"`
			CVV         string `json:"cvv"`
			ExpiryMonth string `json:"expiryMonth"`
			ExpiryYear  string `json:"expiryYear"`
			Email       string `json:"email"`
			FullName    string `json:"fullName"`
			RedirectURL string `json:"redirectUrl"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		payment, err := payments.Initiate(c.Request.Context(), services.InitiatePaymentRequest{
			BookingID:   input.BookingID,
			PassengerID: userId,
			Method:      models.PaymentMethod(input.Method),
			PhoneNumber: input.PhoneNumber,
			CardNumber:  input.CardNumber,
			CVV:         input.CVV,
			ExpiryMonth: input.ExpiryMonth,
			ExpiryYear:  input.ExpiryYear,
			Email:       input.Email,
			FullName:    input.FullName,
			RedirectURL: input.RedirectURL,
		})
		if err != nil {
			if errors.Is(err, gateway.ErrUnreachable) {
				// Charge not confirmed either way; client should poll.
				c.JSON(202, gin.H{
					"message": "Payment pending, gateway unreachable. Retry or poll for status.",
					"payment": payment,
				})
				return
			}
			var rejected *gateway.RejectedError
			if errors.As(err, &rejected) {
				c.JSON(402, gin.H{
					"error":   "Payment rejected by gateway",
					"reason":  rejected.Message,
					"payment": payment,
				})
				return
			}
			respondServiceError(c, err)
			return
		}

		if cerr := services.CachePaymentStatus(c.Request.Context(), payment.ID, string(payment.Status)); cerr != nil {
			log.Printf("Failed to cache payment status: %v", cerr)
		}
		if perr := services.PublishPaymentUpdate(c.Request.Context(), payment.ID, string(payment.Status), nil); perr != nil {
			log.Printf("Failed to publish payment update: %v", perr)
		}

		c.JSON(201, payment)
	}
}

// GetPaymentStatus returns a payment, resolving pending states against the
// gateway when possible
func GetPaymentStatus(payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		paymentID, err := parseID(c.Param("id"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid payment ID"})
			return
		}

		// A finished payment never changes again: a cached terminal status
		// lets the poll skip the gateway round trip entirely.
		if cached, cerr := services.GetCachedPaymentStatus(c.Request.Context(), paymentID); cerr == nil &&
			models.PaymentStatus(cached).Terminal() {
			payment, serr := payments.Status(c.Request.Context(), paymentID, userId)
			if serr != nil {
				respondServiceError(c, serr)
				return
			}
			c.JSON(200, payment)
			return
		}

		payment, err := payments.PollStatus(c.Request.Context(), paymentID, userId)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		if cerr := services.CachePaymentStatus(c.Request.Context(), payment.ID, string(payment.Status)); cerr != nil {
			log.Printf("Failed to cache payment status: %v", cerr)
		}
		if perr := services.PublishPaymentUpdate(c.Request.Context(), payment.ID, string(payment.Status), nil); perr != nil {
			log.Printf("Failed to publish payment update: %v", perr)
		}

		c.JSON(200, payment)
	}
}

// FlutterwaveWebhook receives asynchronous charge notifications from the
// gateway. The endpoint is public; the signature header is the only gate.
// Unknown references and duplicates are absorbed so the gateway's retries
// stay harmless.
func FlutterwaveWebhook(payments *services.PaymentService, gw *gateway.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(400, gin.H{"error": "Failed to read payload"})
			return
		}

		signature := c.GetHeader("verif-hash")
		if !gw.ValidateWebhookSignature(raw, signature) {
			log.Printf("Webhook rejected: invalid signature")
			c.JSON(401, gin.H{"error": "Invalid signature"})
			return
		}

		var payload services.WebhookPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.JSON(400, gin.H{"error": "Malformed payload"})
			return
		}

		if err := payments.ReconcileWebhook(c.Request.Context(), payload); err != nil {
			var validation *services.ValidationError
			if errors.As(err, &validation) {
				c.JSON(400, gin.H{"error": validation.Message})
				return
			}
			// Reconciliation problems are logged and acknowledged; the
			// gateway retries unacknowledged deliveries and the ledger is
			// idempotent against duplicates.
			log.Printf("Webhook reconciliation error for txRef %s: %v", payload.Data.TxRef, err)
		}

		c.JSON(200, gin.H{"status": "ok"})
	}
}
