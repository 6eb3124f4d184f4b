package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payments"
)

type createPaymentOrderRequest struct {
	Amount   float64 `json:"amount" binding:"required"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId" binding:"required"`
}

// CreatePaymentOrder opens a payment intent with the gateway. Amounts come
// in as major units and go out in the gateway's minor unit.
func CreatePaymentOrder(gateway payments.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/create-order"
		defer handlePanic(c, route)

		var req createPaymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.Amount <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "Invalid amount")
			return
		}

		currency := req.Currency
		if currency == "" {
			currency = "INR"
		}
		receipt := req.Receipt
		if receipt == "" {
			receipt = "rcpt_" + uuid.NewString()
		}

		amountMinor := int64(math.Round(req.Amount * 100))

		order, err := gateway.CreateOrder(c.Request.Context(), amountMinor, currency, receipt)
		if err != nil {
			log.WithError(err).Error("gateway order create failed")
			respondWithError(c, http.StatusInternalServerError, route, "Something went wrong while creating the order")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

// VerifyPayment reconciles the gateway callback: the signature is checked
// against the key secret, then the order transitions to paid with the
// exactly-once stock deduction.
func VerifyPayment(svc *orders.Service, keySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/verify"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
			return
		}

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if !payments.VerifySignature(keySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid payment signature")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(req.OrderID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		order, err := svc.MarkPaid(c.Request.Context(), orderID, models.PaymentResult{
			ID:           req.RazorpayPaymentID,
			Status:       "completed",
			UpdateTime:   time.Now(),
			EmailAddress: user.Email,
		})
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				respondWithError(c, http.StatusNotFound, route, "Order not found")
				return
			}
			log.WithError(err).Error("payment verification failed")
			respondWithError(c, http.StatusInternalServerError, route, "Something went wrong while verifying the payment")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Payment verified successfully",
			"order":   order,
		})
	}
}

// GetRazorpayKey exposes the publishable key. A dummy key keeps the
// frontend checkout working against the sandbox gateway.
func GetRazorpayKey(keyID string, testMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyID
		if key == "" {
			key = "rzp_test_dummy_key_for_testing"
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "isTestMode": testMode})
	}
}
