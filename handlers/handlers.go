package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ibogihq/payments-service/gateway"
	"github.com/ibogihq/payments-service/logging"
	"github.com/ibogihq/payments-service/models"
	"github.com/ibogihq/payments-service/service"
)

// SignatureHeader carries the webhook HMAC from the gateway
const SignatureHeader = "x-paystack-signature"

// PaymentServiceContract is what the handlers need from the service layer
type PaymentServiceContract interface {
	InitPayment(ctx context.Context, amount int64, email string) (*models.InitPaymentResponse, error)
	VerifyPayment(ctx context.Context, reference string) (string, error)
	Payments(ctx context.Context) ([]models.Payment, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) bool
}

// PaymentHandler handles HTTP requests for payments
type PaymentHandler struct {
	paymentService PaymentServiceContract
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceContract) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// InitPayment handles POST /init-payment
func (h *PaymentHandler) InitPayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.InitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.paymentService.InitPayment(ctx, req.Amount, req.Email)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// VerifyPayment handles GET /verify-payment/:reference
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ctx := c.Request.Context()

	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	message, err := h.paymentService.VerifyPayment(ctx, reference)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// PaymentHistory handles GET /payment-history
func (h *PaymentHandler) PaymentHistory(c *gin.Context) {
	payments, err := h.paymentService.Payments(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// Webhook handles POST /webhook. The body must be read raw: the signature
// covers the exact bytes the gateway sent. Delivery is always acknowledged
// with 200 so the sender does not retry permanent failures.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	processed := h.paymentService.HandleWebhook(c.Request.Context(), rawBody, c.GetHeader(SignatureHeader))
	if !processed {
		c.Status(http.StatusOK)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": service.MsgWebhookVerified})
}

// HealthCheck handles health check requests
func (h *PaymentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// renderError maps service-layer failures onto client-facing responses:
// gateway failures keep their upstream status code, verification failures
// are unprocessable, anything else is a 500.
func (h *PaymentHandler) renderError(c *gin.Context, err error) {
	span := trace.SpanFromContext(c.Request.Context())

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		c.JSON(gwErr.StatusCode, gin.H{"error": gwErr.Message})
		return
	}

	var verErr *service.VerificationError
	if errors.As(err, &verErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verErr.Message})
		return
	}

	logging.WithTraceContext(span).Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
