package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ibogihq/payments-service/gateway"
	"github.com/ibogihq/payments-service/models"
	"github.com/ibogihq/payments-service/monitoring"
	"github.com/ibogihq/payments-service/store"
)

// Response messages returned to the client
const (
	MsgInitialized     = "Payment initialized successfully"
	MsgVerified        = "Payment verified successfully"
	MsgAlreadyVerified = "Payment already verified"
	MsgWebhookVerified = "Webhook verified successfully"
)

// VerificationError reports that the gateway answered the verify call but
// the transaction was not successful. Maps to 422 at the HTTP boundary.
type VerificationError struct {
	Message string
}

func (e *VerificationError) Error() string {
	return "verification failed: " + e.Message
}

// GatewayClient is the outbound surface of the payment gateway
type GatewayClient interface {
	Initialize(ctx context.Context, amount int64, email, callbackURL string) (*gateway.InitResult, error)
	Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error)
}

// PaymentStore is the durable record of verified payments
type PaymentStore interface {
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	Insert(ctx context.Context, p *models.Payment) error
	ListAll(ctx context.Context) ([]models.Payment, error)
}

// PaymentService orchestrates initialization, verification and webhook
// reconciliation. Verification is idempotent per transaction reference:
// the store lookup is the fast path and the store's unique constraint on
// transaction_ref settles the race between a synchronous verify call and
// an asynchronous webhook for the same reference.
type PaymentService struct {
	gateway     GatewayClient
	store       PaymentStore
	secretKey   []byte
	callbackURL string
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewPaymentService creates a new payment service
func NewPaymentService(gw GatewayClient, st PaymentStore, secretKey, callbackURL string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		gateway:     gw,
		store:       st,
		secretKey:   []byte(secretKey),
		callbackURL: callbackURL,
		logger:      logger,
		tracer:      otel.Tracer("service/payment_service"),
	}
}

// InitPayment creates a transaction at the gateway and returns the hosted
// checkout URL. Nothing is persisted; a payment record only exists once
// verification succeeds.
func (s *PaymentService) InitPayment(ctx context.Context, amount int64, email string) (*models.InitPaymentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "init_payment")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("payment.amount", amount),
		attribute.String("payment.email", email),
	)

	result, err := s.gateway.Initialize(ctx, amount, email, s.callbackURL)
	if err != nil {
		s.logger.Error("Payment initialization failed",
			zap.Int64("amount", amount),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, err
	}

	monitoring.PaymentsInitialized.Add(ctx, 1)
	span.SetAttributes(attribute.String("payment.reference", result.Reference))

	s.logger.Info("Payment initialized",
		zap.String("reference", result.Reference),
		zap.Int64("amount", amount),
	)

	return &models.InitPaymentResponse{
		Message: MsgInitialized,
		URL:     result.AuthorizationURL,
	}, nil
}

// VerifyPayment verifies a transaction by reference and persists it
// exactly once. Repeated and concurrent calls for the same reference are
// safe: a reference that is already recorded short-circuits, and a losing
// racer's insert collapses onto the winner's row.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "verify_payment")
	defer span.End()

	span.SetAttributes(attribute.String("payment.reference", reference))

	existing, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		return "", err
	}
	if existing != nil {
		s.recordVerification(ctx, "duplicate")
		span.SetAttributes(attribute.String("payment.status", "duplicate"))
		return MsgAlreadyVerified, nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.recordVerification(ctx, "failed")
		span.SetAttributes(attribute.String("payment.status", "failed"))
		return "", err
	}

	if result.Status != "success" {
		s.recordVerification(ctx, "failed")
		span.SetAttributes(attribute.String("payment.status", "failed"))
		s.logger.Warn("Gateway reported non-success status",
			zap.String("reference", reference),
			zap.String("status", result.Status),
		)
		return "", &VerificationError{Message: result.Message}
	}

	payment := &models.Payment{
		Amount:         result.Amount,
		Email:          result.Email,
		TransactionRef: result.Reference,
		Status:         result.Status,
	}

	if err := s.store.Insert(ctx, payment); err != nil {
		if errors.Is(err, store.ErrDuplicateReference) {
			// A racing trigger won between our lookup and insert.
			s.recordVerification(ctx, "duplicate")
			span.SetAttributes(attribute.String("payment.status", "duplicate"))
			return MsgAlreadyVerified, nil
		}
		return "", err
	}

	s.recordVerification(ctx, "verified")
	span.SetAttributes(attribute.String("payment.status", "verified"))

	s.logger.Info("Payment verified",
		zap.String("reference", reference),
		zap.Int64("amount", payment.Amount),
	)

	return MsgVerified, nil
}

// Payments returns all persisted payment records
func (s *PaymentService) Payments(ctx context.Context) ([]models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment_history")
	defer span.End()

	return s.store.ListAll(ctx)
}

// HandleWebhook authenticates a webhook delivery and routes recognized
// events into verification. It reports whether the delivery was processed;
// the caller acknowledges receipt either way. An invalid signature is a
// permanent failure, so the sender is never told to retry, and
// reconciliation errors are swallowed so a gateway-side inconsistency does
// not trigger a redelivery storm.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) bool {
	ctx, span := s.tracer.Start(ctx, "handle_webhook")
	defer span.End()

	if !s.validSignature(rawBody, signature) {
		monitoring.WebhookCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", "invalid_signature")),
		)
		span.SetAttributes(attribute.String("webhook.result", "invalid_signature"))
		s.logger.Warn("Webhook signature invalid, dropping event")
		return false
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		monitoring.WebhookCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", "malformed")),
		)
		s.logger.Warn("Webhook body is not valid JSON", zap.Error(err))
		return false
	}

	span.SetAttributes(attribute.String("webhook.event", event.Event))

	if event.Event != models.ChargeSuccessEvent {
		monitoring.WebhookCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", "ignored")),
		)
		return true
	}

	if _, err := s.VerifyPayment(ctx, event.Data.Reference); err != nil {
		// Acknowledge anyway; the sender cannot fix this by redelivering.
		s.logger.Error("Webhook reconciliation failed",
			zap.String("reference", event.Data.Reference),
			zap.Error(err),
		)
	}

	monitoring.WebhookCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", "processed")),
	)
	return true
}

// validSignature checks the HMAC-SHA512 of the raw body against the
// signature header. The hash must cover the bytes exactly as received;
// re-serializing a parsed body risks a mismatch on key order or
// whitespace.
func (s *PaymentService) validSignature(rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, s.secretKey)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *PaymentService) recordVerification(ctx context.Context, result string) {
	monitoring.VerificationCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}
