package models

import "time"

// Payment is a verified transaction persisted by the store. Rows are
// append-only: a payment is written once, when verification succeeds.
type Payment struct {
	ID             string    `json:"id"`
	Amount         int64     `json:"amount"`
	Email          string    `json:"email"`
	TransactionRef string    `json:"transaction_ref"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InitPaymentRequest is the body of POST /init-payment. Amount is in the
// currency's minor unit, as Paystack expects.
type InitPaymentRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Email  string `json:"email" binding:"required,email"`
}

// InitPaymentResponse carries the checkout URL back to the client
type InitPaymentResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// WebhookEvent is the portion of a Paystack event payload the service
// cares about. The raw body is still what gets signature-checked.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// ChargeSuccessEvent is the event type that triggers reconciliation
const ChargeSuccessEvent = "charge.success"
