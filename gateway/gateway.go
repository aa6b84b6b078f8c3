package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/ibogihq/payments-service/monitoring"
)

const fallbackMessage = "Temporary server error, please try again later"

// Error is a normalized failure from the Paystack API. StatusCode is the
// upstream HTTP status when one was received, else 500.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("paystack: %s (status %d)", e.Message, e.StatusCode)
}

// InitResult is the outcome of a transaction initialization
type InitResult struct {
	AuthorizationURL string
	Reference        string
}

// VerifyResult is the outcome of a transaction verification. Amount is in
// the currency's minor unit.
type VerifyResult struct {
	Status    string
	Message   string
	Amount    int64
	Email     string
	Reference string
}

// Client issues authenticated requests against the Paystack REST API.
// It holds no state beyond its configuration.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Paystack API client
func NewClient(baseURL, secretKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secretKey,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		logger: logger,
	}
}

type initRequest struct {
	Amount      string `json:"amount"` // Paystack expects the minor-unit amount as a string
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url"`
}

type initResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Initialize creates a transaction and returns the hosted checkout URL
// together with the reference Paystack assigned to it.
func (c *Client) Initialize(ctx context.Context, amount int64, email, callbackURL string) (*InitResult, error) {
	body, err := json.Marshal(initRequest{
		Amount:      strconv.FormatInt(amount, 10),
		Email:       email,
		CallbackURL: callbackURL,
	})
	if err != nil {
		return nil, &Error{Message: err.Error(), StatusCode: http.StatusInternalServerError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: err.Error(), StatusCode: http.StatusInternalServerError}
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	var parsed initResponse
	if err := c.do(ctx, req, "transaction/initialize", &parsed); err != nil {
		return nil, err
	}
	if parsed.Data == nil {
		return nil, &Error{Message: "Something went wrong with this request", StatusCode: http.StatusBadRequest}
	}

	return &InitResult{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
	}, nil
}

// Verify fetches the gateway-side status of a transaction by reference
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, &Error{Message: err.Error(), StatusCode: http.StatusInternalServerError}
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	var parsed verifyResponse
	if err := c.do(ctx, req, "transaction/verify", &parsed); err != nil {
		return nil, err
	}
	if parsed.Data == nil {
		return nil, &Error{Message: "Something went wrong with this request", StatusCode: http.StatusBadRequest}
	}

	return &VerifyResult{
		Status:    parsed.Data.Status,
		Message:   parsed.Message,
		Amount:    parsed.Data.Amount,
		Email:     parsed.Data.Customer.Email,
		Reference: parsed.Data.Reference,
	}, nil
}

// do executes the request and decodes a successful response into out,
// normalizing transport errors, non-2xx responses and empty bodies into
// *Error values.
func (c *Client) do(ctx context.Context, req *http.Request, route string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		monitoring.GatewayCallDuration.Record(ctx, duration,
			metric.WithAttributes(
				attribute.String("route", route),
				attribute.String("status", "error"),
			),
		)
		c.logger.Error("Paystack request failed",
			zap.String("route", route),
			zap.Error(err),
		)
		return &Error{Message: err.Error(), StatusCode: http.StatusInternalServerError}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Message: err.Error(), StatusCode: http.StatusInternalServerError}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		monitoring.GatewayCallDuration.Record(ctx, duration,
			metric.WithAttributes(
				attribute.String("route", route),
				attribute.String("status", "failed"),
			),
		)

		var upstream errorResponse
		_ = json.Unmarshal(body, &upstream)

		message := upstream.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		if message == "" {
			message = fallbackMessage
		}

		c.logger.Error("Paystack returned an error",
			zap.String("route", route),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", message),
		)
		return &Error{Message: message, StatusCode: resp.StatusCode}
	}

	monitoring.GatewayCallDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("status", "success"),
		),
	)

	if len(body) == 0 {
		return &Error{Message: "Something went wrong with this request", StatusCode: http.StatusBadRequest}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Message: err.Error(), StatusCode: http.StatusBadRequest}
	}
	return nil
}
