package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitialize_Success(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://pay.example/abc",
				"access_code": "ac_1",
				"reference": "ref_123"
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", zap.NewNop())

	result, err := c.Initialize(context.Background(), 5000, "a@b.com", "http://localhost:8081/webhook")
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/abc", result.AuthorizationURL)
	require.Equal(t, "ref_123", result.Reference)

	require.Equal(t, "Bearer sk_test_secret", gotAuth)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "5000", gotBody["amount"])
	require.Equal(t, "a@b.com", gotBody["email"])
	require.Equal(t, "http://localhost:8081/webhook", gotBody["callback_url"])
}

func TestVerify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transaction/verify/ref_123", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "success",
				"reference": "ref_123",
				"amount": 5000,
				"customer": {"email": "a@b.com"}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", zap.NewNop())

	result, err := c.Verify(context.Background(), "ref_123")
	require.NoError(t, err)
	require.Equal(t, "success", result.Status)
	require.Equal(t, int64(5000), result.Amount)
	require.Equal(t, "a@b.com", result.Email)
	require.Equal(t, "ref_123", result.Reference)
}

func TestVerify_UpstreamErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", zap.NewNop())

	_, err := c.Verify(context.Background(), "bogus")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	require.Equal(t, "Transaction reference not found", gwErr.Message)
}

func TestVerify_UpstreamErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", zap.NewNop())

	_, err := c.Verify(context.Background(), "ref_123")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	require.Equal(t, http.StatusText(http.StatusBadGateway), gwErr.Message)
}

func TestVerify_EmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", zap.NewNop())

	_, err := c.Verify(context.Background(), "ref_123")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	require.Equal(t, "Something went wrong with this request", gwErr.Message)
}

func TestInitialize_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "sk_test_secret", zap.NewNop())

	_, err := c.Initialize(context.Background(), 5000, "a@b.com", "http://localhost:8081/webhook")
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
}
