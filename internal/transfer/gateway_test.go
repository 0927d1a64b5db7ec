package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"paywallet/internal/escrow"
	"paywallet/pkg/logging"
)

func TestGatewayExecutorTransfer(t *testing.T) {
	var gotAuth string
	var gotReq transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(transferResponse{Success: true})
	}))
	defer srv.Close()

	exec := NewGatewayExecutor(srv.URL, "svc-token", logging.NewLogger())
	err := exec.Transfer(context.Background(), 5, "0xalice", 1000, "USDC")
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if gotAuth != "Bearer svc-token" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotReq.PayrollID != 5 || gotReq.Recipient != "0xalice" || gotReq.Amount != 1000 || gotReq.Asset != "USDC" {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
}

func TestGatewayExecutorInsufficientFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(transferResponse{
			Success: false,
			Code:    "insufficient_funds",
			Error:   "gateway balance too low",
		})
	}))
	defer srv.Close()

	exec := NewGatewayExecutor(srv.URL, "svc-token", logging.NewLogger())
	err := exec.Transfer(context.Background(), 5, "0xalice", 1000, "USDC")
	if !errors.Is(err, escrow.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestGatewayExecutorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(transferResponse{Success: false, Error: "boom"})
	}))
	defer srv.Close()

	exec := NewGatewayExecutor(srv.URL, "svc-token", logging.NewLogger())
	err := exec.Transfer(context.Background(), 5, "0xalice", 1000, "USDC")
	if err == nil {
		t.Fatal("expected error for server failure")
	}
	if errors.Is(err, escrow.ErrInsufficientBalance) {
		t.Fatal("generic failure must not map to ErrInsufficientBalance")
	}
}

func TestGatewayExecutorRetriesTransientFailure(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(transferResponse{Success: true})
	}))
	defer srv.Close()

	exec := NewGatewayExecutor(srv.URL, "svc-token", logging.NewLogger())
	err := exec.Transfer(context.Background(), 5, "0xalice", 1000, "USDC")
	if err != nil {
		t.Fatalf("Transfer failed despite retry: %v", err)
	}
	if requests != 2 {
		t.Errorf("expected 2 requests (one retry), got %d", requests)
	}
}

func TestGatewayExecutorDoesNotRetryRejection(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(transferResponse{
			Success: false,
			Code:    "insufficient_funds",
		})
	}))
	defer srv.Close()

	exec := NewGatewayExecutor(srv.URL, "svc-token", logging.NewLogger())
	err := exec.Transfer(context.Background(), 5, "0xalice", 1000, "USDC")
	if !errors.Is(err, escrow.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if requests != 1 {
		t.Errorf("gateway rejection must not be replayed, got %d requests", requests)
	}
}
