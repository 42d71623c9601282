package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient() *Client {
	return NewClient(ClientOptions{
		Timeout:         time.Second,
		RequestsPerSec:  100,
		MaxRetries:      3,
		MaxRetryTimeout: time.Second,
		InitialInterval: time.Millisecond,
	})
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := newTestClient().DoRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("DoRequest() error = %v", err)
	}
	resp.Body.Close()

	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestDoRequestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := newTestClient().DoRequest(context.Background(), req)
	if err == nil {
		t.Fatal("DoRequest() expected error")
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode() = %d, want 404 (err %v)", StatusCode(err), err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestDoRequestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := newTestClient().DoRequest(context.Background(), req)
	if StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("DoRequest() error = %v, want 502 status error", err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("server called %d times, want 4 (1 + 3 retries)", got)
	}
}

func TestDoRequestCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if _, err := newTestClient().DoRequest(ctx, req); err == nil {
		t.Error("DoRequest() expected error for cancelled context")
	}
}

func TestHTTPStatusErrorRetryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		if got := (&HTTPStatusError{StatusCode: tt.code}).Retryable(); got != tt.want {
			t.Errorf("Retryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestNewClientRate(t *testing.T) {
	tests := []struct {
		rps  int
		want rate.Limit
	}{
		{0, 5},
		{5, 5},
		{20, 20},
	}
	for _, tt := range tests {
		c := NewClient(ClientOptions{RequestsPerSec: tt.rps})
		if got := c.Limiter.Limit(); got != tt.want {
			t.Errorf("RequestsPerSec=%d: limit = %v, want %v", tt.rps, got, tt.want)
		}
		if c.Limiter.Burst() != 1 {
			t.Errorf("RequestsPerSec=%d: burst = %d, want 1", tt.rps, c.Limiter.Burst())
		}
	}
}
