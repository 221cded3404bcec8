package sms

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func gatewayFor(url string) ConfigFunc {
	return func() (string, string, string) {
		return url, "test-key", "CommonsHub"
	}
}

func TestSendPostsToGateway(t *testing.T) {
	var got sendPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := New(gatewayFor(srv.URL))
	if err := svc.Send("+15551234567", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != "+15551234567" || got.Body != "hello" || got.Sender != "CommonsHub" {
		t.Fatalf("payload = %+v", got)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("auth header = %q", auth)
	}
}

func TestSendSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"message": "out of credit"})
	}))
	defer srv.Close()

	svc := New(gatewayFor(srv.URL))
	if err := svc.Send("+15551234567", "hello"); err == nil {
		t.Fatal("gateway 402 should surface as an error")
	}
}

func TestSendWithoutGateway(t *testing.T) {
	svc := New(func() (string, string, string) { return "", "", "" })
	if err := svc.Send("+15551234567", "hello"); err == nil {
		t.Fatal("missing gateway url should fail")
	}
}

func TestThrottleSendDropsRepeats(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	svc := New(gatewayFor(srv.URL))
	svc.throttleD = 50 * time.Millisecond

	svc.ThrottleSend("+15551234567", "first")
	svc.ThrottleSend("+15551234567", "suppressed")
	svc.ThrottleSend("+447700900123", "other number")
	if got := hits.Load(); got != 2 {
		t.Fatalf("gateway hit %d times, want 2", got)
	}

	time.Sleep(60 * time.Millisecond)
	svc.ThrottleSend("+15551234567", "after window")
	if got := hits.Load(); got != 3 {
		t.Fatalf("gateway hit %d times after window, want 3", got)
	}
}
