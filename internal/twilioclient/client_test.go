package twilioclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL:    srv.URL,
		AccountSID: "AC0000000000000000000000000000test",
		AuthToken:  "secret",
		FromNumber: "+15550001111",
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCreateCall(t *testing.T) {
	var gotAuthUser, gotTo, gotURL string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || pass != "secret" {
			t.Error("missing basic auth")
		}
		gotAuthUser = user
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotURL = r.PostFormValue("Url")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA123","to":"+15551230001","from":"+15550001111","status":"queued"}`))
	}), 0)

	resp, err := c.CreateCall(context.Background(), CallRequest{
		To:       "+15551230001",
		TwiMLURL: "https://example.com/twilio/reminder-webhook",
	})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}
	if resp.SID != "CA123" || resp.Status != "queued" {
		t.Fatalf("resp = %+v", resp)
	}
	if gotAuthUser != "AC0000000000000000000000000000test" {
		t.Errorf("auth user = %q", gotAuthUser)
	}
	if gotTo != "+15551230001" || gotURL != "https://example.com/twilio/reminder-webhook" {
		t.Errorf("form To=%q Url=%q", gotTo, gotURL)
	}
}

func TestCreateCallValidation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	}), 0)

	if _, err := c.CreateCall(context.Background(), CallRequest{TwiMLURL: "https://x"}); err == nil {
		t.Error("expected error for missing destination")
	}
	if _, err := c.CreateCall(context.Background(), CallRequest{To: "+15551230001"}); err == nil {
		t.Error("expected error for missing TwiML URL")
	}
}

func TestCreateCallRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"sid":"CA456","status":"queued"}`))
	}), 2)

	resp, err := c.CreateCall(context.Background(), CallRequest{
		To:       "+15551230001",
		TwiMLURL: "https://example.com/r",
	})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}
	if resp.SID != "CA456" {
		t.Fatalf("resp = %+v", resp)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestCreateCallDoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}), 3)

	_, err := c.CreateCall(context.Background(), CallRequest{
		To:       "bogus",
		TwiMLURL: "https://example.com/r",
	})
	if err == nil {
		t.Fatal("expected api error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Code != 21211 {
		t.Fatalf("api error = %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{AuthToken: "x"}); err == nil {
		t.Error("expected error for missing account SID")
	}
	if _, err := New(Config{AccountSID: "AC1"}); err == nil {
		t.Error("expected error for missing auth token")
	}
}
