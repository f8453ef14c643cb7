package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL:        srv.URL,
		IntentModel:    "acme/intent",
		SentimentModel: "acme/sentiment",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClassifyIntentFlatResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/acme/intent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"label":"Book","score":0.93},{"label":"Cancel","score":0.04}]`))
	})
	res := c.ClassifyIntent(context.Background(), "I want to book")
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Label != "book" {
		t.Errorf("label not lowercased top choice: got %q", res.Label)
	}
}

func TestClassifySentimentNestedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[{"label":"Positive","score":0.88},{"label":"Negative","score":0.12}]]`))
	})
	res := c.ClassifySentiment(context.Background(), "great, thanks!")
	if !res.OK() || res.Label != "positive" {
		t.Fatalf("got %+v", res)
	}
}

func TestClassifyModelErrorPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model is loading"}`))
	})
	res := c.ClassifyIntent(context.Background(), "hello")
	if res.OK() {
		t.Fatal("expected failure result")
	}
}

func TestClassifyNon200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	res := c.ClassifyIntent(context.Background(), "hello")
	if res.OK() {
		t.Fatal("expected failure result")
	}
}

func TestClassifyUnreachable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	// Cancelled context simulates a timed-out call.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.ClassifyIntent(ctx, "hello")
	if res.OK() {
		t.Fatal("expected failure result")
	}
}

func TestNewRequiresModels(t *testing.T) {
	if _, err := New(Config{IntentModel: "only/intent"}); err == nil {
		t.Fatal("expected error for missing sentiment model")
	}
}
