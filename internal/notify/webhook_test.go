package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSink_Send(t *testing.T) {
	var payload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %v, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %v, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	if err := sink.Send(context.Background(), "https://www.youtube.com/watch?v=abc"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if payload["content"] != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("content = %q", payload["content"])
	}
}

func TestWebhookSink_Send_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Send(context.Background(), "msg")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Send() error = %v, want ErrRateLimited", err)
	}
}

func TestWebhookSink_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL)
	err := sink.Send(context.Background(), "msg")
	if err == nil {
		t.Fatal("Send() expected error on HTTP 500")
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) {
		t.Errorf("Send() error = %v, a server error is not transient", err)
	}
}
