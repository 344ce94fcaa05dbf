package ai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/solraven/keeper/ai"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("wrong auth header: %q", got)
		}
		w.Write([]byte(`{"text": "hello there"}`))
	}))
	defer srv.Close()
	c := ai.New(srv.URL, "sekrit", "mini")
	got, err := c.Complete(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "hello there" {
		t.Errorf("wrong completion: %q", got)
	}
}

func TestCompleteServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "model overloaded"}`))
	}))
	defer srv.Close()
	c := ai.New(srv.URL, "k", "mini")
	if _, err := c.Complete(context.Background(), "hi"); err == nil {
		t.Error("service error not surfaced")
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := ai.New(srv.URL, "k", "mini")
	if _, err := c.Complete(context.Background(), "hi"); err == nil {
		t.Error("status error not surfaced")
	}
}
