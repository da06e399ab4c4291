package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("creates client with defaults", func(t *testing.T) {
		c := NewClient()
		if c.httpClient == nil {
			t.Error("expected httpClient to be set")
		}
		if c.logger == nil {
			t.Error("expected logger to be set")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		customHTTP := &http.Client{Timeout: 10 * time.Second}
		c := NewClient(WithHTTPClient(customHTTP))
		if c.httpClient != customHTTP {
			t.Error("expected custom httpClient to be set")
		}
	})
}

func TestRevokeToken(t *testing.T) {
	t.Run("posts token and client id as a form", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
				t.Errorf("Content-Type = %q", ct)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("ParseForm: %v", err)
			}
			if r.PostForm.Get("token") != "access-123" {
				t.Errorf("token = %q", r.PostForm.Get("token"))
			}
			if r.PostForm.Get("client_id") != "client-1" {
				t.Errorf("client_id = %q", r.PostForm.Get("client_id"))
			}
			if r.PostForm.Has("client_secret") {
				t.Error("client_secret must not be sent when not configured")
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := NewClient().RevokeToken(context.Background(), RevokeRequest{
			Endpoint: server.URL,
			Token:    "access-123",
			ClientID: "client-1",
		})
		if err != nil {
			t.Fatalf("RevokeToken() error = %v", err)
		}
	})

	t.Run("returns provider error on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported_token_type","error_description":"nope"}`))
		}))
		defer server.Close()

		err := NewClient().RevokeToken(context.Background(), RevokeRequest{Endpoint: server.URL, Token: "t"})
		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *ProviderError, got %v", err)
		}
		if pe.Code != "unsupported_token_type" || pe.Message() != "nope" {
			t.Errorf("unexpected provider error %+v", pe)
		}
	})

	t.Run("requires endpoint", func(t *testing.T) {
		if err := NewClient().RevokeToken(context.Background(), RevokeRequest{Token: "t"}); err == nil {
			t.Error("expected error for missing endpoint")
		}
	})
}
