package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

func TestWebSenderPostsPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender, err := NewWebSender(model.JSONMap{"webhook_url": srv.URL})
	if err != nil {
		t.Fatalf("failed to build sender: %v", err)
	}

	err = sender.Send(context.Background(), "visitor-1", "hi there", model.JSONMap{"thread": "42"})
	if err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	if got.ChannelUserID != "visitor-1" || got.Content != "hi there" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Metadata.GetString("thread") != "42" {
		t.Fatalf("expected metadata forwarded, got %+v", got.Metadata)
	}
}

func TestWebSenderNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender, err := NewWebSender(model.JSONMap{"webhook_url": srv.URL})
	if err != nil {
		t.Fatalf("failed to build sender: %v", err)
	}

	if err := sender.Send(context.Background(), "visitor-1", "hi", nil); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestWebSenderRequiresURL(t *testing.T) {
	if _, err := NewWebSender(model.JSONMap{}); err == nil {
		t.Fatal("expected error for missing webhook_url")
	}
}

func TestSMSSenderPostsForm(t *testing.T) {
	var gotTo, gotBody, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok {
			t.Error("expected basic auth")
		}
		gotUser = user
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender, err := NewSMSSender(model.JSONMap{
		"twilio_account_sid": "AC123",
		"twilio_auth_token":  "secret",
		"from_number":        "+15550001111",
	})
	if err != nil {
		t.Fatalf("failed to build sender: %v", err)
	}
	sender.(*SMSSender).baseURL = srv.URL

	if err := sender.Send(context.Background(), "+15552223333", "your order shipped", nil); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	if gotUser != "AC123" || gotTo != "+15552223333" || gotBody != "your order shipped" {
		t.Fatalf("unexpected request: user=%q to=%q body=%q", gotUser, gotTo, gotBody)
	}
}
