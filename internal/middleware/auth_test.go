package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

type fakeTenantResolver struct {
	tenants map[string]*model.Tenant
}

func (r *fakeTenantResolver) GetTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	if t, ok := r.tenants[subdomain]; ok {
		return t, nil
	}
	return nil, errors.New("not found")
}

func testResolver() *fakeTenantResolver {
	return &fakeTenantResolver{tenants: map[string]*model.Tenant{
		"acme": {ID: "tenant-1", Subdomain: "acme", Active: true},
	}}
}

func authedRequest(t *testing.T, secret string, user *model.User, tenant *model.Tenant) *http.Request {
	t.Helper()
	token, err := IssueToken(secret, user, tenant, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthAcceptsValidToken(t *testing.T) {
	const secret = "test-secret"
	resolver := testResolver()
	tenant := resolver.tenants["acme"]
	user := &model.User{ID: "user-1"}

	var gotTenantID, gotUserID string
	handler := Auth(secret, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenantID = GetTenantID(r.Context())
		gotUserID = GetUserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, secret, user, tenant))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotTenantID != "tenant-1" || gotUserID != "user-1" {
		t.Fatalf("expected pinned identity, got tenant=%q user=%q", gotTenantID, gotUserID)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth("secret", testResolver())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	resolver := testResolver()
	tenant := resolver.tenants["acme"]
	user := &model.User{ID: "user-1"}

	handler := Auth("right-secret", resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, "wrong-secret", user, tenant))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsDeactivatedTenant(t *testing.T) {
	const secret = "test-secret"
	gone := &model.Tenant{ID: "tenant-gone", Subdomain: "gone"}
	user := &model.User{ID: "user-1"}

	handler := Auth(secret, testResolver())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, secret, user, gone))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unresolvable tenant, got %d", rec.Code)
	}
}

func TestAuthRejectsTenantIDMismatch(t *testing.T) {
	const secret = "test-secret"
	resolver := testResolver()
	// Token claims the acme subdomain but a different tenant ID.
	forged := &model.Tenant{ID: "tenant-other", Subdomain: "acme"}
	user := &model.User{ID: "user-1"}

	handler := Auth(secret, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, secret, user, forged))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for tenant mismatch, got %d", rec.Code)
	}
}

func TestValidateMessageContent(t *testing.T) {
	if err := ValidateMessageContent("hello"); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := ValidateMessageContent("   "); err == nil {
		t.Fatal("expected error for whitespace-only content")
	}
	if err := ValidateMessageContent(string(make([]byte, 100001))); err == nil {
		t.Fatal("expected error for oversized content")
	}
	if err := ValidateMessageContent("bad \xff utf8"); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}
