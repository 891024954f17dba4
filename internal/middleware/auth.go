// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserIDKey is the context key for user ID.
	UserIDKey ContextKey = "user_id"
	// TenantIDKey is the context key for tenant ID.
	TenantIDKey ContextKey = "tenant_id"
	// TenantKey is the context key for the resolved tenant.
	TenantKey ContextKey = "tenant"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	TenantID        string `json:"tenant_id"`
	TenantSubdomain string `json:"tenant_subdomain"`
}

// TenantResolver looks up tenants during authentication.
type TenantResolver interface {
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
}

// IssueToken signs a JWT for the user scoped to their tenant.
func IssueToken(secret string, user *model.User, tenant *model.Tenant, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID:        tenant.ID,
		TenantSubdomain: tenant.Subdomain,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Auth creates JWT authentication middleware. The tenant named in the token
// is re-resolved on every request so that deactivated tenants lose access
// immediately; a token whose tenant no longer resolves is rejected with 404
// to avoid confirming the tenant ever existed.
func Auth(jwtSecret string, tenants TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			tenant, err := tenants.GetTenantBySubdomain(r.Context(), claims.TenantSubdomain)
			if err != nil || tenant.ID != claims.TenantID {
				http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, TenantIDKey, tenant.ID)
			ctx = context.WithValue(ctx, TenantKey, tenant)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID gets user ID from context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetTenantID gets tenant ID from context.
func GetTenantID(ctx context.Context) string {
	if v := ctx.Value(TenantIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetTenant gets the resolved tenant from context.
func GetTenant(ctx context.Context) *model.Tenant {
	if v := ctx.Value(TenantKey); v != nil {
		return v.(*model.Tenant)
	}
	return nil
}
