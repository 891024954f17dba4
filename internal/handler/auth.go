// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/agent-platform/internal/middleware"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/store"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	store     *store.Store
	jwtSecret string
	jwtTTL    time.Duration
	logger    *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(st *store.Store, jwtSecret string, jwtTTL time.Duration, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		store:     st,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		logger:    log,
	}
}

// RegisterRequest creates a tenant plus its first admin user.
type RegisterRequest struct {
	TenantName      string `json:"tenant_name"`
	TenantSubdomain string `json:"tenant_subdomain"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}

// LoginRequest authenticates an existing user within a tenant.
type LoginRequest struct {
	TenantSubdomain string `json:"tenant_subdomain"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}

// AuthResponse carries the signed token and its subject.
type AuthResponse struct {
	Token  string        `json:"token"`
	User   *model.User   `json:"user"`
	Tenant *model.Tenant `json:"tenant"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	tenant := &model.Tenant{
		Name:      req.TenantName,
		Subdomain: req.TenantSubdomain,
	}
	admin := &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}

	if err := h.store.CreateTenantWithAdmin(r.Context(), tenant, admin); err != nil {
		var verrs model.ValidationErrors
		if errors.As(err, &verrs) {
			writeValidationError(w, verrs)
			return
		}
		// Unique index collisions on subdomain or email land here.
		writeError(w, http.StatusConflict, "tenant or user already exists")
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, admin, tenant, h.jwtTTL)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:  token,
		User:   admin,
		Tenant: tenant,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenant, err := h.store.GetTenantBySubdomain(r.Context(), req.TenantSubdomain)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), tenant.ID, req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user, tenant, h.jwtTTL)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token:  token,
		User:   user,
		Tenant: tenant,
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.store.GetUser(ctx, middleware.GetTenantID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
