package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/educasense/educasense/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// csrfMiddleware implements the double-submit pattern for the JSON API: safe
// requests are issued a token cookie, mutating requests must echo it in the
// X-CSRF-Token header.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token, err := generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", "error", err)
				h.respondError(w, r, http.StatusInternalServerError, "ErrorInternal")
				return
			}
			h.setCSRFCookie(w, token)
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			h.respondError(w, r, http.StatusForbidden, "ErrorCSRF")
			return
		}

		headerToken := r.Header.Get(csrfHeaderName)
		if headerToken == "" {
			slog.Warn("CSRF header missing")
			h.respondError(w, r, http.StatusForbidden, "ErrorCSRF")
			return
		}

		if len(headerToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			h.respondError(w, r, http.StatusForbidden, "ErrorCSRF")
			return
		}

		token, err := generateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token", "error", err)
			h.respondError(w, r, http.StatusInternalServerError, "ErrorInternal")
			return
		}
		h.setCSRFCookie(w, token)

		ctx := model.ContextWithCSRFToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth resolves the session cookie into either a guardian or a child
// in the request context. Missing or expired sessions get a 401; the client
// redirects to its login screen.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.respondError(w, r, http.StatusUnauthorized, "ErrorUnauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.respondError(w, r, http.StatusUnauthorized, "ErrorUnauthorized")
			return
		}
		if authSess == nil {
			h.respondError(w, r, http.StatusUnauthorized, "ErrorUnauthorized")
			return
		}

		ctx := r.Context()
		switch {
		case authSess.GuardianID != "":
			guardian, err := h.store.GetGuardianByID(authSess.GuardianID)
			if err != nil || guardian == nil {
				h.respondError(w, r, http.StatusUnauthorized, "ErrorUnauthorized")
				return
			}
			ctx = model.ContextWithGuardian(ctx, guardian)
		case authSess.ChildID != "":
			child, err := h.store.GetChild(authSess.ChildID)
			if err != nil || child == nil {
				h.respondError(w, r, http.StatusUnauthorized, "ErrorUnauthorized")
				return
			}
			ctx = model.ContextWithChild(ctx, child)
		default:
			h.respondError(w, r, http.StatusUnauthorized, "ErrorUnauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAccount rejects child sessions: the wrapped routes need a guardian
// or teacher account.
func (h *Handler) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if model.GuardianFromContext(r.Context()) == nil {
			h.respondError(w, r, http.StatusForbidden, "ErrorForbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole returns middleware that checks the account has one of the
// allowed roles.
func requireRole(allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guardian := model.GuardianFromContext(r.Context())
			if guardian == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if guardian.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	guardian, err := h.store.GetGuardianByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.storeError(w, r, "get guardian", err)
		return
	}
	if guardian == nil {
		h.respondError(w, r, http.StatusUnauthorized, "ErrorInvalidCredentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(guardian.PasswordHash), []byte(req.Password)); err != nil {
		h.respondError(w, r, http.StatusUnauthorized, "ErrorInvalidCredentials")
		return
	}

	token, err := h.store.CreateGuardianSession(guardian.ID)
	if err != nil {
		h.storeError(w, r, "create auth session", err)
		return
	}

	h.setSessionCookie(w, token, 0)
	h.respondJSON(w, http.StatusOK, guardian)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if strings.TrimSpace(req.Name) == "" || req.Email == "" || len(req.Password) < 6 {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	role := model.RoleGuardian
	if req.Role == string(model.RoleTeacher) {
		role = model.RoleTeacher
	}

	existing, err := h.store.GetGuardianByEmail(req.Email)
	if err != nil {
		h.storeError(w, r, "get guardian", err)
		return
	}
	if existing != nil {
		h.respondError(w, r, http.StatusConflict, "ErrorEmailTaken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.storeError(w, r, "hash password", err)
		return
	}

	guardian := model.Guardian{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Plan:         model.PlanFree,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateGuardian(guardian); err != nil {
		h.storeError(w, r, "create guardian", err)
		return
	}

	token, err := h.store.CreateGuardianSession(guardian.ID)
	if err != nil {
		h.storeError(w, r, "create auth session", err)
		return
	}

	h.setSessionCookie(w, token, 0)
	h.respondJSON(w, http.StatusCreated, guardian)
}

// handleStudentLogin signs a child in with their access code. Matching is
// case-insensitive and exact.
func (h *Handler) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"accessCode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	child, err := h.store.GetChildByAccessCode(req.AccessCode)
	if err != nil {
		h.storeError(w, r, "get child by access code", err)
		return
	}
	if child == nil {
		h.respondError(w, r, http.StatusUnauthorized, "ErrorInvalidAccessCode")
		return
	}

	token, err := h.store.CreateChildSession(child.ID)
	if err != nil {
		h.storeError(w, r, "create auth session", err)
		return
	}

	h.setSessionCookie(w, token, 0)
	h.respondJSON(w, http.StatusOK, child)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}
	h.setSessionCookie(w, "", -1)
	h.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleMe returns the authenticated principal, guardian or child.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if guardian := model.GuardianFromContext(r.Context()); guardian != nil {
		h.respondJSON(w, http.StatusOK, map[string]any{"guardian": guardian})
		return
	}
	child := model.ChildFromContext(r.Context())
	h.respondJSON(w, http.StatusOK, map[string]any{"child": child})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	guardian := model.GuardianFromContext(r.Context())

	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
		Plan   string `json:"plan"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ErrorInvalidInput")
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		guardian.Name = strings.TrimSpace(req.Name)
	}
	if req.Avatar != "" {
		guardian.Avatar = req.Avatar
	}
	if req.Plan == string(model.PlanPremium) || req.Plan == string(model.PlanFree) {
		guardian.Plan = model.Plan(req.Plan)
	}

	if err := h.store.UpdateGuardianProfile(*guardian); err != nil {
		h.storeError(w, r, "update guardian", err)
		return
	}
	h.respondJSON(w, http.StatusOK, guardian)
}
