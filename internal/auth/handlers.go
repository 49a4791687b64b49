package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffdir/internal/api"
	"staffdir/internal/directory"
	"staffdir/internal/requestctx"
)

type Handler struct {
	Store     *Store
	Directory *directory.Service
	Secret    string
	TokenTTL  time.Duration
}

func NewHandler(store *Store, dir *directory.Service, secret string, tokenTTL time.Duration) *Handler {
	return &Handler{Store: store, Directory: dir, Secret: secret, TokenTTL: tokenTTL}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Get("/auth/me", h.handleMe)
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())

	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "email and password are required", requestID)
		return
	}
	if len(payload.Password) < 8 {
		api.Fail(w, http.StatusBadRequest, "validation_error", "password must be at least 8 characters", requestID)
		return
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to create user", requestID)
		return
	}

	user, err := h.Store.CreateUser(r.Context(), strings.TrimSpace(payload.FirstName), strings.TrimSpace(payload.LastName), payload.Email, hash)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			api.Fail(w, http.StatusConflict, "conflict", "a user with this email already exists", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to create user", requestID)
		return
	}

	h.writeToken(w, user, requestID)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	user, err := h.Store.FindUserByEmail(r.Context(), strings.TrimSpace(payload.Email))
	if err != nil || CheckPassword(user.PasswordHash, payload.Password) != nil {
		// Same answer for unknown email and wrong password.
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", requestID)
		return
	}

	h.writeToken(w, user, requestID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())

	identity, ok := requestctx.GetIdentity(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var employee *directory.Employee
	if emp, err := h.Directory.FindByEmail(r.Context(), identity.Email); err == nil {
		employee = emp
	}

	api.Success(w, map[string]any{
		"identity": identity,
		"employee": employee,
	}, requestID)
}

func (h *Handler) writeToken(w http.ResponseWriter, user *User, requestID string) {
	expiresAt := time.Now().Add(h.TokenTTL)
	token, err := GenerateToken(h.Secret, Claims{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_failed", "failed to issue token", requestID)
		return
	}

	api.Success(w, tokenResponse{
		Token:     token,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		ExpiresAt: expiresAt,
	}, requestID)
}
