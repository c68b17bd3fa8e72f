package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/middleware"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/validate"
)

type AuthHandler struct {
	users        *store.UserStore
	sessions     *store.SessionStore
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, sessions: ss, cookieSecure: cookieSecure, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in validate.CredentialsInput
	if err := decodeJSON(r, "auth.register", &in); err != nil {
		writeError(w, h.logger, "auth.register", err)
		return
	}
	if err := validate.Struct("auth.register", in); err != nil {
		writeError(w, h.logger, "auth.register", err)
		return
	}

	existing, err := h.users.GetByEmail(r.Context(), in.Email)
	if err != nil {
		writeError(w, h.logger, "auth.register", err)
		return
	}
	if existing != nil {
		writeError(w, h.logger, "auth.register", apperr.Validation("auth.register",
			apperr.FieldError{Field: "email", Message: "email is already registered"}))
		return
	}

	user, err := h.users.Create(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, h.logger, "auth.register", err)
		return
	}
	if err := h.startSession(w, r, user); err != nil {
		writeError(w, h.logger, "auth.register", err)
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in validate.CredentialsInput
	if err := decodeJSON(r, "auth.login", &in); err != nil {
		writeError(w, h.logger, "auth.login", err)
		return
	}
	if err := validate.Struct("auth.login", in); err != nil {
		writeError(w, h.logger, "auth.login", err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), in.Email, in.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: apperr.KindAuth.String(), Message: "Incorrect email or password."})
		return
	}
	if err != nil {
		writeError(w, h.logger, "auth.login", err)
		return
	}
	if err := h.startSession(w, r, user); err != nil {
		writeError(w, h.logger, "auth.login", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionID(r.Context()); id != "" {
		if err := h.sessions.Delete(r.Context(), id); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "auth.me", err)
		return
	}
	if user == nil {
		writeError(w, h.logger, "auth.me", store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) error {
	sess, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(store.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
