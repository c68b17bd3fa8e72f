package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/model"
)

const SessionCookieName = "classdesk_session"

// SessionLookup resolves a session token. It returns nil for unknown or
// expired tokens.
type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth validates the session cookie and populates AuthContext.
// Requests without a valid session get a 401 JSON error. A failing lookup
// is logged and answered with a server error so the client does not sign
// the user out.
func RequireAuth(sessions SessionLookup, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				lookupFailed(w, logger, err)
				return
			}
			if sess == nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(r.Context(), sess.UserID)
			if err != nil {
				lookupFailed(w, logger, err)
				return
			}
			if user == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				Email:     user.Email,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func lookupFailed(w http.ResponseWriter, logger *slog.Logger, err error) {
	ae := apperr.From("auth.session", err)
	apperr.Log(logger, "auth.session", ae)

	kind := ae.Kind
	if kind.HTTPStatus() < http.StatusInternalServerError {
		kind = apperr.KindStore
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	json.NewEncoder(w).Encode(map[string]string{
		"error":   kind.String(),
		"message": kind.Message(),
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "auth_error",
		"message": "Please sign in to continue.",
	})
}
