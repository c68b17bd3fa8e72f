package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/push"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/validate"
)

type PushHandler struct {
	pushStore *store.PushStore
	settings  *store.SettingsStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, ss *store.SettingsStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, settings: ss, service: svc, logger: logger}
}

// VAPIDKey handles GET /api/push/vapid-key. An empty key means Web Push is
// not configured on this server.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"publicKey": h.service.VAPIDPublicKey(),
		"enabled":   h.service.Enabled(),
	})
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in validate.SubscriptionInput
	if err := decodeJSON(r, "push.subscribe", &in); err != nil {
		writeError(w, h.logger, "push.subscribe", err)
		return
	}
	if err := validate.Struct("push.subscribe", in); err != nil {
		writeError(w, h.logger, "push.subscribe", err)
		return
	}

	sub, err := h.pushStore.CreateSubscription(r.Context(), auth.UserID(r.Context()), in.Endpoint, in.P256dh, in.Auth, in.DeviceName)
	if err != nil {
		writeError(w, h.logger, "push.subscribe", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// List handles GET /api/push/subscriptions
func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "push.list", err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.pushStore.DeleteSubscription(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, h.logger, "push.unsubscribe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPermission handles PUT /api/push/permission, recording what the
// browser reported for notification permission.
func (h *PushHandler) SetPermission(w http.ResponseWriter, r *http.Request) {
	var in validate.PermissionInput
	if err := decodeJSON(r, "push.permission", &in); err != nil {
		writeError(w, h.logger, "push.permission", err)
		return
	}
	if err := validate.Struct("push.permission", in); err != nil {
		writeError(w, h.logger, "push.permission", err)
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)
	if err := h.settings.Set(ctx, userID, model.SettingNotificationPermission, in.Permission); err != nil {
		writeError(w, h.logger, "push.permission", err)
		return
	}
	st, err := h.settings.Get(ctx, userID)
	if err != nil {
		writeError(w, h.logger, "push.permission", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
