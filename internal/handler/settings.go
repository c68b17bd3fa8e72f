package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/validate"
	"github.com/dukerupert/classdesk/internal/websocket"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	pub      Publisher
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, pub Publisher, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, pub: pub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "settings.get", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Update writes only the fields present in the body.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in validate.SettingsInput
	if err := decodeJSON(r, "settings.update", &in); err != nil {
		writeError(w, h.logger, "settings.update", err)
		return
	}
	if err := validate.Struct("settings.update", in); err != nil {
		writeError(w, h.logger, "settings.update", err)
		return
	}

	kv := make(map[string]string)
	if in.Theme != nil {
		kv[model.SettingTheme] = *in.Theme
	}
	if in.NotificationsEnabled != nil {
		kv[model.SettingNotificationsEnabled] = strconv.FormatBool(*in.NotificationsEnabled)
	}
	if in.OnboardingSeen != nil {
		kv[model.SettingOnboardingSeen] = strconv.FormatBool(*in.OnboardingSeen)
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)
	if len(kv) > 0 {
		if err := h.settings.SetMany(ctx, userID, kv); err != nil {
			writeError(w, h.logger, "settings.update", err)
			return
		}
	}

	st, err := h.settings.Get(ctx, userID)
	if err != nil {
		writeError(w, h.logger, "settings.update", err)
		return
	}
	h.pub.Publish(userID, websocket.NewMessage("settings", "updated", "", st))
	writeJSON(w, http.StatusOK, st)
}
