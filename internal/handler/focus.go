package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/timer"
	"github.com/dukerupert/classdesk/internal/validate"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type FocusHandler struct {
	timers *timer.Manager
	focus  *store.FocusStore
	logger *slog.Logger
}

func NewFocusHandler(tm *timer.Manager, fs *store.FocusStore, logger *slog.Logger) *FocusHandler {
	return &FocusHandler{timers: tm, focus: fs, logger: logger}
}

func (h *FocusHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.timers.State(auth.UserID(r.Context())))
}

func (h *FocusHandler) Start(w http.ResponseWriter, r *http.Request) {
	st, err := h.timers.Start(auth.UserID(r.Context()))
	h.respond(w, st, err)
}

func (h *FocusHandler) Pause(w http.ResponseWriter, r *http.Request) {
	st, err := h.timers.Pause(auth.UserID(r.Context()))
	h.respond(w, st, err)
}

func (h *FocusHandler) Reset(w http.ResponseWriter, r *http.Request) {
	st, err := h.timers.Reset(auth.UserID(r.Context()))
	h.respond(w, st, err)
}

// ChangeMode switches modes. A running or partly used timer needs
// "confirmed": true, otherwise the answer is 409 and nothing changes.
func (h *FocusHandler) ChangeMode(w http.ResponseWriter, r *http.Request) {
	var in validate.ModeInput
	if err := decodeJSON(r, "focus.mode", &in); err != nil {
		writeError(w, h.logger, "focus.mode", err)
		return
	}
	if err := validate.Struct("focus.mode", in); err != nil {
		writeError(w, h.logger, "focus.mode", err)
		return
	}
	mode, err := timer.ParseMode(in.Mode)
	if err != nil {
		h.respond(w, timer.State{}, err)
		return
	}
	st, err := h.timers.ChangeMode(auth.UserID(r.Context()), mode, in.Confirmed)
	h.respond(w, st, err)
}

func (h *FocusHandler) SetCustom(w http.ResponseWriter, r *http.Request) {
	var in validate.CustomDurationInput
	if err := decodeJSON(r, "focus.custom", &in); err != nil {
		writeError(w, h.logger, "focus.custom", err)
		return
	}
	if err := validate.Struct("focus.custom", in); err != nil {
		writeError(w, h.logger, "focus.custom", err)
		return
	}
	st, err := h.timers.SetCustomDuration(auth.UserID(r.Context()), in.Minutes)
	h.respond(w, st, err)
}

func (h *FocusHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, h.logger, "focus.history", apperr.New(apperr.KindValidation, "focus.history", "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	sessions, err := h.focus.List(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		writeError(w, h.logger, "focus.history", err)
		return
	}
	if sessions == nil {
		sessions = []model.FocusSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *FocusHandler) respond(w http.ResponseWriter, st timer.State, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, timer.ErrConfirmationRequired):
		writeJSON(w, http.StatusConflict, errorBody{Error: "confirmation_required", Message: "Changing mode will reset the current timer."})
	case errors.Is(err, timer.ErrNothingRemaining), errors.Is(err, timer.ErrNotRunning):
		writeJSON(w, http.StatusConflict, errorBody{Error: "invalid_state", Message: err.Error()})
	default:
		writeError(w, h.logger, "focus", apperr.Wrap(apperr.KindValidation, "focus", err))
	}
}
