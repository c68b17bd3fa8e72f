package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/gateway"
)

// SavesHandler exposes the write gateway's per-user state.
type SavesHandler struct {
	gw     *gateway.Gateway
	logger *slog.Logger
}

func NewSavesHandler(gw *gateway.Gateway, logger *slog.Logger) *SavesHandler {
	return &SavesHandler{gw: gw, logger: logger}
}

type savesStatus struct {
	Saving      bool             `json:"saving"`
	LastFailure *gateway.Failure `json:"lastFailure"`
}

func (h *SavesHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	st := savesStatus{Saving: h.gw.Saving(userID)}
	if f, ok := h.gw.LastFailure(userID); ok {
		st.LastFailure = &f
	}
	writeJSON(w, http.StatusOK, st)
}

// Retry replays the last failed write. With nothing to replay it answers 404.
func (h *SavesHandler) Retry(w http.ResponseWriter, r *http.Request) {
	res, err := h.gw.Retry(r.Context(), auth.UserID(r.Context()))
	if errors.Is(err, gateway.ErrNothingToRetry) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "nothing_to_retry", Message: "There is no failed save to retry."})
		return
	}
	writeResult(w, h.logger, http.StatusOK, "saves.retry", res)
}
