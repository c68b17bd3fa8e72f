package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/gateway"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/timer"
	"github.com/dukerupert/classdesk/internal/validate"
	"github.com/dukerupert/classdesk/internal/websocket"
)

type AccountHandler struct {
	accounts *store.AccountStore
	timers   *timer.Manager
	gw       *gateway.Gateway
	pub      Publisher
	logger   *slog.Logger
}

func NewAccountHandler(as *store.AccountStore, tm *timer.Manager, gw *gateway.Gateway, pub Publisher, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: as, timers: tm, gw: gw, pub: pub, logger: logger}
}

// Reset deletes the user's entries, todos and focus history once the body
// carries the confirmation phrase. The account itself and its settings stay.
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var in validate.ResetInput
	if err := decodeJSON(r, "account.reset", &in); err != nil {
		writeError(w, h.logger, "account.reset", err)
		return
	}
	if err := validate.Struct("account.reset", in); err != nil {
		writeError(w, h.logger, "account.reset", err)
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)
	if err := h.accounts.Reset(ctx, userID); err != nil {
		writeError(w, h.logger, "account.reset", err)
		return
	}
	h.timers.Remove(userID)
	h.gw.Forget(userID)
	h.logger.Info("account data reset", "user_id", userID)

	h.pub.Publish(userID, websocket.NewMessage("account", "reset", "", nil))
	w.WriteHeader(http.StatusNoContent)
}
