package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/stats"
	"github.com/dukerupert/classdesk/internal/store"
)

type StatsHandler struct {
	entries *store.EntryStore
	focus   *store.FocusStore
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

func NewStatsHandler(es *store.EntryStore, fs *store.FocusStore, loc *time.Location, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{entries: es, focus: fs, loc: loc, now: time.Now, logger: logger}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	sessions, err := h.focus.List(ctx, userID, 0)
	if err != nil {
		writeError(w, h.logger, "stats", err)
		return
	}
	entries, err := h.entries.ListEntries(ctx, userID)
	if err != nil {
		writeError(w, h.logger, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(h.now().In(h.loc), sessions, entries))
}
