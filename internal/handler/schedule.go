package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/feed"
	"github.com/dukerupert/classdesk/internal/schedule"
	"github.com/dukerupert/classdesk/internal/store"
)

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 31
)

// ScheduleHandler answers timetable questions in the server's time zone.
type ScheduleHandler struct {
	entries *store.EntryStore
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

func NewScheduleHandler(es *store.EntryStore, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{entries: es, loc: loc, now: time.Now, logger: logger}
}

func (h *ScheduleHandler) clock() time.Time {
	return h.now().In(h.loc)
}

func (h *ScheduleHandler) Status(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.ListEntries(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "schedule.status", err)
		return
	}
	writeJSON(w, http.StatusOK, schedule.Evaluate(h.clock(), entries))
}

// Upcoming lists dated occurrences for the next ?days= days (default 7).
func (h *ScheduleHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days := defaultUpcomingDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxUpcomingDays {
			writeError(w, h.logger, "schedule.upcoming", apperr.New(apperr.KindValidation, "schedule.upcoming", "days must be between 1 and 31"))
			return
		}
		days = n
	}

	entries, err := h.entries.ListEntries(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "schedule.upcoming", err)
		return
	}
	now := h.clock()
	occ := schedule.Upcoming(entries, now, now.AddDate(0, 0, days))
	if occ == nil {
		occ = []schedule.Occurrence{}
	}
	writeJSON(w, http.StatusOK, occ)
}

func (h *ScheduleHandler) ICS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.entries.ListEntries(ctx, auth.UserID(ctx))
	if err != nil {
		writeError(w, h.logger, "schedule.ics", err)
		return
	}

	body := feed.Render("Class timetable", entries, h.clock())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timetable.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
