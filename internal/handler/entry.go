package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/gateway"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/validate"
)

type EntryHandler struct {
	entries *store.EntryStore
	gw      *gateway.Gateway
	logger  *slog.Logger
}

func NewEntryHandler(es *store.EntryStore, gw *gateway.Gateway, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{entries: es, gw: gw, logger: logger}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.ListEntries(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "entry.list", err)
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Create validates the input and saves it under a fresh ID, so a retried
// request overwrites rather than duplicates.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in validate.EntryInput
	if err := decodeJSON(r, KindEntryCreate, &in); err != nil {
		writeError(w, h.logger, KindEntryCreate, err)
		return
	}
	if err := validate.Struct(KindEntryCreate, in); err != nil {
		writeError(w, h.logger, KindEntryCreate, err)
		return
	}

	e := model.Entry{ID: uuid.NewString()}
	in.Apply(&e)

	res := h.gw.Execute(r.Context(), gateway.Request{
		Kind:    KindEntryCreate,
		UserID:  auth.UserID(r.Context()),
		Payload: e,
	})
	writeResult(w, h.logger, http.StatusCreated, KindEntryCreate, res)
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in validate.EntryInput
	if err := decodeJSON(r, KindEntryUpdate, &in); err != nil {
		writeError(w, h.logger, KindEntryUpdate, err)
		return
	}
	if err := validate.Struct(KindEntryUpdate, in); err != nil {
		writeError(w, h.logger, KindEntryUpdate, err)
		return
	}

	e := model.Entry{ID: id}
	in.Apply(&e)

	res := h.gw.Execute(r.Context(), gateway.Request{
		Kind:    KindEntryUpdate,
		UserID:  auth.UserID(r.Context()),
		Payload: e,
	})
	writeResult(w, h.logger, http.StatusOK, KindEntryUpdate, res)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res := h.gw.Execute(r.Context(), gateway.Request{
		Kind:    KindEntryDelete,
		UserID:  auth.UserID(r.Context()),
		Payload: r.PathValue("id"),
	})
	writeResult(w, h.logger, http.StatusNoContent, KindEntryDelete, res)
}
