package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/classdesk/internal/auth"
	"github.com/dukerupert/classdesk/internal/gateway"
	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/store"
	"github.com/dukerupert/classdesk/internal/validate"
)

type TodoHandler struct {
	todos  *store.TodoStore
	gw     *gateway.Gateway
	logger *slog.Logger
}

func NewTodoHandler(ts *store.TodoStore, gw *gateway.Gateway, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: ts, gw: gw, logger: logger}
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todos.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "todo.list", err)
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in validate.TodoInput
	if err := decodeJSON(r, KindTodoCreate, &in); err != nil {
		writeError(w, h.logger, KindTodoCreate, err)
		return
	}
	if err := validate.Struct(KindTodoCreate, in); err != nil {
		writeError(w, h.logger, KindTodoCreate, err)
		return
	}

	todo := model.Todo{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(in.Text),
		CreatedAt: time.Now().UnixMilli(),
	}
	res := h.gw.Execute(r.Context(), gateway.Request{
		Kind:    KindTodoCreate,
		UserID:  auth.UserID(r.Context()),
		Payload: todo,
	})
	writeResult(w, h.logger, http.StatusCreated, KindTodoCreate, res)
}

// Toggle flips the completed flag. The new value is resolved here so the
// write itself is absolute.
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	todo, err := h.todos.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, KindTodoUpdate, err)
		return
	}
	if todo == nil {
		writeError(w, h.logger, KindTodoUpdate, store.ErrNotFound)
		return
	}

	res := h.gw.Execute(r.Context(), gateway.Request{
		Kind:    KindTodoUpdate,
		UserID:  userID,
		Payload: TodoCompletion{ID: todo.ID, Completed: !todo.Completed},
	})
	writeResult(w, h.logger, http.StatusOK, KindTodoUpdate, res)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res := h.gw.Execute(r.Context(), gateway.Request{
		Kind:    KindTodoDelete,
		UserID:  auth.UserID(r.Context()),
		Payload: r.PathValue("id"),
	})
	writeResult(w, h.logger, http.StatusNoContent, KindTodoDelete, res)
}
