package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/classdesk/internal/apperr"
	"github.com/dukerupert/classdesk/internal/gateway"
	"github.com/dukerupert/classdesk/internal/store"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and user-facing message of err's kind.
// Server-side failures are logged with their stack.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "That item no longer exists."})
		return
	}

	ae := apperr.From(op, err)
	status := ae.Kind.HTTPStatus()
	if status >= 500 {
		apperr.Log(logger, op, ae)
	}

	body := errorBody{Error: ae.Kind.String(), Message: ae.Kind.Message(), Fields: ae.Fields}
	if ae.Kind == apperr.KindValidation && len(ae.Fields) == 0 {
		body.Message = ae.Err.Error()
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body into v. Malformed input is a validation error.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.New(apperr.KindValidation, op, "invalid JSON")
	}
	return nil
}

// writeResult answers with the gateway result, or its error.
func writeResult(w http.ResponseWriter, logger *slog.Logger, status int, op string, res gateway.Result) {
	if res.Err != nil {
		writeError(w, logger, op, res.Err)
		return
	}
	if res.Value == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, res.Value)
}
