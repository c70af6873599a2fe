package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/neighbornudge/neighbornudge/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeLedgerError maps ledger errors onto HTTP status codes: validation
// failures are 400, missing tasks 404, state conflicts 409, anything else 500.
func writeLedgerError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
	case errors.Is(err, ledger.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
	case errors.Is(err, ledger.ErrSelfClaim):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "proposer cannot claim their own task"})
	case errors.Is(err, ledger.ErrTaskNotOpen):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is not open"})
	case errors.Is(err, ledger.ErrTaskCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "task is already completed"})
	default:
		logger.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
