package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"diceledger/internal/model"
)

const maxBodyBytes = 1 << 20

var errStoreNotConfigured = errors.New("store not configured")

// writeJSON marshals v and writes it with the given status. Marshal failures become a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable), errors.Is(err, errStoreNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and not echoed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, "internal error")
	case http.StatusServiceUnavailable:
		s.logger.Warn("store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, err.Error())
	default:
		writeError(w, status, err.Error())
	}
}

// ready reports whether a ledger is wired; otherwise it answers 503.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) bool {
	if s.ledger == nil {
		s.fail(w, r, errStoreNotConfigured)
		return false
	}
	return true
}

func poolIDParam(r *http.Request) (uint64, error) {
	raw := r.PathValue("poolId")
	id, err := strconv.ParseUint(raw, 10, 63)
	if err != nil {
		return 0, model.Invalid("poolId", "must be a non-negative integer")
	}
	return id, nil
}
