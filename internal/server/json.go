package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/adamwahada/WorldMapQuiz/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps a session operation error to its HTTP status.
// Untagged errors are logged and reported as internal without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var qe *quiz.Error
	if !errors.As(err, &qe) {
		if logger != nil {
			logger.Error("request failed", "path", r.URL.Path, "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Code:  "internal",
			Kind:  string(quiz.KindInternal),
		})
		return
	}
	if qe.Kind == quiz.KindInternal && logger != nil {
		logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, statusFor(qe), ErrorResponse{Error: qe.Msg, Code: qe.Code, Kind: string(qe.Kind)})
}

func statusFor(e *quiz.Error) int {
	if e == quiz.ErrCreationQuota {
		return http.StatusTooManyRequests
	}
	switch e.Kind {
	case quiz.KindValidation:
		return http.StatusBadRequest
	case quiz.KindAuthorization:
		return http.StatusForbidden
	case quiz.KindNotFound:
		return http.StatusNotFound
	case quiz.KindCapacity, quiz.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
