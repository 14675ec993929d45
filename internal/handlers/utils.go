package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/scoresheet/internal/game"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string        `json:"error"`
	Reasons []game.Reason `json:"reasons,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, reasons []game.Reason) {
	writeJSON(w, status, errorResponse{Error: msg, Reasons: reasons})
}

// writeGameError maps a session error onto an HTTP status.
func writeGameError(w http.ResponseWriter, err error) {
	var verr *game.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusConflict, err.Error(), verr.Reasons)
		return
	}
	writeError(w, statusFor(err), err.Error(), nil)
}

func statusFor(err error) int {
	var rangeErr *game.FieldRangeError
	switch {
	case errors.As(err, &rangeErr),
		errors.Is(err, game.ErrInvalidRosterSize),
		errors.Is(err, game.ErrDuplicateName),
		errors.Is(err, game.ErrEmptyName),
		errors.Is(err, game.ErrIndexOutOfRange),
		errors.Is(err, game.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrRoundClosed),
		errors.Is(err, game.ErrRoundStillOpen),
		errors.Is(err, game.ErrMaxRoundsExceeded),
		errors.Is(err, game.ErrNotInProgress),
		errors.Is(err, game.ErrAlreadyStarted),
		errors.Is(err, game.ErrBidsIncomplete):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func warningText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
