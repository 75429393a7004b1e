package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/validation"
)

const maxBodyBytes = 1 << 20

// envelope is the response body shape the web client reads: "ok" plus
// named payload fields.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["ok"] = true
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message, Details: details})
}

// deny is the rejection writer handed to the auth guards.
func deny(w http.ResponseWriter, _ *http.Request, status int) {
	if status == http.StatusUnauthorized {
		writeError(w, status, "unauthenticated", "please log in")
		return
	}
	writeError(w, status, "forbidden", "you are not allowed to do that")
}

// writeServiceError maps service errors onto HTTP. Authorization failures
// share one generic message so they reveal nothing about the target.
func writeServiceError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var (
		verr     *validation.Error
		stateErr *appointment.InvalidStateError
	)

	switch {
	case errors.As(err, &verr):
		writeErrorDetails(w, http.StatusBadRequest, "validation_failed", "some fields are missing or invalid", verr.Fields)

	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())

	case errors.Is(err, appointment.ErrUnauthorized),
		errors.Is(err, identity.ErrForbidden),
		errors.Is(err, directory.ErrNotNurse):
		writeError(w, http.StatusForbidden, "forbidden", "you are not allowed to do that")

	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, directory.ErrListingNotFound):
		writeError(w, http.StatusNotFound, "nurse_not_found", "nurse not found")
	case errors.Is(err, identity.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())

	case errors.As(err, &stateErr):
		writeErrorDetails(w, http.StatusConflict, "invalid_state", err.Error(), InvalidStateDetails{
			Action:        string(stateErr.Action),
			CurrentStatus: string(stateErr.Current),
		})
	case errors.Is(err, appointment.ErrAlreadyRated):
		writeError(w, http.StatusConflict, "already_rated", err.Error())
	case errors.Is(err, appointment.ErrRatingBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusConflict, "rating_in_progress", err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())

	default:
		log.Error().Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
