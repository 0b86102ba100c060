package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"chantierpro-billing/internal/domain"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: msg}})
}

// writeDomainError maps domain sentinels to the HTTP error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoProviderCustomer):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrPaymentsDisabled),
		errors.Is(err, domain.ErrAmountTooSmall):
		writeError(w, http.StatusBadRequest, "state_conflict", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "auth_error", err.Error())
	case errors.Is(err, domain.ErrSignatureInvalid):
		writeError(w, http.StatusBadRequest, "signature_invalid", err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_provider", "payment provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
