package server

import (
	"encoding/json"
	"net/http"

	"github.com/betbot/transferdesk/internal/session"
)

type errorResponse struct {
	Error string       `json:"error"`
	Kind  session.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		serverLog.Warnf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeSessionError maps a session error kind to an HTTP status.
func writeSessionError(w http.ResponseWriter, err error) {
	kind := session.KindOf(err)
	writeJSON(w, statusForKind(kind), errorResponse{Error: err.Error(), Kind: kind})
}

func statusForKind(kind session.Kind) int {
	switch kind {
	case session.KindSubmissionInFlight:
		return http.StatusConflict
	case session.KindInvalidDraft, session.KindNotConnected:
		return http.StatusBadRequest
	case session.KindProviderRejected:
		return http.StatusForbidden
	case session.KindRPCFailure, session.KindMalformedRecord:
		return http.StatusBadGateway
	case session.KindProviderAbsent:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
