package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"agentcore/internal/faults"
	"agentcore/internal/secret"
	"agentcore/pkg/types"
)

// statusFor maps a classified failure to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, secret.ErrEmptyKey) || errors.Is(err, secret.ErrEmptyValue) {
		return http.StatusBadRequest
	}
	switch faults.KindOf(err) {
	case faults.KindArtifactNotFound:
		return http.StatusNotFound
	case faults.KindMissingCredential:
		return http.StatusUnauthorized
	case faults.KindUnsupportedInputType:
		return http.StatusUnsupportedMediaType
	case faults.KindTooBusy:
		return http.StatusTooManyRequests
	case faults.KindHTTPFailure, faults.KindMalformedResponse, faults.KindDownloadFailed:
		return http.StatusBadGateway
	case faults.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

// writeFault writes err with its mapped status and kind. msg overrides the
// error text when set.
func writeFault(w http.ResponseWriter, err error, msg string) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("pool")
	}
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status, Kind: string(faults.KindOf(err))})
	return status
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
