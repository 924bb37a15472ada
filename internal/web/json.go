package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"quicktasks/internal/identity"
	"quicktasks/internal/service"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// statusFor maps a store or controller error to an HTTP status.
func statusFor(err error) int {
	var remote *service.RemoteError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &remote):
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// authStatus maps a gateway error code to an HTTP status.
func authStatus(code identity.Code) int {
	switch code {
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return http.StatusBadRequest
	case identity.CodeEmailAlreadyInUse:
		return http.StatusConflict
	case identity.CodeOperationNotAllowed, identity.CodeUserDisabled:
		return http.StatusForbidden
	case identity.CodeUserNotFound, identity.CodeWrongPassword:
		return http.StatusUnauthorized
	case identity.CodeTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
