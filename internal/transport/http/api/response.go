// Package api defines the response envelope shared by every endpoint. The
// device UI switches on error codes, not HTTP statuses, so the code taxonomy
// here is part of the wire contract.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes shared across handlers. Service-specific failures (sync_failed,
// save_failed, pin_not_set, ...) are minted at the handler that owns them;
// the codes below are the cross-cutting ones every client must handle.
const (
	CodeInvalidPayload = "invalid_payload"
	CodeNotFound       = "not_found"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeInternal       = "internal_error"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope wraps every response. The request id is echoed back so device
// logs can be lined up with server logs when the field team reports a fault.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

// Invalid rejects a malformed request body or parameter.
func Invalid(w http.ResponseWriter, message, requestID string) {
	Fail(w, http.StatusBadRequest, CodeInvalidPayload, message, requestID)
}

// NotFound reports a lookup that resolved to no record.
func NotFound(w http.ResponseWriter, message, requestID string) {
	Fail(w, http.StatusNotFound, CodeNotFound, message, requestID)
}
