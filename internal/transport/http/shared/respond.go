// Package shared centralizes the JSON response envelope and domain error
// translation so every handler answers in the same shape.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "eventtrail/pkg/domain-errors"
)

// Envelope is the response shape for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError translates a domain error into an HTTP response. The stable code
// rides in the error field so clients can branch without parsing messages.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Message: dErrors.MessageOf(err),
		Error:   string(code),
	})
}
