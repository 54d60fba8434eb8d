// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Success responses may carry any JSON shape (a user, a list of users...).
// Acknowledgements and errors always look like:
//
//	{ "message": "User not found." }
//	{ "message": "Failed to update user.", "error": "UpdateUserByID: exec: ..." }
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/users-api/internal/validation"
)

// Response is the envelope for acknowledgements and errors.
type Response struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes data as JSON with the given status code.
//
// Order matters: Header() → WriteHeader() → body. Headers are locked once
// WriteHeader is called.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Message builds a plain acknowledgement or error message.
func Message(msg string) Response {
	return Response{Message: msg}
}

// GeneralError pairs a client-facing message with the underlying error's
// detail.
func GeneralError(msg string, err error) Response {
	r := Response{Message: msg}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// ValidationError reports the rule a payload broke.
func ValidationError(res validation.Result) Response {
	return Response{Message: res.Message}
}
