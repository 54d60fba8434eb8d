// Package user contains the HTTP handlers for the users resource.
//
// Every handler is built by a factory that receives its dependencies once
// at startup and returns the func(http.ResponseWriter, *http.Request) the
// router calls on each request:
//
//	r.Post("/users", user.New(svc))
//	//               ^^^^^^^^^^^
//	//   New(svc) runs once; the returned closure runs per request.
package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aanand-mishra/users-api/internal/service"
	"github.com/aanand-mishra/users-api/internal/utils/response"
	"github.com/aanand-mishra/users-api/internal/validation"
)

const (
	MsgUpdated  = "User updated successfully."
	MsgDeleted  = "User deleted successfully."
	MsgNotFound = "User not found."
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /users
//
// Request body:
//
//	{ "name": "Ann", "email": "ann@x.com", "age": 30, "address": { "city": "Lyon", "house": "12" } }
//
// 201 Created with the stored user, id included. 400 names the broken rule;
// 500 on store errors, duplicate email included.
// ─────────────────────────────────────────────────────────────────────────────
func New(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "creating a user")

		payload, ok := decode(w, r)
		if !ok {
			return
		}

		created, err := svc.Create(r.Context(), payload)
		if err != nil {
			writeError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "user created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /users
// Returns a JSON array of every user, [] when there are none. Addresses are
// always objects, never raw column text.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "getting all users")

		users, err := svc.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, users)
	}
}

// GetByID handles GET /users/{id}.
func GetByID(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.InfoContext(r.Context(), "getting a user", slog.String("id", id))

		u, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, u)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /users/{id}
// Replaces ALL fields of an existing user.
//
// 200 { "message": "User updated successfully." }
// 400 when any field is missing or falsy, 404 for an unknown id, 500 on
// store errors.
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.InfoContext(r.Context(), "updating a user", slog.String("id", id))

		payload, ok := decode(w, r)
		if !ok {
			return
		}

		if err := svc.Update(r.Context(), id, payload); err != nil {
			writeError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "user updated", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message(MsgUpdated))
	}
}

// Delete handles DELETE /users/{id}.
//
// 200 { "message": "User deleted successfully." }, 404 for an unknown id.
func Delete(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		slog.InfoContext(r.Context(), "deleting a user", slog.String("id", id))

		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}

		slog.InfoContext(r.Context(), "user deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message(MsgDeleted))
	}
}

// decode reads the request body, writing a 4xx response itself when the
// body is unusable.
func decode(w http.ResponseWriter, r *http.Request) (validation.Payload, bool) {
	payload, err := validation.DecodePayload(r.Body)
	if err == nil {
		return payload, true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		response.WriteJSON(w, http.StatusRequestEntityTooLarge,
			response.Message("Request body is too large."))
	case errors.Is(err, validation.ErrEmptyBody):
		response.WriteJSON(w, http.StatusBadRequest, response.Message("Request body is empty."))
	default:
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError("Invalid JSON body.", err))
	}
	return validation.Payload{}, false
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *service.ValidationError
		notFound *service.NotFoundError
		failed   *service.PersistenceError
	)
	switch {
	case errors.As(err, &invalid):
		slog.InfoContext(r.Context(), "rejected payload", slog.String("rule", string(invalid.Result.Rule)))
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(invalid.Result))
	case errors.As(err, &notFound):
		response.WriteJSON(w, http.StatusNotFound, response.Message(MsgNotFound))
	case errors.As(err, &failed):
		slog.ErrorContext(r.Context(), failed.Message, slog.String("error", failed.Err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(failed.Message, failed.Err))
	default:
		slog.ErrorContext(r.Context(), "unexpected error", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError("Internal server error.", err))
	}
}
