package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"race-league-go/logging"
	"race-league-go/middleware"
	"race-league-go/models"
	"race-league-go/services"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps service errors onto HTTP statuses; anything else is a 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		svcErr = services.WrapInternal("request", err)
	}

	if svcErr.Kind == services.KindInternal {
		logging.Errorf("%s %s failed [%s]: %v", r.Method, r.URL.Path, middleware.GetRequestID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, svcErr.StatusCode(), errorResponse{Error: svcErr.Message, Field: svcErr.Field})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBody(w, r, dst, false)
}

// decodeOptionalJSON accepts an empty body and leaves dst untouched
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// actorName identifies the authenticated user in audit fields
func actorName(user *models.User) string {
	if user == nil {
		return models.ActorSystem
	}
	return user.Email
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
