package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	jsoniter "github.com/json-iterator/go"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/package/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler registers a group of routes on the router.
type Handler interface {
	Register(router *httprouter.Router)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// WriteJSON encodes payload with the shared jsoniter config.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.Error("Can not encode response: ", err)
	}
}

// WriteError maps err through the apperror taxonomy and responds with
// {"detail": ...}, logging internal errors with their cause.
func WriteError(w http.ResponseWriter, err error) {
	status := apperror.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("Internal error: ", err)
	} else {
		logger.Log.Info("Request failed: ", err)
	}
	WriteJSON(w, status, errorResponse{Detail: apperror.PublicMessage(err)})
}

// DecodeJSON decodes a request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.NewValidation("malformed request body")
	}
	return nil
}
