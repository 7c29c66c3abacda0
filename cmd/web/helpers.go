package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/service"
)

func errFromRecovered(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("%v", v)
}

func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	app.errorLog.Output(2, trace)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		app.errorLog.Println("Failed to write response:", err)
	}
}

func (app *application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// serviceError translates the service error taxonomy into HTTP responses.
// Validation problems carry their message; unexpected errors stay generic.
func (app *application) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		app.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrReviewNotFound):
		app.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		app.writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateReview),
		errors.Is(err, service.ErrConflict):
		app.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		app.serverError(w, err)
	}
}

func (app *application) currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	hex := app.session.GetString(r.Context(), "authenticatedUserID")
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func (app *application) currentRole(r *http.Request) models.Role {
	return models.Role(app.session.GetString(r.Context(), "userRole"))
}

func pathObjectID(r *http.Request) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(r.URL.Query().Get(":id"))
}
