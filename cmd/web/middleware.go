package main

import (
	"net/http"

	"shamba_marketplace/internal/models"
)

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.infoLog.Printf("%s - %s %s %s", r.RemoteAddr, r.Proto, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, errFromRecovered(err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAuthenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.session.GetString(r.Context(), "authenticatedUserID") == "" {
			app.clientError(w, http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func (app *application) requireRole(role models.Role, next http.HandlerFunc) http.Handler {
	return app.requireAuthenticated(func(w http.ResponseWriter, r *http.Request) {
		if app.currentRole(r) != role {
			app.clientError(w, http.StatusForbidden)
			return
		}
		next(w, r)
	})
}
