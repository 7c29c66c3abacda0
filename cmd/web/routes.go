package main

import (
	"net/http"

	"github.com/bmizerany/pat"

	"shamba_marketplace/internal/models"
)

func (app *application) routes() http.Handler {
	mux := pat.New()

	mux.Get("/health", http.HandlerFunc(app.health))

	mux.Post("/api/register", http.HandlerFunc(app.register))
	mux.Post("/api/login", http.HandlerFunc(app.loginUser))
	mux.Post("/api/logout", http.HandlerFunc(app.logoutUser))

	mux.Get("/api/products", http.HandlerFunc(app.listProducts))
	mux.Post("/api/products", app.requireRole(models.RoleFarmer, app.createProduct))
	mux.Get("/api/products/:id", http.HandlerFunc(app.showProduct))
	mux.Put("/api/products/:id", app.requireRole(models.RoleFarmer, app.updateProduct))
	mux.Del("/api/products/:id", app.requireRole(models.RoleFarmer, app.deactivateProduct))
	mux.Post("/api/products/:id/restock", app.requireRole(models.RoleFarmer, app.restockProduct))
	mux.Post("/api/products/:id/approval", app.requireRole(models.RoleAdmin, app.approveProduct))

	mux.Post("/api/orders", app.requireAuthenticated(app.createOrder))
	mux.Get("/api/orders", app.requireAuthenticated(app.listOrders))
	mux.Get("/api/orders/:id", app.requireAuthenticated(app.showOrder))
	mux.Post("/api/orders/:id/status", app.requireAuthenticated(app.updateOrderStatus))
	mux.Post("/api/orders/:id/payment", app.requireAuthenticated(app.setPaymentStatus))

	mux.Post("/api/reviews", app.requireAuthenticated(app.submitReview))
	mux.Del("/api/reviews/:id", app.requireAuthenticated(app.removeReview))

	return app.logRequest(app.recoverPanic(app.session.LoadAndSave(mux)))
}
