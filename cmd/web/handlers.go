package main

import (
	"errors"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/repository"
	"shamba_marketplace/internal/service"
	"shamba_marketplace/internal/store"
)

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- AUTH HANDLERS ---

type registerRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

func (app *application) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleBuyer
	}
	if req.Email == "" || req.Password == "" || !req.Role.Valid() || req.Role == models.RoleAdmin {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	user, err := app.users.Insert(r.Context(), req.Email, req.Name, req.Phone, req.Password, req.Role)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		app.writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) loginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	user, err := app.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.session.Put(r.Context(), "authenticatedUserID", user.ID.Hex())
	app.session.Put(r.Context(), "userRole", string(user.Role))
	app.session.Put(r.Context(), "userEmail", user.Email)
	app.writeJSON(w, http.StatusOK, user)
}

func (app *application) logoutUser(w http.ResponseWriter, r *http.Request) {
	app.session.Remove(r.Context(), "authenticatedUserID")
	if err := app.session.Destroy(r.Context()); err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// --- CATALOG HANDLERS ---

func (app *application) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Search:   q.Get("search"),
		County:   q.Get("county"),
		Category: q.Get("category"),
	}
	if farmer := q.Get("farmer_id"); farmer != "" {
		id, err := primitive.ObjectIDFromHex(farmer)
		if err != nil {
			app.clientError(w, http.StatusBadRequest)
			return
		}
		filter.FarmerID = id
	}

	products, err := app.catalog.Browse(r.Context(), filter)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (app *application) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	product, err := app.catalog.Get(r.Context(), id)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	reviews, err := app.reviews.ProductReviews(r.Context(), id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]any{"product": product, "reviews": reviews})
}

func (app *application) createProduct(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}

	var in service.ProductInput
	if err := app.readJSON(w, r, &in); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	product, err := app.catalog.Create(r.Context(), farmerID, in)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, product)
}

func (app *application) updateProduct(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	var in service.ProductInput
	if err := app.readJSON(w, r, &in); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	product, err := app.catalog.Update(r.Context(), farmerID, id, in)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, product)
}

func (app *application) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	if err := app.catalog.Deactivate(r.Context(), farmerID, id); err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (app *application) restockProduct(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	var req restockRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	product, err := app.catalog.Restock(r.Context(), farmerID, id, req.Quantity)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, product)
}

type approvalRequest struct {
	Approved bool `json:"approved"`
}

func (app *application) approveProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	var req approvalRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	if err := app.catalog.Approve(r.Context(), id, req.Approved); err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// --- ORDER HANDLERS ---

type createOrderRequest struct {
	Items           []service.OrderItemRequest `json:"items"`
	PaymentMethod   models.PaymentMethod       `json:"payment_method"`
	ShippingAddress models.ShippingAddress     `json:"shipping_address"`
}

func (app *application) createOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	order, err := app.orders.CreateOrder(r.Context(), buyerID, req.Items, req.PaymentMethod, req.ShippingAddress)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, order)
}

func (app *application) listOrders(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	role := models.Role(q.Get("role"))
	if role == "" {
		role = app.currentRole(r)
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	orders, info, err := app.orders.List(r.Context(), ownerID, role,
		models.OrderStatus(q.Get("status")), store.Page{Page: page, Limit: limit})
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "pagination": info})
}

func (app *application) showOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	order, err := app.orders.Get(r.Context(), id)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	if app.currentRole(r) != models.RoleAdmin && order.BuyerID != actorID && !order.HasFarmer(actorID) {
		app.clientError(w, http.StatusForbidden)
		return
	}
	app.writeJSON(w, http.StatusOK, order)
}

type statusUpdateRequest struct {
	Status models.OrderStatus `json:"status"`
	Notes  string             `json:"notes"`
}

func (app *application) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	var req statusUpdateRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	order, err := app.orders.UpdateStatus(r.Context(), id, actorID, req.Status, req.Notes)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, order)
}

type paymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Reference     string               `json:"reference"`
}

func (app *application) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	var req paymentStatusRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	order, err := app.orders.SetPaymentStatus(r.Context(), id, buyerID, req.PaymentStatus, req.Reference)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, order)
}

// --- REVIEW HANDLERS ---

type reviewRequest struct {
	ProductID primitive.ObjectID `json:"product_id"`
	OrderID   primitive.ObjectID `json:"order_id"`
	Rating    int                `json:"rating"`
	Comment   string             `json:"comment"`
}

func (app *application) submitReview(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}

	var req reviewRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	review, err := app.reviews.Submit(r.Context(), buyerID, req.ProductID, req.OrderID, req.Rating, req.Comment)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, review)
}

func (app *application) removeReview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := app.currentUserID(r)
	if !ok {
		app.clientError(w, http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	review, err := app.reviews.Get(r.Context(), id)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	if review.BuyerID != actorID && app.currentRole(r) != models.RoleAdmin {
		app.clientError(w, http.StatusForbidden)
		return
	}

	if err := app.reviews.Remove(r.Context(), id); err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
