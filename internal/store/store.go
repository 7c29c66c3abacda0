package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("already exists")
	// ErrInsufficientStock is returned when a conditional decrement finds
	// less stock than requested at write time.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict is returned when a status-guarded write matched no record
	// because the guard value is stale. Callers retry a bounded number of
	// times.
	ErrConflict = errors.New("write conflict")
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// PageInfo describes the full result set a page was cut from.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type ProductFilter struct {
	Search   string
	County   string
	Category string
	FarmerID primitive.ObjectID // zero value matches any farmer
	// IncludeHidden also returns products that are inactive, unapproved or
	// unavailable. Listing surfaces for farmers and admins set it.
	IncludeHidden bool
}

type OrderFilter struct {
	BuyerID  primitive.ObjectID // zero value matches any buyer
	FarmerID primitive.ObjectID // matches orders with a line item by this farmer
	Status   models.OrderStatus // empty matches any status
}

// StatusNotes carries the role-specific note attached alongside a status
// transition. At most one side is set, chosen by which side the actor
// represents.
type StatusNotes struct {
	Farmer   *string
	Delivery *string
}

// CatalogStore is the durable record of product listings. Stock decrements
// go through AdjustQuantity only; its negative-delta path is conditional on
// sufficient stock at write time, so concurrent orders cannot oversell.
type CatalogStore interface {
	InsertProduct(ctx context.Context, p *models.Product) error
	Product(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Products(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	// AdjustQuantity adds delta to the product's stock. A negative delta
	// succeeds only if quantity >= -delta at the moment of the write,
	// otherwise it returns ErrInsufficientStock and changes nothing.
	AdjustQuantity(ctx context.Context, id primitive.ObjectID, delta int) error
	SetApproval(ctx context.Context, id primitive.ObjectID, approved bool) error
	UpdateRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) error
}

// OrderStore is the durable record of orders. Orders are structurally
// immutable after insert; only status, payment status and notes change.
type OrderStore interface {
	// InsertOrder persists a new order. ErrDuplicate signals an order
	// number collision; the caller regenerates and retries.
	InsertOrder(ctx context.Context, o *models.Order) error
	Order(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Orders(ctx context.Context, filter OrderFilter, page Page) ([]*models.Order, PageInfo, error)
	// UpdateOrderStatus moves the order from one status to another as a
	// single guarded write: it fails with ErrConflict when the stored
	// status no longer equals from.
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, notes StatusNotes) error
	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus, reference string) error
	// DeleteOrder removes an order. Used only to compensate a failed
	// inventory decrement during creation.
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
}

// ReviewStore is the durable record of reviews. At most one active review
// per (product, buyer) pair, enforced by the store itself.
type ReviewStore interface {
	InsertReview(ctx context.Context, r *models.Review) error
	Review(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	ActiveReviews(ctx context.Context, productID primitive.ObjectID) ([]*models.Review, error)
	DeactivateReview(ctx context.Context, id primitive.ObjectID) error
}
