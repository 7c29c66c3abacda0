package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/store"
)

// ProductInput carries the farmer-editable fields of a listing.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	County      string          `json:"county"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	IsAvailable bool            `json:"is_available"`
}

// CatalogService manages product listings. Stock only ever decreases through
// the order processor's conditional decrement; the restock path here adds
// stock unconditionally.
type CatalogService struct {
	catalog store.CatalogStore
	clock   func() time.Time
}

func NewCatalogService(catalog store.CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog, clock: time.Now}
}

func validateProductInput(in ProductInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	return nil
}

// Create lists a new product for the farmer. New listings await admin
// approval before they become purchasable.
func (s *CatalogService) Create(ctx context.Context, farmerID primitive.ObjectID, in ProductInput) (*models.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	now := s.clock()
	product := &models.Product{
		FarmerID:    farmerID,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Unit:        in.Unit,
		County:      in.County,
		Price:       in.Price,
		Quantity:    in.Quantity,
		IsAvailable: in.IsAvailable,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.catalog.InsertProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update replaces the listing fields of the farmer's own product. Stock and
// the rating aggregate are untouched; stock changes go through Restock and
// the order processor.
func (s *CatalogService) Update(ctx context.Context, farmerID, productID primitive.ObjectID, in ProductInput) (*models.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	product, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return nil, err
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Category = in.Category
	product.Unit = in.Unit
	product.County = in.County
	product.Price = in.Price
	product.IsAvailable = in.IsAvailable
	if err := s.catalog.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return s.catalog.Product(ctx, productID)
}

// Restock adds stock to the farmer's own product.
func (s *CatalogService) Restock(ctx context.Context, farmerID, productID primitive.ObjectID, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: restock quantity must be at least 1", ErrValidation)
	}
	if _, err := s.ownedProduct(ctx, farmerID, productID); err != nil {
		return nil, err
	}
	if err := s.catalog.AdjustQuantity(ctx, productID, quantity); err != nil {
		return nil, err
	}
	return s.catalog.Product(ctx, productID)
}

// Deactivate soft-deletes the farmer's own product.
func (s *CatalogService) Deactivate(ctx context.Context, farmerID, productID primitive.ObjectID) error {
	product, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return err
	}
	product.IsActive = false
	return s.catalog.UpdateProduct(ctx, product)
}

// Approve flips the admin approval flag.
func (s *CatalogService) Approve(ctx context.Context, productID primitive.ObjectID, approved bool) error {
	err := s.catalog.SetApproval(ctx, productID, approved)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: product %s", ErrProductUnavailable, productID.Hex())
	}
	return err
}

// Get returns a single product.
func (s *CatalogService) Get(ctx context.Context, productID primitive.ObjectID) (*models.Product, error) {
	product, err := s.catalog.Product(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrProductUnavailable, productID.Hex())
	}
	return product, err
}

// Browse lists products matching the filter.
func (s *CatalogService) Browse(ctx context.Context, filter store.ProductFilter) ([]*models.Product, error) {
	return s.catalog.Products(ctx, filter)
}

func (s *CatalogService) ownedProduct(ctx context.Context, farmerID, productID primitive.ObjectID) (*models.Product, error) {
	product, err := s.catalog.Product(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrProductUnavailable, productID.Hex())
	}
	if err != nil {
		return nil, err
	}
	if product.FarmerID != farmerID {
		return nil, ErrForbidden
	}
	return product, nil
}
