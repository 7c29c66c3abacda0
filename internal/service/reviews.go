package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/store"
)

const maxReviewCommentLen = 500

// ReviewDeps bundles the collaborators of the review service.
type ReviewDeps struct {
	Reviews   store.ReviewStore
	Catalog   store.CatalogStore
	Orders    store.OrderStore
	Publisher ReviewPublisher
	Clock     func() time.Time
}

// ReviewService accepts and removes reviews and announces every committed
// change so the aggregator can refresh the product's rating. Events are
// published only after the review write has committed; a failed submission
// never touches the aggregate.
type ReviewService struct {
	reviews   store.ReviewStore
	catalog   store.CatalogStore
	orders    store.OrderStore
	publisher ReviewPublisher
	clock     func() time.Time
}

func NewReviewService(deps ReviewDeps) *ReviewService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ReviewService{
		reviews:   deps.Reviews,
		catalog:   deps.Catalog,
		orders:    deps.Orders,
		publisher: deps.Publisher,
		clock:     clock,
	}
}

// Submit records a buyer's review of a product they received through the
// given order. The order must belong to the buyer, contain the product and
// be delivered.
func (s *ReviewService) Submit(ctx context.Context, buyerID, productID, orderID primitive.ObjectID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if len(comment) > maxReviewCommentLen {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrValidation, maxReviewCommentLen)
	}

	if _, err := s.catalog.Product(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrProductUnavailable, productID.Hex())
		}
		return nil, err
	}

	order, err := s.orders.Order(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, ErrForbidden
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: order %s is not delivered", ErrValidation, order.OrderNumber)
	}
	if !orderContains(order, productID) {
		return nil, fmt.Errorf("%w: order %s does not contain the product", ErrValidation, order.OrderNumber)
	}

	review := &models.Review{
		ProductID: productID,
		BuyerID:   buyerID,
		OrderID:   orderID,
		Rating:    rating,
		Comment:   comment,
		IsActive:  true,
		CreatedAt: s.clock(),
	}
	if err := s.reviews.InsertReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	s.publisher.PublishReviewEvent(ReviewEvent{Kind: ReviewCommitted, ProductID: productID})
	return review, nil
}

// Get returns the review by id.
func (s *ReviewService) Get(ctx context.Context, reviewID primitive.ObjectID) (*models.Review, error) {
	review, err := s.reviews.Review(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReviewNotFound
	}
	return review, err
}

// Remove soft-deletes the review and announces the removal. The review row
// stays for audit; aggregation only ever reads active reviews, so both a
// soft and a physical delete would refresh the product identically.
func (s *ReviewService) Remove(ctx context.Context, reviewID primitive.ObjectID) error {
	review, err := s.reviews.Review(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrReviewNotFound
	}
	if err != nil {
		return err
	}

	if err := s.reviews.DeactivateReview(ctx, reviewID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	s.publisher.PublishReviewEvent(ReviewEvent{Kind: ReviewRemoved, ProductID: review.ProductID})
	return nil
}

// ProductReviews lists the active reviews of a product.
func (s *ReviewService) ProductReviews(ctx context.Context, productID primitive.ObjectID) ([]*models.Review, error) {
	return s.reviews.ActiveReviews(ctx, productID)
}

func orderContains(order *models.Order, productID primitive.ObjectID) bool {
	for _, li := range order.Items {
		if li.ProductID == productID {
			return true
		}
	}
	return false
}
