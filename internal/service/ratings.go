package service

import (
	"context"
	"log"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/store"
)

// ReviewEventKind tags the two events the aggregator consumes.
type ReviewEventKind string

const (
	ReviewCommitted ReviewEventKind = "review_committed"
	ReviewRemoved   ReviewEventKind = "review_removed"
)

// ReviewEvent announces that the active review set of a product changed.
type ReviewEvent struct {
	Kind      ReviewEventKind
	ProductID primitive.ObjectID
}

// ReviewPublisher delivers review events to the aggregator. The web app
// feeds a channel drained by a background worker; tests apply events inline.
type ReviewPublisher interface {
	PublishReviewEvent(ev ReviewEvent)
}

// Aggregator maintains the denormalized {average, count} rating on a
// product. It always recomputes from the full active review set rather than
// adjusting incrementally, so concurrent events cannot compound rounding or
// lose updates; recomputations for one product serialize on a per-product
// lock.
type Aggregator struct {
	reviews  store.ReviewStore
	catalog  store.CatalogStore
	locks    *keyedMutex
	errorLog *log.Logger
}

func NewAggregator(reviews store.ReviewStore, catalog store.CatalogStore, errorLog *log.Logger) *Aggregator {
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Aggregator{
		reviews:  reviews,
		catalog:  catalog,
		locks:    newKeyedMutex(),
		errorLog: errorLog,
	}
}

// Apply handles one review event.
func (a *Aggregator) Apply(ctx context.Context, ev ReviewEvent) error {
	return a.Recompute(ctx, ev.ProductID)
}

// Recompute reads the product's active reviews and rewrites its rating
// aggregate. With no active reviews the aggregate resets to {0, 0}.
func (a *Aggregator) Recompute(ctx context.Context, productID primitive.ObjectID) error {
	unlock := a.locks.Lock(productID.Hex())
	defer unlock()

	reviews, err := a.reviews.ActiveReviews(ctx, productID)
	if err != nil {
		return err
	}

	var rating models.Rating
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		mean := float64(sum) / float64(len(reviews))
		rating = models.Rating{
			Average: math.Round(mean*10) / 10,
			Count:   len(reviews),
		}
	}

	return a.catalog.UpdateRating(ctx, productID, rating)
}
