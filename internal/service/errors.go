package service

import "errors"

var (
	// ErrValidation signals malformed or out-of-range input, caught before
	// any storage write.
	ErrValidation = errors.New("validation failed")
	// ErrProductUnavailable covers products that are missing, inactive,
	// unapproved or marked not available.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrInsufficientStock is returned when a product has less stock than
	// the order requests.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrReviewNotFound is returned when the referenced review does not exist.
	ErrReviewNotFound = errors.New("review not found")
	// ErrForbidden signals an actor with no buyer or farmer relationship to
	// the record being mutated.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition signals a status change outside the transition
	// table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateReview signals a second review by the same buyer on the
	// same product.
	ErrDuplicateReview = errors.New("duplicate review")
	// ErrConflict surfaces write contention that persisted through the
	// bounded retries. Callers may retry the whole operation.
	ErrConflict = errors.New("storage conflict")
)
