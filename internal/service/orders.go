package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/store"
)

const (
	// maxOrderNumberAttempts bounds regeneration when an order number
	// collides with an existing one.
	maxOrderNumberAttempts = 5
	// maxStatusRetries bounds the re-read/re-validate loop when a guarded
	// status write loses a race.
	maxStatusRetries = 3
	// compensateTimeout bounds the rollback writes, which run on their own
	// context so a cancelled request cannot strand partial stock changes.
	compensateTimeout = 10 * time.Second
)

// orderTransitions is the fixed status lifecycle. Only listed edges are
// legal; delivered and cancelled are terminal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
}

func transitionAllowed(from, to models.OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItemRequest is one requested (product, quantity) pair in a new order.
type OrderItemRequest struct {
	ProductID primitive.ObjectID `json:"product_id"`
	Quantity  int                `json:"quantity"`
}

// OrderDeps bundles the collaborators of the order service.
type OrderDeps struct {
	Catalog  store.CatalogStore
	Orders   store.OrderStore
	Clock    func() time.Time
	RandInt  func(n int) int
	ErrorLog *log.Logger
}

// OrderService converts carts into durable orders and governs the order
// status lifecycle.
type OrderService struct {
	catalog  store.CatalogStore
	orders   store.OrderStore
	clock    func() time.Time
	randInt  func(n int) int
	errorLog *log.Logger
}

func NewOrderService(deps OrderDeps) *OrderService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	randInt := deps.RandInt
	if randInt == nil {
		randInt = rand.Intn
	}
	errorLog := deps.ErrorLog
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &OrderService{
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		clock:    clock,
		randInt:  randInt,
		errorLog: errorLog,
	}
}

// CreateOrder validates the requested items against the catalog, snapshots
// prices and farmer references, persists the order and decrements stock for
// every line. The decrement per product is conditional at write time; if any
// line cannot be satisfied the already-decremented lines are restored and the
// order is removed, so a failed creation never leaves partial stock changes.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID primitive.ObjectID, items []OrderItemRequest, method models.PaymentMethod, addr models.ShippingAddress) (*models.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		if item.ProductID.IsZero() {
			return nil, fmt.Errorf("%w: product_id is required", ErrValidation)
		}
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, method)
	}
	if addr.County == "" {
		return nil, fmt.Errorf("%w: shipping county is required", ErrValidation)
	}
	if addr.ContactPhone == "" {
		return nil, fmt.Errorf("%w: contact phone is required", ErrValidation)
	}

	now := s.clock()
	order := &models.Order{
		BuyerID:         buyerID,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   method,
		ShippingAddress: addr,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range items {
		product, err := s.catalog.Product(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrProductUnavailable, item.ProductID.Hex())
		}
		if err != nil {
			return nil, err
		}
		if !product.Purchasable() {
			return nil, fmt.Errorf("%w: product %q", ErrProductUnavailable, product.Name)
		}
		if product.Quantity < item.Quantity {
			return nil, fmt.Errorf("%w: product %q has %d left", ErrInsufficientStock, product.Name, product.Quantity)
		}

		line := models.LineItem{
			ProductID: product.ID,
			FarmerID:  product.FarmerID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     product.Price,
		}
		order.Items = append(order.Items, line)
		order.TotalAmount = order.TotalAmount.Add(line.Subtotal())
	}

	if err := s.insertWithFreshNumber(ctx, order); err != nil {
		return nil, err
	}

	for i, line := range order.Items {
		err := s.catalog.AdjustQuantity(ctx, line.ProductID, -line.Quantity)
		if err == nil {
			continue
		}
		s.compensate(ctx, order, i)
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, fmt.Errorf("%w: product %q", ErrInsufficientStock, line.Name)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %q", ErrProductUnavailable, line.Name)
		}
		return nil, err
	}

	return order, nil
}

func (s *OrderService) insertWithFreshNumber(ctx context.Context, order *models.Order) error {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.newOrderNumber()
		err := s.orders.InsertOrder(ctx, order)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: could not allocate an order number", ErrConflict)
}

// compensate restores stock for the first n already-decremented lines and
// removes the order. The caller's context may already be cancelled when we
// get here, so the rollback writes run detached from it.
func (s *OrderService) compensate(ctx context.Context, order *models.Order, n int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	for j := 0; j < n; j++ {
		line := order.Items[j]
		if err := s.catalog.AdjustQuantity(ctx, line.ProductID, line.Quantity); err != nil {
			s.errorLog.Printf("order %s: failed to restore %d of product %s: %v",
				order.OrderNumber, line.Quantity, line.ProductID.Hex(), err)
		}
	}
	if err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
		s.errorLog.Printf("order %s: failed to remove after rollback: %v", order.OrderNumber, err)
	}
}

// newOrderNumber builds the human-facing identifier, six digits derived from
// the clock plus a three-digit random suffix. Collisions are possible under
// load; the unique index plus regeneration handles them.
func (s *OrderService) newOrderNumber() string {
	return fmt.Sprintf("ORD-%06d-%03d", s.clock().Unix()%1000000, s.randInt(1000))
}

// Get returns the order by id.
func (s *OrderService) Get(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.Order(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// List returns one page of the owner's orders: the buyer's own orders, or
// for farmers every order containing one of their line items.
func (s *OrderService) List(ctx context.Context, ownerID primitive.ObjectID, role models.Role, status models.OrderStatus, page store.Page) ([]*models.Order, store.PageInfo, error) {
	if status != "" && !status.Valid() {
		return nil, store.PageInfo{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	filter := store.OrderFilter{Status: status}
	switch role {
	case models.RoleBuyer:
		filter.BuyerID = ownerID
	case models.RoleFarmer:
		filter.FarmerID = ownerID
	default:
		return nil, store.PageInfo{}, fmt.Errorf("%w: role must be buyer or farmer", ErrValidation)
	}

	return s.orders.Orders(ctx, filter, page)
}

// UpdateStatus applies one transition from the lifecycle table. The actor
// must be the buyer or a farmer represented in the line items; notes land on
// the side the actor represents. The guarded write serializes racing
// transitions per order: a loser re-reads, re-validates against the fresh
// status and retries up to maxStatusRetries.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, actorID primitive.ObjectID, newStatus models.OrderStatus, notes string) (*models.Order, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	for attempt := 0; attempt < maxStatusRetries; attempt++ {
		order, err := s.orders.Order(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		if err != nil {
			return nil, err
		}

		isFarmer := order.HasFarmer(actorID)
		if order.BuyerID != actorID && !isFarmer {
			return nil, ErrForbidden
		}
		if !transitionAllowed(order.Status, newStatus) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, newStatus)
		}

		var sn store.StatusNotes
		if notes != "" {
			if isFarmer {
				sn.Farmer = &notes
			} else {
				sn.Delivery = &notes
			}
		}

		err = s.orders.UpdateOrderStatus(ctx, orderID, order.Status, newStatus, sn)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		if err != nil {
			return nil, err
		}
		return s.orders.Order(ctx, orderID)
	}
	return nil, fmt.Errorf("%w: order %s", ErrConflict, orderID.Hex())
}

// SetPaymentStatus records a payment status change. Only the order's buyer
// may call it, and any value transition is allowed: the payment status has
// no lifecycle table on purpose.
func (s *OrderService) SetPaymentStatus(ctx context.Context, orderID, buyerID primitive.ObjectID, status models.PaymentStatus, reference string) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
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

	if err := s.orders.SetPaymentStatus(ctx, orderID, status, reference); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.orders.Order(ctx, orderID)
}
