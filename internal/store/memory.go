package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shamba_marketplace/internal/models"
)

var (
	_ CatalogStore = (*Memory)(nil)
	_ OrderStore   = (*Memory)(nil)
	_ ReviewStore  = (*Memory)(nil)
)

// Memory is an in-memory implementation of the store interfaces. It honours
// the same contracts as Mongo, in particular the conditional decrement and
// the status-guarded order update, and backs the service tests.
type Memory struct {
	mu           sync.Mutex
	products     map[primitive.ObjectID]*models.Product
	orders       map[primitive.ObjectID]*models.Order
	orderNumbers map[string]struct{}
	reviews      map[primitive.ObjectID]*models.Review
}

func NewMemory() *Memory {
	return &Memory{
		products:     make(map[primitive.ObjectID]*models.Product),
		orders:       make(map[primitive.ObjectID]*models.Order),
		orderNumbers: make(map[string]struct{}),
		reviews:      make(map[primitive.ObjectID]*models.Review),
	}
}

func cloneProduct(p *models.Product) *models.Product {
	cp := *p
	return &cp
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = make([]models.LineItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func cloneReview(r *models.Review) *models.Review {
	cp := *r
	return &cp
}

// --- CatalogStore ---

func (m *Memory) InsertProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.products[p.ID] = cloneProduct(p)
	return nil
}

func (m *Memory) Product(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProduct(p), nil
}

func (m *Memory) Products(_ context.Context, filter ProductFilter) ([]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Product
	for _, p := range m.products {
		if !filter.IncludeHidden && !p.Purchasable() {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.County != "" && p.County != filter.County {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if !filter.FarmerID.IsZero() && p.FarmerID != filter.FarmerID {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (m *Memory) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Category = p.Category
	cur.Unit = p.Unit
	cur.County = p.County
	cur.Price = p.Price
	cur.IsAvailable = p.IsAvailable
	cur.IsActive = p.IsActive
	cur.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) AdjustQuantity(_ context.Context, id primitive.ObjectID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	if delta < 0 && p.Quantity < -delta {
		return ErrInsufficientStock
	}
	p.Quantity += delta
	p.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SetApproval(_ context.Context, id primitive.ObjectID, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.IsApproved = approved
	p.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) UpdateRating(_ context.Context, id primitive.ObjectID, rating models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Rating = rating
	p.UpdatedAt = time.Now()
	return nil
}

// --- OrderStore ---

func (m *Memory) InsertOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orderNumbers[o.OrderNumber]; exists {
		return ErrDuplicate
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.orderNumbers[o.OrderNumber] = struct{}{}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *Memory) Order(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *Memory) Orders(_ context.Context, filter OrderFilter, page Page) ([]*models.Order, PageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page = page.normalize()

	var matched []*models.Order
	for _, o := range m.orders {
		if !filter.BuyerID.IsZero() && o.BuyerID != filter.BuyerID {
			continue
		}
		if !filter.FarmerID.IsZero() && !o.HasFarmer(filter.FarmerID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	total := int64(len(matched))
	start := (page.Page - 1) * page.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*models.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, cloneOrder(o))
	}
	return out, page.info(total), nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus, notes StatusNotes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrConflict
	}
	o.Status = to
	if notes.Farmer != nil {
		o.FarmerNotes = *notes.Farmer
	}
	if notes.Delivery != nil {
		o.DeliveryNotes = *notes.Delivery
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SetPaymentStatus(_ context.Context, id primitive.ObjectID, status models.PaymentStatus, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = status
	if reference != "" {
		o.PaymentReference = reference
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) DeleteOrder(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		delete(m.orderNumbers, o.OrderNumber)
		delete(m.orders, id)
	}
	return nil
}

// --- ReviewStore ---

func (m *Memory) InsertReview(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.IsActive && existing.ProductID == r.ProductID && existing.BuyerID == r.BuyerID {
			return ErrDuplicate
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	m.reviews[r.ID] = cloneReview(r)
	return nil
}

func (m *Memory) Review(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReview(r), nil
}

func (m *Memory) ActiveReviews(_ context.Context, productID primitive.ObjectID) ([]*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Review
	for _, r := range m.reviews {
		if r.IsActive && r.ProductID == productID {
			out = append(out, cloneReview(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (m *Memory) DeactivateReview(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return ErrNotFound
	}
	r.IsActive = false
	return nil
}
