package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shamba_marketplace/internal/models"
)

var (
	_ CatalogStore = (*Mongo)(nil)
	_ OrderStore   = (*Mongo)(nil)
	_ ReviewStore  = (*Mongo)(nil)
)

// Mongo implements CatalogStore, OrderStore and ReviewStore on a single
// database handle.
type Mongo struct {
	products *mongo.Collection
	orders   *mongo.Collection
	reviews  *mongo.Collection

	// Users stays exported so the user repository can share the handle.
	Users *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		products: db.Collection("products"),
		orders:   db.Collection("orders"),
		reviews:  db.Collection("reviews"),
		Users:    db.Collection("users"),
	}
}

// EnsureIndexes creates the uniqueness constraints the services rely on:
// one order per order number, one active review per (product, buyer) pair,
// one user per email.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = m.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "buyer_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"is_active": true}),
	})
	if err != nil {
		return err
	}

	_, err = m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// --- CatalogStore ---

func (m *Mongo) InsertProduct(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := m.products.InsertOne(ctx, p)
	return err
}

func (m *Mongo) Product(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	err := m.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Mongo) Products(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	q := bson.M{}
	if !filter.IncludeHidden {
		q["is_active"] = true
		q["is_approved"] = true
		q["is_available"] = true
	}
	if filter.Search != "" {
		q["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	if filter.County != "" {
		q["county"] = filter.County
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if !filter.FarmerID.IsZero() {
		q["farmer_id"] = filter.FarmerID
	}

	var products []*models.Product
	cur, err := m.products.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	err = cur.All(ctx, &products)
	return products, err
}

func (m *Mongo) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := m.products.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{
		"$set": bson.M{
			"name":         p.Name,
			"description":  p.Description,
			"category":     p.Category,
			"unit":         p.Unit,
			"county":       p.County,
			"price":        p.Price,
			"is_available": p.IsAvailable,
			"is_active":    p.IsActive,
			"updated_at":   time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) AdjustQuantity(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		// The stock guard lives in the filter so the check and the
		// decrement are one write.
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	res, err := m.products.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if delta < 0 {
			n, err := m.products.CountDocuments(ctx, bson.M{"_id": id})
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrInsufficientStock
			}
		}
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) SetApproval(ctx context.Context, id primitive.ObjectID, approved bool) error {
	res, err := m.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_approved": approved, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) UpdateRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) error {
	res, err := m.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rating": rating, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- OrderStore ---

func (m *Mongo) InsertOrder(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := m.orders.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) Order(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	err := m.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *Mongo) Orders(ctx context.Context, filter OrderFilter, page Page) ([]*models.Order, PageInfo, error) {
	page = page.normalize()

	q := bson.M{}
	if !filter.BuyerID.IsZero() {
		q["buyer_id"] = filter.BuyerID
	}
	if !filter.FarmerID.IsZero() {
		q["items.farmer_id"] = filter.FarmerID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}

	total, err := m.orders.CountDocuments(ctx, q)
	if err != nil {
		return nil, PageInfo{}, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page.Page - 1) * page.Limit)).
		SetLimit(int64(page.Limit))

	var orders []*models.Order
	cur, err := m.orders.Find(ctx, q, opts)
	if err != nil {
		return nil, PageInfo{}, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, PageInfo{}, err
	}
	return orders, page.info(total), nil
}

func (m *Mongo) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, notes StatusNotes) error {
	set := bson.M{"status": to, "updated_at": time.Now()}
	if notes.Farmer != nil {
		set["farmer_notes"] = *notes.Farmer
	}
	if notes.Delivery != nil {
		set["delivery_notes"] = *notes.Delivery
	}

	res, err := m.orders.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := m.orders.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (m *Mongo) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus, reference string) error {
	set := bson.M{"payment_status": status, "updated_at": time.Now()}
	if reference != "" {
		set["payment_reference"] = reference
	}
	res, err := m.orders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.orders.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// --- ReviewStore ---

func (m *Mongo) InsertReview(ctx context.Context, r *models.Review) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	_, err := m.reviews.InsertOne(ctx, r)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) Review(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var r models.Review
	err := m.reviews.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *Mongo) ActiveReviews(ctx context.Context, productID primitive.ObjectID) ([]*models.Review, error) {
	var reviews []*models.Review
	cur, err := m.reviews.Find(ctx, bson.M{"product_id": productID, "is_active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	err = cur.All(ctx, &reviews)
	return reviews, err
}

func (m *Mongo) DeactivateReview(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.reviews.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_active": false},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Page) info(total int64) PageInfo {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageInfo{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
