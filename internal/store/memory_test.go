package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"shamba_marketplace/internal/models"
	"shamba_marketplace/internal/store"
)

func insertProduct(t *testing.T, mem *store.Memory, quantity int) *models.Product {
	t.Helper()
	p := &models.Product{
		FarmerID:    primitive.NewObjectID(),
		Name:        "Sukuma Wiki",
		Price:       decimal.RequireFromString("25"),
		Quantity:    quantity,
		IsAvailable: true,
		IsApproved:  true,
		IsActive:    true,
	}
	require.NoError(t, mem.InsertProduct(context.Background(), p))
	return p
}

func TestMemoryAdjustQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("decrement is conditional on stock", func(t *testing.T) {
		mem := store.NewMemory()
		p := insertProduct(t, mem, 5)

		require.NoError(t, mem.AdjustQuantity(ctx, p.ID, -3))
		err := mem.AdjustQuantity(ctx, p.ID, -3)
		assert.ErrorIs(t, err, store.ErrInsufficientStock)

		got, err := mem.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Quantity)
	})

	t.Run("increment is unconditional", func(t *testing.T) {
		mem := store.NewMemory()
		p := insertProduct(t, mem, 0)

		require.NoError(t, mem.AdjustQuantity(ctx, p.ID, 12))
		got, err := mem.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 12, got.Quantity)
	})

	t.Run("missing product", func(t *testing.T) {
		mem := store.NewMemory()
		err := mem.AdjustQuantity(ctx, primitive.NewObjectID(), -1)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("exactly the stock that exists can be claimed concurrently", func(t *testing.T) {
		mem := store.NewMemory()
		p := insertProduct(t, mem, 60)

		results := make([]error, 100)
		var g errgroup.Group
		for i := 0; i < 100; i++ {
			i := i
			g.Go(func() error {
				results[i] = mem.AdjustQuantity(ctx, p.ID, -1)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		var ok, stockout int
		for _, err := range results {
			switch {
			case err == nil:
				ok++
			default:
				assert.ErrorIs(t, err, store.ErrInsufficientStock)
				stockout++
			}
		}
		assert.Equal(t, 60, ok)
		assert.Equal(t, 40, stockout)

		got, err := mem.Product(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Quantity)
	})
}

func TestMemoryOrders(t *testing.T) {
	ctx := context.Background()

	newOrder := func(number string) *models.Order {
		return &models.Order{
			OrderNumber:   number,
			BuyerID:       primitive.NewObjectID(),
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			PaymentMethod: models.PaymentMethodCash,
			Items: []models.LineItem{{
				ProductID: primitive.NewObjectID(),
				FarmerID:  primitive.NewObjectID(),
				Quantity:  1,
				Price:     decimal.RequireFromString("10"),
			}},
		}
	}

	t.Run("order numbers are unique", func(t *testing.T) {
		mem := store.NewMemory()
		require.NoError(t, mem.InsertOrder(ctx, newOrder("ORD-000001-001")))

		err := mem.InsertOrder(ctx, newOrder("ORD-000001-001"))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("deleting an order frees its number", func(t *testing.T) {
		mem := store.NewMemory()
		o := newOrder("ORD-000002-002")
		require.NoError(t, mem.InsertOrder(ctx, o))
		require.NoError(t, mem.DeleteOrder(ctx, o.ID))
		require.NoError(t, mem.InsertOrder(ctx, newOrder("ORD-000002-002")))
	})

	t.Run("status update is guarded by the prior status", func(t *testing.T) {
		mem := store.NewMemory()
		o := newOrder("ORD-000003-003")
		require.NoError(t, mem.InsertOrder(ctx, o))

		notes := "on the way"
		err := mem.UpdateOrderStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed,
			store.StatusNotes{Farmer: &notes})
		require.NoError(t, err)

		// stale guard
		err = mem.UpdateOrderStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusCancelled, store.StatusNotes{})
		assert.ErrorIs(t, err, store.ErrConflict)

		got, err := mem.Order(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusConfirmed, got.Status)
		assert.Equal(t, "on the way", got.FarmerNotes)
		assert.Empty(t, got.DeliveryNotes)
	})

	t.Run("status update on a missing order", func(t *testing.T) {
		mem := store.NewMemory()
		err := mem.UpdateOrderStatus(ctx, primitive.NewObjectID(),
			models.OrderStatusPending, models.OrderStatusConfirmed, store.StatusNotes{})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("pagination defaults and bounds", func(t *testing.T) {
		mem := store.NewMemory()
		for i := 0; i < 3; i++ {
			require.NoError(t, mem.InsertOrder(ctx, newOrder(primitive.NewObjectID().Hex())))
		}

		orders, info, err := mem.Orders(ctx, store.OrderFilter{}, store.Page{})
		require.NoError(t, err)
		assert.Len(t, orders, 3)
		assert.Equal(t, 1, info.Page)
		assert.Equal(t, 20, info.Limit)
		assert.EqualValues(t, 3, info.Total)
		assert.Equal(t, 1, info.TotalPages)

		orders, info, err = mem.Orders(ctx, store.OrderFilter{}, store.Page{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.Equal(t, 2, info.TotalPages)
	})

	t.Run("returned orders are copies", func(t *testing.T) {
		mem := store.NewMemory()
		o := newOrder("ORD-000004-004")
		require.NoError(t, mem.InsertOrder(ctx, o))

		got, err := mem.Order(ctx, o.ID)
		require.NoError(t, err)
		got.Items[0].Quantity = 99
		got.Status = models.OrderStatusDelivered

		fresh, err := mem.Order(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fresh.Items[0].Quantity)
		assert.Equal(t, models.OrderStatusPending, fresh.Status)
	})
}

func TestMemoryReviews(t *testing.T) {
	ctx := context.Background()

	newReview := func(productID, buyerID primitive.ObjectID) *models.Review {
		return &models.Review{
			ProductID: productID,
			BuyerID:   buyerID,
			OrderID:   primitive.NewObjectID(),
			Rating:    4,
			IsActive:  true,
		}
	}

	t.Run("one active review per product and buyer", func(t *testing.T) {
		mem := store.NewMemory()
		product := primitive.NewObjectID()
		buyer := primitive.NewObjectID()

		require.NoError(t, mem.InsertReview(ctx, newReview(product, buyer)))
		err := mem.InsertReview(ctx, newReview(product, buyer))
		assert.ErrorIs(t, err, store.ErrDuplicate)

		// a different buyer on the same product is fine
		require.NoError(t, mem.InsertReview(ctx, newReview(product, primitive.NewObjectID())))
	})

	t.Run("deactivation releases the pair", func(t *testing.T) {
		mem := store.NewMemory()
		product := primitive.NewObjectID()
		buyer := primitive.NewObjectID()

		first := newReview(product, buyer)
		require.NoError(t, mem.InsertReview(ctx, first))
		require.NoError(t, mem.DeactivateReview(ctx, first.ID))

		require.NoError(t, mem.InsertReview(ctx, newReview(product, buyer)))

		active, err := mem.ActiveReviews(ctx, product)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})
}

func TestMemoryProductsFilter(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	visible := insertProduct(t, mem, 10)
	hidden := insertProduct(t, mem, 10)
	require.NoError(t, mem.SetApproval(ctx, hidden.ID, false))

	t.Run("hidden products are excluded by default", func(t *testing.T) {
		products, err := mem.Products(ctx, store.ProductFilter{})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, visible.ID, products[0].ID)
	})

	t.Run("IncludeHidden returns everything", func(t *testing.T) {
		products, err := mem.Products(ctx, store.ProductFilter{IncludeHidden: true})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("search matches case-insensitively", func(t *testing.T) {
		products, err := mem.Products(ctx, store.ProductFilter{Search: "sukuma"})
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})
}
