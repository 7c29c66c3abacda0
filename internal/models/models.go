package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleFarmer Role = "farmer"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleFarmer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	Phone        string             `bson:"phone" json:"phone"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// Rating is the denormalized review aggregate stored on a product. It is
// derived from the active review set and rewritten in full on every review
// commit or removal; the review set stays authoritative.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FarmerID    primitive.ObjectID `bson:"farmer_id" json:"farmer_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Unit        string             `bson:"unit" json:"unit"`
	County      string             `bson:"county" json:"county"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	IsAvailable bool               `bson:"is_available" json:"is_available"`
	IsApproved  bool               `bson:"is_approved" json:"is_approved"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	Rating      Rating             `bson:"rating" json:"rating"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Purchasable reports whether the product can appear in a new order. The
// three flags are independent axes: the farmer toggles availability, an admin
// toggles approval, deactivation is the soft delete.
func (p *Product) Purchasable() bool {
	return p.IsActive && p.IsApproved && p.IsAvailable
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodMpesa        PaymentMethod = "mpesa"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodMpesa, PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodOther:
		return true
	}
	return false
}

type ShippingAddress struct {
	County           string `bson:"county" json:"county"`
	SubCounty        string `bson:"sub_county" json:"sub_county"`
	Ward             string `bson:"ward" json:"ward"`
	SpecificLocation string `bson:"specific_location" json:"specific_location"`
	ContactPhone     string `bson:"contact_phone" json:"contact_phone"`
	Notes            string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// LineItem is one (product, quantity) entry inside an order. Price and
// FarmerID are copied from the product at order time and never re-read, so a
// later price change on the product cannot alter an existing order.
type LineItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	FarmerID  primitive.ObjectID `bson:"farmer_id" json:"farmer_id"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
}

// Subtotal is the line's contribution to the order total.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber      string             `bson:"order_number" json:"order_number"`
	BuyerID          primitive.ObjectID `bson:"buyer_id" json:"buyer_id"`
	Items            []LineItem         `bson:"items" json:"items"`
	TotalAmount      decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	Status           OrderStatus        `bson:"status" json:"status"`
	PaymentStatus    PaymentStatus      `bson:"payment_status" json:"payment_status"`
	PaymentMethod    PaymentMethod      `bson:"payment_method" json:"payment_method"`
	PaymentReference string             `bson:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	ShippingAddress  ShippingAddress    `bson:"shipping_address" json:"shipping_address"`
	FarmerNotes      string             `bson:"farmer_notes,omitempty" json:"farmer_notes,omitempty"`
	DeliveryNotes    string             `bson:"delivery_notes,omitempty" json:"delivery_notes,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasFarmer reports whether the farmer supplied any line item of the order.
func (o *Order) HasFarmer(farmerID primitive.ObjectID) bool {
	for _, li := range o.Items {
		if li.FarmerID == farmerID {
			return true
		}
	}
	return false
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	BuyerID   primitive.ObjectID `bson:"buyer_id" json:"buyer_id"`
	OrderID   primitive.ObjectID `bson:"order_id" json:"order_id"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
