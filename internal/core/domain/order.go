package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped,
		OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

type (
	Contact struct {
		FirstName string
		LastName  string
		Email     string
		Phone     string
	}

	Address struct {
		Line1      string
		Line2      string
		City       string
		State      string
		PostalCode string
		Country    string
	}

	Totals struct {
		Subtotal decimal.Decimal
		Tax      decimal.Decimal
		Shipping decimal.Decimal
		Total    decimal.Decimal
	}

	Order struct {
		ID              uuid.UUID
		Number          string
		Status          OrderStatus
		Totals          Totals
		Email           string
		UserID          uuid.NullUUID
		Contact         Contact
		ShippingAddress Address
		Notes           string
		Items           []OrderItem
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// An OrderItem snapshots the product at purchase time.
	OrderItem struct {
		ID          uuid.UUID
		OrderID     uuid.UUID
		ProductID   uuid.NullUUID
		ProductSlug string
		ProductName string
		Price       decimal.Decimal
		Quantity    int
		LineTotal   decimal.Decimal
	}
)

func (c Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// An ItemRequest is a client-submitted line. Price is advisory.
type ItemRequest struct {
	Slug     string
	Price    decimal.Decimal
	Quantity int
}

// PlaceOrder is the checkout command.
type PlaceOrder struct {
	CartID          string
	Email           string
	UserID          uuid.NullUUID
	Items           []ItemRequest
	Contact         Contact
	ShippingAddress Address
	Notes           string
}

type OrderFilter struct {
	Status OrderStatus
	UserID uuid.NullUUID
	Page   Page
}

// Pricing computes the derived order amounts.
type Pricing struct {
	TaxRate          decimal.Decimal
	ShippingAmount   decimal.Decimal
	FreeShippingFrom decimal.Decimal
}

func (p Pricing) Totals(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(p.TaxRate).Round(2)

	shipping := p.ShippingAmount
	if p.FreeShippingFrom.IsPositive() &&
		subtotal.GreaterThanOrEqual(p.FreeShippingFrom) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
