package domain

import "github.com/shopspring/decimal"

type CartItem struct {
	Slug     string
	Quantity int
}

type Cart struct {
	ID    string
	Items []CartItem
}

// A PricedCart is a cart resolved against the live catalog.
type PricedCart struct {
	ID       string
	Lines    []CartLine
	Subtotal decimal.Decimal
}

type CartLine struct {
	Slug      string
	Name      string
	ImageURL  string
	Price     decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
	Available bool
	Stock     int
}
