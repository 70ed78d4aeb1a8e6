package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "ACTIVE"
	ProductInactive ProductStatus = "INACTIVE"
)

func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductInactive
}

type (
	Product struct {
		ID          uuid.UUID
		Slug        string
		Name        string
		Description string
		Price       decimal.Decimal
		Stock       int
		Status      ProductStatus
		Features    []string
		ImageURL    string
		CategoryID  uuid.UUID
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Category struct {
		ID          uuid.UUID
		Slug        string
		Name        string
		Description string
		ImageURL    string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// CategoryWithProducts is the storefront view of a category page.
	CategoryWithProducts struct {
		Category Category
		Products []Product
	}
)

func (p Product) Available() bool {
	return p.Status == ProductActive
}

// A ProductFilter narrows product listings.
type ProductFilter struct {
	CategorySlug string
	Query        string
	OnlyActive   bool
	Page         Page
}

type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps the page into the allowed range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
