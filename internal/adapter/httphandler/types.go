package httphandler

import (
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/shopspring/decimal"
)

type (
	Category struct {
		ID          uuid.UUID `json:"id"`
		Slug        string    `json:"slug"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		ImageURL    string    `json:"image_url,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	CategoryPage struct {
		Category Category  `json:"category"`
		Products []Product `json:"products"`
	}

	Product struct {
		ID          uuid.UUID       `json:"id"`
		Slug        string          `json:"slug"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		Status      string          `json:"status"`
		Features    []string        `json:"features"`
		ImageURL    string          `json:"image_url,omitempty"`
		CategoryID  uuid.UUID       `json:"category_id"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	ProductInput struct {
		Slug        string          `json:"slug"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		Status      string          `json:"status"`
		Features    []string        `json:"features"`
		ImageURL    string          `json:"image_url"`
		CategoryID  uuid.UUID       `json:"category_id"`
	}

	CategoryInput struct {
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}
)

type (
	Cart struct {
		ID       string          `json:"id"`
		Lines    []CartLine      `json:"items"`
		Subtotal decimal.Decimal `json:"subtotal"`
	}

	CartLine struct {
		Slug      string          `json:"slug"`
		Name      string          `json:"name"`
		ImageURL  string          `json:"image_url,omitempty"`
		Price     decimal.Decimal `json:"price"`
		Quantity  int             `json:"quantity"`
		LineTotal decimal.Decimal `json:"line_total"`
		Available bool            `json:"available"`
		Stock     int             `json:"stock"`
	}

	CartItemInput struct {
		Slug     string `json:"slug"`
		Quantity int    `json:"quantity"`
	}
)

type (
	Contact struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name,omitempty"`
		Email     string `json:"email,omitempty"`
		Phone     string `json:"phone,omitempty"`
	}

	Address struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2,omitempty"`
		City       string `json:"city"`
		State      string `json:"state,omitempty"`
		PostalCode string `json:"postal_code,omitempty"`
		Country    string `json:"country"`
	}

	CheckoutItem struct {
		Slug     string          `json:"slug"`
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity"`
	}

	CheckoutInput struct {
		CartID          string         `json:"cart_id"`
		Email           string         `json:"email"`
		Items           []CheckoutItem `json:"items"`
		Contact         Contact        `json:"contact"`
		ShippingAddress Address        `json:"shipping_address"`
		Notes           string         `json:"notes"`
	}

	Order struct {
		ID              uuid.UUID       `json:"id"`
		Number          string          `json:"number"`
		Status          string          `json:"status"`
		Subtotal        decimal.Decimal `json:"subtotal"`
		Tax             decimal.Decimal `json:"tax"`
		Shipping        decimal.Decimal `json:"shipping"`
		Total           decimal.Decimal `json:"total"`
		Email           string          `json:"email"`
		UserID          *uuid.UUID      `json:"user_id,omitempty"`
		Contact         Contact         `json:"contact"`
		ShippingAddress Address         `json:"shipping_address"`
		Notes           string          `json:"notes,omitempty"`
		Items           []OrderItem     `json:"items"`
		CreatedAt       time.Time       `json:"created_at"`
		UpdatedAt       time.Time       `json:"updated_at"`
	}

	OrderItem struct {
		ProductID   *uuid.UUID      `json:"product_id,omitempty"`
		ProductSlug string          `json:"product_slug"`
		ProductName string          `json:"product_name"`
		Price       decimal.Decimal `json:"price"`
		Quantity    int             `json:"quantity"`
		LineTotal   decimal.Decimal `json:"line_total"`
	}

	StatusInput struct {
		Status string `json:"status"`
	}
)

type (
	User struct {
		ID         uuid.UUID `json:"id"`
		ExternalID string    `json:"external_id"`
		Email      string    `json:"email"`
		FirstName  string    `json:"first_name,omitempty"`
		LastName   string    `json:"last_name,omitempty"`
		ImageURL   string    `json:"image_url,omitempty"`
		Phone      string    `json:"phone,omitempty"`
		Role       string    `json:"role"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	RoleInput struct {
		Role string `json:"role"`
	}
)

type (
	EmailMetric struct {
		ID        uuid.UUID `json:"id"`
		Kind      string    `json:"type"`
		Channel   string    `json:"channel"`
		Recipient string    `json:"recipient"`
		OrderID   uuid.UUID `json:"order_id"`
		Status    string    `json:"status"`
		Attempt   int       `json:"attempt"`
		Error     string    `json:"error,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	EmailStats struct {
		Kind   string `json:"type"`
		Sent   int64  `json:"sent"`
		Failed int64  `json:"failed"`
		Retry  int64  `json:"retry"`
	}
)

type (
	ErrorResponse struct {
		Error      string      `json:"error"`
		Violations []Violation `json:"violations,omitempty"`
	}

	Violation struct {
		Slug    string `json:"slug"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
)

func fromCategory(c domain.Category) Category {
	return Category{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromProduct(p domain.Product) Product {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return Product{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Status:      string(p.Status),
		Features:    features,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromProducts(ps []domain.Product) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = fromProduct(p)
	}
	return out
}

func (in ProductInput) toDomain(id uuid.UUID) domain.Product {
	status := domain.ProductStatus(in.Status)
	if status == "" {
		status = domain.ProductActive
	}
	return domain.Product{
		ID:          id,
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Status:      status,
		Features:    in.Features,
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
	}
}

func (in CategoryInput) toDomain(id uuid.UUID) domain.Category {
	return domain.Category{
		ID:          id,
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
}

func fromCart(c domain.PricedCart) Cart {
	lines := make([]CartLine, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = CartLine{
			Slug:      l.Slug,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			Price:     l.Price,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
			Available: l.Available,
			Stock:     l.Stock,
		}
	}
	return Cart{ID: c.ID, Lines: lines, Subtotal: c.Subtotal}
}

func (in CheckoutInput) toDomain(userID uuid.NullUUID) domain.PlaceOrder {
	items := make([]domain.ItemRequest, len(in.Items))
	for i, it := range in.Items {
		items[i] = domain.ItemRequest{
			Slug:     it.Slug,
			Price:    it.Price,
			Quantity: it.Quantity,
		}
	}
	return domain.PlaceOrder{
		CartID: in.CartID,
		Email:  in.Email,
		UserID: userID,
		Items:  items,
		Contact: domain.Contact{
			FirstName: in.Contact.FirstName,
			LastName:  in.Contact.LastName,
			Email:     in.Contact.Email,
			Phone:     in.Contact.Phone,
		},
		ShippingAddress: domain.Address{
			Line1:      in.ShippingAddress.Line1,
			Line2:      in.ShippingAddress.Line2,
			City:       in.ShippingAddress.City,
			State:      in.ShippingAddress.State,
			PostalCode: in.ShippingAddress.PostalCode,
			Country:    in.ShippingAddress.Country,
		},
		Notes: in.Notes,
	}
}

func fromOrder(o domain.Order) Order {
	out := Order{
		ID:       o.ID,
		Number:   o.Number,
		Status:   string(o.Status),
		Subtotal: o.Totals.Subtotal,
		Tax:      o.Totals.Tax,
		Shipping: o.Totals.Shipping,
		Total:    o.Totals.Total,
		Email:    o.Email,
		Contact: Contact{
			FirstName: o.Contact.FirstName,
			LastName:  o.Contact.LastName,
			Email:     o.Contact.Email,
			Phone:     o.Contact.Phone,
		},
		ShippingAddress: Address{
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		Notes:     o.Notes,
		Items:     make([]OrderItem, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.UserID.Valid {
		id := o.UserID.UUID
		out.UserID = &id
	}
	for i, it := range o.Items {
		item := OrderItem{
			ProductSlug: it.ProductSlug,
			ProductName: it.ProductName,
			Price:       it.Price,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		}
		if it.ProductID.Valid {
			id := it.ProductID.UUID
			item.ProductID = &id
		}
		out.Items[i] = item
	}
	return out
}

func fromOrders(os []domain.Order) []Order {
	out := make([]Order, len(os))
	for i, o := range os {
		out[i] = fromOrder(o)
	}
	return out
}

func fromUser(u domain.User) User {
	return User{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		ImageURL:   u.ImageURL,
		Phone:      u.Phone,
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func fromMetric(m domain.EmailMetric) EmailMetric {
	return EmailMetric{
		ID:        m.ID,
		Kind:      string(m.Kind),
		Channel:   string(m.Channel),
		Recipient: m.Recipient,
		OrderID:   m.OrderID,
		Status:    string(m.Status),
		Attempt:   m.Attempt,
		Error:     m.Error,
		CreatedAt: m.CreatedAt,
	}
}
