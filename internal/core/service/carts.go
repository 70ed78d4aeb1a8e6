package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.CartManager = (*CartService)(nil)

const maxCartLines = 50

type CartService struct {
	storage  port.CartStorage
	products port.ProductFinder
}

func NewCartService(
	storage port.CartStorage, products port.ProductFinder,
) CartService {
	return CartService{storage, products}
}

func (s CartService) CreateCart(ctx context.Context) (domain.Cart, error) {
	const op = "CartService.CreateCart"

	c := domain.Cart{ID: uuid.NewString()}
	if err := s.storage.SaveCart(ctx, c); err != nil {
		return domain.Cart{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s CartService) Cart(
	ctx context.Context, id string,
) (domain.PricedCart, error) {
	const op = "CartService.Cart"

	c, err := s.storage.Cart(ctx, id)
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.priceCart(ctx, op, c)
}

// SetItem sets the quantity of slug in the cart. A non-positive quantity
// removes the line.
func (s CartService) SetItem(
	ctx context.Context, id, slug string, quantity int,
) (domain.PricedCart, error) {
	const op = "CartService.SetItem"

	slug = strings.TrimSpace(slug)
	if quantity <= 0 {
		return s.RemoveItem(ctx, id, slug)
	}

	if _, err := s.storage.Cart(ctx, id); err != nil {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.products.ProductBySlug(ctx, slug)
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, err)
	}
	if !p.Available() {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, domain.ErrProductNotFound)
	}
	if quantity > p.Stock {
		return domain.PricedCart{}, fmt.Errorf(
			"%s: %w: %d requested, %d available",
			op, domain.ErrOutOfStock, quantity, p.Stock,
		)
	}

	c, err := s.storage.UpdateCart(ctx, id, func(c *domain.Cart) error {
		i := slices.IndexFunc(c.Items, func(it domain.CartItem) bool {
			return it.Slug == slug
		})
		if i >= 0 {
			c.Items[i].Quantity = quantity
			return nil
		}
		if len(c.Items) >= maxCartLines {
			return fmt.Errorf("%w: cart is full", domain.ErrInvalidInput)
		}
		c.Items = append(c.Items, domain.CartItem{Slug: slug, Quantity: quantity})
		return nil
	})
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.priceCart(ctx, op, c)
}

func (s CartService) RemoveItem(
	ctx context.Context, id, slug string,
) (domain.PricedCart, error) {
	const op = "CartService.RemoveItem"

	c, err := s.storage.UpdateCart(ctx, id, func(c *domain.Cart) error {
		c.Items = slices.DeleteFunc(c.Items, func(it domain.CartItem) bool {
			return it.Slug == slug
		})
		return nil
	})
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.priceCart(ctx, op, c)
}

func (s CartService) ClearCart(ctx context.Context, id string) error {
	const op = "CartService.ClearCart"

	if err := s.storage.DeleteCart(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CartService) priceCart(
	ctx context.Context, op string, c domain.Cart,
) (domain.PricedCart, error) {
	pc, err := s.price(ctx, c)
	if err != nil {
		return domain.PricedCart{}, fmt.Errorf("%s: %w", op, err)
	}
	return pc, nil
}

// price resolves cart lines against the current catalog. Lines whose
// product vanished or was deactivated stay in the cart but are flagged
// unavailable and left out of the subtotal.
func (s CartService) price(
	ctx context.Context, c domain.Cart,
) (domain.PricedCart, error) {
	pc := domain.PricedCart{
		ID:       c.ID,
		Lines:    make([]domain.CartLine, 0, len(c.Items)),
		Subtotal: decimal.Zero,
	}

	for _, it := range c.Items {
		line := domain.CartLine{
			Slug:      it.Slug,
			Name:      it.Slug,
			Quantity:  it.Quantity,
			Price:     decimal.Zero,
			LineTotal: decimal.Zero,
		}

		p, err := s.products.ProductBySlug(ctx, it.Slug)
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
		case err != nil:
			return domain.PricedCart{}, err
		default:
			line.Name = p.Name
			line.ImageURL = p.ImageURL
			line.Price = p.Price
			line.Stock = p.Stock
			line.Available = p.Available() && it.Quantity <= p.Stock
			line.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}

		if line.Available {
			pc.Subtotal = pc.Subtotal.Add(line.LineTotal)
		}
		pc.Lines = append(pc.Lines, line)
	}
	return pc, nil
}
