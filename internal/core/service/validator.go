package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// ValidateItems checks every requested line against the catalog as seen
// through finder. All lines are checked; violations are returned together
// as a [*domain.ValidationError]. On success the resolved products are
// returned keyed by slug.
//
// The result is only as consistent as finder: a plain catalog read can go
// stale before the order is written, products locked in the writing
// transaction cannot.
func ValidateItems(
	ctx context.Context, finder port.ProductFinder, items []domain.ItemRequest,
) (map[string]domain.Product, error) {
	const op = "ValidateItems"

	verr := new(domain.ValidationError)
	if len(items) == 0 {
		verr.Add("", domain.ReasonEmpty, "order has no items")
		return nil, verr
	}

	products := make(map[string]domain.Product, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		if _, dup := seen[item.Slug]; dup {
			verr.Add(item.Slug, domain.ReasonDuplicate,
				fmt.Sprintf("duplicate product in order: %s", item.Slug))
			continue
		}
		seen[item.Slug] = struct{}{}

		if item.Quantity <= 0 {
			verr.Add(item.Slug, domain.ReasonInvalidQuantity,
				fmt.Sprintf("invalid quantity for %s: %d", item.Slug, item.Quantity))
			continue
		}

		p, err := finder.ProductBySlug(ctx, item.Slug)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				verr.Add(item.Slug, domain.ReasonNotFound,
					fmt.Sprintf("product not found: %s", item.Slug))
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if v, ok := checkItem(item, p); !ok {
			verr.Violations = append(verr.Violations, v)
			continue
		}
		products[item.Slug] = p
	}

	if !verr.Empty() {
		return nil, verr
	}
	return products, nil
}

func checkItem(item domain.ItemRequest, p domain.Product) (domain.Violation, bool) {
	switch {
	case !p.Available():
		return domain.Violation{
			Slug:    item.Slug,
			Reason:  domain.ReasonNotAvailable,
			Message: fmt.Sprintf("product not available: %s", p.Name),
		}, false

	case !item.Price.Equal(p.Price):
		return domain.Violation{
			Slug:   item.Slug,
			Reason: domain.ReasonPriceMismatch,
			Message: fmt.Sprintf(
				"price mismatch for %s: submitted %s, current %s",
				p.Name, item.Price.StringFixed(2), p.Price.StringFixed(2),
			),
		}, false

	case item.Quantity > p.Stock:
		return domain.Violation{
			Slug:   item.Slug,
			Reason: domain.ReasonInsufficientStock,
			Message: fmt.Sprintf(
				"insufficient stock for %s: %d solicitados, %d disponibles",
				p.Name, item.Quantity, p.Stock,
			),
		}, false
	}
	return domain.Violation{}, true
}
