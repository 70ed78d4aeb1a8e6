package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(slug, price string, qty int) domain.ItemRequest {
	return domain.ItemRequest{
		Slug:     slug,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
}

type failingFinder struct{ err error }

func (f failingFinder) ProductBySlug(context.Context, string) (domain.Product, error) {
	return domain.Product{}, f.err
}

func TestValidateItems(t *testing.T) {
	t.Run("InsufficientStock", func(t *testing.T) {
		finder := newCatalogStub(product("a", "100", 1))

		_, err := service.ValidateItems(
			t.Context(), finder, []domain.ItemRequest{item("a", "100", 2)},
		)
		require.Error(t, err)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, domain.ReasonInsufficientStock, verr.Violations[0].Reason)
		assert.Contains(t, verr.Error(), "2 solicitados, 1 disponibles")
	})

	t.Run("OneUnknownSlug", func(t *testing.T) {
		finder := newCatalogStub(product("a", "100", 5))

		_, err := service.ValidateItems(t.Context(), finder, []domain.ItemRequest{
			item("a", "100", 1),
			item("ghost", "10", 1),
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, "ghost", verr.Violations[0].Slug)
		assert.Equal(t, domain.ReasonNotFound, verr.Violations[0].Reason)
		assert.Equal(t, "product not found: ghost", verr.Violations[0].Message)
	})

	t.Run("ReportsEveryViolation", func(t *testing.T) {
		inactive := product("off", "5", 10)
		inactive.Status = domain.ProductInactive
		finder := newCatalogStub(
			product("a", "100", 1),
			product("b", "20.50", 10),
			inactive,
		)

		_, err := service.ValidateItems(t.Context(), finder, []domain.ItemRequest{
			item("a", "100", 3),
			item("b", "20.00", 1),
			item("off", "5", 1),
			item("ghost", "1", 1),
			item("zero", "1", 0),
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		reasons := make([]domain.ViolationReason, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			reasons = append(reasons, v.Reason)
		}
		assert.Equal(t, []domain.ViolationReason{
			domain.ReasonInsufficientStock,
			domain.ReasonPriceMismatch,
			domain.ReasonNotAvailable,
			domain.ReasonNotFound,
			domain.ReasonInvalidQuantity,
		}, reasons)
		assert.Contains(t, verr.Messages()[1], "submitted 20.00, current 20.50")
	})

	t.Run("PriceComparedByValue", func(t *testing.T) {
		finder := newCatalogStub(product("a", "100.00", 3))

		ps, err := service.ValidateItems(
			t.Context(), finder, []domain.ItemRequest{item("a", "100", 1)},
		)
		require.NoError(t, err)
		assert.Contains(t, ps, "a")
	})

	t.Run("Duplicate", func(t *testing.T) {
		finder := newCatalogStub(product("a", "1", 10))

		_, err := service.ValidateItems(t.Context(), finder, []domain.ItemRequest{
			item("a", "1", 1),
			item("a", "1", 2),
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, domain.ReasonDuplicate, verr.Violations[0].Reason)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := service.ValidateItems(t.Context(), newCatalogStub(), nil)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, domain.ReasonEmpty, verr.Violations[0].Reason)
	})

	t.Run("KeysMatchInput", func(t *testing.T) {
		finder := newCatalogStub(
			product("a", "1", 10),
			product("b", "2", 10),
			product("c", "3", 10),
		)
		items := []domain.ItemRequest{
			item("c", "3", 1),
			item("a", "1", 4),
			item("b", "2", 10),
		}

		ps, err := service.ValidateItems(t.Context(), finder, items)
		require.NoError(t, err)

		keys := make([]string, 0, len(ps))
		for k, p := range ps {
			keys = append(keys, k)
			assert.Equal(t, k, p.Slug)
		}
		slices.Sort(keys)
		assert.Equal(t, []string{"a", "b", "c"}, keys)
	})

	t.Run("Idempotent", func(t *testing.T) {
		finder := newCatalogStub(product("a", "100", 1))
		items := []domain.ItemRequest{item("a", "100", 2), item("x", "1", 1)}

		_, err1 := service.ValidateItems(t.Context(), finder, items)
		_, err2 := service.ValidateItems(t.Context(), finder, items)
		require.Error(t, err1)
		require.Error(t, err2)
		assert.Equal(t, err1.Error(), err2.Error())
	})

	t.Run("StorageError", func(t *testing.T) {
		boom := errors.New("connection reset")

		_, err := service.ValidateItems(
			t.Context(), failingFinder{boom}, []domain.ItemRequest{item("a", "1", 1)},
		)
		require.ErrorIs(t, err, boom)

		var verr *domain.ValidationError
		assert.False(t, errors.As(err, &verr))
	})

	// Validation alone reads unlocked stock: two checks of the last unit
	// both pass. PlaceOrder closes this by validating inside the
	// transaction.
	t.Run("UnlockedReadsBothPass", func(t *testing.T) {
		finder := newCatalogStub(product("a", "100", 1))
		items := []domain.ItemRequest{item("a", "100", 1)}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = service.ValidateItems(t.Context(), finder, items)
			}()
		}
		wg.Wait()

		assert.NoError(t, errs[0])
		assert.NoError(t, errs[1])
	})
}
