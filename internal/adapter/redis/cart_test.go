package redis

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/niksmo/storefront/internal/core/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCartStore(rdb, ttl), mr
}

func TestCartStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)
		c := domain.Cart{ID: "c1", Items: []domain.CartItem{
			{Slug: "a", Quantity: 2},
			{Slug: "b", Quantity: 1},
		}}

		require.NoError(t, s.SaveCart(t.Context(), c))
		got, err := s.Cart(t.Context(), "c1")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("Missing", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)

		_, err := s.Cart(t.Context(), "nope")
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})

	t.Run("Expires", func(t *testing.T) {
		s, mr := newStore(t, time.Minute)
		require.NoError(t, s.SaveCart(t.Context(), domain.Cart{ID: "c1"}))
		assert.Equal(t, time.Minute, mr.TTL(cartKey("c1")))

		mr.FastForward(2 * time.Minute)
		_, err := s.Cart(t.Context(), "c1")
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)
		require.NoError(t, s.SaveCart(t.Context(), domain.Cart{ID: "c1"}))

		require.NoError(t, s.DeleteCart(t.Context(), "c1"))
		_, err := s.Cart(t.Context(), "c1")
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})

	t.Run("UpdateCart", func(t *testing.T) {
		s, mr := newStore(t, time.Hour)
		require.NoError(t, s.SaveCart(t.Context(), domain.Cart{ID: "c1"}))
		mr.SetTTL(cartKey("c1"), time.Minute)

		got, err := s.UpdateCart(t.Context(), "c1", func(c *domain.Cart) error {
			c.Items = append(c.Items, domain.CartItem{Slug: "a", Quantity: 1})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.CartItem{{Slug: "a", Quantity: 1}}, got.Items)
		assert.Equal(t, time.Hour, mr.TTL(cartKey("c1")))

		stored, err := s.Cart(t.Context(), "c1")
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})

	t.Run("UpdateCartRereadsAfterConcurrentWrite", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)
		require.NoError(t, s.SaveCart(t.Context(), domain.Cart{ID: "c1"}))

		var calls int
		got, err := s.UpdateCart(t.Context(), "c1", func(c *domain.Cart) error {
			calls++
			if calls == 1 {
				other := domain.Cart{ID: "c1", Items: []domain.CartItem{{Slug: "b", Quantity: 2}}}
				require.NoError(t, s.SaveCart(t.Context(), other))
			}
			c.Items = append(c.Items, domain.CartItem{Slug: "a", Quantity: 1})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []domain.CartItem{
			{Slug: "b", Quantity: 2},
			{Slug: "a", Quantity: 1},
		}, got.Items)
	})

	t.Run("UpdateCartConcurrentWriters", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)
		require.NoError(t, s.SaveCart(t.Context(), domain.Cart{ID: "c1"}))

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.UpdateCart(t.Context(), "c1", func(c *domain.Cart) error {
					c.Items = append(c.Items, domain.CartItem{
						Slug: fmt.Sprintf("p%d", i), Quantity: 1,
					})
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Cart(t.Context(), "c1")
		require.NoError(t, err)
		assert.Len(t, got.Items, 4)
	})

	t.Run("UpdateCartAbortsOnFnError", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)
		require.NoError(t, s.SaveCart(t.Context(), domain.Cart{ID: "c1"}))

		_, err := s.UpdateCart(t.Context(), "c1", func(c *domain.Cart) error {
			c.Items = append(c.Items, domain.CartItem{Slug: "a", Quantity: 1})
			return domain.ErrInvalidInput
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		stored, err := s.Cart(t.Context(), "c1")
		require.NoError(t, err)
		assert.Empty(t, stored.Items)
	})

	t.Run("UpdateMissingCart", func(t *testing.T) {
		s, _ := newStore(t, time.Hour)

		_, err := s.UpdateCart(t.Context(), "nope", func(*domain.Cart) error { return nil })
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})
}
