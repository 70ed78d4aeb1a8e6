package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/retry"
	goredis "github.com/redis/go-redis/v9"
)

var _ port.CartStorage = CartStore{}

const (
	cartKeyPrefix      = "cart:"
	cartUpdateAttempts = 5
)

type cartValue struct {
	Items []cartItemValue `json:"items"`
}

type cartItemValue struct {
	Slug     string `json:"slug"`
	Quantity int    `json:"quantity"`
}

// A CartStore keeps carts as JSON documents. Every save refreshes the TTL.
type CartStore struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewCartStore(rdb goredis.UniversalClient, ttl time.Duration) CartStore {
	return CartStore{rdb, ttl}
}

func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	const op = "redis.NewClient"
	log := slog.With("op", op)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}
	log.Info("redis is available")
	return rdb, nil
}

func (s CartStore) SaveCart(ctx context.Context, c domain.Cart) error {
	const op = "CartStore.SaveCart"

	b, err := encodeCart(c)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Set(ctx, cartKey(c.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CartStore) Cart(ctx context.Context, id string) (domain.Cart, error) {
	const op = "CartStore.Cart"

	c, err := s.load(ctx, s.rdb, id)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// UpdateCart applies fn to the stored cart under WATCH. When another
// writer changes the cart first, the read-modify-write is repeated
// against the new value; after cartUpdateAttempts it fails with
// [domain.ErrConflict].
func (s CartStore) UpdateCart(
	ctx context.Context, id string, fn func(*domain.Cart) error,
) (domain.Cart, error) {
	const op = "CartStore.UpdateCart"

	key := cartKey(id)
	retryCfg := retry.RetryConfig{
		MaxAttempts: cartUpdateAttempts,
		Backoff:     retry.ExponentialBackoff(time.Millisecond),
		ShouldRetry: func(err error) bool {
			return errors.Is(err, goredis.TxFailedErr)
		},
	}

	c, err := retry.DoWithResult(ctx, retryCfg, func() (domain.Cart, error) {
		var updated domain.Cart
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			c, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := fn(&c); err != nil {
				return err
			}
			b, err := encodeCart(c)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, b, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			updated = c
			return nil
		}, key)
		return updated, err
	})
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			err = fmt.Errorf("%w: cart changed concurrently", domain.ErrConflict)
		}
		return domain.Cart{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s CartStore) load(
	ctx context.Context, rdb goredis.Cmdable, id string,
) (domain.Cart, error) {
	b, err := rdb.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, err
	}

	var v cartValue
	if err := json.Unmarshal(b, &v); err != nil {
		return domain.Cart{}, err
	}

	c := domain.Cart{ID: id, Items: make([]domain.CartItem, 0, len(v.Items))}
	for _, it := range v.Items {
		c.Items = append(c.Items, domain.CartItem{Slug: it.Slug, Quantity: it.Quantity})
	}
	return c, nil
}

func encodeCart(c domain.Cart) ([]byte, error) {
	v := cartValue{Items: make([]cartItemValue, 0, len(c.Items))}
	for _, it := range c.Items {
		v.Items = append(v.Items, cartItemValue{it.Slug, it.Quantity})
	}
	return json.Marshal(v)
}

func (s CartStore) DeleteCart(ctx context.Context, id string) error {
	const op = "CartStore.DeleteCart"

	if err := s.rdb.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func cartKey(id string) string {
	return cartKeyPrefix + id
}
