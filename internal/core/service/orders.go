package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/retry"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

var _ port.OrderPlacer = (*OrderService)(nil)
var _ port.OrderReader = (*OrderService)(nil)
var _ port.OrderManager = (*OrderService)(nil)

const orderNumberAttempts = 3

type OrderService struct {
	storage   port.OrderStorage
	users     port.UserStorage
	carts     port.CartStorage
	publisher port.NotificationPublisher
	pricing   domain.Pricing
	now       func() time.Time
	newNumber func(time.Time) string
}

func NewOrderService(
	storage port.OrderStorage,
	users port.UserStorage,
	carts port.CartStorage,
	publisher port.NotificationPublisher,
	pricing domain.Pricing,
) OrderService {
	return OrderService{
		storage:   storage,
		users:     users,
		carts:     carts,
		publisher: publisher,
		pricing:   pricing,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

// NewOrderNumber returns a human-readable order number: the UTC date
// followed by the random tail of a ULID minted at t.
func NewOrderNumber(t time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
	return "ORD-" + t.UTC().Format("20060102") + "-" + id[len(id)-8:]
}

// PlaceOrder validates the requested items and writes the order in one
// transaction. Products are row-locked while validated, so the stock
// decrement cannot overcommit.
func (s OrderService) PlaceOrder(
	ctx context.Context, cmd domain.PlaceOrder,
) (domain.Order, error) {
	const op = "OrderService.PlaceOrder"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	cmd = normalizeCheckout(cmd)
	if err := validateCheckout(cmd); err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	retryCfg := retry.RetryConfig{
		MaxAttempts: orderNumberAttempts,
		Backoff:     retry.LineareBackoff(10 * time.Millisecond),
		ShouldRetry: func(err error) bool {
			return errors.Is(err, domain.ErrOrderNumberTaken)
		},
	}

	order, err := retry.DoWithResult(ctx, retryCfg, func() (domain.Order, error) {
		return s.placeOrder(ctx, cmd)
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info(
		"order placed",
		"orderNumber", order.Number,
		"nItems", len(order.Items),
		"total", order.Totals.Total.StringFixed(2),
	)

	s.notify(ctx, domain.KindOrderConfirmation, order)

	if cmd.CartID != "" {
		if err := s.carts.DeleteCart(ctx, cmd.CartID); err != nil {
			log.Warn("failed to clear cart", "cartID", cmd.CartID, "err", err)
		}
	}

	return order, nil
}

func (s OrderService) placeOrder(
	ctx context.Context, cmd domain.PlaceOrder,
) (order domain.Order, err error) {
	err = s.storage.WithinTx(ctx, func(ctx context.Context, tx port.OrderTx) error {
		locked, err := tx.LockProducts(ctx, requestedSlugs(cmd.Items))
		if err != nil {
			return err
		}

		products, err := ValidateItems(ctx, lockedProducts(locked), cmd.Items)
		if err != nil {
			return err
		}

		order = s.buildOrder(cmd, products)

		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}

		for _, item := range order.Items {
			err := tx.DecrementStock(ctx, item.ProductID.UUID, item.Quantity)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return order, err
}

// lockedProducts serves products already locked in the transaction.
type lockedProducts map[string]domain.Product

func (lp lockedProducts) ProductBySlug(
	_ context.Context, slug string,
) (domain.Product, error) {
	p, ok := lp[slug]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

// restockOrder returns the items whose products still exist, sorted by
// product id to match the lock order of checkout.
func restockOrder(items []domain.OrderItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if it.ProductID.Valid {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b domain.OrderItem) int {
		return bytes.Compare(a.ProductID.UUID[:], b.ProductID.UUID[:])
	})
	return out
}

func requestedSlugs(items []domain.ItemRequest) []string {
	slugs := make([]string, 0, len(items))
	for _, it := range items {
		slugs = append(slugs, it.Slug)
	}
	slices.Sort(slugs)
	return slices.Compact(slugs)
}

func (s OrderService) buildOrder(
	cmd domain.PlaceOrder, products map[string]domain.Product,
) domain.Order {
	now := s.now()
	order := domain.Order{
		ID:              uuid.New(),
		Number:          s.newNumber(now),
		Status:          domain.OrderPending,
		Email:           cmd.Email,
		UserID:          cmd.UserID,
		Contact:         cmd.Contact,
		ShippingAddress: cmd.ShippingAddress,
		Notes:           cmd.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	subtotal := decimal.Zero
	order.Items = make([]domain.OrderItem, 0, len(cmd.Items))
	for _, req := range cmd.Items {
		p := products[req.Slug]
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   uuid.NullUUID{UUID: p.ID, Valid: true},
			ProductSlug: p.Slug,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    req.Quantity,
			LineTotal:   lineTotal,
		})
	}

	order.Totals = s.pricing.Totals(subtotal)
	return order
}

// UpdateStatus moves the order to status. The transition is authoritative:
// notification failures after commit are only logged.
func (s OrderService) UpdateStatus(
	ctx context.Context, id uuid.UUID, status domain.OrderStatus,
) (domain.Order, error) {
	const op = "OrderService.UpdateStatus"
	log := slog.With("op", op, "orderID", id)

	if !status.Valid() {
		return domain.Order{}, fmt.Errorf(
			"%s: %w: unknown status %q", op, domain.ErrInvalidInput, status,
		)
	}

	var (
		order   domain.Order
		changed bool
	)
	err := s.storage.WithinTx(ctx, func(ctx context.Context, tx port.OrderTx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}

		if o.Status == status {
			order = o
			return nil
		}

		if !o.Status.CanTransitionTo(status) {
			return fmt.Errorf(
				"%w: %s -> %s", domain.ErrInvalidTransition, o.Status, status,
			)
		}

		if err := tx.SetOrderStatus(ctx, id, status); err != nil {
			return err
		}

		if status == domain.OrderCancelled {
			for _, item := range restockOrder(o.Items) {
				err := tx.RestoreStock(ctx, item.ProductID.UUID, item.Quantity)
				if err != nil {
					return err
				}
			}
		}

		o.Status = status
		o.UpdatedAt = s.now()
		order = o
		changed = true
		return nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	if changed {
		log.Info("status updated", "status", status)
		s.notify(ctx, domain.KindStatusUpdate, order)
	}

	return order, nil
}

// OrderByNumber is the guest lookup; email must match the order.
func (s OrderService) OrderByNumber(
	ctx context.Context, number, email string,
) (domain.Order, error) {
	const op = "OrderService.OrderByNumber"

	o, err := s.storage.OrderByNumber(ctx, number)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	email = normalizeEmail(email)
	if email == "" ||
		(email != normalizeEmail(o.Email) &&
			email != normalizeEmail(o.Contact.Email)) {
		return domain.Order{}, fmt.Errorf("%s: %w", op, domain.ErrOrderNotFound)
	}
	return o, nil
}

func (s OrderService) UserOrders(
	ctx context.Context, userID uuid.UUID, page domain.Page,
) ([]domain.Order, error) {
	return s.ListOrders(ctx, domain.OrderFilter{
		UserID: uuid.NullUUID{UUID: userID, Valid: true},
		Page:   page,
	})
}

func (s OrderService) ListOrders(
	ctx context.Context, f domain.OrderFilter,
) ([]domain.Order, error) {
	const op = "OrderService.ListOrders"

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf(
			"%s: %w: unknown status %q", op, domain.ErrInvalidInput, f.Status,
		)
	}
	f.Page = f.Page.Normalize()

	orders, err := s.storage.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (s OrderService) OrderByID(
	ctx context.Context, id uuid.UUID,
) (domain.Order, error) {
	const op = "OrderService.OrderByID"

	o, err := s.storage.OrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (s OrderService) notify(
	ctx context.Context, kind domain.NotificationKind, o domain.Order,
) {
	const op = "OrderService.notify"
	log := slog.With("op", op, "orderNumber", o.Number, "kind", kind)

	n := domain.Notification{
		Kind:         kind,
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		Recipient:    resolveRecipient(ctx, s.users, o),
		Phone:        o.Contact.Phone,
		CustomerName: o.Contact.FullName(),
		Status:       o.Status,
		Total:        o.Totals.Total,
		Attempt:      1,
		CreatedAt:    s.now(),
	}

	if n.Recipient == "" && n.Phone == "" {
		log.Warn("no recipient, notification skipped")
		return
	}

	if err := s.publisher.PublishNotification(ctx, n); err != nil {
		log.Error("failed to publish notification", "err", err)
		return
	}
	log.Debug("notification published")
}

// resolveRecipient picks the explicit order email, then the linked
// user's email, then the contact email.
func resolveRecipient(
	ctx context.Context, users port.UserStorage, o domain.Order,
) string {
	const op = "resolveRecipient"

	if o.Email != "" {
		return o.Email
	}

	if o.UserID.Valid {
		u, err := users.UserByID(ctx, o.UserID.UUID)
		if err == nil && u.Email != "" {
			return u.Email
		}
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			slog.Warn("failed to load order user", "op", op, "err", err)
		}
	}

	return o.Contact.Email
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeCheckout(cmd domain.PlaceOrder) domain.PlaceOrder {
	cmd.Email = normalizeEmail(cmd.Email)
	cmd.Contact.Email = normalizeEmail(cmd.Contact.Email)
	cmd.Contact.FirstName = strings.TrimSpace(cmd.Contact.FirstName)
	cmd.Contact.LastName = strings.TrimSpace(cmd.Contact.LastName)
	cmd.Contact.Phone = strings.TrimSpace(cmd.Contact.Phone)
	for i := range cmd.Items {
		cmd.Items[i].Slug = strings.TrimSpace(cmd.Items[i].Slug)
	}
	return cmd
}

func validateCheckout(cmd domain.PlaceOrder) error {
	var errs []error

	if cmd.Email == "" && cmd.Contact.Email == "" {
		errs = append(errs, errors.New("email is required"))
	}
	if cmd.Contact.FirstName == "" {
		errs = append(errs, errors.New("contact first name is required"))
	}

	addr := cmd.ShippingAddress
	if strings.TrimSpace(addr.Line1) == "" {
		errs = append(errs, errors.New("shipping address line1 is required"))
	}
	if strings.TrimSpace(addr.City) == "" {
		errs = append(errs, errors.New("shipping address city is required"))
	}
	if strings.TrimSpace(addr.Country) == "" {
		errs = append(errs, errors.New("shipping address country is required"))
	}

	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
