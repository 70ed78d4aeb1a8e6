package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	ErrProductNotFound     = notFound("product")
	ErrCategoryNotFound    = notFound("category")
	ErrOrderNotFound       = notFound("order")
	ErrUserNotFound        = notFound("user")
	ErrEmailMetricNotFound = notFound("email metric")
	ErrCartNotFound        = notFound("cart")

	ErrOrderNumberTaken  = fmt.Errorf("%w: order number taken", ErrConflict)
	ErrSlugTaken         = fmt.Errorf("%w: slug taken", ErrConflict)
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrRetryNotAllowed   = errors.New("notification retry not allowed")
	ErrOutOfStock        = fmt.Errorf("%w: out of stock", ErrConflict)
)

type entityError struct {
	entity string
	kind   error
}

func notFound(entity string) error {
	return entityError{entity, ErrNotFound}
}

func (e entityError) Error() string {
	return e.entity + " " + e.kind.Error()
}

func (e entityError) Unwrap() error {
	return e.kind
}

type ViolationReason string

const (
	ReasonNotFound          ViolationReason = "not_found"
	ReasonNotAvailable      ViolationReason = "not_available"
	ReasonPriceMismatch     ViolationReason = "price_mismatch"
	ReasonInsufficientStock ViolationReason = "insufficient_stock"
	ReasonInvalidQuantity   ViolationReason = "invalid_quantity"
	ReasonDuplicate         ViolationReason = "duplicate"
	ReasonEmpty             ViolationReason = "empty"
)

// A Violation describes one rejected order item.
type Violation struct {
	Slug    string
	Reason  ViolationReason
	Message string
}

// A ValidationError aggregates every violation found in a single request,
// so a caller can present the full correction list at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "\n")
}

func (e *ValidationError) Add(slug string, reason ViolationReason, msg string) {
	e.Violations = append(e.Violations, Violation{slug, reason, msg})
}

func (e *ValidationError) Empty() bool {
	return len(e.Violations) == 0
}

// Messages returns violation messages in input order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return msgs
}
