package engine

import (
	"errors"
	"fmt"

	"github.com/storekit/shopcore/internal/models"
)

// ErrNotFound reports a missing entity looked up by its identifier.
var ErrNotFound = errors.New("not found")

// ConstraintViolation is a field-level rule failure local to one entity.
type ConstraintViolation struct {
	Entity string
	Field  string
	Rule   string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation: %s.%s %s", e.Entity, e.Field, e.Rule)
}

// ReferentialViolation is a cross-entity reference, cardinality or
// deletion-policy failure.
type ReferentialViolation struct {
	Entity    string
	Reference string
	Rule      string
}

func (e *ReferentialViolation) Error() string {
	return fmt.Sprintf("referential violation: %s -> %s %s", e.Entity, e.Reference, e.Rule)
}

// InvalidStateTransition names the current and requested states of a
// rejected status change.
type InvalidStateTransition struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s %s -> %s", e.Entity, e.From, e.To)
}

type InsufficientStock struct {
	ProductID uint
	Requested uint
	Available int
}

func (e *InsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock: product %d has %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// DiscountNotApplicable carries the specific reason a discount was rejected.
type DiscountNotApplicable struct {
	Code   string
	Reason string
}

func (e *DiscountNotApplicable) Error() string {
	return fmt.Sprintf("discount %q not applicable: %s", e.Code, e.Reason)
}

// ResourceBusy is the only transient condition in the taxonomy; callers may
// retry it with backoff, everything else needs a changed input.
type ResourceBusy struct {
	Resource string
}

func (e *ResourceBusy) Error() string {
	return fmt.Sprintf("resource busy: %s", e.Resource)
}

func invalidOrderTransition(from, to models.OrderStatus) error {
	return &InvalidStateTransition{Entity: "order", From: string(from), To: string(to)}
}

func invalidPaymentTransition(from, to models.PaymentStatus) error {
	return &InvalidStateTransition{Entity: "payment", From: string(from), To: string(to)}
}
