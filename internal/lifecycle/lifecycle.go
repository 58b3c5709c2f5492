// Package lifecycle enforces legal invoice status transitions. Draft is the
// initial state; Completed stamps the completion date and closes the invoice
// to edits; Cancelled is terminal. The one backward edge, Completed to Draft,
// is an administrative correction that callers must justify and log.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tmaged/salesbook/internal/models"
)

var (
	// ErrNoCustomer rejects completing an invoice with no customer assigned.
	ErrNoCustomer = errors.New("invoice has no customer assigned")
	// ErrNoItems rejects completing an empty invoice.
	ErrNoItems = errors.New("invoice has no items")
)

// InvalidTransitionError names the attempted source and target states.
type InvalidTransitionError struct {
	From models.InvoiceStatus
	To   models.InvoiceStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid invoice transition %s -> %s", e.From, e.To)
}

// IsEditable reports whether the invoice's items may still be changed.
// Only draft invoices are editable.
func IsEditable(inv *models.Invoice) bool {
	return inv.Status == models.StatusDraft
}

// Complete finalizes a draft invoice and stamps CompletedDate. The invoice
// must have a customer assigned and at least one item.
func Complete(inv *models.Invoice, now time.Time) error {
	if inv.Status != models.StatusDraft {
		return &InvalidTransitionError{From: inv.Status, To: models.StatusCompleted}
	}
	if inv.CustomerID == 0 {
		return errors.Wrapf(ErrNoCustomer, "cannot complete invoice %d", inv.ID)
	}
	if len(inv.Items) == 0 {
		return errors.Wrapf(ErrNoItems, "cannot complete invoice %d", inv.ID)
	}
	inv.Status = models.StatusCompleted
	inv.CompletedDate = &now
	return nil
}

// ReturnToDraft reverts a completed invoice to draft and clears
// CompletedDate. The caller is responsible for logging the justification.
func ReturnToDraft(inv *models.Invoice) error {
	if inv.Status != models.StatusCompleted {
		return &InvalidTransitionError{From: inv.Status, To: models.StatusDraft}
	}
	inv.Status = models.StatusDraft
	inv.CompletedDate = nil
	return nil
}

// Cancel voids a draft invoice. Cancelled is terminal and cancelled invoices
// never feed analytics.
func Cancel(inv *models.Invoice) error {
	if inv.Status != models.StatusDraft {
		return &InvalidTransitionError{From: inv.Status, To: models.StatusCancelled}
	}
	inv.Status = models.StatusCancelled
	return nil
}

// Transition moves the invoice to target, dispatching to the specific
// operation. It exists for status-update entry points that receive the
// target state as data.
func Transition(inv *models.Invoice, target models.InvoiceStatus, now time.Time) error {
	switch target {
	case models.StatusCompleted:
		return Complete(inv, now)
	case models.StatusDraft:
		return ReturnToDraft(inv)
	case models.StatusCancelled:
		return Cancel(inv)
	default:
		return &InvalidTransitionError{From: inv.Status, To: target}
	}
}
