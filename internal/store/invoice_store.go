// Package store is the persistence collaborator: gorm-backed access to
// customers, products and invoices. Every item mutation recomputes the
// owning invoice's derived totals inside the same transaction, so a saved
// invoice always satisfies FinalAmount = TotalAmount - InvoiceDiscountAmount
// over its current items.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tmaged/salesbook/internal/lifecycle"
	"github.com/tmaged/salesbook/internal/models"
	"github.com/tmaged/salesbook/internal/pricing"
)

var (
	// ErrInvoiceNotEditable rejects item mutations on non-draft invoices.
	ErrInvoiceNotEditable = errors.New("invoice is not editable")
	// ErrRevertNeedsReason rejects an unjustified completed-to-draft revert.
	ErrRevertNeedsReason = errors.New("returning a completed invoice to draft requires a reason")
)

// InvoiceFilter narrows LoadCompleted. Nil fields are unbounded; date bounds
// are inclusive and compare the business invoice date.
type InvoiceFilter struct {
	From           *time.Time
	To             *time.Time
	CustomerID     *uint
	MinFinalAmount *decimal.Decimal
}

type InvoiceStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewInvoiceStore(db *gorm.DB, log *zap.Logger) *InvoiceStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvoiceStore{db: db, log: log}
}

// Create opens a new draft invoice for the customer on the given business
// date. marginPct becomes the invoice-wide default margin for items added
// without one of their own.
func (s *InvoiceStore) Create(ctx context.Context, customerID uint, invoiceDate time.Time, marginPct, discountPct decimal.Decimal, notes string) (*models.Invoice, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, customerID).Error; err != nil {
		return nil, errors.Wrapf(err, "load customer %d", customerID)
	}
	if !customer.IsActive {
		return nil, &pricing.ValidationError{Field: "customerID", Msg: "customer is deactivated"}
	}
	inv := models.Invoice{
		CustomerID:      customerID,
		InvoiceDate:     invoiceDate,
		Status:          models.StatusDraft,
		ProfitMarginPct: marginPct,
		DiscountPct:     discountPct,
		Notes:           notes,
	}
	if err := inv.Recalculate(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, errors.Wrap(err, "create invoice")
	}
	inv.Customer = customer
	return &inv, nil
}

// Get loads one invoice with its customer and items (products included).
func (s *InvoiceStore) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items.Product").
		First(&inv, id).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load invoice %d", id)
	}
	return &inv, nil
}

// AddItem snapshots the product's current cost price into a new line and
// recomputes the invoice totals. When marginPct is zero and the invoice
// carries a default margin, the default is folded into the item at add time;
// the two margins never compound.
func (s *InvoiceStore) AddItem(ctx context.Context, invoiceID, productID uint, quantity, marginPct, discountPct decimal.Decimal) (*models.Invoice, error) {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsEditable(inv) {
		return nil, ErrInvoiceNotEditable
	}
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return nil, errors.Wrapf(err, "load product %d", productID)
	}
	if !product.IsActive {
		return nil, &pricing.ValidationError{Field: "productID", Msg: "product is deactivated"}
	}
	if marginPct.IsZero() && inv.ProfitMarginPct.IsPositive() {
		marginPct = inv.ProfitMarginPct
	}
	item := models.InvoiceItem{
		InvoiceID:         invoiceID,
		ProductID:         productID,
		Product:           product,
		Quantity:          quantity,
		OriginalUnitPrice: product.Price,
		ProfitMarginPct:   marginPct,
		DiscountPct:       discountPct,
	}
	if err := item.Reprice(); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Product").Create(&item).Error; err != nil {
			return errors.Wrap(err, "create invoice item")
		}
		inv.Items = append(inv.Items, item)
		return s.saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateItem changes a line's quantity, margin or discount and re-derives
// its prices and the invoice totals. OriginalUnitPrice is immutable.
func (s *InvoiceStore) UpdateItem(ctx context.Context, invoiceID, itemID uint, quantity, marginPct, discountPct decimal.Decimal) (*models.Invoice, error) {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsEditable(inv) {
		return nil, ErrInvoiceNotEditable
	}
	idx := -1
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Errorf("invoice %d has no item %d", invoiceID, itemID)
	}
	it := &inv.Items[idx]
	it.Quantity = quantity
	it.ProfitMarginPct = marginPct
	it.DiscountPct = discountPct
	if err := it.Reprice(); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := map[string]interface{}{
			"quantity":          it.Quantity,
			"profit_margin_pct": it.ProfitMarginPct,
			"discount_pct":      it.DiscountPct,
			"unit_price":        it.UnitPrice,
			"discount_amount":   it.DiscountAmount,
			"profit_amount":     it.ProfitAmount,
			"line_total":        it.LineTotal,
		}
		if err := tx.Model(&models.InvoiceItem{}).Where("id = ?", itemID).Updates(cols).Error; err != nil {
			return errors.Wrap(err, "update invoice item")
		}
		return s.saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// RemoveItem deletes a line and recomputes the invoice totals.
func (s *InvoiceStore) RemoveItem(ctx context.Context, invoiceID, itemID uint) (*models.Invoice, error) {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsEditable(inv) {
		return nil, ErrInvoiceNotEditable
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("invoice_id = ? AND id = ?", invoiceID, itemID).Delete(&models.InvoiceItem{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete invoice item")
		}
		if res.RowsAffected == 0 {
			return errors.Errorf("invoice %d has no item %d", invoiceID, itemID)
		}
		for i := range inv.Items {
			if inv.Items[i].ID == itemID {
				inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
				break
			}
		}
		return s.saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Save persists header changes to a draft invoice (date, notes, default
// margin, invoice discount) and recomputes the derived totals, since a
// discount change shifts FinalAmount.
func (s *InvoiceStore) Save(ctx context.Context, invoiceID uint, invoiceDate time.Time, marginPct, discountPct decimal.Decimal, notes string) (*models.Invoice, error) {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.IsEditable(inv) {
		return nil, ErrInvoiceNotEditable
	}
	inv.InvoiceDate = invoiceDate
	inv.ProfitMarginPct = marginPct
	inv.DiscountPct = discountPct
	inv.Notes = notes
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := map[string]interface{}{
			"invoice_date":      inv.InvoiceDate,
			"profit_margin_pct": inv.ProfitMarginPct,
			"discount_pct":      inv.DiscountPct,
			"notes":             inv.Notes,
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Updates(cols).Error; err != nil {
			return errors.Wrapf(err, "save invoice %d", invoiceID)
		}
		return s.saveTotals(tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// saveTotals recomputes and persists the three derived amounts. It is the
// only writer of those columns.
func (s *InvoiceStore) saveTotals(tx *gorm.DB, inv *models.Invoice) error {
	if err := inv.Recalculate(); err != nil {
		return err
	}
	cols := map[string]interface{}{
		"total_amount":            inv.TotalAmount,
		"invoice_discount_amount": inv.InvoiceDiscountAmount,
		"final_amount":            inv.FinalAmount,
	}
	if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(cols).Error; err != nil {
		return errors.Wrap(err, "save invoice totals")
	}
	return nil
}

// UpdateStatus runs a lifecycle transition and persists the outcome. The
// completed-to-draft revert is an administrative override and demands a
// non-empty reason, which is logged.
func (s *InvoiceStore) UpdateStatus(ctx context.Context, id uint, target models.InvoiceStatus, reason string) (*models.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == models.StatusDraft && inv.Status == models.StatusCompleted && reason == "" {
		return nil, ErrRevertNeedsReason
	}
	from := inv.Status
	if err := lifecycle.Transition(inv, target, time.Now()); err != nil {
		return nil, err
	}
	cols := map[string]interface{}{
		"status":         inv.Status,
		"completed_date": inv.CompletedDate,
	}
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(cols).Error; err != nil {
		return nil, errors.Wrapf(err, "update invoice %d status", id)
	}
	if from == models.StatusCompleted && target == models.StatusDraft {
		s.log.Info("invoice returned to draft",
			zap.Uint("invoice", id),
			zap.String("reason", reason))
	}
	return inv, nil
}

// startOfDay truncates a timestamp to midnight in its own location. Date
// filters compare business dates, so a bound must cover the whole calendar
// day regardless of the time-of-day stored on the invoice.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// LoadCompleted returns fully populated completed invoices matching the
// filter, for the analytics aggregator. The result is a one-shot snapshot:
// callers aggregate it in memory and never re-query mid-computation. Both
// date bounds are inclusive by calendar day.
func (s *InvoiceStore) LoadCompleted(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).
		Where("status = ?", models.StatusCompleted).
		Preload("Customer").
		Preload("Items.Product")
	if f.From != nil {
		q = q.Where("invoice_date >= ?", startOfDay(*f.From))
	}
	if f.To != nil {
		q = q.Where("invoice_date < ?", startOfDay(*f.To).AddDate(0, 0, 1))
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.MinFinalAmount != nil {
		q = q.Where("final_amount >= ?", *f.MinFinalAmount)
	}
	var invs []models.Invoice
	if err := q.Order("invoice_date, id").Find(&invs).Error; err != nil {
		return nil, errors.Wrap(err, "load completed invoices")
	}
	return invs, nil
}

// RecomputeDraftTotals is the periodic backstop: it re-derives totals for
// every draft invoice and rewrites only the rows whose stored values have
// drifted from the pricing engine's output.
func (s *InvoiceStore) RecomputeDraftTotals(ctx context.Context) (int, error) {
	var drafts []models.Invoice
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusDraft).
		Preload("Items").
		Find(&drafts).Error
	if err != nil {
		return 0, errors.Wrap(err, "load draft invoices")
	}
	drifted := 0
	for i := range drafts {
		inv := &drafts[i]
		storedTotal := inv.TotalAmount
		storedDiscount := inv.InvoiceDiscountAmount
		storedFinal := inv.FinalAmount
		if err := inv.Recalculate(); err != nil {
			return drifted, errors.Wrapf(err, "recompute invoice %d", inv.ID)
		}
		if storedTotal.Equal(inv.TotalAmount) &&
			storedDiscount.Equal(inv.InvoiceDiscountAmount) &&
			storedFinal.Equal(inv.FinalAmount) {
			continue
		}
		if err := s.saveTotals(s.db.WithContext(ctx), inv); err != nil {
			return drifted, err
		}
		drifted++
		s.log.Warn("invoice totals drifted",
			zap.Uint("invoice", inv.ID),
			zap.String("stored", storedFinal.String()),
			zap.String("derived", inv.FinalAmount.String()))
	}
	return drifted, nil
}
