package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tmaged/salesbook/internal/lifecycle"
	"github.com/tmaged/salesbook/internal/models"
	"github.com/tmaged/salesbook/internal/pricing"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Customer{}, &models.Product{}, &models.Invoice{}, &models.InvoiceItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func seedFixtures(t *testing.T, db *gorm.DB) (models.Customer, models.Product) {
	t.Helper()
	customer := models.Customer{Name: "Ahmed Trading", Phone: "0100000001", IsActive: true}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	product := models.Product{Name: "Black Tea", SKU: "TEA-01", Unit: "box", Category: "beverage", Price: decimal.NewFromInt(100), IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return customer, product
}

func TestAddItemRecomputesStoredTotals(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, err := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !inv.FinalAmount.IsZero() {
		t.Fatalf("new invoice final = %s", inv.FinalAmount)
	}

	// cost 100, margin 10%, qty 3, discount 5% => line total 313.50
	inv, err = s.AddItem(ctx, inv.ID, product.ID, dec(t, "3"), dec(t, "10"), dec(t, "5"))
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !inv.FinalAmount.Equal(dec(t, "313.5")) {
		t.Fatalf("final = %s", inv.FinalAmount)
	}

	// the persisted row must carry the same totals
	reloaded, err := s.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.TotalAmount.Equal(dec(t, "313.5")) || !reloaded.FinalAmount.Equal(dec(t, "313.5")) {
		t.Fatalf("stored totals %s / %s", reloaded.TotalAmount, reloaded.FinalAmount)
	}
	if len(reloaded.Items) != 1 {
		t.Fatalf("items = %d", len(reloaded.Items))
	}
	if !reloaded.Items[0].UnitPrice.Equal(dec(t, "110")) {
		t.Fatalf("unit price = %s", reloaded.Items[0].UnitPrice)
	}
}

func TestUpdateAndRemoveItemRecompute(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, err := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, dec(t, "10"), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, err = s.AddItem(ctx, inv.ID, product.ID, dec(t, "2"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := inv.Items[0].ID
	// 2 x 100 = 200, invoice discount 10% => 180
	if !inv.FinalAmount.Equal(dec(t, "180")) {
		t.Fatalf("final = %s", inv.FinalAmount)
	}

	inv, err = s.UpdateItem(ctx, inv.ID, itemID, dec(t, "5"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !inv.FinalAmount.Equal(dec(t, "450")) {
		t.Fatalf("final after update = %s", inv.FinalAmount)
	}

	inv, err = s.RemoveItem(ctx, inv.ID, itemID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !inv.FinalAmount.IsZero() {
		t.Fatalf("final after remove = %s", inv.FinalAmount)
	}
	reloaded, _ := s.Get(ctx, inv.ID)
	if len(reloaded.Items) != 0 || !reloaded.FinalAmount.IsZero() {
		t.Fatalf("stored state after remove: %d items, final %s", len(reloaded.Items), reloaded.FinalAmount)
	}
}

func TestAddItemSnapshotsCostPrice(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, _ := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")
	inv, err := s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// raising the catalog price later must not touch the frozen snapshot
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("price", dec(t, "999")).Error; err != nil {
		t.Fatalf("raise price: %v", err)
	}
	reloaded, _ := s.Get(ctx, inv.ID)
	if !reloaded.Items[0].OriginalUnitPrice.Equal(dec(t, "100")) {
		t.Fatalf("snapshot price = %s", reloaded.Items[0].OriginalUnitPrice)
	}
}

func TestAddItemUsesInvoiceMarginAsDefault(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, _ := s.Create(ctx, customer.ID, time.Now(), dec(t, "15"), decimal.Zero, "")

	// no item margin: the invoice-wide default is folded in at add time
	inv, err := s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !inv.Items[0].UnitPrice.Equal(dec(t, "115")) {
		t.Fatalf("unit price = %s", inv.Items[0].UnitPrice)
	}

	// an explicit item margin wins; the two never compound
	inv, err = s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), dec(t, "5"), decimal.Zero)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !inv.Items[1].UnitPrice.Equal(dec(t, "105")) {
		t.Fatalf("unit price = %s", inv.Items[1].UnitPrice)
	}
}

func TestItemMutationRejectedWhenNotDraft(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, _ := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")
	inv, _ = s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero)
	if _, err := s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Fatalf("expected ErrInvoiceNotEditable, got %v", err)
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, _ := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")

	// empty draft cannot complete
	if _, err := s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, ""); err == nil {
		t.Fatal("expected error completing empty invoice")
	}

	inv, _ = s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero)
	inv, err := s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if inv.CompletedDate == nil {
		t.Fatal("completed date not stamped")
	}

	// revert demands a reason
	if _, err := s.UpdateStatus(ctx, inv.ID, models.StatusDraft, ""); !errors.Is(err, ErrRevertNeedsReason) {
		t.Fatalf("expected ErrRevertNeedsReason, got %v", err)
	}
	inv, err = s.UpdateStatus(ctx, inv.ID, models.StatusDraft, "wrong quantity entered")
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if inv.CompletedDate != nil || inv.Status != models.StatusDraft {
		t.Fatalf("revert left status=%s date=%v", inv.Status, inv.CompletedDate)
	}

	// completed -> cancelled stays illegal
	inv, _ = s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, "")
	_, err = s.UpdateStatus(ctx, inv.ID, models.StatusCancelled, "")
	var terr *lifecycle.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestCreateRejectsDeactivatedRefs(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	if err := db.Model(&models.Customer{}).Where("id = ?", customer.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	var verr *pricing.ValidationError
	if _, err := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if err := db.Model(&models.Customer{}).Where("id = ?", customer.ID).Update("is_active", true).Error; err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	inv, _ := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}
	if _, err := s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for deactivated product, got %v", err)
	}
}

func TestLoadCompletedFilters(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	other := models.Customer{Name: "Badr Supplies", Phone: "0100000002", IsActive: true}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	mk := func(custID uint, date time.Time, qty string, complete bool) {
		t.Helper()
		inv, err := s.Create(ctx, custID, date, decimal.Zero, decimal.Zero, "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.AddItem(ctx, inv.ID, product.ID, dec(t, qty), decimal.Zero, decimal.Zero); err != nil {
			t.Fatalf("add: %v", err)
		}
		if complete {
			if _, err := s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, ""); err != nil {
				t.Fatalf("complete: %v", err)
			}
		}
	}
	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	jan20 := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	feb05 := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
	mk(customer.ID, jan10, "1", true)  // 100
	mk(customer.ID, jan20, "5", true)  // 500
	mk(other.ID, feb05, "2", true)     // 200
	mk(customer.ID, feb05, "9", false) // draft, never loaded

	all, err := s.LoadCompleted(ctx, InvoiceFilter{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 completed, got %d", len(all))
	}
	if all[0].Customer.ID == 0 || len(all[0].Items) == 0 || all[0].Items[0].Product.ID == 0 {
		t.Fatal("snapshot not fully populated")
	}

	from, to := jan10, jan20
	ranged, err := s.LoadCompleted(ctx, InvoiceFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("load ranged: %v", err)
	}
	if len(ranged) != 2 {
		t.Fatalf("want 2 in range, got %d", len(ranged))
	}

	byCustomer, err := s.LoadCompleted(ctx, InvoiceFilter{CustomerID: &other.ID})
	if err != nil {
		t.Fatalf("load by customer: %v", err)
	}
	if len(byCustomer) != 1 || byCustomer[0].CustomerID != other.ID {
		t.Fatalf("customer filter returned %d rows", len(byCustomer))
	}

	min := dec(t, "300")
	big, err := s.LoadCompleted(ctx, InvoiceFilter{MinFinalAmount: &min})
	if err != nil {
		t.Fatalf("load by amount: %v", err)
	}
	if len(big) != 1 || !big[0].FinalAmount.Equal(dec(t, "500")) {
		t.Fatalf("amount filter returned %d rows", len(big))
	}
}

func TestRecomputeDraftTotalsFixesDrift(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, _ := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")
	inv, _ = s.AddItem(ctx, inv.ID, product.ID, dec(t, "2"), decimal.Zero, decimal.Zero)

	// corrupt the stored totals behind the engine's back
	if err := db.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Updates(map[string]interface{}{"total_amount": "999", "final_amount": "999"}).Error; err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	drifted, err := s.RecomputeDraftTotals(ctx)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if drifted != 1 {
		t.Fatalf("drifted = %d", drifted)
	}
	reloaded, _ := s.Get(ctx, inv.ID)
	if !reloaded.FinalAmount.Equal(dec(t, "200")) {
		t.Fatalf("final after backstop = %s", reloaded.FinalAmount)
	}

	// a second pass is a no-op
	drifted, err = s.RecomputeDraftTotals(ctx)
	if err != nil {
		t.Fatalf("recompute again: %v", err)
	}
	if drifted != 0 {
		t.Fatalf("second pass drifted = %d", drifted)
	}
}

func TestSaveHeaderRecomputesTotals(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	inv, err := s.Create(ctx, customer.ID, time.Now(), decimal.Zero, decimal.Zero, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, err = s.AddItem(ctx, inv.ID, product.ID, dec(t, "2"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !inv.FinalAmount.Equal(dec(t, "200")) {
		t.Fatalf("final before save = %s", inv.FinalAmount)
	}

	// adding a 10% invoice discount shifts the final amount to 180
	newDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv, err = s.Save(ctx, inv.ID, newDate, decimal.Zero, dec(t, "10"), "corrected")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !inv.FinalAmount.Equal(dec(t, "180")) {
		t.Fatalf("final after save = %s", inv.FinalAmount)
	}

	reloaded, err := s.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Notes != "corrected" || !reloaded.DiscountPct.Equal(dec(t, "10")) {
		t.Fatalf("header not persisted: notes=%q discount=%s", reloaded.Notes, reloaded.DiscountPct)
	}
	if !reloaded.FinalAmount.Equal(dec(t, "180")) {
		t.Fatalf("stored final = %s", reloaded.FinalAmount)
	}

	// completed invoices refuse header edits
	if _, err := s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := s.Save(ctx, inv.ID, newDate, decimal.Zero, decimal.Zero, "x"); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Fatalf("save on completed: %v", err)
	}
}

func TestLoadCompletedDateBoundsCoverWholeDay(t *testing.T) {
	db := setupTestDB(t)
	customer, product := seedFixtures(t, db)
	s := NewInvoiceStore(db, nil)
	ctx := context.Background()

	// the business date carries a time-of-day, as dates from time.Now() do
	afternoon := time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)
	inv, err := s.Create(ctx, customer.ID, afternoon, decimal.Zero, decimal.Zero, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AddItem(ctx, inv.ID, product.ID, dec(t, "1"), decimal.Zero, decimal.Zero); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, inv.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// a single-day range given as midnight bounds must still match it
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	got, err := s.LoadCompleted(ctx, InvoiceFilter{From: &day, To: &day})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("single-day range returned %d invoices, want 1", len(got))
	}

	// the neighboring days must not
	before := day.AddDate(0, 0, -1)
	if got, err = s.LoadCompleted(ctx, InvoiceFilter{From: &before, To: &before}); err != nil || len(got) != 0 {
		t.Fatalf("day before returned %d invoices (err %v)", len(got), err)
	}
	after := day.AddDate(0, 0, 1)
	if got, err = s.LoadCompleted(ctx, InvoiceFilter{From: &after, To: &after}); err != nil || len(got) != 0 {
		t.Fatalf("day after returned %d invoices (err %v)", len(got), err)
	}
}
