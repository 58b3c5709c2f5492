package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tmaged/salesbook/internal/models"
	"github.com/tmaged/salesbook/internal/pricing"
)

type ProductStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProductStore(db *gorm.DB, log *zap.Logger) *ProductStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductStore{db: db, log: log}
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// checkProductUnique enforces case-insensitive, trimmed uniqueness of name
// and SKU among active products. excludeID skips the row being updated.
func (s *ProductStore) checkProductUnique(ctx context.Context, name, sku string, excludeID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ?", true).
		Where("id <> ?", excludeID).
		Where("LOWER(TRIM(name)) = ? OR LOWER(TRIM(sku)) = ?", norm(name), norm(sku)).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "check product uniqueness")
	}
	if count > 0 {
		return &pricing.ValidationError{Field: "name/sku", Msg: "already used by an active product"}
	}
	return nil
}

// Create validates uniqueness and a non-negative cost price, then inserts
// the product as active.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &pricing.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if p.Price.IsNegative() {
		return &pricing.ValidationError{Field: "price", Msg: "must not be negative"}
	}
	if err := s.checkProductUnique(ctx, p.Name, p.SKU, 0); err != nil {
		return err
	}
	p.IsActive = true
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

// Update re-checks uniqueness against other active products and saves.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	if p.Price.IsNegative() {
		return &pricing.ValidationError{Field: "price", Msg: "must not be negative"}
	}
	if err := s.checkProductUnique(ctx, p.Name, p.SKU, p.ID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return errors.Wrapf(err, "update product %d", p.ID)
	}
	return nil
}

// Deactivate excludes the product from new invoice entry while keeping
// historical invoice lines intact. Products are never physically deleted
// once referenced.
func (s *ProductStore) Deactivate(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "deactivate product %d", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "deactivate product %d", id)
	}
	return nil
}

// LoadActive returns the catalog available for new invoice entry.
func (s *ProductStore) LoadActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "load active products")
	}
	return products, nil
}
