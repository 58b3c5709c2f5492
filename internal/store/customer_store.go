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

type CustomerStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCustomerStore(db *gorm.DB, log *zap.Logger) *CustomerStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerStore{db: db, log: log}
}

// checkCustomerUnique mirrors the product rule: name and phone must be
// unique among active customers, case-insensitive and trimmed.
func (s *CustomerStore) checkCustomerUnique(ctx context.Context, name, phone string, excludeID uint) error {
	q := s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("is_active = ?", true).
		Where("id <> ?", excludeID)
	if strings.TrimSpace(phone) != "" {
		q = q.Where("LOWER(TRIM(name)) = ? OR TRIM(phone) = ?", norm(name), strings.TrimSpace(phone))
	} else {
		q = q.Where("LOWER(TRIM(name)) = ?", norm(name))
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "check customer uniqueness")
	}
	if count > 0 {
		return &pricing.ValidationError{Field: "name/phone", Msg: "already used by an active customer"}
	}
	return nil
}

func (s *CustomerStore) Create(ctx context.Context, c *models.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return &pricing.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if err := s.checkCustomerUnique(ctx, c.Name, c.Phone, 0); err != nil {
		return err
	}
	c.IsActive = true
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return errors.Wrap(err, "create customer")
	}
	return nil
}

func (s *CustomerStore) Update(ctx context.Context, c *models.Customer) error {
	if err := s.checkCustomerUnique(ctx, c.Name, c.Phone, c.ID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return errors.Wrapf(err, "update customer %d", c.ID)
	}
	return nil
}

// Deactivate soft-removes the customer; invoices keep referencing it.
func (s *CustomerStore) Deactivate(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "deactivate customer %d", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "deactivate customer %d", id)
	}
	return nil
}

func (s *CustomerStore) LoadActive(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&customers).Error
	if err != nil {
		return nil, errors.Wrap(err, "load active customers")
	}
	return customers, nil
}
