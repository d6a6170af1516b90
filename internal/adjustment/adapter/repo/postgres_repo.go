package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
)

type AdjustmentRepo struct {
	db *gorm.DB
}

func NewAdjustmentRepo(db *gorm.DB) *AdjustmentRepo {
	return &AdjustmentRepo{db: db}
}

func (r *AdjustmentRepo) FindByID(ctx context.Context, id uint) (*domain.Adjustment, error) {
	var a domain.Adjustment
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AdjustmentRepo) ListForBill(ctx context.Context, billID uint) ([]*domain.Adjustment, error) {
	var list []*domain.Adjustment
	err := r.db.WithContext(ctx).Where("bill_id = ?", billID).Order("id").Find(&list).Error
	return list, err
}

func (r *AdjustmentRepo) ListForPayroll(ctx context.Context, payrollID uint) ([]*domain.Adjustment, error) {
	var list []*domain.Adjustment
	err := r.db.WithContext(ctx).Where("payroll_id = ?", payrollID).Order("id").Find(&list).Error
	return list, err
}

// ListPendingRefunds 客户侧减项中未结清的，是出账（付款给客户）候选
func (r *AdjustmentRepo) ListPendingRefunds(ctx context.Context, contractID uint) ([]*domain.Adjustment, error) {
	q := r.db.WithContext(ctx).
		Where("kind IN ? AND settled_at IS NULL",
			[]domain.Kind{domain.KindCustomerDecrease, domain.KindCustomerDiscount})
	if contractID != 0 {
		q = q.Where("contract_id = ?", contractID)
	}
	var list []*domain.Adjustment
	err := q.Order("id").Find(&list).Error
	return list, err
}

func (r *AdjustmentRepo) Create(ctx context.Context, tx *gorm.DB, a *domain.Adjustment) error {
	return tx.WithContext(ctx).Create(a).Error
}

func (r *AdjustmentRepo) Save(ctx context.Context, tx *gorm.DB, a *domain.Adjustment) error {
	return tx.WithContext(ctx).Save(a).Error
}

func (r *AdjustmentRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).Delete(&domain.Adjustment{}, id).Error
}

func (r *AdjustmentRepo) DeleteSystemGenerated(ctx context.Context, tx *gorm.DB, billID, payrollID *uint) error {
	q := tx.WithContext(ctx).Where("system_generated = TRUE")
	switch {
	case billID != nil && payrollID != nil:
		q = q.Where("bill_id = ? OR payroll_id = ?", *billID, *payrollID)
	case billID != nil:
		q = q.Where("bill_id = ?", *billID)
	case payrollID != nil:
		q = q.Where("payroll_id = ?", *payrollID)
	default:
		return nil
	}
	return q.Delete(&domain.Adjustment{}).Error
}
