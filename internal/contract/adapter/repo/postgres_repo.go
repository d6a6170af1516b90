package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anjia-dev/anjia-billing/internal/contract/domain"
)

type ContractRepo struct {
	db *gorm.DB
}

func NewContractRepo(db *gorm.DB) *ContractRepo {
	return &ContractRepo{db: db}
}

func (r *ContractRepo) FindByID(ctx context.Context, id uint) (*domain.Contract, error) {
	var c domain.Contract
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepo) FindPredecessor(ctx context.Context, c *domain.Contract) (*domain.Contract, error) {
	if c.PredecessorID == nil {
		return nil, nil
	}
	var prev domain.Contract
	if err := r.db.WithContext(ctx).First(&prev, *c.PredecessorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 续签链断裂按无前合同处理，不影响出账
			return nil, nil
		}
		return nil, err
	}
	return &prev, nil
}

func (r *ContractRepo) FindSuccessor(ctx context.Context, contractID uint) (*domain.Contract, error) {
	var next domain.Contract
	err := r.db.WithContext(ctx).
		Where("predecessor_id = ?", contractID).
		Order("start_date").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &next, nil
}

func (r *ContractRepo) FindByFamilyGroup(ctx context.Context, groupID uint) ([]*domain.Contract, error) {
	var list []*domain.Contract
	err := r.db.WithContext(ctx).
		Where("family_group_id = ?", groupID).
		Order("start_date").
		Find(&list).Error
	return list, err
}

// FindByCustomerName 精确匹配，刻意不做大小写/空白归一
func (r *ContractRepo) FindByCustomerName(ctx context.Context, name string) ([]*domain.Contract, error) {
	var list []*domain.Contract
	err := r.db.WithContext(ctx).
		Where("customer_name = ?", name).
		Order("start_date").
		Find(&list).Error
	return list, err
}

func (r *ContractRepo) FindSubstitutions(ctx context.Context, coversContractID uint) ([]*domain.Contract, error) {
	var list []*domain.Contract
	err := r.db.WithContext(ctx).
		Where("kind = ? AND sub_covers_contract_id = ?", domain.KindSubstitution, coversContractID).
		Find(&list).Error
	return list, err
}

func (r *ContractRepo) ListBillable(ctx context.Context, year int, month int) ([]*domain.Contract, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	// 在服务中、或当月内中止/到期的合同都可能需要出账；草稿不参与
	var list []*domain.Contract
	err := r.db.WithContext(ctx).
		Where("status <> ?", domain.StatusDraft).
		Where("start_date <= ?", monthEnd).
		Where("auto_renew = TRUE OR end_date >= ? OR terminated_at >= ?", monthStart, monthStart).
		Order("id").
		Find(&list).Error
	return list, err
}
