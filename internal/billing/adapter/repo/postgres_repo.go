package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/anjia-dev/anjia-billing/internal/billing/domain"
)

type BillRepo struct {
	db *gorm.DB
}

func NewBillRepo(db *gorm.DB) *BillRepo {
	return &BillRepo{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (r *BillRepo) FindByID(ctx context.Context, id uint) (*domain.Bill, error) {
	var b domain.Bill
	if err := r.db.WithContext(ctx).Preload("Items").First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BillRepo) FindByCycle(ctx context.Context, contractID uint, cycleStart time.Time, isSubstitute bool) (*domain.Bill, error) {
	var b domain.Bill
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND cycle_start = ? AND is_substitute = ?", contractID, cycleStart, isSubstitute).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BillRepo) ListOutstandingByContracts(ctx context.Context, contractIDs []uint) ([]*domain.Bill, error) {
	if len(contractIDs) == 0 {
		return nil, nil
	}
	var list []*domain.Bill
	err := r.db.WithContext(ctx).
		Where("contract_id IN ? AND status <> ?", contractIDs, domain.StatusPaid).
		Order("cycle_start").
		Find(&list).Error
	return list, err
}

func (r *BillRepo) List(ctx context.Context, contractID uint, status domain.PayStatus) ([]*domain.Bill, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if contractID != 0 {
		q = q.Where("contract_id = ?", contractID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []*domain.Bill
	err := q.Order("cycle_start desc").Find(&list).Error
	return list, err
}

func (r *BillRepo) Save(ctx context.Context, tx *gorm.DB, b *domain.Bill) error {
	return tx.WithContext(ctx).Omit("Items").Save(b).Error
}

// ReplaceItems 破坏性重建系统明细行
func (r *BillRepo) ReplaceItems(ctx context.Context, tx *gorm.DB, b *domain.Bill, items []domain.BreakdownItem) error {
	if err := tx.WithContext(ctx).Where("bill_id = ?", b.ID).Delete(&domain.BreakdownItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].BillID = &b.ID
		if err := tx.WithContext(ctx).Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------

type PayrollRepo struct {
	db *gorm.DB
}

func NewPayrollRepo(db *gorm.DB) *PayrollRepo {
	return &PayrollRepo{db: db}
}

func (r *PayrollRepo) FindByID(ctx context.Context, id uint) (*domain.Payroll, error) {
	var p domain.Payroll
	if err := r.db.WithContext(ctx).Preload("Items").First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PayrollRepo) FindByCycle(ctx context.Context, contractID uint, cycleStart time.Time, isSubstitute bool) (*domain.Payroll, error) {
	var p domain.Payroll
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND cycle_start = ? AND is_substitute = ?", contractID, cycleStart, isSubstitute).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PayrollRepo) ListOutstanding(ctx context.Context) ([]*domain.Payroll, error) {
	var list []*domain.Payroll
	err := r.db.WithContext(ctx).
		Where("status <> ?", domain.StatusPaid).
		Order("cycle_start").
		Find(&list).Error
	return list, err
}

func (r *PayrollRepo) List(ctx context.Context, contractID uint, status domain.PayStatus) ([]*domain.Payroll, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if contractID != 0 {
		q = q.Where("contract_id = ?", contractID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []*domain.Payroll
	err := q.Order("cycle_start desc").Find(&list).Error
	return list, err
}

func (r *PayrollRepo) Save(ctx context.Context, tx *gorm.DB, p *domain.Payroll) error {
	return tx.WithContext(ctx).Omit("Items").Save(p).Error
}

func (r *PayrollRepo) ReplaceItems(ctx context.Context, tx *gorm.DB, p *domain.Payroll, items []domain.BreakdownItem) error {
	if err := tx.WithContext(ctx).Where("payroll_id = ?", p.ID).Delete(&domain.BreakdownItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].PayrollID = &p.ID
		if err := tx.WithContext(ctx).Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------

type FundsRepo struct {
	db *gorm.DB
}

func NewFundsRepo(db *gorm.DB) *FundsRepo {
	return &FundsRepo{db: db}
}

func (r *FundsRepo) FindPayment(ctx context.Context, id uint) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *FundsRepo) FindPayout(ctx context.Context, id uint) (*domain.Payout, error) {
	var p domain.Payout
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *FundsRepo) ListPaymentsByTransaction(ctx context.Context, txID uint) ([]*domain.Payment, error) {
	var list []*domain.Payment
	err := r.db.WithContext(ctx).Where("bank_transaction_id = ?", txID).Order("id").Find(&list).Error
	return list, err
}

func (r *FundsRepo) ListPayoutsByTransaction(ctx context.Context, txID uint) ([]*domain.Payout, error) {
	var list []*domain.Payout
	err := r.db.WithContext(ctx).Where("bank_transaction_id = ?", txID).Order("id").Find(&list).Error
	return list, err
}

func (r *FundsRepo) CreatePayment(ctx context.Context, tx *gorm.DB, p *domain.Payment) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *FundsRepo) CreatePayout(ctx context.Context, tx *gorm.DB, p *domain.Payout) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *FundsRepo) DeletePayment(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).Delete(&domain.Payment{}, id).Error
}

func (r *FundsRepo) DeletePayout(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).Delete(&domain.Payout{}, id).Error
}
