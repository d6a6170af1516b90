package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 账单/工资单不存在
	ErrNotFound = errors.New("billing record not found")
	// ErrOverpaid 收款会使已收超过应收
	ErrOverpaid = errors.New("paid total would exceed due total")
)

// BillRepository 账单仓储
type BillRepository interface {
	FindByID(ctx context.Context, id uint) (*Bill, error)
	FindByCycle(ctx context.Context, contractID uint, cycleStart time.Time, isSubstitute bool) (*Bill, error)

	// ListOutstandingByContracts 多合同的未收账单（对账匹配候选）
	ListOutstandingByContracts(ctx context.Context, contractIDs []uint) ([]*Bill, error)
	List(ctx context.Context, contractID uint, status PayStatus) ([]*Bill, error)

	Save(ctx context.Context, tx *gorm.DB, b *Bill) error
	ReplaceItems(ctx context.Context, tx *gorm.DB, b *Bill, items []BreakdownItem) error
}

// PayrollRepository 工资单仓储
type PayrollRepository interface {
	FindByID(ctx context.Context, id uint) (*Payroll, error)
	FindByCycle(ctx context.Context, contractID uint, cycleStart time.Time, isSubstitute bool) (*Payroll, error)
	ListOutstanding(ctx context.Context) ([]*Payroll, error)
	List(ctx context.Context, contractID uint, status PayStatus) ([]*Payroll, error)

	Save(ctx context.Context, tx *gorm.DB, p *Payroll) error
	ReplaceItems(ctx context.Context, tx *gorm.DB, p *Payroll, items []BreakdownItem) error
}

// FundsRepository 收付款记录仓储
type FundsRepository interface {
	FindPayment(ctx context.Context, id uint) (*Payment, error)
	FindPayout(ctx context.Context, id uint) (*Payout, error)
	ListPaymentsByTransaction(ctx context.Context, txID uint) ([]*Payment, error)
	ListPayoutsByTransaction(ctx context.Context, txID uint) ([]*Payout, error)

	CreatePayment(ctx context.Context, tx *gorm.DB, p *Payment) error
	CreatePayout(ctx context.Context, tx *gorm.DB, p *Payout) error
	DeletePayment(ctx context.Context, tx *gorm.DB, id uint) error
	DeletePayout(ctx context.Context, tx *gorm.DB, id uint) error
}
