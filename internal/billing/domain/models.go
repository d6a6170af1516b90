package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill 客户账单
// (contract_id, cycle_start, is_substitute) 唯一，防止并发重算生成重复账单
type Bill struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	ContractID uint `gorm:"not null;uniqueIndex:uq_bill_cycle,priority:1"`

	CycleStart   time.Time `gorm:"not null;uniqueIndex:uq_bill_cycle,priority:2"`
	CycleEnd     time.Time `gorm:"not null"`
	IsSubstitute bool      `gorm:"not null;default:false;uniqueIndex:uq_bill_cycle,priority:3"`

	DueTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PaidTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status    PayStatus       `gorm:"type:varchar(16);not null;default:'unpaid'"`

	Items []BreakdownItem `gorm:"foreignKey:BillID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Bill) TableName() string {
	return "customer_bills"
}

// Outstanding 未收余额
func (b *Bill) Outstanding() decimal.Decimal {
	return b.DueTotal.Sub(b.PaidTotal)
}

// Payroll 员工工资单，唯一键口径与 Bill 一致
type Payroll struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	ContractID uint `gorm:"not null;uniqueIndex:uq_payroll_cycle,priority:1"`
	EmployeeID uint `gorm:"index;not null"`

	CycleStart   time.Time `gorm:"not null;uniqueIndex:uq_payroll_cycle,priority:2"`
	CycleEnd     time.Time `gorm:"not null"`
	IsSubstitute bool      `gorm:"not null;default:false;uniqueIndex:uq_payroll_cycle,priority:3"`

	DueTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PaidTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status    PayStatus       `gorm:"type:varchar(16);not null;default:'unpaid'"`

	Items []BreakdownItem `gorm:"foreignKey:PayrollID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Payroll) TableName() string {
	return "employee_payrolls"
}

// Outstanding 未付余额
func (p *Payroll) Outstanding() decimal.Decimal {
	return p.DueTotal.Sub(p.PaidTotal)
}

// BreakdownItem 计算明细行：系统生成，重算时删除重建
type BreakdownItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"`
	BillID    *uint `gorm:"index"`
	PayrollID *uint `gorm:"index"`

	Key    string          `gorm:"type:varchar(32);not null"` // 注册表里的固定键
	Label  string          `gorm:"type:varchar(64);not null"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CreatedAt time.Time
}

func (BreakdownItem) TableName() string {
	return "billing_breakdown_items"
}

// Payment 客户收款记录，可回溯到出资的银行流水
type Payment struct {
	ID                uint  `gorm:"primaryKey;autoIncrement"`
	BillID            uint  `gorm:"index;not null"`
	BankTransactionID *uint `gorm:"index"`

	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReceivedAt time.Time       `gorm:"not null"`
	Remark     string          `gorm:"type:varchar(255)"`

	CreatedAt time.Time
}

func (Payment) TableName() string {
	return "payment_records"
}

// Payout 员工付款/客户退款记录
// AdjustmentID 非空时表示这笔出账结清了某个客户侧退款调整项
type Payout struct {
	ID                uint  `gorm:"primaryKey;autoIncrement"`
	PayrollID         *uint `gorm:"index"`
	AdjustmentID      *uint `gorm:"index"`
	BankTransactionID *uint `gorm:"index"`

	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAt time.Time       `gorm:"not null"`
	Remark string          `gorm:"type:varchar(255)"`

	CreatedAt time.Time
}

func (Payout) TableName() string {
	return "payout_records"
}
