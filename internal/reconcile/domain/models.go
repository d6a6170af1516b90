package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction 资金方向
type Direction string

const (
	DirectionCredit Direction = "credit" // 入账（客户打款）
	DirectionDebit  Direction = "debit"  // 出账（付工资/退款）
)

// TxStatus 流水状态机
// unmatched → {partially_allocated → matched} | ignored
// ignored 撤销后回到按 allocated_amount 推导出的数值状态
type TxStatus string

const (
	StatusUnmatched          TxStatus = "unmatched"
	StatusPartiallyAllocated TxStatus = "partially_allocated"
	StatusMatched            TxStatus = "matched"
	StatusIgnored            TxStatus = "ignored"
	StatusError              TxStatus = "error"
)

// StatusForAllocation 按已分配金额推导数值状态
func StatusForAllocation(allocated, amount decimal.Decimal) TxStatus {
	switch {
	case allocated.LessThanOrEqual(decimal.Zero):
		return StatusUnmatched
	case allocated.GreaterThanOrEqual(amount):
		return StatusMatched
	default:
		return StatusPartiallyAllocated
	}
}

// BankTransaction 一条解析后的银行流水
// ExternalID 是幂等键：重复导入同一外部号永远不会二次入库
type BankTransaction struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ExternalID string    `gorm:"uniqueIndex;type:varchar(64);not null"`
	OccurredAt time.Time `gorm:"not null"`

	Direction    Direction       `gorm:"type:varchar(8);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Counterparty string          `gorm:"type:varchar(128);not null"`
	Memo         string          `gorm:"type:varchar(255)"`

	Status TxStatus `gorm:"type:varchar(24);not null;default:'unmatched';index"`

	// 已分配金额：除显式冲正外单调递增，永不超过 Amount
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	IgnoreReason string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BankTransaction) TableName() string {
	return "bank_transactions"
}

// Unallocated 剩余可分配金额
func (t *BankTransaction) Unallocated() decimal.Decimal {
	return t.Amount.Sub(t.AllocatedAmount)
}

// PayerAlias 学习到的"付款人名称 → 合同"绑定
// 首次人工分配时自动学得，之后同名流水据此消歧；已有绑定不覆盖
type PayerAlias struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"uniqueIndex;type:varchar(128);not null"`
	ContractID uint   `gorm:"index;not null"`

	LearnedFromTxID *uint `gorm:"index"`

	CreatedAt time.Time
}

func (PayerAlias) TableName() string {
	return "payer_aliases"
}

// AuditEntry 对账操作审计；冲正某笔付款时，引用它的审计记录
// 一并删除
type AuditEntry struct {
	ID            uint  `gorm:"primaryKey;autoIncrement"`
	TransactionID uint  `gorm:"index;not null"`
	PaymentID     *uint `gorm:"index"`
	PayoutID      *uint `gorm:"index"`

	Action string `gorm:"type:varchar(32);not null"`
	Detail string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
}

func (AuditEntry) TableName() string {
	return "reconcile_audit_entries"
}

// ImportReport 一次对账单导入的汇总
type ImportReport struct {
	New       int `json:"new_imports"`
	Duplicate int `json:"duplicates"`
	Error     int `json:"errors"`
	Total     int `json:"total"`
}
