package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 流水不存在
	ErrNotFound = errors.New("bank transaction not found")
	// ErrOverAllocation 分配总额超过流水剩余可分配金额
	ErrOverAllocation = errors.New("allocation exceeds unallocated remainder")
	// ErrNotAllocatable 当前状态不允许分配（已忽略/解析错误）
	ErrNotAllocatable = errors.New("transaction not in an allocatable state")
	// ErrNothingToAllocate 分配目标为空或金额非正
	ErrNothingToAllocate = errors.New("nothing to allocate")
)

// TransactionRepository 流水仓储
type TransactionRepository interface {
	FindByID(ctx context.Context, id uint) (*BankTransaction, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	ListByStatus(ctx context.Context, status TxStatus) ([]*BankTransaction, error)

	Create(ctx context.Context, tx *gorm.DB, t *BankTransaction) error
	Save(ctx context.Context, tx *gorm.DB, t *BankTransaction) error
}

// AliasRepository 付款人别名仓储
type AliasRepository interface {
	FindByName(ctx context.Context, name string) (*PayerAlias, error)

	// CreateIfAbsent 不覆盖已有绑定；返回是否新学得
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, alias *PayerAlias) (bool, error)
}

// AuditRepository 审计记录仓储
type AuditRepository interface {
	ListByTransaction(ctx context.Context, txID uint) ([]*AuditEntry, error)

	Create(ctx context.Context, tx *gorm.DB, e *AuditEntry) error
	DeleteByPayment(ctx context.Context, tx *gorm.DB, paymentID uint) (int64, error)
	DeleteByPayout(ctx context.Context, tx *gorm.DB, payoutID uint) (int64, error)
}
