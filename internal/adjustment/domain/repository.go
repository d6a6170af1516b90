package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 调整项不存在
	ErrNotFound = errors.New("adjustment not found")
	// ErrMirrorBroken 镜像不变量被破坏（孤儿镜像 / 金额不一致）
	ErrMirrorBroken = errors.New("mirror invariant broken")
	// ErrInvalidKind 未注册的调整类型
	ErrInvalidKind = errors.New("unknown adjustment kind")
	// ErrInvalidAttachment 未挂靠或同时挂靠两侧
	ErrInvalidAttachment = errors.New("adjustment must attach to exactly one of bill/payroll")
)

// Repository 调整项仓储接口
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Adjustment, error)
	ListForBill(ctx context.Context, billID uint) ([]*Adjustment, error)
	ListForPayroll(ctx context.Context, payrollID uint) ([]*Adjustment, error)

	// ListPendingRefunds 待结清的客户侧退款项（出账候选）；
	// contractID 为 0 时不限合同
	ListPendingRefunds(ctx context.Context, contractID uint) ([]*Adjustment, error)

	// Create / Delete 接受事务会话；镜像对的原子性由 service 层
	// 的 db.Transaction 保证
	Create(ctx context.Context, tx *gorm.DB, a *Adjustment) error
	Save(ctx context.Context, tx *gorm.DB, a *Adjustment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// DeleteSystemGenerated 删除某 (bill, payroll) 下全部系统生成项，
	// 重算的破坏性阶段使用；手工项不受影响
	DeleteSystemGenerated(ctx context.Context, tx *gorm.DB, billID, payrollID *uint) error
}
