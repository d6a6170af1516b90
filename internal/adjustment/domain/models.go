package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Adjustment 财务调整项
// 恰好挂靠 Bill 或 Payroll 之一；镜像项 1:1 互指；金额存正数，
// 展示符号由 Kind 决定
type Adjustment struct {
	ID   uint `gorm:"primaryKey;autoIncrement"`
	Kind Kind `gorm:"type:varchar(32);not null;index"`

	ContractID uint  `gorm:"index;not null"`
	BillID     *uint `gorm:"index"` // 二选一
	PayrollID  *uint `gorm:"index"`

	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Remark string          `gorm:"type:varchar(255)"`

	// 镜像引用：同一经济事件的另一侧
	MirrorID *uint `gorm:"index"`

	// 系统生成标记：重算时会被删除重建；手工录入的永不触碰
	SystemGenerated bool `gorm:"not null;default:false;index"`

	// 结清信息：对账引擎在出账资金落地时写入
	SettledAt     *time.Time
	SettledDetail string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Adjustment) TableName() string {
	return "financial_adjustments"
}

// Side 挂靠侧
func (a *Adjustment) Side() Side {
	if a.PayrollID != nil {
		return SidePayroll
	}
	return SideBill
}

// DisplayAmount 按类型符号口径展示的金额
func (a *Adjustment) DisplayAmount() decimal.Decimal {
	if a.Kind.DisplaySign() < 0 {
		return a.Amount.Neg()
	}
	return a.Amount
}

// Settled 是否已结清
func (a *Adjustment) Settled() bool {
	return a.SettledAt != nil
}
