package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract 合同实体
// 合同由外部签约模块创建，计费核心只读不写
type Contract struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ContractNo string `gorm:"uniqueIndex;type:varchar(32);not null"`

	CustomerID   uint   `gorm:"index;not null"`
	CustomerName string `gorm:"type:varchar(64);not null"`
	EmployeeID   uint   `gorm:"index;not null"`
	EmployeeName string `gorm:"type:varchar(64);not null"`

	Kind   Kind   `gorm:"type:varchar(16);not null"`
	Status Status `gorm:"type:varchar(16);not null;default:'draft'"`

	// 名义起止（签约日期），实际上户日可能晚于名义开始日
	StartDate    time.Time  `gorm:"not null"`
	EndDate      time.Time  `gorm:"not null"`
	OnboardDate  *time.Time // 实际上户日
	TerminatedAt *time.Time // 中止日

	// 家庭合并：同一家庭的多份合同共享 FamilyGroupID；
	// 无家庭 ID 时回退到客户姓名精确匹配（已知局限：近似重名不会合并）
	FamilyGroupID *uint `gorm:"index"`

	// 续签链：指向前一份合同，连续性规则据此判断
	PredecessorID *uint `gorm:"index"`

	MonthlyRate       decimal.Decimal `gorm:"type:decimal(12,2);not null"`          // 月度服务费（工资基数）
	ManagementFeeRate decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0"` // 管理费比例，0 表示用固定额
	ManagementFeeFlat decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CommissionRate    decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0"` // 员工佣金比例

	AutoRenew bool `gorm:"not null;default:false"`

	// 变体载荷：按 Kind 取其一，其余列留零值
	Ordinary       OrdinaryTerms       `gorm:"embedded"`
	Trial          TrialTerms          `gorm:"embedded"`
	MaternityNurse MaternityNurseTerms `gorm:"embedded"`
	Substitution   SubstitutionTerms   `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Contract) TableName() string {
	return "contracts"
}

// Variant 返回与 Kind 对应的条款载荷
func (c *Contract) Variant() Variant {
	switch c.Kind {
	case KindTrial:
		return c.Trial
	case KindMaternityNurse:
		return c.MaternityNurse
	case KindSubstitution:
		return c.Substitution
	default:
		return c.Ordinary
	}
}

// EffectiveStart 实际生效日：有上户日用上户日，否则用名义开始日
func (c *Contract) EffectiveStart() time.Time {
	if c.OnboardDate != nil {
		return *c.OnboardDate
	}
	return c.StartDate
}

// EffectiveEnd 实际结束日：中止日优先于名义结束日
func (c *Contract) EffectiveEnd() time.Time {
	if c.TerminatedAt != nil {
		return *c.TerminatedAt
	}
	return c.EndDate
}

// IsActive 是否在服务中
func (c *Contract) IsActive() bool {
	return c.Status == StatusActive
}

// FamilyGroup 家庭合并后的展示视图
// 各成员合同仍独立出账，只有连续性/展示口径被合并
type FamilyGroup struct {
	Primary     *Contract   // 首选合同：优先在服务中的，否则最近一份
	Members     []*Contract // 含 Primary
	PeriodStart time.Time   // min(start)
	PeriodEnd   time.Time   // max(end)
}
