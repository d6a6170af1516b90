package domain

import "time"

// Kind 合同类型判别值
type Kind string

const (
	KindOrdinary       Kind = "ordinary"        // 普通长期合同
	KindTrial          Kind = "trial"           // 试工合同
	KindMaternityNurse Kind = "maternity_nurse" // 月嫂合同
	KindSubstitution   Kind = "substitution"    // 替班合同
)

// Status 合同状态
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
	StatusFinished   Status = "finished"
)

// IsValid 校验类型合法性
func (k Kind) IsValid() bool {
	switch k {
	case KindOrdinary, KindTrial, KindMaternityNurse, KindSubstitution:
		return true
	}
	return false
}

// Cycle 账期：一次出账覆盖的 [Start, End] 闭区间（仅日期有意义）
// 不单独落库，只作为 Bill/Payroll 的属性存在
type Cycle struct {
	Start time.Time
	End   time.Time
}

// Days 账期天数（闭区间）
func (c Cycle) Days() int {
	return int(c.End.Sub(c.Start).Hours()/24) + 1
}

// Contains 日期是否落在账期内
func (c Cycle) Contains(d time.Time) bool {
	return !d.Before(c.Start) && !d.After(c.End)
}

// Variant 合同变体载荷，计算器按类型穷举分发
// 替代旧系统里"同一张表 + 运行时探测可选字段"的写法
type Variant interface {
	ContractKind() Kind
}

// OrdinaryTerms 普通合同条款
type OrdinaryTerms struct {
	DepositAmount string `gorm:"column:ord_deposit;type:decimal(12,2);default:0"` // 服务保证金
}

// TrialTerms 试工合同条款
type TrialTerms struct {
	TrialDays int `gorm:"column:trial_days;default:0"`
}

// MaternityNurseTerms 月嫂合同条款
type MaternityNurseTerms struct {
	ExpectedDate *time.Time `gorm:"column:mn_expected_date"` // 预产期
	PackagePrice string     `gorm:"column:mn_package_price;type:decimal(12,2);default:0"`
}

// SubstitutionTerms 替班合同条款
type SubstitutionTerms struct {
	CoversContractID uint `gorm:"column:sub_covers_contract_id;default:0"` // 被替班的原合同
}

func (OrdinaryTerms) ContractKind() Kind       { return KindOrdinary }
func (TrialTerms) ContractKind() Kind          { return KindTrial }
func (MaternityNurseTerms) ContractKind() Kind { return KindMaternityNurse }
func (SubstitutionTerms) ContractKind() Kind   { return KindSubstitution }
