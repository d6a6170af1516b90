package domain

// Kind 调整项类型
type Kind string

const (
	KindCustomerIncrease  Kind = "customer_increase"   // 客户侧加收
	KindCustomerDecrease  Kind = "customer_decrease"   // 客户侧减免
	KindCustomerDiscount  Kind = "customer_discount"   // 客户折扣
	KindEmployeeIncrease  Kind = "employee_increase"   // 员工侧加发
	KindEmployeeDecrease  Kind = "employee_decrease"   // 员工侧扣减
	KindCompanyPaidSalary Kind = "company_paid_salary" // 公司代付工资（客户侧，押金转付）
	KindDepositPaidSalary Kind = "deposit_paid_salary" // 押金已付工资（员工侧，冲减应付）
	KindCommission        Kind = "commission"          // 佣金
	KindCommissionOffset  Kind = "commission_offset"   // 佣金冲抵
	KindDeferredFee       Kind = "deferred_fee"        // 延期费
	KindIntroductionFee   Kind = "introduction_fee"    // 介绍费
	KindDeposit           Kind = "deposit"             // 押金
)

// Side 调整项挂靠侧
type Side string

const (
	SideBill    Side = "bill"    // 挂客户账单
	SidePayroll Side = "payroll" // 挂员工工资单
)

// displaySign 展示符号口径：金额一律存正数，部分类型在所有汇总
// 界面上固定显示为负
var displaySign = map[Kind]int{
	KindCustomerIncrease:  +1,
	KindCustomerDecrease:  -1,
	KindCustomerDiscount:  -1,
	KindEmployeeIncrease:  +1,
	KindEmployeeDecrease:  -1,
	KindCompanyPaidSalary: +1,
	KindDepositPaidSalary: -1,
	KindCommission:        +1,
	KindCommissionOffset:  -1,
	KindDeferredFee:       +1,
	KindIntroductionFee:   +1,
	KindDeposit:           +1,
}

// DisplaySign 返回 +1 / -1；创建入口已拒绝未知类型
func (k Kind) DisplaySign() int {
	if s, ok := displaySign[k]; ok {
		return s
	}
	return +1
}

// IsValid 类型是否已注册
func (k Kind) IsValid() bool {
	_, ok := displaySign[k]
	return ok
}

// MirrorKind 镜像类型：成对记账的两侧类型映射，非镜像类型返回 ""
func (k Kind) MirrorKind() Kind {
	switch k {
	case KindCompanyPaidSalary:
		return KindDepositPaidSalary
	case KindDepositPaidSalary:
		return KindCompanyPaidSalary
	case KindCommission:
		return KindCommissionOffset
	case KindCommissionOffset:
		return KindCommission
	}
	return ""
}
