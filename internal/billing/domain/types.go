package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PayStatus 收/付款状态
type PayStatus string

const (
	StatusUnpaid        PayStatus = "unpaid"
	StatusPartiallyPaid PayStatus = "partially_paid"
	StatusPaid          PayStatus = "paid"
)

// StatusFor 按应收/已收推导状态
func StatusFor(due, paid decimal.Decimal) PayStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return StatusUnpaid
	case paid.GreaterThanOrEqual(due):
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

// 明细行键：下游报表和通知文案按这些字符串键读取，一个都不能改
const (
	LineBaseFee             = "base_fee"
	LineOvertimeFee         = "overtime_fee"
	LineManagementFee       = "management_fee"
	LineExtensionFee        = "extension_fee"
	LineEmployeeCommission  = "employee_commission"
	LineSubstituteDeduction = "substitute_deduction"
)

// LineSide 明细行归属面
type LineSide string

const (
	LineSideBill    LineSide = "bill"
	LineSidePayroll LineSide = "payroll"
)

// LineSpec 明细行键的注册信息
type LineSpec struct {
	Key   string
	Side  LineSide
	Label string
	Sign  int // 计入合计的符号
}

// lineRegistry 启动期构建的显式键注册表，替代旧系统按字符串
// 动态探测字段的写法；未注册的键一律拒绝
var lineRegistry = map[string]LineSpec{
	LineBaseFee:             {Key: LineBaseFee, Side: LineSideBill, Label: "基础劳务费", Sign: +1},
	LineOvertimeFee:         {Key: LineOvertimeFee, Side: LineSideBill, Label: "加班费", Sign: +1},
	LineManagementFee:       {Key: LineManagementFee, Side: LineSideBill, Label: "管理费", Sign: +1},
	LineExtensionFee:        {Key: LineExtensionFee, Side: LineSideBill, Label: "续约费", Sign: +1},
	LineEmployeeCommission:  {Key: LineEmployeeCommission, Side: LineSidePayroll, Label: "员工佣金", Sign: -1},
	LineSubstituteDeduction: {Key: LineSubstituteDeduction, Side: LineSideBill, Label: "替班扣减", Sign: -1},
}

// LookupLine 查注册表；未知键大声报错而不是静默跳过
func LookupLine(key string) (LineSpec, error) {
	spec, ok := lineRegistry[key]
	if !ok {
		return LineSpec{}, fmt.Errorf("unregistered line item key: %q", key)
	}
	return spec, nil
}
