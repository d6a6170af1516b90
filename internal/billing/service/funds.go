package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anjia-dev/anjia-billing/internal/billing/domain"
)

// 资金落账：对账引擎在分配/冲正时调用，已收合计与状态在
// 同一事务里同步维护

// ApplyBillFundsTx 账单入账；正常路径下已收不允许超过应收
func (s *BillingService) ApplyBillFundsTx(ctx context.Context, tx *gorm.DB, bill *domain.Bill, amount decimal.Decimal) error {
	if amount.GreaterThan(bill.Outstanding()) {
		return fmt.Errorf("%w: bill #%d outstanding %s, got %s",
			domain.ErrOverpaid, bill.ID, bill.Outstanding(), amount)
	}
	bill.PaidTotal = bill.PaidTotal.Add(amount)
	bill.Status = domain.StatusFor(bill.DueTotal, bill.PaidTotal)
	return s.bills.Save(ctx, tx, bill)
}

// RemoveBillFundsTx 账单冲正
func (s *BillingService) RemoveBillFundsTx(ctx context.Context, tx *gorm.DB, bill *domain.Bill, amount decimal.Decimal) error {
	bill.PaidTotal = bill.PaidTotal.Sub(amount)
	if bill.PaidTotal.IsNegative() {
		bill.PaidTotal = decimal.Zero
	}
	bill.Status = domain.StatusFor(bill.DueTotal, bill.PaidTotal)
	return s.bills.Save(ctx, tx, bill)
}

// ApplyPayrollFundsTx 工资单出账
func (s *BillingService) ApplyPayrollFundsTx(ctx context.Context, tx *gorm.DB, p *domain.Payroll, amount decimal.Decimal) error {
	if amount.GreaterThan(p.Outstanding()) {
		return fmt.Errorf("%w: payroll #%d outstanding %s, got %s",
			domain.ErrOverpaid, p.ID, p.Outstanding(), amount)
	}
	p.PaidTotal = p.PaidTotal.Add(amount)
	p.Status = domain.StatusFor(p.DueTotal, p.PaidTotal)
	return s.payrolls.Save(ctx, tx, p)
}

// RemovePayrollFundsTx 工资单冲正
func (s *BillingService) RemovePayrollFundsTx(ctx context.Context, tx *gorm.DB, p *domain.Payroll, amount decimal.Decimal) error {
	p.PaidTotal = p.PaidTotal.Sub(amount)
	if p.PaidTotal.IsNegative() {
		p.PaidTotal = decimal.Zero
	}
	p.Status = domain.StatusFor(p.DueTotal, p.PaidTotal)
	return s.payrolls.Save(ctx, tx, p)
}
