package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	adjdomain "github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
	contractservice "github.com/anjia-dev/anjia-billing/internal/contract/service"
)

// ErrChargePolicyRequired 中止日是否计费必须由调用方明示
// 旧系统两条调用路径默认值不一致，这里不再猜测
var ErrChargePolicyRequired = errors.New("charge_termination_day must be specified")

// ErrNotTerminated 合同未中止，算不了退费
var ErrNotTerminated = errors.New("contract has no termination date")

// RefundRequest 中止退费请求
type RefundRequest struct {
	ContractID uint
	// 中止日当天是否计费：nil 视为校验错误
	ChargeTerminationDay *bool
	// Apply 为真时落一条客户侧退款调整项（待对账出账时结清）
	Apply bool
}

// RefundResult 两段式退费明细
type RefundResult struct {
	ContractID uint `json:"contract_id"`

	CycleStart time.Time `json:"cycle_start"` // 中止日所在的已收账期
	CycleEnd   time.Time `json:"cycle_end"`

	PartialDays   int             `json:"partial_days"`   // 当期剩余退费天数
	PartialAmount decimal.Decimal `json:"partial_amount"` // 月费/30 × 天数
	FutureCycles  int             `json:"future_cycles"`  // 已收但不再服务的完整账期数
	FutureAmount  decimal.Decimal `json:"future_amount"`
	Total         decimal.Decimal `json:"total"`

	AdjustmentID *uint `json:"adjustment_id,omitempty"`
}

// TerminationRefund 签约日账期合同的中途中止退费
//
// (a) 当期已收账期的剩余部分按天退：起算日取决于中止日是否计费；
// (b) 已收但永远不会再服务的后续完整账期全额退
func (s *BillingService) TerminationRefund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.ChargeTerminationDay == nil {
		return nil, ErrChargePolicyRequired
	}

	c, err := s.contracts.FindByID(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if c.TerminatedAt == nil {
		return nil, ErrNotTerminated
	}
	term := *c.TerminatedAt

	cycle, err := cycleContaining(c, term)
	if err != nil {
		return nil, err
	}

	monthlyFee := s.managementFee(c)

	// (a) 当期剩余天数
	refundFrom := term
	if *req.ChargeTerminationDay {
		refundFrom = term.AddDate(0, 0, 1)
	}
	partialDays := 0
	if !refundFrom.After(cycle.End) {
		partialDays = int(cycle.End.Sub(refundFrom).Hours()/24) + 1
	}
	partialAmount := monthlyFee.Div(monthDivisor).
		Mul(decimal.NewFromInt(int64(partialDays))).Round(2)

	// (b) 已收的后续完整账期：当期之后、合同名义结束日之前的整账期
	futureCycles := 0
	next := cycle
	for {
		start := next.End.AddDate(0, 0, 1)
		next = contractservice.SigningCycle(c.StartDate.Day(), start.Year(), start.Month())
		if next.End.After(c.EndDate) {
			break
		}
		futureCycles++
	}
	futureAmount := monthlyFee.Mul(decimal.NewFromInt(int64(futureCycles)))

	result := &RefundResult{
		ContractID:    c.ID,
		CycleStart:    cycle.Start,
		CycleEnd:      cycle.End,
		PartialDays:   partialDays,
		PartialAmount: partialAmount,
		FutureCycles:  futureCycles,
		FutureAmount:  futureAmount,
		Total:         partialAmount.Add(futureAmount),
	}

	if req.Apply && result.Total.IsPositive() {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			bill, err := s.bills.FindByCycle(ctx, c.ID, cycle.Start, false)
			if err != nil {
				return err
			}
			if bill == nil {
				return fmt.Errorf("no bill for cycle starting %s", cycle.Start.Format("2006-01-02"))
			}
			adj := &adjdomain.Adjustment{
				Kind:       adjdomain.KindCustomerDecrease,
				ContractID: c.ID,
				BillID:     &bill.ID,
				Amount:     result.Total,
				Remark: fmt.Sprintf("中止退费：当期 %d 天 + %d 个完整账期",
					partialDays, futureCycles),
				// 手工口径：重算不会删掉它
				SystemGenerated: false,
			}
			if err := s.adjRepo.Create(ctx, tx, adj); err != nil {
				return err
			}
			result.AdjustmentID = &adj.ID
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("termination refund recorded",
			zap.Uint("contract_id", c.ID), zap.String("total", result.Total.String()))
	}
	return result, nil
}

// cycleContaining 找到覆盖指定日期的签约日账期
func cycleContaining(c *contractdomain.Contract, d time.Time) (contractdomain.Cycle, error) {
	day := c.StartDate.Day()
	// 账期头可能落在上个月，两个月都试
	for _, m := range []time.Time{d.AddDate(0, -1, 0), d} {
		cycle := contractservice.SigningCycle(day, m.Year(), m.Month())
		if cycle.Contains(d) {
			return cycle, nil
		}
	}
	return contractdomain.Cycle{}, fmt.Errorf("no signing-day cycle contains %s", d.Format("2006-01-02"))
}
