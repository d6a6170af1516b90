package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	adjdomain "github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
	adjservice "github.com/anjia-dev/anjia-billing/internal/adjustment/service"
	attservice "github.com/anjia-dev/anjia-billing/internal/attendance/service"
	"github.com/anjia-dev/anjia-billing/internal/billing/domain"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
	contractservice "github.com/anjia-dev/anjia-billing/internal/contract/service"
	"github.com/anjia-dev/anjia-billing/internal/platform/events"
)

// monthDivisor 日薪口径：固定按 30 天折算，与月份实际天数无关
var monthDivisor = decimal.NewFromInt(30)

// BillingService 账单/工资单计算器
type BillingService struct {
	db          *gorm.DB
	contracts   contractdomain.Repository
	cycles      *contractservice.CycleService
	attendance  *attservice.AttendanceService
	bills       domain.BillRepository
	payrolls    domain.PayrollRepository
	adjustments *adjservice.AdjustmentService
	adjRepo     adjdomain.Repository
	publisher   events.Publisher
	logger      *zap.Logger
}

func NewBillingService(
	db *gorm.DB,
	contracts contractdomain.Repository,
	cycles *contractservice.CycleService,
	attendance *attservice.AttendanceService,
	bills domain.BillRepository,
	payrolls domain.PayrollRepository,
	adjustments *adjservice.AdjustmentService,
	adjRepo adjdomain.Repository,
	publisher events.Publisher,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		db:          db,
		contracts:   contracts,
		cycles:      cycles,
		attendance:  attendance,
		bills:       bills,
		payrolls:    payrolls,
		adjustments: adjustments,
		adjRepo:     adjRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// RecomputeResult 单合同重算结果
type RecomputeResult struct {
	ContractID uint       `json:"contract_id"`
	NoBill     bool       `json:"no_bill"` // 当月不出账
	BillID     uint       `json:"bill_id,omitempty"`
	PayrollID  uint       `json:"payroll_id,omitempty"`
	CycleStart *time.Time `json:"cycle_start,omitempty"`
	CycleEnd   *time.Time `json:"cycle_end,omitempty"`
	Finalized  bool       `json:"finalized"`
}

// Recompute 重算某合同在目标月份的账单与工资单
//
// 幂等：系统生成的明细行与调整项先删后建，手工录入的保持原样；
// 整个 (合同, 账期) 的写入在一个事务里，任何失败全部回滚
func (s *BillingService) Recompute(ctx context.Context, contractID uint, year int, month time.Month) (*RecomputeResult, error) {
	c, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.cycles.Resolve(ctx, c, year, month)
	if err != nil {
		return nil, fmt.Errorf("recompute contract %d: %w", contractID, err)
	}
	if resolved == nil {
		return &RecomputeResult{ContractID: contractID, NoBill: true}, nil
	}

	result := &RecomputeResult{ContractID: contractID}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.recomputeTx(ctx, tx, c, resolved, result)
	})
	if err != nil {
		return nil, err
	}

	// 事件发布失败只记日志，不影响已提交的重算
	e := events.New(events.BillRecomputed, map[string]any{
		"contract_id": c.ID,
		"bill_id":     result.BillID,
		"payroll_id":  result.PayrollID,
		"cycle_start": resolved.Cycle.Start.Format("2006-01-02"),
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish recompute event failed", zap.Uint("contract_id", c.ID), zap.Error(err))
	}
	return result, nil
}

func (s *BillingService) recomputeTx(ctx context.Context, tx *gorm.DB, c *contractdomain.Contract, resolved *contractservice.ResolvedCycle, result *RecomputeResult) error {
	cycle := resolved.Cycle

	// 1. 账期边界占位标记（连续性边界除外）
	if err := s.cycles.EnsureEdgeMarkers(ctx, tx, c, resolved); err != nil {
		return err
	}

	// 2. 考勤汇总
	summary, err := s.attendance.Summarize(ctx, c.ID, cycle)
	if err != nil {
		return err
	}

	// 3. 金额计算
	dailyRate := c.MonthlyRate.Div(monthDivisor)
	baseFee := dailyRate.Mul(decimal.NewFromInt(int64(summary.PayoutDays))).Round(2)
	// 加班按日薪的 1/8 折算到小时
	overtimeFee := dailyRate.Div(decimal.NewFromInt(8)).Mul(summary.OvertimeHours).Round(2)
	mgmtFee := s.managementFee(c)
	commission := baseFee.Add(overtimeFee).Mul(c.CommissionRate).Round(2)

	// 自动续约把账期推过名义结束日之后，按账期加收续约费
	extensionFee := decimal.Zero
	if c.AutoRenew && cycle.Start.After(c.EndDate) {
		extensionFee = mgmtFee
	}

	// 4. 替班覆盖：替班人产生平行的账单/工资单对，原账单加一条扣减行
	subDeduction, err := s.recomputeSubstitutes(ctx, tx, c, cycle, dailyRate)
	if err != nil {
		return err
	}

	// 5. 账单与工资单落库（唯一键 (contract, cycle_start, is_substitute)）
	billItems := []domain.BreakdownItem{
		{Key: domain.LineBaseFee, Amount: baseFee},
		{Key: domain.LineOvertimeFee, Amount: overtimeFee},
		{Key: domain.LineManagementFee, Amount: mgmtFee},
	}
	if extensionFee.IsPositive() {
		billItems = append(billItems, domain.BreakdownItem{Key: domain.LineExtensionFee, Amount: extensionFee})
	}
	if subDeduction.IsPositive() {
		billItems = append(billItems, domain.BreakdownItem{Key: domain.LineSubstituteDeduction, Amount: subDeduction})
	}
	payrollItems := []domain.BreakdownItem{
		{Key: domain.LineBaseFee, Amount: baseFee},
		{Key: domain.LineOvertimeFee, Amount: overtimeFee},
	}
	if commission.IsPositive() {
		payrollItems = append(payrollItems, domain.BreakdownItem{Key: domain.LineEmployeeCommission, Amount: commission})
	}

	bill, err := s.upsertBill(ctx, tx, c.ID, cycle, false, billItems)
	if err != nil {
		return err
	}
	payroll, err := s.upsertPayroll(ctx, tx, c.ID, c.EmployeeID, cycle, false, payrollItems)
	if err != nil {
		return err
	}
	result.BillID = bill.ID
	result.PayrollID = payroll.ID
	result.CycleStart = &cycle.Start
	result.CycleEnd = &cycle.End

	// 6. 系统生成的调整项先删后建（手工项不动）
	if err := s.adjRepo.DeleteSystemGenerated(ctx, tx, &bill.ID, &payroll.ID); err != nil {
		return err
	}

	// 7. 末账期终了结转：押金转付工资的镜像对
	if resolved.LastCycle && (c.Status == contractdomain.StatusTerminated || c.Status == contractdomain.StatusFinished) {
		if err := s.finalizeTx(ctx, tx, c, bill, payroll); err != nil {
			return err
		}
		result.Finalized = true
	}
	return nil
}

// managementFee 管理费：比例优先，比例为零用固定额
func (s *BillingService) managementFee(c *contractdomain.Contract) decimal.Decimal {
	if c.ManagementFeeRate.IsPositive() {
		return c.MonthlyRate.Mul(c.ManagementFeeRate).Round(2)
	}
	return c.ManagementFeeFlat
}

// sumItems 按注册表校验键并累计合计；未注册的键直接报错
func sumItems(items []domain.BreakdownItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range items {
		spec, err := domain.LookupLine(items[i].Key)
		if err != nil {
			return decimal.Zero, err
		}
		items[i].Label = spec.Label
		if spec.Sign < 0 {
			total = total.Sub(items[i].Amount)
		} else {
			total = total.Add(items[i].Amount)
		}
	}
	return total, nil
}

func (s *BillingService) upsertBill(ctx context.Context, tx *gorm.DB, contractID uint, cycle contractdomain.Cycle, isSubstitute bool, items []domain.BreakdownItem) (*domain.Bill, error) {
	due, err := sumItems(items)
	if err != nil {
		return nil, err
	}

	bill, err := s.bills.FindByCycle(ctx, contractID, cycle.Start, isSubstitute)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		bill = &domain.Bill{
			ContractID:   contractID,
			CycleStart:   cycle.Start,
			CycleEnd:     cycle.End,
			IsSubstitute: isSubstitute,
			PaidTotal:    decimal.Zero,
		}
	}
	bill.CycleEnd = cycle.End
	bill.DueTotal = due
	bill.Status = domain.StatusFor(bill.DueTotal, bill.PaidTotal)
	if err := s.bills.Save(ctx, tx, bill); err != nil {
		return nil, err
	}
	if err := s.bills.ReplaceItems(ctx, tx, bill, items); err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *BillingService) upsertPayroll(ctx context.Context, tx *gorm.DB, contractID, employeeID uint, cycle contractdomain.Cycle, isSubstitute bool, items []domain.BreakdownItem) (*domain.Payroll, error) {
	due, err := sumItems(items)
	if err != nil {
		return nil, err
	}

	payroll, err := s.payrolls.FindByCycle(ctx, contractID, cycle.Start, isSubstitute)
	if err != nil {
		return nil, err
	}
	if payroll == nil {
		payroll = &domain.Payroll{
			ContractID:   contractID,
			EmployeeID:   employeeID,
			CycleStart:   cycle.Start,
			CycleEnd:     cycle.End,
			IsSubstitute: isSubstitute,
			PaidTotal:    decimal.Zero,
		}
	}
	payroll.EmployeeID = employeeID
	payroll.CycleEnd = cycle.End
	payroll.DueTotal = due
	payroll.Status = domain.StatusFor(payroll.DueTotal, payroll.PaidTotal)
	if err := s.payrolls.Save(ctx, tx, payroll); err != nil {
		return nil, err
	}
	if err := s.payrolls.ReplaceItems(ctx, tx, payroll, items); err != nil {
		return nil, err
	}
	return payroll, nil
}

// recomputeSubstitutes 重建替班平行单据，返回原账单应扣减的金额
func (s *BillingService) recomputeSubstitutes(ctx context.Context, tx *gorm.DB, c *contractdomain.Contract, cycle contractdomain.Cycle, originalDailyRate decimal.Decimal) (decimal.Decimal, error) {
	subs, err := s.contracts.FindSubstitutions(ctx, c.ID)
	if err != nil {
		return decimal.Zero, err
	}

	deduction := decimal.Zero
	for _, sub := range subs {
		subSummary, err := s.attendance.Summarize(ctx, sub.ID, cycle)
		if err != nil {
			return decimal.Zero, err
		}
		if subSummary.PayoutDays == 0 {
			continue
		}
		days := decimal.NewFromInt(int64(subSummary.PayoutDays))
		subDaily := sub.MonthlyRate.Div(monthDivisor)
		subFee := subDaily.Mul(days).Round(2)

		items := []domain.BreakdownItem{{Key: domain.LineBaseFee, Amount: subFee}}
		if _, err := s.upsertBill(ctx, tx, c.ID, cycle, true, items); err != nil {
			return decimal.Zero, err
		}
		subItems := []domain.BreakdownItem{{Key: domain.LineBaseFee, Amount: subFee}}
		if _, err := s.upsertPayroll(ctx, tx, c.ID, sub.EmployeeID, cycle, true, subItems); err != nil {
			return decimal.Zero, err
		}

		// 原员工未服务的天数从原账单里扣掉
		deduction = deduction.Add(originalDailyRate.Mul(days).Round(2))
	}
	return deduction, nil
}

// finalizeTx 终了结转：创建"公司从押金代付工资"（客户侧）与
// "押金已付工资、冲减公司应付"（员工侧）的镜像对
//
// 金额按合同类型穷举分发：普通合同封顶到月度服务费，试工合同
// 按实际金额不封顶；取整后两侧完全一致
func (s *BillingService) finalizeTx(ctx context.Context, tx *gorm.DB, c *contractdomain.Contract, bill *domain.Bill, payroll *domain.Payroll) error {
	actual := payroll.DueTotal

	var amount decimal.Decimal
	switch c.Variant().(type) {
	case contractdomain.TrialTerms:
		amount = actual.Round(0)
	case contractdomain.OrdinaryTerms, contractdomain.MaternityNurseTerms, contractdomain.SubstitutionTerms:
		amount = decimal.Min(actual, c.MonthlyRate).Round(0)
	default:
		return fmt.Errorf("finalize: unhandled contract kind %q", c.Kind)
	}
	if !amount.IsPositive() {
		return nil
	}

	customer := &adjdomain.Adjustment{
		Kind:            adjdomain.KindCompanyPaidSalary,
		ContractID:      c.ID,
		BillID:          &bill.ID,
		Amount:          amount,
		Remark:          "终了结转：押金代付工资",
		SystemGenerated: true,
	}
	employee := &adjdomain.Adjustment{
		Kind:            adjdomain.KindDepositPaidSalary,
		ContractID:      c.ID,
		PayrollID:       &payroll.ID,
		Amount:          amount,
		Remark:          "终了结转：押金已付工资",
		SystemGenerated: true,
	}
	return s.adjustments.CreatePairTx(ctx, tx, customer, employee)
}

// BatchResult 批量重算结果：逐合同独立提交，单个失败不拖垮整批
type BatchResult struct {
	Succeeded []RecomputeResult `json:"succeeded"`
	Failed    []BatchFailure    `json:"failed"`
}

type BatchFailure struct {
	ContractID uint   `json:"contract_id"`
	Error      string `json:"error"`
}

// RecomputeBatch 按月批量重算
// 逐合同顺序提交：用部分进度换整体原子性，失败的记日志继续下一个
func (s *BillingService) RecomputeBatch(ctx context.Context, year int, month time.Month) (*BatchResult, error) {
	contracts, err := s.contracts.ListBillable(ctx, year, int(month))
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	for _, c := range contracts {
		r, err := s.Recompute(ctx, c.ID, year, month)
		if err != nil {
			s.logger.Error("recompute failed, continuing batch",
				zap.Uint("contract_id", c.ID), zap.Error(err))
			batch.Failed = append(batch.Failed, BatchFailure{ContractID: c.ID, Error: err.Error()})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, *r)
	}
	return batch, nil
}
