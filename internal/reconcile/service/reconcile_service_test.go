package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	adjrepo "github.com/anjia-dev/anjia-billing/internal/adjustment/adapter/repo"
	adjdomain "github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
	adjservice "github.com/anjia-dev/anjia-billing/internal/adjustment/service"
	attrepo "github.com/anjia-dev/anjia-billing/internal/attendance/adapter/repo"
	attdomain "github.com/anjia-dev/anjia-billing/internal/attendance/domain"
	attservice "github.com/anjia-dev/anjia-billing/internal/attendance/service"
	billingrepo "github.com/anjia-dev/anjia-billing/internal/billing/adapter/repo"
	billingdomain "github.com/anjia-dev/anjia-billing/internal/billing/domain"
	billingservice "github.com/anjia-dev/anjia-billing/internal/billing/service"
	contractrepo "github.com/anjia-dev/anjia-billing/internal/contract/adapter/repo"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
	contractservice "github.com/anjia-dev/anjia-billing/internal/contract/service"
	"github.com/anjia-dev/anjia-billing/internal/platform/events"
	"github.com/anjia-dev/anjia-billing/internal/reconcile/adapter/repo"
	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

type fixture struct {
	db      *gorm.DB
	svc     *ReconcileService
	txs     domain.TransactionRepository
	aliases domain.AliasRepository
	audits  domain.AuditRepository
	funds   billingdomain.FundsRepository
	adjRepo adjdomain.Repository
	billing *billingservice.BillingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&contractdomain.Contract{}, &attdomain.DayRecord{},
		&billingdomain.Bill{}, &billingdomain.Payroll{}, &billingdomain.BreakdownItem{},
		&billingdomain.Payment{}, &billingdomain.Payout{},
		&adjdomain.Adjustment{},
		&domain.BankTransaction{}, &domain.PayerAlias{}, &domain.AuditEntry{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	contracts := contractrepo.NewContractRepo(db)
	attendance := attrepo.NewAttendanceRepo(db)
	adjR := adjrepo.NewAdjustmentRepo(db)
	bills := billingrepo.NewBillRepo(db)
	payrolls := billingrepo.NewPayrollRepo(db)
	funds := billingrepo.NewFundsRepo(db)
	txs := repo.NewTransactionRepo(db)
	aliases := repo.NewAliasRepo(db)
	audits := repo.NewAuditRepo(db)
	logger := zap.NewNop()
	bus := events.NewMemoryBus()

	adjSvc := adjservice.NewAdjustmentService(db, adjR, logger)
	billingSvc := billingservice.NewBillingService(
		db, contracts,
		contractservice.NewCycleService(contracts, attendance),
		attservice.NewAttendanceService(attendance),
		bills, payrolls, adjSvc, adjR, bus, logger,
	)
	svc := NewReconcileService(
		db, txs, aliases, audits,
		contracts, bills, payrolls, funds,
		billingSvc, adjSvc, adjR, bus, logger,
	)
	return &fixture{
		db: db, svc: svc, txs: txs, aliases: aliases, audits: audits,
		funds: funds, adjRepo: adjR, billing: billingSvc,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) createContract(t *testing.T, name string) *contractdomain.Contract {
	t.Helper()
	c := &contractdomain.Contract{
		ContractNo: fmt.Sprintf("R-%d", time.Now().UnixNano()),
		CustomerID: 1, CustomerName: name,
		EmployeeID: 1, EmployeeName: "李阿姨",
		Kind: contractdomain.KindOrdinary, Status: contractdomain.StatusActive,
		StartDate: date(2026, time.January, 17), EndDate: date(2026, time.December, 16),
		MonthlyRate: decimal.NewFromInt(5000),
	}
	if err := f.db.Create(c).Error; err != nil {
		t.Fatalf("create contract: %v", err)
	}
	return c
}

func (f *fixture) createBill(t *testing.T, contractID uint, cycleStart time.Time, due string) *billingdomain.Bill {
	t.Helper()
	b := &billingdomain.Bill{
		ContractID: contractID,
		CycleStart: cycleStart, CycleEnd: cycleStart.AddDate(0, 1, -1),
		DueTotal: dec(due), PaidTotal: decimal.Zero,
		Status: billingdomain.StatusUnpaid,
	}
	if err := f.db.Create(b).Error; err != nil {
		t.Fatalf("create bill: %v", err)
	}
	return b
}

func (f *fixture) createPayroll(t *testing.T, contractID uint, due string) *billingdomain.Payroll {
	t.Helper()
	p := &billingdomain.Payroll{
		ContractID: contractID, EmployeeID: 1,
		CycleStart: date(2026, time.January, 17), CycleEnd: date(2026, time.February, 16),
		DueTotal: dec(due), PaidTotal: decimal.Zero,
		Status: billingdomain.StatusUnpaid,
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("create payroll: %v", err)
	}
	return p
}

func (f *fixture) createTx(t *testing.T, externalID string, dir domain.Direction, amount, counterparty string) *domain.BankTransaction {
	t.Helper()
	tx := &domain.BankTransaction{
		ExternalID: externalID, OccurredAt: date(2026, time.February, 1),
		Direction: dir, Amount: dec(amount), Counterparty: counterparty,
		Status: domain.StatusUnmatched, AllocatedAmount: decimal.Zero,
	}
	if err := f.db.Create(tx).Error; err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestImportStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	text := "流水号\t交易时间\t方向\t金额\t对方户名\t摘要\n" +
		"TX1\t2026-01-05 09:30:00\t收\t5200.00\t张三\t1月服务费\n" +
		"TX2\t2026-01-05 10:00:00\t付\t4500.00\t李阿姨\t工资\n"

	report, err := f.svc.ImportStatement(ctx, text)
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if report.New != 2 || report.Duplicate != 0 || report.Error != 0 || report.Total != 2 {
		t.Errorf("report = %+v, want 2 new", report)
	}

	// 同一文件再导一遍：全部按重复计，绝不二次入库
	report, err = f.svc.ImportStatement(ctx, text)
	if err != nil {
		t.Fatalf("ImportStatement again: %v", err)
	}
	if report.New != 0 || report.Duplicate != 2 {
		t.Errorf("report = %+v, want 2 duplicates", report)
	}
	var count int64
	f.db.Model(&domain.BankTransaction{}).Count(&count)
	if count != 2 {
		t.Errorf("transactions = %d, want 2", count)
	}
}

func TestImportStatementIsolatesBadLines(t *testing.T) {
	f := newFixture(t)

	text := "流水号\t交易时间\t方向\t金额\t对方户名\t摘要\n" +
		"TX10\t2026-01-05 09:30:00\t收\t100\t张三\t\n" +
		"TX10\t2026-01-05 09:30:00\t收\t100\t张三\t\n" +
		"TX11\t2026-01-05\t收\t100\t张三\t\n"

	report, err := f.svc.ImportStatement(context.Background(), text)
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if report.New != 1 || report.Duplicate != 1 || report.Error != 1 || report.Total != 3 {
		t.Errorf("report = %+v, want new=1 dup=1 err=1 total=3", report)
	}
}

func TestSuggestSingleExactMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	bill := f.createBill(t, c.ID, date(2026, time.January, 17), "5200")
	f.createBill(t, c.ID, date(2026, time.February, 17), "300")
	tx := f.createTx(t, "TX20", domain.DirectionCredit, "5200", "张三")

	got, err := f.svc.Suggest(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	// 唯一精确命中：待确认，永不自动落账
	if got.Status != MatchPending {
		t.Errorf("status = %s, want pending_confirmation", got.Status)
	}
	if got.Suggested == nil || got.Suggested.TargetID != bill.ID {
		t.Errorf("suggested = %+v, want bill #%d", got.Suggested, bill.ID)
	}
	if len(got.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(got.Candidates))
	}

	// 建议不改任何状态
	fresh, _ := f.txs.FindByID(ctx, tx.ID)
	if fresh.Status != domain.StatusUnmatched || !fresh.AllocatedAmount.IsZero() {
		t.Error("suggestion must not touch the transaction")
	}
}

func TestSuggestAmbiguousIsManual(t *testing.T) {
	f := newFixture(t)

	c := f.createContract(t, "张三")
	f.createBill(t, c.ID, date(2026, time.January, 17), "500")
	f.createBill(t, c.ID, date(2026, time.February, 17), "500")
	tx := f.createTx(t, "TX21", domain.DirectionCredit, "500", "张三")

	got, err := f.svc.Suggest(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got.Status != MatchManual || got.Suggested != nil {
		t.Errorf("two exact hits must fall back to manual, got %+v", got)
	}
}

func TestSuggestUnknownPayer(t *testing.T) {
	f := newFixture(t)
	tx := f.createTx(t, "TX22", domain.DirectionCredit, "500", "无名氏")

	got, err := f.svc.Suggest(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got.Status != MatchUnmatched || len(got.Candidates) != 0 {
		t.Errorf("unknown payer must be unmatched, got %+v", got)
	}
}

func TestSuggestDebitCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	f.createPayroll(t, c.ID, "4500")
	billID := uint(99)
	refund := &adjdomain.Adjustment{
		Kind: adjdomain.KindCustomerDecrease, ContractID: c.ID, BillID: &billID,
		Amount: dec("300"), Remark: "中止退费",
	}
	if err := f.db.Create(refund).Error; err != nil {
		t.Fatal(err)
	}
	tx := f.createTx(t, "TX23", domain.DirectionDebit, "4500", "李阿姨")

	got, err := f.svc.Suggest(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got.Candidates) != 2 {
		t.Fatalf("candidates = %d, want payroll + pending refund", len(got.Candidates))
	}
	if got.Status != MatchPending || got.Suggested.Type != CandidatePayroll {
		t.Errorf("suggestion = %+v, want the exact payroll hit", got)
	}
}

func TestAllocateAndReversePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	bill := f.createBill(t, c.ID, date(2026, time.January, 17), "5200")
	tx := f.createTx(t, "TX30", domain.DirectionCredit, "5200", "张三")

	result, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateBill, ID: bill.ID, Amount: dec("5200")},
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if result.Status != domain.StatusMatched || len(result.PaymentIDs) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !result.AliasLearned {
		t.Error("first allocation should learn the payer alias")
	}
	alias, err := f.aliases.FindByName(ctx, "张三")
	if err != nil || alias == nil || alias.ContractID != c.ID {
		t.Errorf("alias = %+v (%v), want binding to contract %d", alias, err, c.ID)
	}

	var gotBill billingdomain.Bill
	f.db.First(&gotBill, bill.ID)
	if gotBill.Status != billingdomain.StatusPaid || !gotBill.PaidTotal.Equal(dec("5200")) {
		t.Errorf("bill = %s %s, want paid 5200", gotBill.Status, gotBill.PaidTotal)
	}

	// 冲正：收款删除，账单与流水同步回退，审计记录连带删除
	reversal, err := f.svc.ReversePayment(ctx, result.PaymentIDs[0])
	if err != nil {
		t.Fatalf("ReversePayment: %v", err)
	}
	if reversal.Status != domain.StatusUnmatched || !reversal.Allocated.IsZero() {
		t.Errorf("reversal = %+v", reversal)
	}
	if reversal.AuditEntriesRemoved != 1 {
		t.Errorf("audit entries removed = %d, want 1", reversal.AuditEntriesRemoved)
	}
	f.db.First(&gotBill, bill.ID)
	if gotBill.Status != billingdomain.StatusUnpaid || !gotBill.PaidTotal.IsZero() {
		t.Errorf("bill after reversal = %s %s, want unpaid 0", gotBill.Status, gotBill.PaidTotal)
	}
	if _, err := f.funds.FindPayment(ctx, result.PaymentIDs[0]); !errors.Is(err, billingdomain.ErrNotFound) {
		t.Error("payment record must be gone")
	}
}

func TestAllocatePartialThenOverAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	bill := f.createBill(t, c.ID, date(2026, time.January, 17), "5200")
	tx := f.createTx(t, "TX31", domain.DirectionCredit, "500", "张三")

	result, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateBill, ID: bill.ID, Amount: dec("300")},
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if result.Status != domain.StatusPartiallyAllocated {
		t.Errorf("status = %s, want partially_allocated", result.Status)
	}

	// 超过剩余可分配：整体拒绝，什么都不落
	_, err = f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateBill, ID: bill.ID, Amount: dec("300")},
	})
	if !errors.Is(err, domain.ErrOverAllocation) {
		t.Errorf("error = %v, want ErrOverAllocation", err)
	}
	fresh, _ := f.txs.FindByID(ctx, tx.ID)
	if !fresh.AllocatedAmount.Equal(dec("300")) {
		t.Errorf("allocated = %s, rejected batch must not change it", fresh.AllocatedAmount)
	}
}

func TestAllocateRefundAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	billID := uint(7)
	refund := &adjdomain.Adjustment{
		Kind: adjdomain.KindCustomerDecrease, ContractID: c.ID, BillID: &billID,
		Amount: dec("300"), Remark: "中止退费",
	}
	if err := f.db.Create(refund).Error; err != nil {
		t.Fatal(err)
	}
	tx := f.createTx(t, "TX32", domain.DirectionDebit, "300", "张三")

	// 退款项必须整额结清
	_, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateRefundAdjustment, ID: refund.ID, Amount: dec("100")},
	})
	if err == nil {
		t.Fatal("partial settlement of a refund adjustment must be rejected")
	}

	result, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateRefundAdjustment, ID: refund.ID, Amount: dec("300")},
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	adj, _ := f.adjRepo.FindByID(ctx, refund.ID)
	if !adj.Settled() {
		t.Error("refund adjustment must be settled")
	}

	// 冲正出账：结清一并撤销
	reversal, err := f.svc.ReversePayout(ctx, result.PayoutIDs[0])
	if err != nil {
		t.Fatalf("ReversePayout: %v", err)
	}
	if len(reversal.SettlementsReversed) != 1 {
		t.Errorf("settlements reversed = %d, want 1", len(reversal.SettlementsReversed))
	}
	adj, _ = f.adjRepo.FindByID(ctx, refund.ID)
	if adj.Settled() {
		t.Error("settlement must be reversed with the payout")
	}
}

func TestCancelAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	bill := f.createBill(t, c.ID, date(2026, time.January, 17), "500")
	payroll := f.createPayroll(t, c.ID, "300")
	tx := f.createTx(t, "TX33", domain.DirectionCredit, "800", "张三")

	_, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateBill, ID: bill.ID, Amount: dec("500")},
		{Type: CandidatePayroll, ID: payroll.ID, Amount: dec("300")},
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	result, err := f.svc.CancelAllocation(ctx, tx.ID)
	if err != nil {
		t.Fatalf("CancelAllocation: %v", err)
	}
	if len(result.DeletedPaymentIDs) != 1 || len(result.DeletedPayoutIDs) != 1 {
		t.Errorf("result = %+v, want one payment and one payout reversed", result)
	}
	if result.Status != domain.StatusUnmatched || !result.Allocated.IsZero() {
		t.Errorf("transaction after cancel = %s / %s", result.Status, result.Allocated)
	}

	var gotBill billingdomain.Bill
	f.db.First(&gotBill, bill.ID)
	if !gotBill.PaidTotal.IsZero() {
		t.Errorf("bill paid = %s, want 0", gotBill.PaidTotal)
	}
	var gotPayroll billingdomain.Payroll
	f.db.First(&gotPayroll, payroll.ID)
	if !gotPayroll.PaidTotal.IsZero() {
		t.Errorf("payroll paid = %s, want 0", gotPayroll.PaidTotal)
	}
	entries, _ := f.audits.ListByTransaction(ctx, tx.ID)
	if len(entries) != 0 {
		t.Errorf("audit entries = %d, want all cascaded away", len(entries))
	}
}

func TestIgnoreAndUnignore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.createContract(t, "张三")
	bill := f.createBill(t, c.ID, date(2026, time.January, 17), "500")
	tx := f.createTx(t, "TX34", domain.DirectionCredit, "500", "张三")

	if _, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateBill, ID: bill.ID, Amount: dec("200")},
	}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if err := f.svc.Ignore(ctx, tx.ID, "对公往来，不对账"); err != nil {
		t.Fatalf("Ignore: %v", err)
	}
	fresh, _ := f.txs.FindByID(ctx, tx.ID)
	if fresh.Status != domain.StatusIgnored || fresh.IgnoreReason == "" {
		t.Errorf("transaction = %+v, want ignored with reason", fresh)
	}

	// 已忽略的流水拒绝继续分配
	_, err := f.svc.Allocate(ctx, tx.ID, []AllocationTarget{
		{Type: CandidateBill, ID: bill.ID, Amount: dec("100")},
	})
	if !errors.Is(err, domain.ErrNotAllocatable) {
		t.Errorf("error = %v, want ErrNotAllocatable", err)
	}

	// 撤销忽略：回到按已分配金额推导的状态，而不是记住旧状态
	got, err := f.svc.Unignore(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Unignore: %v", err)
	}
	if got.Status != domain.StatusPartiallyAllocated || got.IgnoreReason != "" {
		t.Errorf("transaction = %s %q, want partially_allocated with cleared reason", got.Status, got.IgnoreReason)
	}
}
