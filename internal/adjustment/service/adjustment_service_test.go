package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anjia-dev/anjia-billing/internal/adjustment/adapter/repo"
	"github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
)

func newTestService(t *testing.T) (*AdjustmentService, *gorm.DB) {
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
	if err := db.AutoMigrate(&domain.Adjustment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewAdjustmentService(db, repo.NewAdjustmentRepo(db), zap.NewNop()), db
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	billID, payrollID := uint(1), uint(2)

	cases := []struct {
		name    string
		adj     *domain.Adjustment
		wantErr error
	}{
		{
			name: "未注册类型",
			adj: &domain.Adjustment{
				Kind: "mystery", ContractID: 1, BillID: &billID,
				Amount: decimal.NewFromInt(100),
			},
			wantErr: domain.ErrInvalidKind,
		},
		{
			name: "两侧都挂",
			adj: &domain.Adjustment{
				Kind: domain.KindCustomerIncrease, ContractID: 1,
				BillID: &billID, PayrollID: &payrollID,
				Amount: decimal.NewFromInt(100),
			},
			wantErr: domain.ErrInvalidAttachment,
		},
		{
			name: "两侧都不挂",
			adj: &domain.Adjustment{
				Kind: domain.KindCustomerIncrease, ContractID: 1,
				Amount: decimal.NewFromInt(100),
			},
			wantErr: domain.ErrInvalidAttachment,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Create(ctx, tc.adj)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tc.wantErr)
			}
		})
	}

	// 金额必须为正
	err := svc.Create(ctx, &domain.Adjustment{
		Kind: domain.KindCustomerIncrease, ContractID: 1, BillID: &billID,
		Amount: decimal.NewFromInt(-5),
	})
	if err == nil {
		t.Error("negative amount must be rejected")
	}
}

func TestCreateMirroredPair(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customer, employee, err := svc.CreateMirroredPair(ctx, PairRequest{
		ContractID: 1, BillID: 10, PayrollID: 20,
		CustomerKind: domain.KindCompanyPaidSalary,
		EmployeeKind: domain.KindDepositPaidSalary,
		Amount:       decimal.NewFromInt(5000),
		Remark:       "终了结转",
	})
	if err != nil {
		t.Fatalf("CreateMirroredPair: %v", err)
	}

	if customer.MirrorID == nil || *customer.MirrorID != employee.ID {
		t.Error("customer side must point to the employee side")
	}
	if employee.MirrorID == nil || *employee.MirrorID != customer.ID {
		t.Error("employee side must point back to the customer side")
	}
	if !customer.Amount.Equal(employee.Amount) {
		t.Errorf("amounts differ: %s vs %s", customer.Amount, employee.Amount)
	}
	if customer.Side() != domain.SideBill || employee.Side() != domain.SidePayroll {
		t.Error("customer attaches to the bill, employee to the payroll")
	}

	if err := svc.VerifyMirror(ctx, customer); err != nil {
		t.Errorf("VerifyMirror: %v", err)
	}
}

func TestCreateMirroredPairRejectsNonMirrorKinds(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.CreateMirroredPair(context.Background(), PairRequest{
		ContractID: 1, BillID: 10, PayrollID: 20,
		CustomerKind: domain.KindCustomerIncrease,
		EmployeeKind: domain.KindEmployeeIncrease,
		Amount:       decimal.NewFromInt(100),
	})
	if !errors.Is(err, domain.ErrMirrorBroken) {
		t.Errorf("error = %v, want ErrMirrorBroken", err)
	}
}

func TestDeleteCascadesMirror(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	customer, employee, err := svc.CreateMirroredPair(ctx, PairRequest{
		ContractID: 1, BillID: 10, PayrollID: 20,
		CustomerKind: domain.KindCommission,
		EmployeeKind: domain.KindCommissionOffset,
		Amount:       decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("CreateMirroredPair: %v", err)
	}

	result, err := svc.Delete(ctx, customer.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !result.MirrorDeleted || len(result.DeletedIDs) != 2 {
		t.Errorf("result = %+v, want both sides deleted", result)
	}
	if result.Description == "" {
		t.Error("cascade description must not be empty")
	}

	var count int64
	db.Model(&domain.Adjustment{}).Where("id IN ?", []uint{customer.ID, employee.ID}).Count(&count)
	if count != 0 {
		t.Errorf("%d adjustments survived the cascade", count)
	}
}

func TestDeleteSingleSided(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	billID := uint(10)

	adj := &domain.Adjustment{
		Kind: domain.KindCustomerIncrease, ContractID: 1, BillID: &billID,
		Amount: decimal.NewFromInt(88),
	}
	if err := svc.Create(ctx, adj); err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := svc.Delete(ctx, adj.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if result.MirrorDeleted || len(result.DeletedIDs) != 1 {
		t.Errorf("result = %+v, want single deletion", result)
	}
}

func TestSettleAndReverse(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	billID := uint(10)

	adj := &domain.Adjustment{
		Kind: domain.KindCustomerDecrease, ContractID: 1, BillID: &billID,
		Amount: decimal.NewFromInt(500),
	}
	if err := svc.Create(ctx, adj); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.SettleTx(ctx, tx, adj.ID, at, "流水 TX-1 出账结清")
	})
	if err != nil {
		t.Fatalf("SettleTx: %v", err)
	}

	var got domain.Adjustment
	db.First(&got, adj.ID)
	if !got.Settled() || got.SettledDetail == "" {
		t.Errorf("adjustment not settled: %+v", got)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.ReverseSettlementTx(ctx, tx, adj.ID)
	})
	if err != nil {
		t.Fatalf("ReverseSettlementTx: %v", err)
	}
	db.First(&got, adj.ID)
	if got.Settled() || got.SettledDetail != "" {
		t.Errorf("settlement not reversed: %+v", got)
	}
}

func TestDisplayAmount(t *testing.T) {
	decrease := &domain.Adjustment{Kind: domain.KindCustomerDecrease, Amount: decimal.NewFromInt(100)}
	if !decrease.DisplayAmount().Equal(decimal.NewFromInt(-100)) {
		t.Errorf("customer_decrease displays as %s, want -100", decrease.DisplayAmount())
	}
	increase := &domain.Adjustment{Kind: domain.KindCustomerIncrease, Amount: decimal.NewFromInt(100)}
	if !increase.DisplayAmount().Equal(decimal.NewFromInt(100)) {
		t.Errorf("customer_increase displays as %s, want +100", increase.DisplayAmount())
	}
}
