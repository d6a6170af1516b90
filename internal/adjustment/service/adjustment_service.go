package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
)

// AdjustmentService 财务调整台账
// 镜像对的创建/删除必须两条一起成败，这里统一用 db.Transaction 包裹
type AdjustmentService struct {
	db     *gorm.DB
	repo   domain.Repository
	logger *zap.Logger
}

func NewAdjustmentService(db *gorm.DB, repo domain.Repository, logger *zap.Logger) *AdjustmentService {
	return &AdjustmentService{db: db, repo: repo, logger: logger}
}

// PairRequest 镜像对创建请求：客户侧挂账单，员工侧挂工资单
type PairRequest struct {
	ContractID      uint
	BillID          uint
	PayrollID       uint
	CustomerKind    domain.Kind
	EmployeeKind    domain.Kind
	Amount          decimal.Decimal
	Remark          string
	SystemGenerated bool
}

// DeleteResult 删除的级联说明：响应里必须把连带删除的内容讲清楚
type DeleteResult struct {
	DeletedIDs    []uint `json:"deleted_ids"`
	MirrorDeleted bool   `json:"mirror_deleted"`
	Description   string `json:"description"`
}

func (s *AdjustmentService) validate(a *domain.Adjustment) error {
	if !a.Kind.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidKind, a.Kind)
	}
	if (a.BillID == nil) == (a.PayrollID == nil) {
		return domain.ErrInvalidAttachment
	}
	if a.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("adjustment amount must be positive, got %s", a.Amount)
	}
	return nil
}

// Create 创建单侧调整项（非镜像类型）
func (s *AdjustmentService) Create(ctx context.Context, a *domain.Adjustment) error {
	if err := s.validate(a); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, a)
	})
}

// CreateMirroredPair 原子地创建镜像对：两条都落库并互指，否则全部回滚
func (s *AdjustmentService) CreateMirroredPair(ctx context.Context, req PairRequest) (*domain.Adjustment, *domain.Adjustment, error) {
	if req.CustomerKind.MirrorKind() != req.EmployeeKind {
		return nil, nil, fmt.Errorf("%w: %s / %s is not a mirrored pair",
			domain.ErrMirrorBroken, req.CustomerKind, req.EmployeeKind)
	}

	customer := &domain.Adjustment{
		Kind:            req.CustomerKind,
		ContractID:      req.ContractID,
		BillID:          &req.BillID,
		Amount:          req.Amount,
		Remark:          req.Remark,
		SystemGenerated: req.SystemGenerated,
	}
	employee := &domain.Adjustment{
		Kind:            req.EmployeeKind,
		ContractID:      req.ContractID,
		PayrollID:       &req.PayrollID,
		Amount:          req.Amount,
		Remark:          req.Remark,
		SystemGenerated: req.SystemGenerated,
	}
	if err := s.validate(customer); err != nil {
		return nil, nil, err
	}
	if err := s.validate(employee); err != nil {
		return nil, nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreatePairTx(ctx, tx, customer, employee)
	})
	if err != nil {
		return nil, nil, err
	}
	return customer, employee, nil
}

// CreatePairTx 在已有事务里创建镜像对；计费重算的终了结转复用这里
func (s *AdjustmentService) CreatePairTx(ctx context.Context, tx *gorm.DB, customer, employee *domain.Adjustment) error {
	if !customer.Amount.Equal(employee.Amount) {
		return fmt.Errorf("%w: amounts differ (%s vs %s)",
			domain.ErrMirrorBroken, customer.Amount, employee.Amount)
	}
	if err := s.repo.Create(ctx, tx, customer); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, tx, employee); err != nil {
		return err
	}
	// 互指
	customer.MirrorID = &employee.ID
	employee.MirrorID = &customer.ID
	if err := s.repo.Save(ctx, tx, customer); err != nil {
		return err
	}
	return s.repo.Save(ctx, tx, employee)
}

// Delete 删除调整项；有镜像则同事务删除镜像
func (s *AdjustmentService) Delete(ctx context.Context, id uint) (*DeleteResult, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{DeletedIDs: []uint{a.ID}}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if a.MirrorID != nil {
			mirror, err := s.repo.FindByID(ctx, *a.MirrorID)
			if err != nil {
				return fmt.Errorf("%w: mirror #%d missing", domain.ErrMirrorBroken, *a.MirrorID)
			}
			if err := s.repo.Delete(ctx, tx, mirror.ID); err != nil {
				return err
			}
			result.DeletedIDs = append(result.DeletedIDs, mirror.ID)
			result.MirrorDeleted = true
		}
		return s.repo.Delete(ctx, tx, a.ID)
	})
	if err != nil {
		return nil, err
	}

	if result.MirrorDeleted {
		result.Description = fmt.Sprintf("调整项 #%d 及其镜像项 #%d 已一并删除", a.ID, *a.MirrorID)
	} else {
		result.Description = fmt.Sprintf("调整项 #%d 已删除", a.ID)
	}
	s.logger.Info("adjustment deleted",
		zap.Uint("id", a.ID), zap.Bool("mirror_deleted", result.MirrorDeleted))
	return result, nil
}

// SettleTx 写入结清信息（对账引擎在出账资金落地时调用）
func (s *AdjustmentService) SettleTx(ctx context.Context, tx *gorm.DB, id uint, at time.Time, detail string) error {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	a.SettledAt = &at
	a.SettledDetail = detail
	return s.repo.Save(ctx, tx, a)
}

// ReverseSettlementTx 撤销结清（为其垫资的付款被删除时）
func (s *AdjustmentService) ReverseSettlementTx(ctx context.Context, tx *gorm.DB, id uint) error {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	a.SettledAt = nil
	a.SettledDetail = ""
	return s.repo.Save(ctx, tx, a)
}

// VerifyMirror 镜像不变量体检：互指完整且金额一致
func (s *AdjustmentService) VerifyMirror(ctx context.Context, a *domain.Adjustment) error {
	if a.MirrorID == nil {
		if a.Kind.MirrorKind() != "" && a.SystemGenerated {
			return fmt.Errorf("%w: #%d (%s) lacks mirror", domain.ErrMirrorBroken, a.ID, a.Kind)
		}
		return nil
	}
	mirror, err := s.repo.FindByID(ctx, *a.MirrorID)
	if err != nil {
		return fmt.Errorf("%w: #%d points to missing mirror #%d", domain.ErrMirrorBroken, a.ID, *a.MirrorID)
	}
	if mirror.MirrorID == nil || *mirror.MirrorID != a.ID {
		return fmt.Errorf("%w: #%d / #%d not mutually linked", domain.ErrMirrorBroken, a.ID, mirror.ID)
	}
	if !mirror.Amount.Equal(a.Amount) {
		return fmt.Errorf("%w: #%d / #%d amounts differ", domain.ErrMirrorBroken, a.ID, mirror.ID)
	}
	return nil
}
