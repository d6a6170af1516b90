package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	adjdomain "github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
	adjservice "github.com/anjia-dev/anjia-billing/internal/adjustment/service"
	billingdomain "github.com/anjia-dev/anjia-billing/internal/billing/domain"
	billingservice "github.com/anjia-dev/anjia-billing/internal/billing/service"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
	"github.com/anjia-dev/anjia-billing/internal/platform/events"
	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

// ReconcileService 银行流水对账引擎
type ReconcileService struct {
	db *gorm.DB

	transactions domain.TransactionRepository
	aliases      domain.AliasRepository
	audits       domain.AuditRepository

	contracts   contractdomain.Repository
	bills       billingdomain.BillRepository
	payrolls    billingdomain.PayrollRepository
	funds       billingdomain.FundsRepository
	billing     *billingservice.BillingService
	adjustments *adjservice.AdjustmentService
	adjRepo     adjdomain.Repository

	publisher events.Publisher
	logger    *zap.Logger
}

func NewReconcileService(
	db *gorm.DB,
	transactions domain.TransactionRepository,
	aliases domain.AliasRepository,
	audits domain.AuditRepository,
	contracts contractdomain.Repository,
	bills billingdomain.BillRepository,
	payrolls billingdomain.PayrollRepository,
	funds billingdomain.FundsRepository,
	billing *billingservice.BillingService,
	adjustments *adjservice.AdjustmentService,
	adjRepo adjdomain.Repository,
	publisher events.Publisher,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		db:           db,
		transactions: transactions,
		aliases:      aliases,
		audits:       audits,
		contracts:    contracts,
		bills:        bills,
		payrolls:     payrolls,
		funds:        funds,
		billing:      billing,
		adjustments:  adjustments,
		adjRepo:      adjRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// ImportStatement 导入对账单文本
//
// 幂等：外部流水号已存在计作重复，绝不二次入库；坏行计数后跳过；
// 解析成功的行逐条提交，同批其他行失败不影响已入库的
func (s *ReconcileService) ImportStatement(ctx context.Context, text string) (*domain.ImportReport, error) {
	report := &domain.ImportReport{}

	for _, line := range SplitStatement(text) {
		report.Total++

		tx, err := ParseLine(line)
		if err != nil {
			report.Error++
			s.logger.Warn("skip malformed statement line", zap.Error(err))
			continue
		}

		exists, err := s.transactions.ExistsByExternalID(ctx, tx.ExternalID)
		if err != nil {
			return nil, err
		}
		if exists {
			report.Duplicate++
			continue
		}

		if err := s.transactions.Create(ctx, s.db, tx); err != nil {
			// 入库失败按坏行口径计数，继续后面的行
			report.Error++
			s.logger.Error("insert statement line failed",
				zap.String("external_id", tx.ExternalID), zap.Error(err))
			continue
		}
		report.New++
	}

	e := events.New(events.StatementImported, map[string]any{
		"new": report.New, "duplicate": report.Duplicate, "error": report.Error,
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish import event failed", zap.Error(err))
	}
	return report, nil
}
