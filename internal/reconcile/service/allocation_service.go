package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/anjia-dev/anjia-billing/internal/billing/domain"
	"github.com/anjia-dev/anjia-billing/internal/platform/events"
	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

// AllocationTarget 一条分配指令
type AllocationTarget struct {
	Type   CandidateType   `json:"type"`
	ID     uint            `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// AllocationResult 分配结果
type AllocationResult struct {
	TransactionID uint            `json:"transaction_id"`
	BatchID       string          `json:"batch_id"`
	Status        domain.TxStatus `json:"status"`
	Allocated     decimal.Decimal `json:"allocated"`
	PaymentIDs    []uint          `json:"payment_ids,omitempty"`
	PayoutIDs     []uint          `json:"payout_ids,omitempty"`
	AliasLearned  bool            `json:"alias_learned"`
}

// Allocate 把一条流水的资金分配到若干目标
//
// 校验先行（总额不得超过剩余可分配），全部目标在一个事务里落账；
// 首次分配时尽力学习付款人别名（已有绑定不覆盖，失败不致命）
func (s *ReconcileService) Allocate(ctx context.Context, txID uint, targets []AllocationTarget) (*AllocationResult, error) {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status == domain.StatusIgnored || tx.Status == domain.StatusError {
		return nil, fmt.Errorf("%w: status %s", domain.ErrNotAllocatable, tx.Status)
	}
	if len(targets) == 0 {
		return nil, domain.ErrNothingToAllocate
	}

	total := decimal.Zero
	for _, t := range targets {
		if t.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, domain.ErrNothingToAllocate
		}
		total = total.Add(t.Amount)
	}
	if total.GreaterThan(tx.Unallocated()) {
		return nil, fmt.Errorf("%w: remainder %s, requested %s",
			domain.ErrOverAllocation, tx.Unallocated(), total)
	}

	firstAllocation := tx.AllocatedAmount.IsZero()
	result := &AllocationResult{TransactionID: tx.ID, BatchID: uuid.NewString()}

	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		var firstBillContractID uint

		for _, target := range targets {
			switch target.Type {
			case CandidateBill:
				bill, err := s.bills.FindByID(ctx, target.ID)
				if err != nil {
					return err
				}
				if err := s.billing.ApplyBillFundsTx(ctx, dbtx, bill, target.Amount); err != nil {
					return err
				}
				payment := &billingdomain.Payment{
					BillID:            bill.ID,
					BankTransactionID: &tx.ID,
					Amount:            target.Amount,
					ReceivedAt:        tx.OccurredAt,
					Remark:            fmt.Sprintf("流水 %s 分配", tx.ExternalID),
				}
				if err := s.funds.CreatePayment(ctx, dbtx, payment); err != nil {
					return err
				}
				result.PaymentIDs = append(result.PaymentIDs, payment.ID)
				if firstBillContractID == 0 {
					firstBillContractID = bill.ContractID
				}
				if err := s.audit(ctx, dbtx, tx.ID, &payment.ID, nil, "allocate",
					fmt.Sprintf("批次 %s：账单 #%d 入账 %s", result.BatchID, bill.ID, target.Amount)); err != nil {
					return err
				}

			case CandidatePayroll:
				payroll, err := s.payrolls.FindByID(ctx, target.ID)
				if err != nil {
					return err
				}
				if err := s.billing.ApplyPayrollFundsTx(ctx, dbtx, payroll, target.Amount); err != nil {
					return err
				}
				payout := &billingdomain.Payout{
					PayrollID:         &payroll.ID,
					BankTransactionID: &tx.ID,
					Amount:            target.Amount,
					PaidAt:            tx.OccurredAt,
					Remark:            fmt.Sprintf("流水 %s 分配", tx.ExternalID),
				}
				if err := s.funds.CreatePayout(ctx, dbtx, payout); err != nil {
					return err
				}
				result.PayoutIDs = append(result.PayoutIDs, payout.ID)
				if err := s.audit(ctx, dbtx, tx.ID, nil, &payout.ID, "allocate",
					fmt.Sprintf("批次 %s：工资单 #%d 出账 %s", result.BatchID, payroll.ID, target.Amount)); err != nil {
					return err
				}

			case CandidateRefundAdjustment:
				adj, err := s.adjRepo.FindByID(ctx, target.ID)
				if err != nil {
					return err
				}
				if adj.Settled() {
					return fmt.Errorf("adjustment #%d already settled", adj.ID)
				}
				if !target.Amount.Equal(adj.Amount) {
					return fmt.Errorf("refund adjustment #%d must be settled in full (%s), got %s",
						adj.ID, adj.Amount, target.Amount)
				}
				if err := s.adjustments.SettleTx(ctx, dbtx, adj.ID, tx.OccurredAt,
					fmt.Sprintf("流水 %s 出账结清", tx.ExternalID)); err != nil {
					return err
				}
				payout := &billingdomain.Payout{
					AdjustmentID:      &adj.ID,
					BankTransactionID: &tx.ID,
					Amount:            target.Amount,
					PaidAt:            tx.OccurredAt,
					Remark:            fmt.Sprintf("流水 %s 退款", tx.ExternalID),
				}
				if err := s.funds.CreatePayout(ctx, dbtx, payout); err != nil {
					return err
				}
				result.PayoutIDs = append(result.PayoutIDs, payout.ID)
				if err := s.audit(ctx, dbtx, tx.ID, nil, &payout.ID, "allocate",
					fmt.Sprintf("批次 %s：退款项 #%d 结清 %s", result.BatchID, adj.ID, target.Amount)); err != nil {
					return err
				}

			default:
				return fmt.Errorf("unknown allocation target type %q", target.Type)
			}
		}

		// 首次分配学习别名；已有绑定不覆盖
		if firstAllocation && tx.Counterparty != "" && firstBillContractID != 0 {
			learned, err := s.aliases.CreateIfAbsent(ctx, dbtx, &domain.PayerAlias{
				Name:            tx.Counterparty,
				ContractID:      firstBillContractID,
				LearnedFromTxID: &tx.ID,
			})
			if err != nil {
				// 尽力而为：学不到别名不影响分配本身
				s.logger.Warn("learn payer alias failed",
					zap.String("name", tx.Counterparty), zap.Error(err))
			} else {
				result.AliasLearned = learned
			}
		}

		tx.AllocatedAmount = tx.AllocatedAmount.Add(total)
		tx.Status = domain.StatusForAllocation(tx.AllocatedAmount, tx.Amount)
		return s.transactions.Save(ctx, dbtx, tx)
	})
	if err != nil {
		return nil, err
	}

	result.Status = tx.Status
	result.Allocated = tx.AllocatedAmount

	e := events.New(events.AllocationApplied, map[string]any{
		"transaction_id": tx.ID, "batch_id": result.BatchID, "amount": total.String(),
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish allocation event failed", zap.Error(err))
	}
	return result, nil
}

func (s *ReconcileService) audit(ctx context.Context, dbtx *gorm.DB, txID uint, paymentID, payoutID *uint, action, detail string) error {
	return s.audits.Create(ctx, dbtx, &domain.AuditEntry{
		TransactionID: txID,
		PaymentID:     paymentID,
		PayoutID:      payoutID,
		Action:        action,
		Detail:        detail,
	})
}

// ReversalResult 冲正的级联说明
type ReversalResult struct {
	TransactionID       uint            `json:"transaction_id"`
	Status              domain.TxStatus `json:"status"`
	Allocated           decimal.Decimal `json:"allocated"`
	DeletedPaymentIDs   []uint          `json:"deleted_payment_ids,omitempty"`
	DeletedPayoutIDs    []uint          `json:"deleted_payout_ids,omitempty"`
	AuditEntriesRemoved int64           `json:"audit_entries_removed"`
	SettlementsReversed []uint          `json:"settlements_reversed,omitempty"`
	Description         string          `json:"description"`
}

// ReversePayment 删除一笔收款并冲正：账单已收、流水已分配同步回退，
// 引用该付款的审计记录一并删除
func (s *ReconcileService) ReversePayment(ctx context.Context, paymentID uint) (*ReversalResult, error) {
	payment, err := s.funds.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	result := &ReversalResult{}
	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		return s.reversePaymentTx(ctx, dbtx, payment, result)
	})
	if err != nil {
		return nil, err
	}
	s.publishReversal(ctx, result)
	return result, nil
}

func (s *ReconcileService) reversePaymentTx(ctx context.Context, dbtx *gorm.DB, payment *billingdomain.Payment, result *ReversalResult) error {
	bill, err := s.bills.FindByID(ctx, payment.BillID)
	if err != nil {
		return err
	}
	if err := s.funds.DeletePayment(ctx, dbtx, payment.ID); err != nil {
		return err
	}
	if err := s.billing.RemoveBillFundsTx(ctx, dbtx, bill, payment.Amount); err != nil {
		return err
	}
	removed, err := s.audits.DeleteByPayment(ctx, dbtx, payment.ID)
	if err != nil {
		return err
	}
	result.DeletedPaymentIDs = append(result.DeletedPaymentIDs, payment.ID)
	result.AuditEntriesRemoved += removed
	result.Description = fmt.Sprintf(
		"删除收款 #%d（%s 元），账单 #%d 已收回退，连带删除 %d 条审计记录",
		payment.ID, payment.Amount, bill.ID, removed)

	if payment.BankTransactionID != nil {
		return s.rollbackTransactionAmount(ctx, dbtx, *payment.BankTransactionID, payment.Amount, result)
	}
	return nil
}

// ReversePayout 删除一笔出账；垫付过结清的退款项一并撤销结清
func (s *ReconcileService) ReversePayout(ctx context.Context, payoutID uint) (*ReversalResult, error) {
	payout, err := s.funds.FindPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	result := &ReversalResult{}
	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		return s.reversePayoutTx(ctx, dbtx, payout, result)
	})
	if err != nil {
		return nil, err
	}
	s.publishReversal(ctx, result)
	return result, nil
}

func (s *ReconcileService) reversePayoutTx(ctx context.Context, dbtx *gorm.DB, payout *billingdomain.Payout, result *ReversalResult) error {
	if err := s.funds.DeletePayout(ctx, dbtx, payout.ID); err != nil {
		return err
	}
	if payout.PayrollID != nil {
		payroll, err := s.payrolls.FindByID(ctx, *payout.PayrollID)
		if err != nil {
			return err
		}
		if err := s.billing.RemovePayrollFundsTx(ctx, dbtx, payroll, payout.Amount); err != nil {
			return err
		}
	}
	if payout.AdjustmentID != nil {
		if err := s.adjustments.ReverseSettlementTx(ctx, dbtx, *payout.AdjustmentID); err != nil {
			return err
		}
		result.SettlementsReversed = append(result.SettlementsReversed, *payout.AdjustmentID)
	}
	removed, err := s.audits.DeleteByPayout(ctx, dbtx, payout.ID)
	if err != nil {
		return err
	}
	result.DeletedPayoutIDs = append(result.DeletedPayoutIDs, payout.ID)
	result.AuditEntriesRemoved += removed
	result.Description = fmt.Sprintf(
		"删除出账 #%d（%s 元），连带删除 %d 条审计记录", payout.ID, payout.Amount, removed)
	if len(result.SettlementsReversed) > 0 {
		result.Description += fmt.Sprintf("，撤销 %d 个退款项的结清", len(result.SettlementsReversed))
	}

	if payout.BankTransactionID != nil {
		return s.rollbackTransactionAmount(ctx, dbtx, *payout.BankTransactionID, payout.Amount, result)
	}
	return nil
}

func (s *ReconcileService) rollbackTransactionAmount(ctx context.Context, dbtx *gorm.DB, txID uint, amount decimal.Decimal, result *ReversalResult) error {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return err
	}
	tx.AllocatedAmount = tx.AllocatedAmount.Sub(amount)
	if tx.AllocatedAmount.IsNegative() {
		tx.AllocatedAmount = decimal.Zero
	}
	// 已忽略的流水维持 ignored，数值状态在撤销忽略时再推导
	if tx.Status != domain.StatusIgnored {
		tx.Status = domain.StatusForAllocation(tx.AllocatedAmount, tx.Amount)
	}
	if err := s.transactions.Save(ctx, dbtx, tx); err != nil {
		return err
	}
	result.TransactionID = tx.ID
	result.Status = tx.Status
	result.Allocated = tx.AllocatedAmount
	return nil
}

// CancelAllocation 整笔撤销：该流水名下所有收付款一个事务里全部冲正
func (s *ReconcileService) CancelAllocation(ctx context.Context, txID uint) (*ReversalResult, error) {
	if _, err := s.transactions.FindByID(ctx, txID); err != nil {
		return nil, err
	}
	payments, err := s.funds.ListPaymentsByTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	payouts, err := s.funds.ListPayoutsByTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	result := &ReversalResult{TransactionID: txID}
	err = s.db.Transaction(func(dbtx *gorm.DB) error {
		for _, p := range payments {
			if err := s.reversePaymentTx(ctx, dbtx, p, result); err != nil {
				return err
			}
		}
		for _, p := range payouts {
			if err := s.reversePayoutTx(ctx, dbtx, p, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Description = fmt.Sprintf(
		"整笔撤销：删除 %d 笔收款、%d 笔出账，连带删除 %d 条审计记录，撤销 %d 个结清",
		len(result.DeletedPaymentIDs), len(result.DeletedPayoutIDs),
		result.AuditEntriesRemoved, len(result.SettlementsReversed))
	s.publishReversal(ctx, result)
	return result, nil
}

func (s *ReconcileService) publishReversal(ctx context.Context, result *ReversalResult) {
	e := events.New(events.AllocationReversed, map[string]any{
		"transaction_id": result.TransactionID,
		"payments":       len(result.DeletedPaymentIDs),
		"payouts":        len(result.DeletedPayoutIDs),
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish reversal event failed", zap.Error(err))
	}
}

// Ignore 忽略流水：不动已分配金额，可撤销
func (s *ReconcileService) Ignore(ctx context.Context, txID uint, reason string) error {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return err
	}
	tx.Status = domain.StatusIgnored
	tx.IgnoreReason = reason
	if err := s.db.Transaction(func(dbtx *gorm.DB) error {
		return s.transactions.Save(ctx, dbtx, tx)
	}); err != nil {
		return err
	}

	e := events.New(events.TransactionIgnored, map[string]any{"transaction_id": tx.ID})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish ignore event failed", zap.Error(err))
	}
	return nil
}

// Unignore 撤销忽略：回到按已分配金额推导的数值状态
func (s *ReconcileService) Unignore(ctx context.Context, txID uint) (*domain.BankTransaction, error) {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusIgnored {
		return tx, nil
	}
	tx.Status = domain.StatusForAllocation(tx.AllocatedAmount, tx.Amount)
	tx.IgnoreReason = ""
	if err := s.db.Transaction(func(dbtx *gorm.DB) error {
		return s.transactions.Save(ctx, dbtx, tx)
	}); err != nil {
		return nil, err
	}
	return tx, nil
}
