package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

// MatchStatus 匹配建议的结论
type MatchStatus string

const (
	// MatchPending 单一精确命中，等待人工确认，永不自动落账
	MatchPending MatchStatus = "pending_confirmation"
	// MatchManual 零个或多个精确命中，人工从候选里挑
	MatchManual MatchStatus = "manual"
	// MatchUnmatched 付款人无法归属到任何合同
	MatchUnmatched MatchStatus = "unmatched"
)

// CandidateType 候选归集目标类型
type CandidateType string

const (
	CandidateBill             CandidateType = "bill"
	CandidatePayroll          CandidateType = "payroll"
	CandidateRefundAdjustment CandidateType = "refund_adjustment"
)

// Candidate 一个可分配目标
type Candidate struct {
	Type        CandidateType   `json:"type"`
	TargetID    uint            `json:"target_id"`
	ContractID  uint            `json:"contract_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Description string          `json:"description"`
}

// Suggestion 一条流水的匹配建议
type Suggestion struct {
	TransactionID uint        `json:"transaction_id"`
	Status        MatchStatus `json:"status"`
	Suggested     *Candidate  `json:"suggested,omitempty"`
	Candidates    []Candidate `json:"candidates"`
}

// Suggest 生成匹配建议
//
// 入账：付款人名称先查学习到的别名（精确匹配），否则按客户姓名
// 直查；恰好一个候选的未收金额等于流水金额 ⇒ 待确认建议；
// 出账：候选是未付工资单和待结清的客户退款项
func (s *ReconcileService) Suggest(ctx context.Context, txID uint) (*Suggestion, error) {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	if tx.Direction == domain.DirectionCredit {
		candidates, err = s.creditCandidates(ctx, tx)
	} else {
		candidates, err = s.debitCandidates(ctx)
	}
	if err != nil {
		return nil, err
	}

	suggestion := &Suggestion{TransactionID: tx.ID, Candidates: candidates}
	if len(candidates) == 0 {
		suggestion.Status = MatchUnmatched
		return suggestion, nil
	}

	// 精确命中：未收/未付余额恰好等于流水金额
	var exact []int
	for i, c := range candidates {
		if c.Outstanding.Equal(tx.Amount) {
			exact = append(exact, i)
		}
	}
	if len(exact) == 1 {
		suggestion.Status = MatchPending
		suggestion.Suggested = &candidates[exact[0]]
	} else {
		suggestion.Status = MatchManual
	}
	return suggestion, nil
}

func (s *ReconcileService) creditCandidates(ctx context.Context, tx *domain.BankTransaction) ([]Candidate, error) {
	if tx.Counterparty == "" {
		return nil, nil
	}

	// 1. 别名优先
	var contractIDs []uint
	alias, err := s.aliases.FindByName(ctx, tx.Counterparty)
	if err != nil {
		return nil, err
	}
	if alias != nil {
		contractIDs = []uint{alias.ContractID}
	} else {
		// 2. 客户姓名直查
		contracts, err := s.contracts.FindByCustomerName(ctx, tx.Counterparty)
		if err != nil {
			return nil, err
		}
		for _, c := range contracts {
			contractIDs = append(contractIDs, c.ID)
		}
	}
	if len(contractIDs) == 0 {
		return nil, nil
	}

	bills, err := s.bills.ListOutstandingByContracts(ctx, contractIDs)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(bills))
	for _, b := range bills {
		candidates = append(candidates, Candidate{
			Type:        CandidateBill,
			TargetID:    b.ID,
			ContractID:  b.ContractID,
			Outstanding: b.Outstanding(),
			Description: fmt.Sprintf("账单 #%d（%s ~ %s）", b.ID,
				b.CycleStart.Format("2006-01-02"), b.CycleEnd.Format("2006-01-02")),
		})
	}
	return candidates, nil
}

func (s *ReconcileService) debitCandidates(ctx context.Context) ([]Candidate, error) {
	payrolls, err := s.payrolls.ListOutstanding(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, p := range payrolls {
		candidates = append(candidates, Candidate{
			Type:        CandidatePayroll,
			TargetID:    p.ID,
			ContractID:  p.ContractID,
			Outstanding: p.Outstanding(),
			Description: fmt.Sprintf("工资单 #%d（%s ~ %s）", p.ID,
				p.CycleStart.Format("2006-01-02"), p.CycleEnd.Format("2006-01-02")),
		})
	}

	refunds, err := s.adjRepo.ListPendingRefunds(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, a := range refunds {
		candidates = append(candidates, Candidate{
			Type:        CandidateRefundAdjustment,
			TargetID:    a.ID,
			ContractID:  a.ContractID,
			Outstanding: a.Amount,
			Description: fmt.Sprintf("客户退款 #%d：%s", a.ID, a.Remark),
		})
	}
	return candidates, nil
}
