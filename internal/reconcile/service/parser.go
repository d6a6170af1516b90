package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

// 银行导出固定为制表符分隔：
// 外部流水号 \t 交易时间 \t 方向(收/付) \t 金额 \t 对方户名 \t 摘要 [\t ...]
// 首行为表头，导入时丢弃；摘要之后的列一律忽略
const (
	fieldExternalID = iota
	fieldOccurredAt
	fieldDirection
	fieldAmount
	fieldCounterparty
	fieldMemo

	minFields = fieldCounterparty + 1
)

const timeLayout = "2006-01-02 15:04:05"

// ParseLine 解析一行流水；格式问题逐行隔离，不影响同批其他行
func ParseLine(line string) (*domain.BankTransaction, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minFields {
		return nil, fmt.Errorf("expected at least %d tab-delimited fields, got %d", minFields, len(fields))
	}

	externalID := strings.TrimSpace(fields[fieldExternalID])
	if externalID == "" {
		return nil, fmt.Errorf("empty external id")
	}

	occurredAt, err := time.Parse(timeLayout, strings.TrimSpace(fields[fieldOccurredAt]))
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q: %w", fields[fieldOccurredAt], err)
	}

	var direction domain.Direction
	switch strings.TrimSpace(fields[fieldDirection]) {
	case "收":
		direction = domain.DirectionCredit
	case "付":
		direction = domain.DirectionDebit
	default:
		return nil, fmt.Errorf("unknown direction marker %q", fields[fieldDirection])
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(fields[fieldAmount]))
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", fields[fieldAmount], err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}

	memo := ""
	if len(fields) > fieldMemo {
		memo = strings.TrimSpace(fields[fieldMemo])
	}

	return &domain.BankTransaction{
		ExternalID:      externalID,
		OccurredAt:      occurredAt,
		Direction:       direction,
		Amount:          amount,
		Counterparty:    strings.TrimSpace(fields[fieldCounterparty]),
		Memo:            memo,
		Status:          domain.StatusUnmatched,
		AllocatedAmount: decimal.Zero,
	}, nil
}

// SplitStatement 拆掉表头，返回非空正文行
func SplitStatement(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) > 0 {
		lines = lines[1:] // 表头
	}
	var body []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			body = append(body, line)
		}
	}
	return body
}
