package events

import (
	"context"
	"time"
)

// 领域事件名：状态迁移处显式发布，取代旧系统靠 ORM 字段差异
// 推断副作用的写法
const (
	BillRecomputed      = "billing.recomputed"
	ContractFinalized   = "billing.finalized"
	StatementImported   = "reconcile.statement_imported"
	AllocationApplied   = "reconcile.allocated"
	AllocationReversed  = "reconcile.reversed"
	TransactionIgnored  = "reconcile.ignored"
	AttendanceSyncAsked = "attendance.sync_requested"
)

// Event 领域事件
type Event struct {
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Publisher 事件出口
// 发布失败只记日志，绝不回滚已提交的业务状态（签约后考勤同步
// 失败不撤销签约，同一条铁律）
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// New 构造事件
func New(name string, payload map[string]any) Event {
	return Event{Name: name, OccurredAt: time.Now(), Payload: payload}
}
