package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository 考勤仓储接口
type Repository interface {
	// ListRange 查询合同在 [start, end] 内的全部记录（按日期升序）
	ListRange(ctx context.Context, contractID uint, start, end time.Time) ([]*DayRecord, error)

	// EnsureMarker 幂等地创建上/下户占位标记：已存在则不动
	// 写方法接受事务会话
	EnsureMarker(ctx context.Context, tx *gorm.DB, contractID, employeeID uint, date time.Time, kind DayKind) error
}
