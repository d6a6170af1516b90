package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayKind 考勤记录类型
type DayKind string

const (
	KindPresent     DayKind = "present"     // 正常出勤
	KindRest        DayKind = "rest"        // 休息（计入工资）
	KindLeave       DayKind = "leave"       // 请假（计入工资）
	KindOvertime    DayKind = "overtime"    // 加班
	KindOutOfTown   DayKind = "out_of_town" // 随行外出（多日跨账期）
	KindOnboarding  DayKind = "onboarding"  // 上户标记（占位，无时刻）
	KindOffboarding DayKind = "offboarding" // 下户标记（占位，无时刻）
)

// CountsForPayout 该类记录是否计入工资口径
// 休息/请假照常计薪；上下户标记只是占位
func (k DayKind) CountsForPayout() bool {
	switch k {
	case KindPresent, KindRest, KindLeave, KindOvertime, KindOutOfTown:
		return true
	}
	return false
}

// DayRecord 单日考勤记录
// (contract_id, date, kind) 唯一，防止占位标记被重复创建
type DayRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ContractID uint      `gorm:"not null;uniqueIndex:uq_attendance_day,priority:1"`
	EmployeeID uint      `gorm:"index;not null"`
	Date       time.Time `gorm:"not null;uniqueIndex:uq_attendance_day,priority:2"`
	Kind       DayKind   `gorm:"type:varchar(16);not null;uniqueIndex:uq_attendance_day,priority:3"`

	StartTime *string `gorm:"type:varchar(5)"` // "08:30"，占位标记为空
	EndTime   *string `gorm:"type:varchar(5)"`

	OvertimeHours decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DayRecord) TableName() string {
	return "attendance_days"
}

// ContinuationSpan 跨账期连续段：上一账期末尾未闭合的多日记录
type ContinuationSpan struct {
	Kind  DayKind
	Start time.Time
	End   time.Time // 等于上一账期最后一天
	Days  int
}
