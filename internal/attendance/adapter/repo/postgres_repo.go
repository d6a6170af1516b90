package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjia-dev/anjia-billing/internal/attendance/domain"
)

type AttendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

func (r *AttendanceRepo) ListRange(ctx context.Context, contractID uint, start, end time.Time) ([]*domain.DayRecord, error) {
	var list []*domain.DayRecord
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND date BETWEEN ? AND ?", contractID, start, end).
		Order("date").
		Find(&list).Error
	return list, err
}

// EnsureMarker 依赖 (contract_id, date, kind) 唯一键做幂等插入
func (r *AttendanceRepo) EnsureMarker(ctx context.Context, tx *gorm.DB, contractID, employeeID uint, date time.Time, kind domain.DayKind) error {
	rec := domain.DayRecord{
		ContractID: contractID,
		EmployeeID: employeeID,
		Date:       date,
		Kind:       kind,
	}
	// 冲突即已存在，跳过而不是报错
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}
