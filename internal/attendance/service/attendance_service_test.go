package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anjia-dev/anjia-billing/internal/attendance/adapter/repo"
	"github.com/anjia-dev/anjia-billing/internal/attendance/domain"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	if err := db.AutoMigrate(&domain.DayRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(t *testing.T, db *gorm.DB, contractID uint, date time.Time, kind domain.DayKind, overtime string) {
	t.Helper()
	hours := decimal.Zero
	if overtime != "" {
		hours = decimal.RequireFromString(overtime)
	}
	rec := domain.DayRecord{
		ContractID: contractID, EmployeeID: 1,
		Date: date, Kind: kind, OvertimeHours: hours,
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("create record: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttendanceService(repo.NewAttendanceRepo(db))
	cycle := contractdomain.Cycle{Start: day(2026, time.January, 1), End: day(2026, time.January, 31)}

	record(t, db, 1, day(2026, time.January, 1), domain.KindPresent, "")
	record(t, db, 1, day(2026, time.January, 2), domain.KindPresent, "")
	// 同一天出勤 + 加班：只计一天，加班时长单独累计
	record(t, db, 1, day(2026, time.January, 2), domain.KindOvertime, "2.5")
	record(t, db, 1, day(2026, time.January, 3), domain.KindRest, "")
	record(t, db, 1, day(2026, time.January, 4), domain.KindLeave, "")
	// 占位标记不计薪
	record(t, db, 1, day(2026, time.January, 1), domain.KindOnboarding, "")
	// 账期外的记录不参与
	record(t, db, 1, day(2026, time.February, 1), domain.KindPresent, "")
	// 别的合同不串
	record(t, db, 2, day(2026, time.January, 5), domain.KindPresent, "")

	sum, err := svc.Summarize(context.Background(), 1, cycle)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.PayoutDays != 4 {
		t.Errorf("PayoutDays = %d, want 4", sum.PayoutDays)
	}
	if !sum.OvertimeHours.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("OvertimeHours = %s, want 2.5", sum.OvertimeHours)
	}
}

func TestDetectContinuation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttendanceService(repo.NewAttendanceRepo(db))
	prev := contractdomain.Cycle{Start: day(2025, time.November, 16), End: day(2025, time.December, 15)}

	// 随行外出 12-13 ~ 12-15，排到账期最后一天
	for d := 13; d <= 15; d++ {
		record(t, db, 1, day(2025, time.December, d), domain.KindOutOfTown, "")
	}

	span, err := svc.DetectContinuation(context.Background(), 1, prev, domain.KindOutOfTown, 5)
	if err != nil {
		t.Fatalf("DetectContinuation: %v", err)
	}
	if span == nil {
		t.Fatal("expected a continuation span")
	}
	if span.Days != 3 || !span.Start.Equal(day(2025, time.December, 13)) {
		t.Errorf("span = %+v, want 3 days from 2025-12-13", span)
	}
}

func TestDetectContinuationAlreadySatisfied(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttendanceService(repo.NewAttendanceRepo(db))
	prev := contractdomain.Cycle{Start: day(2025, time.November, 16), End: day(2025, time.December, 15)}

	for d := 11; d <= 15; d++ {
		record(t, db, 1, day(2025, time.December, d), domain.KindOutOfTown, "")
	}

	// 上期已满 3 天，本期无需再拼
	span, err := svc.DetectContinuation(context.Background(), 1, prev, domain.KindOutOfTown, 3)
	if err != nil {
		t.Fatalf("DetectContinuation: %v", err)
	}
	if span != nil {
		t.Errorf("minimum already satisfied in previous cycle, want nil, got %+v", span)
	}
}

func TestDetectContinuationNotAtCycleEnd(t *testing.T) {
	db := newTestDB(t)
	svc := NewAttendanceService(repo.NewAttendanceRepo(db))
	prev := contractdomain.Cycle{Start: day(2025, time.November, 16), End: day(2025, time.December, 15)}

	// 段在 12-14 就断了，不构成延续
	record(t, db, 1, day(2025, time.December, 13), domain.KindOutOfTown, "")
	record(t, db, 1, day(2025, time.December, 14), domain.KindOutOfTown, "")

	span, err := svc.DetectContinuation(context.Background(), 1, prev, domain.KindOutOfTown, 5)
	if err != nil {
		t.Fatalf("DetectContinuation: %v", err)
	}
	if span != nil {
		t.Errorf("span not reaching cycle end, want nil, got %+v", span)
	}
}
