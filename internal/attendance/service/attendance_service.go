package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anjia-dev/anjia-billing/internal/attendance/domain"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
)

// AttendanceService 考勤汇总：给计费模块供数
type AttendanceService struct {
	repo domain.Repository
}

func NewAttendanceService(repo domain.Repository) *AttendanceService {
	return &AttendanceService{repo: repo}
}

// CycleSummary 一个账期的考勤汇总
type CycleSummary struct {
	PayoutDays    int             // 计薪天数（休息/请假照常计入）
	OvertimeHours decimal.Decimal // 加班小时合计
	Records       []*domain.DayRecord
}

// Summarize 汇总合同在账期内的考勤
// 同一天多条记录（如出勤 + 加班）只按一天计薪，加班时长单独累计
func (s *AttendanceService) Summarize(ctx context.Context, contractID uint, cycle contractdomain.Cycle) (*CycleSummary, error) {
	records, err := s.repo.ListRange(ctx, contractID, cycle.Start, cycle.End)
	if err != nil {
		return nil, err
	}

	sum := &CycleSummary{OvertimeHours: decimal.Zero, Records: records}
	seen := make(map[string]bool)
	for _, rec := range records {
		if !rec.Kind.CountsForPayout() {
			continue
		}
		day := rec.Date.Format("2006-01-02")
		if !seen[day] {
			seen[day] = true
			sum.PayoutDays++
		}
		sum.OvertimeHours = sum.OvertimeHours.Add(rec.OvertimeHours)
	}
	return sum, nil
}

// DetectContinuation 探测跨账期连续段
// 上一账期内某类多日记录（如随行外出）一直排到账期最后一天，说明该段
// 可能延续到本账期，"满 N 天"之类的规则需要把两段拼起来算
func (s *AttendanceService) DetectContinuation(ctx context.Context, contractID uint, prevCycle contractdomain.Cycle, kind domain.DayKind, minDays int) (*domain.ContinuationSpan, error) {
	records, err := s.repo.ListRange(ctx, contractID, prevCycle.Start, prevCycle.End)
	if err != nil {
		return nil, err
	}

	// 从账期末尾往回数同类记录的连续天数
	byDay := make(map[string]bool)
	for _, rec := range records {
		if rec.Kind == kind {
			byDay[rec.Date.Format("2006-01-02")] = true
		}
	}
	if !byDay[prevCycle.End.Format("2006-01-02")] {
		return nil, nil // 末尾没有该类记录，不构成延续
	}

	days := 0
	var start time.Time
	for d := prevCycle.End; !d.Before(prevCycle.Start); d = d.AddDate(0, 0, -1) {
		if !byDay[d.Format("2006-01-02")] {
			break
		}
		days++
		start = d
	}
	span := &domain.ContinuationSpan{Kind: kind, Start: start, End: prevCycle.End, Days: days}
	if minDays > 0 && days >= minDays {
		// 上期已经满足天数要求，本期无需再拼
		return nil, nil
	}
	return span, nil
}
