package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	attdomain "github.com/anjia-dev/anjia-billing/internal/attendance/domain"
	"github.com/anjia-dev/anjia-billing/internal/contract/domain"
)

// ResolvedCycle 某合同在目标月份的权威账期
type ResolvedCycle struct {
	Cycle domain.Cycle

	// 边界性质：连续性边界（续签衔接）不打上/下户标记
	ContinuityStart bool
	ContinuityEnd   bool

	FirstCycle bool // 合同生效日落在本账期内
	LastCycle  bool // 合同实际结束日落在本账期内
}

// CycleService 账期解析器
type CycleService struct {
	contracts  domain.Repository
	attendance attdomain.Repository
}

func NewCycleService(contracts domain.Repository, attendance attdomain.Repository) *CycleService {
	return &CycleService{contracts: contracts, attendance: attendance}
}

// Date 构造纯日期（UTC 零点），全模块统一口径
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysInMonth 目标月份天数
func daysInMonth(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

// clampDate 签约日落到目标月份，超过月末则取月末（2 月 28/29 等）
func clampDate(year int, month time.Month, day int) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return Date(year, month, day)
}

// SigningCycle 签约日账期：目标月的签约日起，到下月签约日前一天止
func SigningCycle(signingDay int, year int, month time.Month) domain.Cycle {
	start := clampDate(year, month, signingDay)
	nextStart := clampDate(Date(year, month, 1).AddDate(0, 1, 0).Year(),
		Date(year, month, 1).AddDate(0, 1, 0).Month(), signingDay)
	return domain.Cycle{Start: start, End: nextStart.AddDate(0, 0, -1)}
}

// Resolve 计算合同在目标月份的出账区间；返回 nil 表示当月不出账
//
// 规则顺序：
//  1. 草稿不出账
//  2. 按签约日推名义账期
//  3. 合同生效日晚于账期末 → 不出账
//  4. 连续性平移：续签合同的账期头与前合同覆盖期重叠时，起点移到
//     前合同实际结束日的次日；移出目标月则当月不出账
//  5. 自动续约合同在服务中时无视名义结束日；已中止则以中止日为界
func (s *CycleService) Resolve(ctx context.Context, c *domain.Contract, year int, month time.Month) (*ResolvedCycle, error) {
	if c.Status == domain.StatusDraft {
		return nil, nil
	}

	nominal := SigningCycle(c.StartDate.Day(), year, month)

	effStart := nominal.Start
	if s := c.EffectiveStart(); s.After(effStart) {
		effStart = s
	}
	if c.EffectiveStart().After(nominal.End) {
		return nil, nil // 合同在本账期之后才生效
	}

	resolved := &ResolvedCycle{}

	// 连续性平移
	pred, err := s.contracts.FindPredecessor(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("resolve cycle: %w", err)
	}
	if pred != nil && s.continuous(ctx, pred, c) {
		predEnd := pred.EffectiveEnd()
		switch {
		case !predEnd.Before(effStart):
			// 覆盖期与账期头重叠：起点移到前合同实际结束日次日，
			// 避免重叠日被两份合同各计一次
			effStart = predEnd.AddDate(0, 0, 1)
			if effStart.After(Date(year, month, daysInMonth(year, month))) {
				return nil, nil // 前合同覆盖了整个目标月
			}
			resolved.ContinuityStart = true
			resolved.FirstCycle = true
		case effStart.Sub(predEnd) <= 24*time.Hour && nominal.Contains(c.EffectiveStart()):
			// 正好无缝衔接：无需平移，但仍是连续性边界
			resolved.ContinuityStart = true
		}
	}

	// 结束边界
	effEnd := nominal.End
	if c.AutoRenew && c.IsActive() {
		// 服务中的自动续约合同：名义结束日不设限
	} else if e := c.EffectiveEnd(); e.Before(effEnd) {
		effEnd = e
	}
	if effEnd.Before(effStart) {
		return nil, nil
	}

	cycle := domain.Cycle{Start: effStart, End: effEnd}
	resolved.Cycle = cycle
	if cycle.Contains(c.EffectiveStart()) {
		resolved.FirstCycle = true
	}
	if !(c.AutoRenew && c.IsActive()) {
		resolved.LastCycle = cycle.Contains(c.EffectiveEnd())
	}

	// 末端连续性：存在紧接着开始的续签合同时不打下户标记
	if resolved.LastCycle {
		next, err := s.contracts.FindSuccessor(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve cycle: %w", err)
		}
		if next != nil && s.continuous(ctx, c, next) {
			resolved.ContinuityEnd = true
		}
	}
	return resolved, nil
}

// continuous 前后合同是否构成连续服务：
// 同一服务人员、同一家庭（或同一客户），且后合同开始日距前合同
// 实际结束日不超过一天
func (s *CycleService) continuous(_ context.Context, pred, succ *domain.Contract) bool {
	if pred.EmployeeID != succ.EmployeeID {
		return false
	}
	sameFamily := pred.FamilyGroupID != nil && succ.FamilyGroupID != nil &&
		*pred.FamilyGroupID == *succ.FamilyGroupID
	if !sameFamily && pred.CustomerID != succ.CustomerID {
		return false
	}
	gap := succ.StartDate.Sub(pred.EffectiveEnd()).Hours() / 24
	return gap <= 1
}

// EnsureEdgeMarkers 为账期边界补上/下户占位标记
// 只在边界真正落在账期内、且不是连续性衔接时创建；幂等，不重复
func (s *CycleService) EnsureEdgeMarkers(ctx context.Context, tx *gorm.DB, c *domain.Contract, rc *ResolvedCycle) error {
	if rc.FirstCycle && !rc.ContinuityStart {
		if err := s.attendance.EnsureMarker(ctx, tx, c.ID, c.EmployeeID, rc.Cycle.Start, attdomain.KindOnboarding); err != nil {
			return fmt.Errorf("ensure onboarding marker: %w", err)
		}
	}
	if rc.LastCycle && !rc.ContinuityEnd {
		if err := s.attendance.EnsureMarker(ctx, tx, c.ID, c.EmployeeID, rc.Cycle.End, attdomain.KindOffboarding); err != nil {
			return fmt.Errorf("ensure offboarding marker: %w", err)
		}
	}
	return nil
}

// PreviousCycle 上一个名义账期（跨账期延续探测用）
func (s *CycleService) PreviousCycle(c *domain.Contract, year int, month time.Month) domain.Cycle {
	prev := Date(year, month, 1).AddDate(0, -1, 0)
	return SigningCycle(c.StartDate.Day(), prev.Year(), prev.Month())
}

// FamilyGroupOf 家庭合并视图
// 有家庭组 ID 按组聚合；否则回退到客户姓名精确匹配。匹配对大小写
// 与空白敏感，近似重名不合并，不做模糊匹配
// 各成员合同仍各自出账，这里只决定展示与连续性口径
func (s *CycleService) FamilyGroupOf(ctx context.Context, c *domain.Contract) (*domain.FamilyGroup, error) {
	var members []*domain.Contract
	var err error
	if c.FamilyGroupID != nil {
		members, err = s.contracts.FindByFamilyGroup(ctx, *c.FamilyGroupID)
	} else {
		members, err = s.contracts.FindByCustomerName(ctx, c.CustomerName)
	}
	if err != nil {
		return nil, fmt.Errorf("family group: %w", err)
	}
	if len(members) == 0 {
		members = []*domain.Contract{c}
	}

	group := &domain.FamilyGroup{Members: members}
	for _, m := range members {
		if group.PeriodStart.IsZero() || m.StartDate.Before(group.PeriodStart) {
			group.PeriodStart = m.StartDate
		}
		if e := m.EffectiveEnd(); e.After(group.PeriodEnd) {
			group.PeriodEnd = e
		}
		// 首选合同：优先在服务中的，其次开始日最近的
		switch {
		case group.Primary == nil:
			group.Primary = m
		case m.IsActive() && !group.Primary.IsActive():
			group.Primary = m
		case m.IsActive() == group.Primary.IsActive() && m.StartDate.After(group.Primary.StartDate):
			group.Primary = m
		}
	}
	return group, nil
}
