package service

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anjia-dev/anjia-billing/internal/dispatch/domain"
)

func newTestService(t *testing.T) (*RotationService, *gorm.DB) {
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
	if err := db.AutoMigrate(&domain.Provider{}, &domain.RotationCursor{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRotationService(db, zap.NewNop()), db
}

func TestNextRotates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for _, p := range []domain.Provider{
		{Name: "甲家政", Active: true, SortOrder: 1},
		{Name: "乙家政", Active: true, SortOrder: 2},
		{Name: "丙家政", Active: false, SortOrder: 0},
	} {
		if err := db.Create(&p).Error; err != nil {
			t.Fatal(err)
		}
	}

	var picked []string
	for i := 0; i < 4; i++ {
		p, err := svc.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		picked = append(picked, p.Name)
	}

	// 停用的不参与，活跃的按排序轮转
	want := []string{"甲家政", "乙家政", "甲家政", "乙家政"}
	for i := range want {
		if picked[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", picked, want)
		}
	}
}

func TestNextEmptyPool(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Next(context.Background())
	if !errors.Is(err, domain.ErrPoolExhausted) {
		t.Errorf("error = %v, want ErrPoolExhausted", err)
	}
}

func TestNextSkipsDeactivated(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	a := domain.Provider{Name: "甲家政", Active: true, SortOrder: 1}
	b := domain.Provider{Name: "乙家政", Active: true, SortOrder: 2}
	if err := db.Create(&a).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	// 中途停用乙：轮转只剩甲
	if err := db.Model(&b).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		p, err := svc.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if p.Name != "甲家政" {
			t.Errorf("picked %s, want the only active provider", p.Name)
		}
	}
}
