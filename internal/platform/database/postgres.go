package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	adjdomain "github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
	attdomain "github.com/anjia-dev/anjia-billing/internal/attendance/domain"
	billingdomain "github.com/anjia-dev/anjia-billing/internal/billing/domain"
	contractdomain "github.com/anjia-dev/anjia-billing/internal/contract/domain"
	dispatchdomain "github.com/anjia-dev/anjia-billing/internal/dispatch/domain"
	reconciledomain "github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
)

// NewPostgresDB 初始化数据库连接
func NewPostgresDB(dsn string, maxIdleConns, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// 开启 SQL 日志，方便开发时观察
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	// 连接池配置
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate 建表；唯一键（账单账期、流水外部号、别名）都在模型标签里
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&contractdomain.Contract{},
		&attdomain.DayRecord{},
		&billingdomain.Bill{},
		&billingdomain.Payroll{},
		&billingdomain.BreakdownItem{},
		&billingdomain.Payment{},
		&billingdomain.Payout{},
		&adjdomain.Adjustment{},
		&reconciledomain.BankTransaction{},
		&reconciledomain.PayerAlias{},
		&reconciledomain.AuditEntry{},
		&dispatchdomain.Provider{},
		&dispatchdomain.RotationCursor{},
	)
}
