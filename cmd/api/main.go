package main

import (
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	adjrepo "github.com/anjia-dev/anjia-billing/internal/adjustment/adapter/repo"
	adjapi "github.com/anjia-dev/anjia-billing/internal/adjustment/api"
	adjservice "github.com/anjia-dev/anjia-billing/internal/adjustment/service"
	attrepo "github.com/anjia-dev/anjia-billing/internal/attendance/adapter/repo"
	attservice "github.com/anjia-dev/anjia-billing/internal/attendance/service"
	billingrepo "github.com/anjia-dev/anjia-billing/internal/billing/adapter/repo"
	billingapi "github.com/anjia-dev/anjia-billing/internal/billing/api"
	billingservice "github.com/anjia-dev/anjia-billing/internal/billing/service"
	contractrepo "github.com/anjia-dev/anjia-billing/internal/contract/adapter/repo"
	contractapi "github.com/anjia-dev/anjia-billing/internal/contract/api"
	contractservice "github.com/anjia-dev/anjia-billing/internal/contract/service"
	dispatchapi "github.com/anjia-dev/anjia-billing/internal/dispatch/api"
	dispatchservice "github.com/anjia-dev/anjia-billing/internal/dispatch/service"
	"github.com/anjia-dev/anjia-billing/internal/platform/database"
	"github.com/anjia-dev/anjia-billing/internal/platform/events"
	"github.com/anjia-dev/anjia-billing/internal/platform/logger"
	"github.com/anjia-dev/anjia-billing/internal/platform/server"
	reconcilerepo "github.com/anjia-dev/anjia-billing/internal/reconcile/adapter/repo"
	reconcileapi "github.com/anjia-dev/anjia-billing/internal/reconcile/api"
	reconcileservice "github.com/anjia-dev/anjia-billing/internal/reconcile/service"
)

func main() {
	// 1. 加载配置
	viper.SetConfigFile("../../configs/config.yaml")
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %s", err)
	}

	// 2. 初始化基础设施 (Infra)
	appLogger := logger.NewLogger(viper.GetString("server.mode"))

	dsn := viper.GetString("database.dsn")
	maxIdleConns := viper.GetInt("database.max_idle_conns")
	maxOpenConns := viper.GetInt("database.max_open_conns")
	db, err := database.NewPostgresDB(dsn, maxIdleConns, maxOpenConns)
	if err != nil {
		appLogger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		appLogger.Fatal("database migration failed", zap.Error(err))
	}

	// 事件总线：AMQP 不可用时降级为进程内总线，计费主流程不被阻断
	var publisher events.Publisher
	amqpPub, err := events.NewAMQPPublisher(
		viper.GetString("amqp.url"),
		viper.GetString("amqp.exchange"),
		appLogger,
	)
	if err != nil {
		appLogger.Warn("amqp unavailable, falling back to in-memory bus", zap.Error(err))
		publisher = events.NewMemoryBus()
	} else {
		publisher = amqpPub
		defer amqpPub.Close()
	}

	// 3. 依赖注入 (Wiring)
	// -- Repos --
	contractRepo := contractrepo.NewContractRepo(db)
	attendanceRepo := attrepo.NewAttendanceRepo(db)
	adjustmentRepo := adjrepo.NewAdjustmentRepo(db)
	billRepo := billingrepo.NewBillRepo(db)
	payrollRepo := billingrepo.NewPayrollRepo(db)
	fundsRepo := billingrepo.NewFundsRepo(db)
	txRepo := reconcilerepo.NewTransactionRepo(db)
	aliasRepo := reconcilerepo.NewAliasRepo(db)
	auditRepo := reconcilerepo.NewAuditRepo(db)

	// -- Services --
	cycleSvc := contractservice.NewCycleService(contractRepo, attendanceRepo)
	attendanceSvc := attservice.NewAttendanceService(attendanceRepo)
	adjustmentSvc := adjservice.NewAdjustmentService(db, adjustmentRepo, appLogger)
	billingSvc := billingservice.NewBillingService(
		db, contractRepo, cycleSvc, attendanceSvc,
		billRepo, payrollRepo, adjustmentSvc, adjustmentRepo,
		publisher, appLogger,
	)
	reconcileSvc := reconcileservice.NewReconcileService(
		db, txRepo, aliasRepo, auditRepo,
		contractRepo, billRepo, payrollRepo, fundsRepo,
		billingSvc, adjustmentSvc, adjustmentRepo,
		publisher, appLogger,
	)
	rotationSvc := dispatchservice.NewRotationService(db, appLogger)

	// 4. 初始化 Server (Gateway)
	srv := server.NewServer(
		appLogger,
		viper.GetString("server.port"),
		viper.GetString("server.mode"),
		server.Handlers{
			Contract:   contractapi.NewContractHandler(cycleSvc, contractRepo),
			Billing:    billingapi.NewBillingHandler(billingSvc, billRepo, payrollRepo),
			Adjustment: adjapi.NewAdjustmentHandler(adjustmentSvc, adjustmentRepo),
			Reconcile:  reconcileapi.NewReconcileHandler(reconcileSvc, txRepo),
			Dispatch:   dispatchapi.NewDispatchHandler(rotationSvc),
		},
	)

	// 5. 启动服务
	if err := srv.Run(); err != nil {
		appLogger.Fatal("Server startup failed", zap.Error(err))
	}
}
