package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjia-dev/anjia-billing/internal/dispatch/domain"
)

// RotationService 服务商轮转分派
// 共享计数器的标准写法：同一事务里锁行、读游标、写游标，
// 计费核心将来有共享计数需求照此办理
type RotationService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRotationService(db *gorm.DB, logger *zap.Logger) *RotationService {
	return &RotationService{db: db, logger: logger}
}

// Next 取下一个服务商并推进游标
func (s *RotationService) Next(ctx context.Context) (*domain.Provider, error) {
	var picked *domain.Provider

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. 锁住游标行（sqlite 不支持 FOR UPDATE，测试环境单连接无需锁）
		cursorQuery := tx.WithContext(ctx)
		if tx.Dialector.Name() != "sqlite" {
			cursorQuery = cursorQuery.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var cursor domain.RotationCursor
		if err := cursorQuery.Where(domain.RotationCursor{ID: 1}).
			FirstOrCreate(&cursor).Error; err != nil {
			return err
		}

		// 2. 活跃服务商有序列表
		var providers []domain.Provider
		if err := tx.WithContext(ctx).
			Where("active = ?", true).
			Order("sort_order, id").
			Find(&providers).Error; err != nil {
			return err
		}
		if len(providers) == 0 {
			return domain.ErrPoolExhausted
		}

		// 3. 取位并推进
		p := providers[cursor.Position%len(providers)]
		picked = &p
		cursor.Position = (cursor.Position + 1) % len(providers)
		return tx.WithContext(ctx).Save(&cursor).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("provider dispatched", zap.String("name", picked.Name))
	return picked, nil
}
