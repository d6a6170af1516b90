package domain

import (
	"errors"
	"time"
)

// ErrPoolExhausted 服务商池为空；调用方用 errors.Is 判断，不做
// 字符串匹配
var ErrPoolExhausted = errors.New("provider pool exhausted")

// Provider 外派服务商（阿姨来源渠道）
type Provider struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;type:varchar(64);not null"`
	Active    bool   `gorm:"not null;default:true;index"`
	SortOrder int    `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Provider) TableName() string {
	return "dispatch_providers"
}

// RotationCursor 轮转游标，单行持久化
// 读-改-写必须在持有行锁的同一事务里完成，并发调用才不会跳号
type RotationCursor struct {
	ID        uint `gorm:"primaryKey"`
	Position  int  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (RotationCursor) TableName() string {
	return "dispatch_rotation_cursor"
}
