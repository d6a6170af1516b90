package domain

import (
	"context"
	"errors"
)

// ErrNotFound 合同不存在
var ErrNotFound = errors.New("contract not found")

// Repository 合同仓储接口
// Port 在这里定义，Adapter 在基础设施层实现
type Repository interface {
	// FindByID 根据 ID 查询合同
	FindByID(ctx context.Context, id uint) (*Contract, error)

	// FindPredecessor 查询续签链上的前一份合同
	FindPredecessor(ctx context.Context, c *Contract) (*Contract, error)

	// FindSuccessor 查询以该合同为前合同的续签合同（无则返回 nil, nil）
	FindSuccessor(ctx context.Context, contractID uint) (*Contract, error)

	// FindByFamilyGroup 查询同一家庭组的全部合同
	FindByFamilyGroup(ctx context.Context, groupID uint) ([]*Contract, error)

	// FindByCustomerName 按客户姓名精确匹配（家庭合并的回退口径）
	FindByCustomerName(ctx context.Context, name string) ([]*Contract, error)

	// FindSubstitutions 查询替班某合同的全部替班合同
	FindSubstitutions(ctx context.Context, coversContractID uint) ([]*Contract, error)

	// ListBillable 列出某月可能需要出账的合同（在服务中或当月内结束）
	ListBillable(ctx context.Context, year int, month int) ([]*Contract, error)
}
