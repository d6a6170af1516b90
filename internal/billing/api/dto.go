package api

// RecomputeReq 单合同重算请求
type RecomputeReq struct {
	ContractID uint `json:"contract_id" binding:"required"`
	Year       int  `json:"year" binding:"required"`
	Month      int  `json:"month" binding:"required,min=1,max=12"`
}

// RecomputeBatchReq 按月批量重算
type RecomputeBatchReq struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required,min=1,max=12"`
}

// RefundReq 中止退费
// charge_termination_day 必传：中止日当天是否计费两边口径不一致，
// 必须由调用方明示
type RefundReq struct {
	ContractID           uint  `json:"contract_id" binding:"required"`
	ChargeTerminationDay *bool `json:"charge_termination_day" binding:"required"`
	Apply                bool  `json:"apply"`
}
