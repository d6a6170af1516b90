package api

// ImportReq 对账单导入：原文整体提交，首行表头
type ImportReq struct {
	Text string `json:"text" binding:"required"`
}

// AllocateReq 分配请求：显式的 (目标, 金额) 对
type AllocateReq struct {
	Targets []AllocateTarget `json:"targets" binding:"required,min=1"`
}

type AllocateTarget struct {
	Type   string `json:"type" binding:"required,oneof=bill payroll refund_adjustment"`
	ID     uint   `json:"id" binding:"required"`
	Amount string `json:"amount" binding:"required"` // 传字符串防止精度丢失
}

// IgnoreReq 忽略流水
type IgnoreReq struct {
	Reason string `json:"reason"`
}
