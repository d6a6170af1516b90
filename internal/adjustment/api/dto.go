package api

// CreateReq 创建单侧调整项
// bill_id 与 payroll_id 恰好传一个
type CreateReq struct {
	Kind       string `json:"kind" binding:"required"`
	ContractID uint   `json:"contract_id" binding:"required"`
	BillID     *uint  `json:"bill_id"`
	PayrollID  *uint  `json:"payroll_id"`
	Amount     string `json:"amount" binding:"required"` // 传字符串防止精度丢失
	Remark     string `json:"remark"`
}

// CreatePairReq 创建镜像对：客户侧挂账单，员工侧挂工资单
type CreatePairReq struct {
	ContractID   uint   `json:"contract_id" binding:"required"`
	BillID       uint   `json:"bill_id" binding:"required"`
	PayrollID    uint   `json:"payroll_id" binding:"required"`
	CustomerKind string `json:"customer_kind" binding:"required"`
	EmployeeKind string `json:"employee_kind" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	Remark       string `json:"remark"`
}
