package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anjia-dev/anjia-billing/internal/billing/domain"
	"github.com/anjia-dev/anjia-billing/internal/billing/service"
)

type BillingHandler struct {
	svc      *service.BillingService
	bills    domain.BillRepository
	payrolls domain.PayrollRepository
}

func NewBillingHandler(svc *service.BillingService, bills domain.BillRepository, payrolls domain.PayrollRepository) *BillingHandler {
	return &BillingHandler{svc: svc, bills: bills, payrolls: payrolls}
}

// RegisterRoutes 注册路由
func (h *BillingHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/billing")
	{
		g.POST("/recompute", h.Recompute)
		g.POST("/recompute-batch", h.RecomputeBatch)
		g.POST("/termination-refund", h.TerminationRefund)
		g.GET("/bills", h.ListBills)
		g.GET("/bills/:id", h.GetBill)
		g.GET("/payrolls", h.ListPayrolls)
		g.GET("/payrolls/:id", h.GetPayroll)
	}
}

// Recompute 单合同重算；失败直接回给调用方
// POST /api/v1/billing/recompute
func (h *BillingHandler) Recompute(c *gin.Context) {
	var req RecomputeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.svc.Recompute(c.Request.Context(), req.ContractID, req.Year, time.Month(req.Month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecomputeBatch 批量重算；单个合同失败不阻断整批，失败清单在响应里
// POST /api/v1/billing/recompute-batch
func (h *BillingHandler) RecomputeBatch(c *gin.Context) {
	var req RecomputeBatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.svc.RecomputeBatch(c.Request.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// TerminationRefund 中止退费（预览或落账）
// POST /api/v1/billing/termination-refund
func (h *BillingHandler) TerminationRefund(c *gin.Context) {
	var req RefundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.svc.TerminationRefund(c.Request.Context(), service.RefundRequest{
		ContractID:           req.ContractID,
		ChargeTerminationDay: req.ChargeTerminationDay,
		Apply:                req.Apply,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChargePolicyRequired), errors.Is(err, service.ErrNotTerminated):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListBills 账单列表（通知文案与报表按固定明细键读取）
// GET /api/v1/billing/bills?contract_id=&status=
func (h *BillingHandler) ListBills(c *gin.Context) {
	var contractID uint
	if v := c.Query("contract_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad contract_id"})
			return
		}
		contractID = uint(id)
	}

	bills, err := h.bills.List(c.Request.Context(), contractID, domain.PayStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bills)
}

// GetBill 账单详情
// GET /api/v1/billing/bills/:id
func (h *BillingHandler) GetBill(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	bill, err := h.bills.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "账单不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bill)
}

// ListPayrolls 工资单列表
// GET /api/v1/billing/payrolls?contract_id=&status=
func (h *BillingHandler) ListPayrolls(c *gin.Context) {
	var contractID uint
	if v := c.Query("contract_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad contract_id"})
			return
		}
		contractID = uint(id)
	}

	payrolls, err := h.payrolls.List(c.Request.Context(), contractID, domain.PayStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payrolls)
}

// GetPayroll 工资单详情
// GET /api/v1/billing/payrolls/:id
func (h *BillingHandler) GetPayroll(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	payroll, err := h.payrolls.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "工资单不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payroll)
}
