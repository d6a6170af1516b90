package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/anjia-dev/anjia-billing/internal/adjustment/domain"
	"github.com/anjia-dev/anjia-billing/internal/adjustment/service"
)

type AdjustmentHandler struct {
	svc  *service.AdjustmentService
	repo domain.Repository
}

func NewAdjustmentHandler(svc *service.AdjustmentService, repo domain.Repository) *AdjustmentHandler {
	return &AdjustmentHandler{svc: svc, repo: repo}
}

// RegisterRoutes 注册路由
func (h *AdjustmentHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/adjustments")
	{
		g.POST("", h.Create)
		g.POST("/pairs", h.CreatePair)
		g.GET("", h.List)
		g.DELETE("/:id", h.Delete)
	}
}

// Create 创建单侧调整项
// POST /api/v1/adjustments
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount: " + req.Amount})
		return
	}

	adj := &domain.Adjustment{
		Kind:       domain.Kind(req.Kind),
		ContractID: req.ContractID,
		BillID:     req.BillID,
		PayrollID:  req.PayrollID,
		Amount:     amount,
		Remark:     req.Remark,
	}
	if err := h.svc.Create(c.Request.Context(), adj); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidKind), errors.Is(err, domain.ErrInvalidAttachment):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, adj)
}

// CreatePair 创建镜像对；两条同事务落库，任一失败整体回滚
// POST /api/v1/adjustments/pairs
func (h *AdjustmentHandler) CreatePair(c *gin.Context) {
	var req CreatePairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount: " + req.Amount})
		return
	}

	customer, employee, err := h.svc.CreateMirroredPair(c.Request.Context(), service.PairRequest{
		ContractID:   req.ContractID,
		BillID:       req.BillID,
		PayrollID:    req.PayrollID,
		CustomerKind: domain.Kind(req.CustomerKind),
		EmployeeKind: domain.Kind(req.EmployeeKind),
		Amount:       amount,
		Remark:       req.Remark,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMirrorBroken),
			errors.Is(err, domain.ErrInvalidKind),
			errors.Is(err, domain.ErrInvalidAttachment):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer, "employee": employee})
}

// List 按账单或工资单查调整项
// GET /api/v1/adjustments?bill_id= / ?payroll_id=
func (h *AdjustmentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	if v := c.Query("bill_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad bill_id"})
			return
		}
		list, err := h.repo.ListForBill(ctx, uint(id))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}
	if v := c.Query("payroll_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad payroll_id"})
			return
		}
		list, err := h.repo.ListForPayroll(ctx, uint(id))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "bill_id 或 payroll_id 必传其一"})
}

// Delete 删除调整项；镜像项连带删除，响应里讲清级联内容
// DELETE /api/v1/adjustments/:id
func (h *AdjustmentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	result, err := h.svc.Delete(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "调整项不存在"})
		case errors.Is(err, domain.ErrMirrorBroken):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
