package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/anjia-dev/anjia-billing/internal/reconcile/domain"
	"github.com/anjia-dev/anjia-billing/internal/reconcile/service"
)

type ReconcileHandler struct {
	svc          *service.ReconcileService
	transactions domain.TransactionRepository
}

func NewReconcileHandler(svc *service.ReconcileService, transactions domain.TransactionRepository) *ReconcileHandler {
	return &ReconcileHandler{svc: svc, transactions: transactions}
}

// RegisterRoutes 注册路由
func (h *ReconcileHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/reconcile")
	{
		g.POST("/statements", h.ImportStatement)
		g.GET("/transactions", h.ListTransactions)
		g.GET("/transactions/:id/suggestion", h.Suggest)
		g.POST("/transactions/:id/allocations", h.Allocate)
		g.DELETE("/transactions/:id/allocations", h.CancelAllocation)
		g.POST("/transactions/:id/ignore", h.Ignore)
		g.DELETE("/transactions/:id/ignore", h.Unignore)
		g.DELETE("/payments/:id", h.ReversePayment)
		g.DELETE("/payouts/:id", h.ReversePayout)
	}
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return 0, false
	}
	return uint(id), true
}

// ImportStatement 导入对账单
// POST /api/v1/reconcile/statements
// JSON 里传 text，或者 text/plain 直接贴原文
func (h *ReconcileHandler) ImportStatement(c *gin.Context) {
	var text string
	if strings.HasPrefix(c.ContentType(), "text/plain") {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
			return
		}
		text = string(raw)
	} else {
		var req ImportReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		text = req.Text
	}

	report, err := h.svc.ImportStatement(c.Request.Context(), text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListTransactions 流水列表
// GET /api/v1/reconcile/transactions?status=
func (h *ReconcileHandler) ListTransactions(c *gin.Context) {
	list, err := h.transactions.ListByStatus(c.Request.Context(), domain.TxStatus(c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Suggest 匹配建议；待确认建议永不自动落账
// GET /api/v1/reconcile/transactions/:id/suggestion
func (h *ReconcileHandler) Suggest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	suggestion, err := h.svc.Suggest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "流水不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// Allocate 执行分配
// POST /api/v1/reconcile/transactions/:id/allocations
func (h *ReconcileHandler) Allocate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req AllocateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	targets := make([]service.AllocationTarget, len(req.Targets))
	for i, t := range req.Targets {
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad amount: " + t.Amount})
			return
		}
		targets[i] = service.AllocationTarget{
			Type:   service.CandidateType(t.Type),
			ID:     t.ID,
			Amount: amount,
		}
	}

	result, err := h.svc.Allocate(c.Request.Context(), id, targets)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrOverAllocation),
			errors.Is(err, domain.ErrNotAllocatable),
			errors.Is(err, domain.ErrNothingToAllocate):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelAllocation 整笔撤销；响应描述全部连带删除
// DELETE /api/v1/reconcile/transactions/:id/allocations
func (h *ReconcileHandler) CancelAllocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := h.svc.CancelAllocation(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Ignore 忽略流水
// POST /api/v1/reconcile/transactions/:id/ignore
func (h *ReconcileHandler) Ignore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req IgnoreReq
	_ = c.ShouldBindJSON(&req) // reason 可选，空 body 也接受
	if err := h.svc.Ignore(c.Request.Context(), id, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已忽略"})
}

// Unignore 撤销忽略
// DELETE /api/v1/reconcile/transactions/:id/ignore
func (h *ReconcileHandler) Unignore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tx, err := h.svc.Unignore(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// ReversePayment 删除收款并冲正；响应描述全部连带删除
// DELETE /api/v1/reconcile/payments/:id
func (h *ReconcileHandler) ReversePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := h.svc.ReversePayment(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReversePayout 删除出账并冲正
// DELETE /api/v1/reconcile/payouts/:id
func (h *ReconcileHandler) ReversePayout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := h.svc.ReversePayout(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
