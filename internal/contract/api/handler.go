package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anjia-dev/anjia-billing/internal/contract/domain"
	"github.com/anjia-dev/anjia-billing/internal/contract/service"
)

type ContractHandler struct {
	cycles    *service.CycleService
	contracts domain.Repository
}

func NewContractHandler(cycles *service.CycleService, contracts domain.Repository) *ContractHandler {
	return &ContractHandler{cycles: cycles, contracts: contracts}
}

// RegisterRoutes 注册路由
func (h *ContractHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/contracts")
	{
		g.GET("/:id", h.Get)
		g.GET("/:id/cycle", h.ResolveCycle)
		g.GET("/:id/family-group", h.FamilyGroup)
	}
}

func (h *ContractHandler) load(c *gin.Context) (*domain.Contract, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return nil, false
	}
	contract, err := h.contracts.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "合同不存在"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return contract, true
}

// Get 合同详情
// GET /api/v1/contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	contract, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, contract)
}

// ResolveCycle 结算周期解析
// GET /api/v1/contracts/:id/cycle?year=&month=
// 草稿合同或无账期的月份返回 204
func (h *ContractHandler) ResolveCycle(c *gin.Context) {
	contract, ok := h.load(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad month"})
		return
	}

	resolved, err := h.cycles.Resolve(c.Request.Context(), contract, year, time.Month(month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if resolved == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

// FamilyGroup 家庭合并视图
// GET /api/v1/contracts/:id/family-group
func (h *ContractHandler) FamilyGroup(c *gin.Context) {
	contract, ok := h.load(c)
	if !ok {
		return
	}
	group, err := h.cycles.FamilyGroupOf(c.Request.Context(), contract)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, group)
}
