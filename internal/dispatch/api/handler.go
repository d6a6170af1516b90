package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anjia-dev/anjia-billing/internal/dispatch/domain"
	"github.com/anjia-dev/anjia-billing/internal/dispatch/service"
)

type DispatchHandler struct {
	svc *service.RotationService
}

func NewDispatchHandler(svc *service.RotationService) *DispatchHandler {
	return &DispatchHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *DispatchHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/dispatch/next", h.Next)
}

// Next 轮转取下一个服务商
// POST /api/v1/dispatch/next
func (h *DispatchHandler) Next(c *gin.Context) {
	provider, err := h.svc.Next(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrPoolExhausted) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无可用服务商"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, provider)
}
