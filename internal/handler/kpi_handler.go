package handler

import (
	"errors"
	"net/http"

	"orderetl/internal/middleware"
	"orderetl/internal/service"
	"orderetl/pkg/response"

	"github.com/gin-gonic/gin"
)

type KPIHandler struct {
	kpiService service.KPIService
	auth       *middleware.Auth
}

func NewKPIHandler(kpiService service.KPIService, auth *middleware.Auth) *KPIHandler {
	return &KPIHandler{kpiService: kpiService, auth: auth}
}

func (h *KPIHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/kpis")
	group.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleOperator, middleware.RoleViewer))
	{
		group.GET("", h.GetKPIs)
	}
}

// GetKPIs returns the KPI set of the last successful run
func (h *KPIHandler) GetKPIs(c *gin.Context) {
	kpis, err := h.kpiService.Latest(c.Request.Context())
	if errors.Is(err, service.ErrNoKPIs) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to read kpis: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, kpis))
}
