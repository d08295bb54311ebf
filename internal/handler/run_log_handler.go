package handler

import (
	"net/http"

	"orderetl/internal/middleware"
	"orderetl/internal/service"
	"orderetl/pkg/pagination"
	"orderetl/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RunLogHandler struct {
	runLogService service.RunLogService
	auth          *middleware.Auth
}

func NewRunLogHandler(runLogService service.RunLogService, auth *middleware.Auth) *RunLogHandler {
	return &RunLogHandler{runLogService: runLogService, auth: auth}
}

func (h *RunLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/runs")
	group.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleOperator, middleware.RoleViewer))
	{
		group.GET("", h.GetRunLogs)
		group.GET("/:run_id", h.GetRun)
	}
}

// GetRunLogs lists stage outcomes of all runs, newest first
func (h *RunLogHandler) GetRunLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.runLogService.GetRunLogs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve run logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Page(http.StatusOK, logs, p.Page, p.Limit, total))
}

// GetRun returns every stage outcome of one run in order
func (h *RunLogHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid run id"))
		return
	}

	logs, err := h.runLogService.GetRun(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve run: "+err.Error()))
		return
	}
	if len(logs) == 0 {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Run not found"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}
