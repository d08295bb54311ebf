package handler

import (
	"errors"
	"net/http"

	"orderetl/internal/middleware"
	"orderetl/internal/service"
	"orderetl/pkg/response"

	"github.com/gin-gonic/gin"
)

type PipelineHandler struct {
	pipelineService service.PipelineService
	auth            *middleware.Auth
}

func NewPipelineHandler(pipelineService service.PipelineService, auth *middleware.Auth) *PipelineHandler {
	return &PipelineHandler{pipelineService: pipelineService, auth: auth}
}

func (h *PipelineHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/pipeline")
	group.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleOperator))
	{
		group.POST("/runs", h.TriggerRun)
	}
}

// TriggerRun runs the pipeline synchronously and returns its summary.
// A failed run still returns the summary so the operator sees how far it got.
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	summary, err := h.pipelineService.Run(c.Request.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		return
	}
	if err != nil {
		res := response.Error(http.StatusInternalServerError, "Pipeline run failed: "+err.Error())
		res.Data = summary
		c.JSON(http.StatusInternalServerError, res)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
