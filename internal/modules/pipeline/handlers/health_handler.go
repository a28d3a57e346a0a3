package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/services"
)

type HealthHandler struct {
	pipelineService *services.PipelineService
}

func NewHealthHandler(pipelineService *services.PipelineService) *HealthHandler {
	return &HealthHandler{pipelineService: pipelineService}
}

// GetHealth godoc
// @Summary Service health check
// @Description Check if API is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"service":     "fatura-api",
		"run_running": h.pipelineService.IsRunning(),
	})
}
