package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/pipeline"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/services"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/utils"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// RunHandler handles pipeline run requests
type RunHandler struct {
	pipelineService *services.PipelineService
}

func NewRunHandler(pipelineService *services.PipelineService) *RunHandler {
	return &RunHandler{pipelineService: pipelineService}
}

// TriggerRun godoc
// @Summary Trigger a pipeline run
// @Description Start acquire, extract, schema, validate, bias, clean and report in the background
// @Tags Runs
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Router /runs [post]
func (h *RunHandler) TriggerRun(c *fiber.Ctx) error {
	id, err := h.pipelineService.TriggerRun(pipeline.TriggerAPI)
	if errors.Is(err, services.ErrRunInProgress) {
		utils.LogWarn("⚠️ Pipeline run rejected, another run in progress", map[string]interface{}{
			"ip": c.IP(),
		})
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to trigger pipeline run")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to trigger pipeline run",
		})
	}

	utils.LogInfo("📥 Pipeline run triggered via API", map[string]interface{}{
		"run_id": id,
		"ip":     c.IP(),
	})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "success",
		"message": "Pipeline run started",
		"data":    fiber.Map{"run_id": id},
	})
}

// ListRuns godoc
// @Summary List pipeline runs
// @Description Most recent runs first
// @Tags Runs
// @Produce json
// @Param limit query int false "Max runs to return (default 20, max 200)"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /runs [get]
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultRunLimit)
	if limit <= 0 || limit > maxRunLimit {
		limit = defaultRunLimit
	}

	runs, err := h.pipelineService.ListRuns(limit)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to list pipeline runs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to retrieve pipeline runs",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"count":  len(runs),
		"data":   runs,
	})
}

// GetRun godoc
// @Summary Get pipeline run by ID
// @Description Run status with per-stage results
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid run id format",
		})
	}

	run, err := h.pipelineService.GetRun(id)
	if errors.Is(err, services.ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "pipeline run not found",
		})
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", id.String()).Msg("❌ Failed to get pipeline run")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to retrieve pipeline run",
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data":   run,
	})
}
