package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/export"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/services"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ResultHandler serves OCR results and quality reports
type ResultHandler struct {
	pipelineService *services.PipelineService
}

func NewResultHandler(pipelineService *services.PipelineService) *ResultHandler {
	return &ResultHandler{pipelineService: pipelineService}
}

// ListResults godoc
// @Summary List OCR results
// @Description Page through the OCR result table ordered by file name
// @Tags Results
// @Produce json
// @Param offset query int false "Rows to skip"
// @Param limit query int false "Page size (default 50, max 500)"
// @Success 200 {object} services.ResultsPage
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /results [get]
func (h *ResultHandler) ListResults(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "offset must not be negative",
		})
	}
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	page, err := h.pipelineService.ListResults(offset, limit)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to read OCR results")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read OCR results",
		})
	}

	return c.JSON(page)
}

// ExportResults godoc
// @Summary Export OCR results
// @Description Download the OCR result table as Excel or PDF
// @Tags Results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce application/pdf
// @Param format query string false "excel (default), pdf or csv"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /results/export [get]
func (h *ResultHandler) ExportResults(c *fiber.Ctx) error {
	format, ok := export.ParseFormat(c.Query("format", string(export.FormatExcel)))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "format must be excel, pdf or csv",
		})
	}

	data, contentType, filename, err := h.pipelineService.ExportResults(format)
	if errors.Is(err, services.ErrNoResults) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		utils.LogError("❌ Failed to export OCR results", err, map[string]interface{}{
			"format": string(format),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to export OCR results",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// GetValidationReport godoc
// @Summary Validation summary
// @Description Summary written by the last validate stage
// @Tags Reports
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /reports/validation [get]
func (h *ResultHandler) GetValidationReport(c *fiber.Ctx) error {
	summary, err := h.pipelineService.ValidationReport()
	if errors.Is(err, services.ErrReportNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to read validation report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read validation report",
		})
	}

	return c.JSON(fiber.Map{
		"status":     "success",
		"data":       summary,
		"has_issues": summary.HasIssues(),
	})
}
