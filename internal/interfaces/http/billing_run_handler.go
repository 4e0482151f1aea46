package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/batch"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/dto"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// BillingRunHandler lanza y consulta corridas de facturación masiva.
type BillingRunHandler struct {
	pipeline *batch.Pipeline
	log      *logger.Logger
}

// NewBillingRunHandler construye el handler.
func NewBillingRunHandler(pipeline *batch.Pipeline, log *logger.Logger) *BillingRunHandler {
	return &BillingRunHandler{pipeline: pipeline, log: log}
}

// Start lanza la corrida en segundo plano y responde 202 con su id.
// POST /api/billing-runs
func (h *BillingRunHandler) Start(c *fiber.Ctx) error {
	var in dto.StartRunRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	period, err := parseDate(in.Period)
	if err != nil {
		return writeError(c, h.log, err)
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	// UserContext: el contexto de fasthttp se recicla al terminar la request.
	runID, err := h.pipeline.Start(c.UserContext(), batch.Request{Period: period, DueDate: due, PointOfSaleID: in.PointOfSaleID})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": runID})
}

// GetByID devuelve el estado y los contadores de la corrida.
// GET /api/billing-runs/:id
func (h *BillingRunHandler) GetByID(c *fiber.Ctx) error {
	run, err := h.pipeline.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromBillingRun(run))
}
