package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/dto"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/reading"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// ReadingHandler maneja la carga y consulta de lecturas de medidor.
type ReadingHandler struct {
	svc *reading.Service
	log *logger.Logger
}

// NewReadingHandler construye el handler.
func NewReadingHandler(svc *reading.Service, log *logger.Logger) *ReadingHandler {
	return &ReadingHandler{svc: svc, log: log}
}

// Record registra una lectura.
// POST /api/readings
func (h *ReadingHandler) Record(c *fiber.Ctx) error {
	var in dto.RecordReadingRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	period, err := parseDate(in.PeriodDate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	input := reading.RecordInput{
		ContractID:   in.ContractID,
		PeriodDate:   period,
		TakenAt:      time.Now(),
		CurrentValue: in.CurrentValue,
		Kind:         entity.ReadingNormal,
	}
	if in.TakenAt != nil {
		input.TakenAt = *in.TakenAt
	}
	if in.Kind != "" {
		input.Kind = entity.ReadingKind(in.Kind)
	}
	m, err := h.svc.RecordReading(c.Context(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromReading(m))
}

// LastBefore devuelve la última lectura anterior a la fecha.
// GET /api/contracts/:id/readings/last-before?date=YYYY-MM-DD
func (h *ReadingHandler) LastBefore(c *fiber.Ctx) error {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	m, err := h.svc.FindLastBefore(c.Context(), c.Params("id"), date)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if m == nil {
		return writeError(c, h.log, domain.NewNotFound("lectura", c.Params("id")))
	}
	return c.JSON(dto.FromReading(m))
}

// FirstAfter devuelve la primera lectura posterior a la fecha.
// GET /api/contracts/:id/readings/first-after?date=YYYY-MM-DD
func (h *ReadingHandler) FirstAfter(c *fiber.Ctx) error {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	m, err := h.svc.FindFirstAfter(c.Context(), c.Params("id"), date)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if m == nil {
		return writeError(c, h.log, domain.NewNotFound("lectura", c.Params("id")))
	}
	return c.JSON(dto.FromReading(m))
}

// TariffHandler expone los precios vigentes.
type TariffHandler struct {
	resolver *tariff.Resolver
	log      *logger.Logger
}

// NewTariffHandler construye el handler.
func NewTariffHandler(resolver *tariff.Resolver, log *logger.Logger) *TariffHandler {
	return &TariffHandler{resolver: resolver, log: log}
}

// Effective devuelve los precios de la categoría vigentes en la fecha.
// GET /api/tariffs/:categoryId/effective?date=YYYY-MM-DD
func (h *TariffHandler) Effective(c *fiber.Ctx) error {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	prices, err := h.resolver.ResolveEffectivePrices(c.Context(), c.Params("categoryId"), date)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromTariffPrices(prices))
}
