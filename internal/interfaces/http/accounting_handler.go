package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/dto"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// AccountingHandler plan de cuentas y asientos manuales.
type AccountingHandler struct {
	chart  *accounting.ChartService
	poster *accounting.Poster
	log    *logger.Logger
}

// NewAccountingHandler construye el handler.
func NewAccountingHandler(chart *accounting.ChartService, poster *accounting.Poster, log *logger.Logger) *AccountingHandler {
	return &AccountingHandler{chart: chart, poster: poster, log: log}
}

// ListAccounts devuelve el plan de cuentas como árbol.
// GET /api/accounts
func (h *AccountingHandler) ListAccounts(c *fiber.Ctx) error {
	tree, err := h.chart.Tree(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromChart(tree))
}

// CreateAccount agrega una cuenta al plan.
// POST /api/accounts
func (h *AccountingHandler) CreateAccount(c *fiber.Ctx) error {
	var in dto.CreateAccountRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	acc, err := h.chart.CreateAccount(c.Context(), accounting.CreateAccountInput{
		Code:       in.Code,
		Name:       in.Name,
		ParentCode: in.ParentCode,
		Postable:   in.Postable,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AccountNode{Code: acc.Code, Name: acc.Name, Postable: acc.Postable})
}

// DeleteAccount elimina una cuenta sin subcuentas.
// DELETE /api/accounts/:code
func (h *AccountingHandler) DeleteAccount(c *fiber.Ctx) error {
	if err := h.chart.DeleteAccount(c.Context(), c.Params("code")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterEntry registra un asiento manual balanceado.
// POST /api/ledger-entries
func (h *AccountingHandler) RegisterEntry(c *fiber.Ctx) error {
	var in dto.RegisterEntryRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return writeError(c, h.log, err)
	}
	input := accounting.RegisterInput{Date: date, Description: in.Description}
	for _, l := range in.Lines {
		input.Lines = append(input.Lines, accounting.LineInput{
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	entry, err := h.poster.Register(c.Context(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromLedgerEntry(entry))
}
