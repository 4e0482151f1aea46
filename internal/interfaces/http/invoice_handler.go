package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/billing"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/dto"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// InvoiceHandler maneja el armado, la emisión y la consulta de facturas.
type InvoiceHandler struct {
	uc  *billing.FinalizeUseCase
	pdf *billing.PDFUseCase
	log *logger.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.FinalizeUseCase, pdf *billing.PDFUseCase, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, pdf: pdf, log: log}
}

// Compose arma la factura de una lectura sin emitirla.
// POST /api/invoices/compose
func (h *InvoiceHandler) Compose(c *fiber.Ctx) error {
	var in dto.ComposeInvoiceRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	inv, err := h.uc.Compose(c.Context(), in.ReadingID, due, in.PointOfSaleID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromInvoice(inv))
}

// ComposePeriod arma la factura de un suministro entre dos fechas sin emitirla.
// POST /api/invoices/compose-period
func (h *InvoiceHandler) ComposePeriod(c *fiber.Ctx) error {
	var in dto.ComposePeriodRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	from, err := parseDate(in.From)
	if err != nil {
		return writeError(c, h.log, err)
	}
	to, err := parseDate(in.To)
	if err != nil {
		return writeError(c, h.log, err)
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	inv, err := h.uc.ComposeForPeriod(c.Context(), in.SupplyID, from, to, due, in.PointOfSaleID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromInvoice(inv))
}

// Finalize arma, numera y contabiliza la factura de una lectura.
// POST /api/invoices/finalize
func (h *InvoiceHandler) Finalize(c *fiber.Ctx) error {
	var in dto.ComposeInvoiceRequest
	if ok, err := bind(c, &in); !ok {
		return err
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	f, err := h.uc.ComposeAndFinalize(c.Context(), in.ReadingID, due, in.PointOfSaleID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FinalizedResponse{
		Invoice:    dto.FromInvoice(f.Invoice),
		EntryID:    f.Entry.ID,
		MovementID: f.Movement.ID,
	})
}

// GetByID obtiene una factura emitida con sus líneas.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	inv, err := h.uc.GetInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.FromInvoice(inv))
}

// PDF descarga la representación impresa.
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *fiber.Ctx) error {
	data, filename, err := h.pdf.DownloadInvoicePDF(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// Statement devuelve la cuenta corriente paginada del socio.
// GET /api/customers/:id/movements?limit=&offset=
func (h *InvoiceHandler) Statement(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	if err := validate.Struct(page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	st, err := h.uc.Statement(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.MovementsPage{
		Items:   []dto.MovementResponse{},
		Balance: st.Balance,
		Page:    dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(st.Movements)},
	}
	for i := page.Offset; i < len(st.Movements) && i < page.Offset+page.Limit; i++ {
		out.Items = append(out.Items, dto.FromMovement(st.Movements[i]))
	}
	return c.JSON(out)
}
