package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// ComposeInvoiceRequest body para POST /api/invoices/compose y /api/invoices/finalize.
// DueDate vacío aplica los días de vencimiento configurados.
type ComposeInvoiceRequest struct {
	ReadingID     string `json:"reading_id" validate:"required"`
	DueDate       string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PointOfSaleID string `json:"point_of_sale_id" validate:"required"`
}

// ComposePeriodRequest body para POST /api/invoices/compose-period.
type ComposePeriodRequest struct {
	SupplyID      string `json:"supply_id" validate:"required"`
	From          string `json:"from" validate:"required,datetime=2006-01-02"`
	To            string `json:"to" validate:"required,datetime=2006-01-02"`
	DueDate       string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PointOfSaleID string `json:"point_of_sale_id" validate:"required"`
}

// InvoiceResponse factura con sus líneas.
type InvoiceResponse struct {
	ID               string                `json:"id"`
	CustomerID       string                `json:"customer_id"`
	SupplyID         string                `json:"supply_id"`
	ContractID       string                `json:"contract_id"`
	PointOfSaleID    string                `json:"point_of_sale_id"`
	DocumentTypeID   string                `json:"document_type_id"`
	DocumentNumber   *int64                `json:"document_number,omitempty"`
	IssueDate        string                `json:"issue_date"`
	PeriodFrom       string                `json:"period_from"`
	PeriodTo         string                `json:"period_to"`
	DueDate          string                `json:"due_date"`
	ConsumptionUnits decimal.Decimal       `json:"consumption_units"`
	NetAmount        decimal.Decimal       `json:"net_amount"`
	TaxAmount        decimal.Decimal       `json:"tax_amount"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	Status           string                `json:"status"`
	Lines            []InvoiceLineResponse `json:"lines"`
}

// InvoiceLineResponse línea de la factura en la respuesta.
type InvoiceLineResponse struct {
	ConceptCode string          `json:"concept_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

// FromInvoice convierte la entidad al DTO de respuesta.
func FromInvoice(inv *entity.Invoice) InvoiceResponse {
	r := InvoiceResponse{
		ID:               inv.ID,
		CustomerID:       inv.CustomerID,
		SupplyID:         inv.SupplyID,
		ContractID:       inv.ContractID,
		PointOfSaleID:    inv.PointOfSaleID,
		DocumentTypeID:   inv.DocumentTypeID,
		DocumentNumber:   inv.DocumentNumber,
		IssueDate:        inv.IssueDate.Format(DateLayout),
		PeriodFrom:       inv.PeriodFrom.Format(DateLayout),
		PeriodTo:         inv.PeriodTo.Format(DateLayout),
		DueDate:          inv.DueDate.Format(DateLayout),
		ConsumptionUnits: inv.ConsumptionUnits,
		NetAmount:        inv.NetAmount,
		TaxAmount:        inv.TaxAmount,
		TotalAmount:      inv.TotalAmount,
		Status:           inv.Status,
		Lines:            make([]InvoiceLineResponse, 0, len(inv.Lines)),
	}
	for _, l := range inv.Lines {
		r.Lines = append(r.Lines, InvoiceLineResponse{
			ConceptCode: l.ConceptCode,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			NetAmount:   l.NetAmount,
		})
	}
	return r
}

// FinalizedResponse factura emitida con los ids del asiento y del movimiento generados.
type FinalizedResponse struct {
	Invoice    InvoiceResponse `json:"invoice"`
	EntryID    string          `json:"ledger_entry_id"`
	MovementID string          `json:"movement_id"`
}

// StartRunRequest body para POST /api/billing-runs.
// Period es cualquier día del mes a facturar.
type StartRunRequest struct {
	Period        string `json:"period" validate:"required,datetime=2006-01-02"`
	DueDate       string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PointOfSaleID string `json:"point_of_sale_id" validate:"required"`
}

// BillingRunResponse estado de una corrida masiva.
type BillingRunResponse struct {
	ID            string     `json:"id"`
	Period        string     `json:"period"`
	PointOfSaleID string     `json:"point_of_sale_id"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Succeeded     int        `json:"succeeded"`
	Skipped       int        `json:"skipped"`
	Failed        int        `json:"failed"`
	Chunks        int        `json:"chunks"`
	FailedChunks  int        `json:"failed_chunks"`
	LastError     string     `json:"last_error,omitempty"`
}

// FromBillingRun convierte la entidad al DTO de respuesta.
func FromBillingRun(r *entity.BillingRun) BillingRunResponse {
	return BillingRunResponse{
		ID:            r.ID,
		Period:        r.Period.Format("2006-01"),
		PointOfSaleID: r.PointOfSaleID,
		Status:        r.Status,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Succeeded:     r.Succeeded,
		Skipped:       r.Skipped,
		Failed:        r.Failed,
		Chunks:        r.Chunks,
		FailedChunks:  r.FailedChunks,
		LastError:     r.LastError,
	}
}
