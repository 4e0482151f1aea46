package billing

import (
	"context"
	"fmt"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// PDFUseCase genera la representación impresa de una factura emitida.
type PDFUseCase struct {
	repos     repository.Repos
	generator InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(repos repository.Repos, generator InvoicePDFGenerator) *PDFUseCase {
	return &PDFUseCase{repos: repos, generator: generator}
}

// DownloadInvoicePDF recupera los datos de la factura y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - NotFoundError              si la factura o alguna referencia no existe.
//   - ValidationError            si la factura aún no tiene número.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, invoiceID string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar factura ─────────────────────────────────────────────────────
	inv, err := uc.repos.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.NewNotFound("factura", invoiceID)
	}
	if !inv.Numbered() {
		return nil, "", domain.NewValidation("invoice", "la factura no tiene número asignado")
	}

	// ── 2. Cargar referencias ─────────────────────────────────────────────────
	doc := InvoiceDocument{Invoice: inv}
	if doc.Customer, err = uc.repos.Customers.GetByID(ctx, inv.CustomerID); err != nil || doc.Customer == nil {
		return nil, "", notFoundOr(err, "socio", inv.CustomerID)
	}
	if doc.Supply, err = uc.repos.Supplies.GetByID(ctx, inv.SupplyID); err != nil || doc.Supply == nil {
		return nil, "", notFoundOr(err, "suministro", inv.SupplyID)
	}
	if doc.DocumentType, err = uc.repos.DocumentTypes.GetByID(ctx, inv.DocumentTypeID); err != nil || doc.DocumentType == nil {
		return nil, "", notFoundOr(err, "tipo de comprobante", inv.DocumentTypeID)
	}
	if doc.PointOfSale, err = uc.repos.PointsOfSale.GetByID(ctx, inv.PointOfSaleID); err != nil || doc.PointOfSale == nil {
		return nil, "", notFoundOr(err, "punto de venta", inv.PointOfSaleID)
	}

	// ── 3. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	filename = fmt.Sprintf("factura_%s_%s.pdf", doc.DocumentType.Letter,
		entity.FormatNumber(doc.PointOfSale.Number, *inv.DocumentNumber))
	return pdfBytes, filename, nil
}

func notFoundOr(err error, entityName, id string) error {
	if err != nil {
		return fmt.Errorf("pdf: obtener %s: %w", entityName, err)
	}
	return domain.NewNotFound(entityName, id)
}
