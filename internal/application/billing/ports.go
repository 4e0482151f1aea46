package billing

import (
	"context"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// LedgerPoster contabiliza una factura numerada usando los repos de la transacción en curso.
type LedgerPoster interface {
	PostInvoice(ctx context.Context, repos repository.Repos, inv *entity.Invoice) (*entity.LedgerEntry, error)
}

// InvoiceDocument datos necesarios para la representación impresa de una factura.
type InvoiceDocument struct {
	Invoice      *entity.Invoice
	Customer     *entity.Customer
	Supply       *entity.Supply
	DocumentType *entity.DocumentType
	PointOfSale  *entity.PointOfSale
}

// InvoicePDFGenerator puerto de salida para generar el PDF de la factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}
