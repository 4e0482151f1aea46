package repository

import (
	"context"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y sus líneas.
type InvoiceRepository interface {
	// Create persiste cabecera y líneas. Devuelve domain.ErrDuplicate si el número ya existe.
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// MaxNumber devuelve el mayor número emitido para (punto de venta, tipo) o 0.
	MaxNumber(ctx context.Context, pointOfSaleID, documentTypeID string) (int64, error)
}

// DocumentTypeRepository define el puerto para tipos de comprobante.
type DocumentTypeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.DocumentType, error)
	GetByAfipCode(ctx context.Context, code string) (*entity.DocumentType, error)
	Create(ctx context.Context, dt *entity.DocumentType) error
}

// PointOfSaleRepository define el puerto para puntos de venta.
type PointOfSaleRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PointOfSale, error)
	Create(ctx context.Context, p *entity.PointOfSale) error
}

// SequenceRepository define el puerto de la numeración por (punto de venta, tipo).
type SequenceRepository interface {
	// LockForUpdate crea la fila si no existe y la bloquea hasta el fin de la transacción.
	LockForUpdate(ctx context.Context, pointOfSaleID, documentTypeID string) (*entity.DocumentSequence, error)
	Update(ctx context.Context, seq *entity.DocumentSequence) error
}
