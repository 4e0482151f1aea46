package entity

import "time"

// Códigos AFIP de comprobantes emitidos por el motor.
const (
	AfipCodeInvoiceA = "001"
	AfipCodeInvoiceB = "006"
)

// DocumentType clasificación fiscal del comprobante.
type DocumentType struct {
	ID          string
	AfipCode    string
	Letter      string // A, B
	Description string // "Factura"
}

// PointOfSale talonario administrativo de numeración.
type PointOfSale struct {
	ID          string
	Number      int
	Description string
	Enabled     bool
	CreatedAt   time.Time
}

// DocumentSequence último número emitido por (punto de venta, tipo de comprobante).
// Solo lo modifica el secuenciador, bajo lock exclusivo y de forma creciente.
type DocumentSequence struct {
	PointOfSaleID  string
	DocumentTypeID string
	LastNumber     int64
	UpdatedAt      time.Time
}
