package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la factura.
const (
	InvoiceStatusComposed      = "COMPOSED"       // armada en memoria, sin número
	InvoiceStatusIssuedPending = "ISSUED_PENDING" // numerada y contabilizada, pendiente de CAE
	InvoiceStatusCancelled     = "CANCELLED"
)

// Invoice representa la cabecera de una factura de servicio.
type Invoice struct {
	ID                string
	CustomerID        string
	SupplyID          string
	ContractID        string
	PointOfSaleID     string
	DocumentTypeID    string
	DocumentNumber    *int64 // nil hasta que lo asigna el secuenciador
	IssueDate         time.Time
	PeriodFrom        time.Time
	PeriodTo          time.Time
	DueDate           time.Time
	NetAmount         decimal.Decimal
	TaxAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            string
	SourceReadingID   string   // lectura que originó la factura; se marca facturada tras el commit
	CoveredReadingIDs []string // lecturas cuyo consumo incluye la factura; vacío equivale a SourceReadingID
	ConsumptionUnits  decimal.Decimal
	Lines             []*InvoiceLine
	CreatedAt         time.Time
}

// InvoiceLine línea de detalle; pertenece exclusivamente a su factura.
type InvoiceLine struct {
	ID          string
	InvoiceID   string
	ConceptID   string
	ConceptCode string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	NetAmount   decimal.Decimal
}

// Numbered indica si la factura ya tiene número asignado.
func (i *Invoice) Numbered() bool {
	return i.DocumentNumber != nil
}

// BilledReadingIDs devuelve las lecturas a marcar facturadas al finalizar.
func (i *Invoice) BilledReadingIDs() []string {
	if len(i.CoveredReadingIDs) > 0 {
		return i.CoveredReadingIDs
	}
	if i.SourceReadingID == "" {
		return nil
	}
	return []string{i.SourceReadingID}
}

// FormatNumber devuelve el número en formato PPPP-NNNNNNNN.
func FormatNumber(posNumber int, documentNumber int64) string {
	return fmt.Sprintf("%04d-%08d", posNumber, documentNumber)
}

// Clone devuelve una copia profunda (cabecera y líneas).
func (i *Invoice) Clone() *Invoice {
	c := *i
	if i.DocumentNumber != nil {
		n := *i.DocumentNumber
		c.DocumentNumber = &n
	}
	c.CoveredReadingIDs = append([]string(nil), i.CoveredReadingIDs...)
	c.Lines = make([]*InvoiceLine, len(i.Lines))
	for k, l := range i.Lines {
		lc := *l
		c.Lines[k] = &lc
	}
	return &c
}
