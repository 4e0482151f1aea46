package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReadingKind origen de la lectura del medidor.
type ReadingKind string

const (
	ReadingNormal           ReadingKind = "NORMAL"            // tomada por el lecturista
	ReadingEstimated        ReadingKind = "ESTIMATED"         // estimada por falta de acceso
	ReadingCustomerReported ReadingKind = "CUSTOMER_REPORTED" // autolectura del socio
)

// Valid indica si el tipo de lectura es uno de los reconocidos.
func (k ReadingKind) Valid() bool {
	switch k {
	case ReadingNormal, ReadingEstimated, ReadingCustomerReported:
		return true
	}
	return false
}

// MeterReading estado del contador de un contrato en un período.
// Solo se modifica Billed, una única vez, cuando la lectura queda facturada.
type MeterReading struct {
	ID               string
	ContractID       string
	PeriodDate       time.Time // período que cierra la lectura
	TakenAt          time.Time
	PriorValue       decimal.Decimal
	CurrentValue     decimal.Decimal
	ConsumptionUnits decimal.Decimal // CurrentValue - PriorValue
	Kind             ReadingKind
	Billed           bool
	CreatedAt        time.Time
}
