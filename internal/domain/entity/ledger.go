package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados y orígenes del asiento.
const (
	EntryStatusConfirmed = "CONFIRMED"

	EntryOriginInvoicing = "billing"
	EntryOriginManual    = "manual"
)

// Claves de parametrización contable.
const (
	ParamAccountReceivables   = "ACCOUNT_RECEIVABLES"
	ParamAccountEnergyRevenue = "ACCOUNT_ENERGY_REVENUE"
	ParamAccountOutputTax     = "ACCOUNT_OUTPUT_TAX"
)

// AccountingParameterKeys claves que el asiento de facturación necesita resueltas.
var AccountingParameterKeys = []string{ParamAccountReceivables, ParamAccountEnergyRevenue, ParamAccountOutputTax}

// Account nodo del plan de cuentas. Solo las imputables reciben líneas.
type Account struct {
	ID        string
	Code      string // jerárquico: 1, 1.1, 1.1.01
	Name      string
	ParentID  string // vacío si es raíz
	Postable  bool
	CreatedAt time.Time
}

// AccountingParameter vincula una clave fija con una cuenta imputable.
type AccountingParameter struct {
	Key         string
	AccountCode string
}

// LedgerEntry cabecera del asiento. TotalDebit y TotalCredit siempre son iguales.
type LedgerEntry struct {
	ID          string
	Date        time.Time
	Description string
	Origin      string
	InvoiceID   string // vacío para asientos manuales
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Status      string
	Lines       []*LedgerLine
	CreatedAt   time.Time
}

// LedgerLine imputación a una cuenta.
type LedgerLine struct {
	ID          string
	EntryID     string
	AccountID   string
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Movement kinds de la cuenta corriente del socio.
const (
	MovementDebit  = "DEBIT"
	MovementCredit = "CREDIT"
)

// AccountMovement movimiento en la cuenta corriente del socio.
type AccountMovement struct {
	ID         string
	CustomerID string
	InvoiceID  string
	Date       time.Time
	Kind       string
	Concept    string
	Amount     decimal.Decimal
	CreatedAt  time.Time
}
