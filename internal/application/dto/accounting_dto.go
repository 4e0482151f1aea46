package dto

import (
	"time"

	"github.com/shopspring/decimal"

	domacct "github.com/HectorLiceaga/erp-cooperativa/internal/domain/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// CreateAccountRequest body para POST /api/accounts.
type CreateAccountRequest struct {
	Code       string `json:"code" validate:"required,max=32"`
	Name       string `json:"name" validate:"required,max=120"`
	ParentCode string `json:"parent_code,omitempty"`
	Postable   bool   `json:"postable"`
}

// AccountNode cuenta del plan con sus hijas.
type AccountNode struct {
	Code     string        `json:"code"`
	Name     string        `json:"name"`
	Postable bool          `json:"postable"`
	Children []AccountNode `json:"children,omitempty"`
}

// RegisterEntryRequest body para POST /api/ledger-entries.
type RegisterEntryRequest struct {
	Date        string             `json:"date" validate:"required,datetime=2006-01-02"`
	Description string             `json:"description" validate:"required,max=255"`
	Lines       []EntryLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// EntryLineRequest imputación del asiento manual.
type EntryLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// LedgerEntryResponse asiento en respuestas.
type LedgerEntryResponse struct {
	ID          string               `json:"id"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
	Origin      string               `json:"origin"`
	InvoiceID   string               `json:"invoice_id,omitempty"`
	TotalDebit  decimal.Decimal      `json:"total_debit"`
	TotalCredit decimal.Decimal      `json:"total_credit"`
	Status      string               `json:"status"`
	Lines       []LedgerLineResponse `json:"lines"`
}

// LedgerLineResponse línea del asiento en respuestas.
type LedgerLineResponse struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// FromLedgerEntry convierte la entidad al DTO de respuesta.
func FromLedgerEntry(e *entity.LedgerEntry) LedgerEntryResponse {
	r := LedgerEntryResponse{
		ID:          e.ID,
		Date:        e.Date.Format(DateLayout),
		Description: e.Description,
		Origin:      e.Origin,
		InvoiceID:   e.InvoiceID,
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		Status:      e.Status,
		Lines:       make([]LedgerLineResponse, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		r.Lines = append(r.Lines, LedgerLineResponse{
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	return r
}

// MovementResponse movimiento de la cuenta corriente del socio.
type MovementResponse struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id,omitempty"`
	Date      string          `json:"date"`
	Kind      string          `json:"kind"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// MovementsPage página de la cuenta corriente con el saldo total.
type MovementsPage struct {
	Items   []MovementResponse `json:"items"`
	Balance decimal.Decimal    `json:"balance"`
	Page    PageResponse       `json:"page"`
}

// FromMovement convierte la entidad al DTO de respuesta.
func FromMovement(m *entity.AccountMovement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		InvoiceID: m.InvoiceID,
		Date:      m.Date.Format(DateLayout),
		Kind:      m.Kind,
		Concept:   m.Concept,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
	}
}

// FromChart arma el árbol de cuentas desde las raíces.
func FromChart(c *domacct.Chart) []AccountNode {
	var build func(accounts []*entity.Account) []AccountNode
	build = func(accounts []*entity.Account) []AccountNode {
		nodes := make([]AccountNode, 0, len(accounts))
		for _, a := range accounts {
			nodes = append(nodes, AccountNode{
				Code:     a.Code,
				Name:     a.Name,
				Postable: a.Postable,
				Children: build(c.Children(a.ID)),
			})
		}
		return nodes
	}
	return build(c.Roots())
}
