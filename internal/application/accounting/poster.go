// Package accounting implementa la contabilización de facturas, los asientos manuales
// y el mantenimiento del plan de cuentas.
package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	domacct "github.com/HectorLiceaga/erp-cooperativa/internal/domain/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// Poster arma y persiste asientos balanceados.
type Poster struct {
	tx  ports.TxRunner
	log *logger.Logger
	now ports.Clock
}

// NewPoster construye el contabilizador. tx solo se usa para asientos manuales.
func NewPoster(tx ports.TxRunner, log *logger.Logger) *Poster {
	return &Poster{tx: tx, log: log, now: ports.SystemClock}
}

// PostInvoice contabiliza una factura numerada: DEBE deudores por el total,
// HABER ventas por el neto y HABER IVA débito por el impuesto.
// Debe ejecutarse en la misma transacción que la numeración.
func (p *Poster) PostInvoice(ctx context.Context, repos repository.Repos, inv *entity.Invoice) (*entity.LedgerEntry, error) {
	if inv == nil || !inv.Numbered() {
		return nil, domain.NewValidation("invoice", "solo se contabilizan facturas numeradas")
	}

	receivables, err := p.boundAccount(ctx, repos, entity.ParamAccountReceivables)
	if err != nil {
		return nil, err
	}
	revenue, err := p.boundAccount(ctx, repos, entity.ParamAccountEnergyRevenue)
	if err != nil {
		return nil, err
	}
	outputTax, err := p.boundAccount(ctx, repos, entity.ParamAccountOutputTax)
	if err != nil {
		return nil, err
	}

	desc, err := invoiceDescription(ctx, repos, inv)
	if err != nil {
		return nil, err
	}

	entry := &entity.LedgerEntry{
		ID:          uuid.New().String(),
		Date:        inv.IssueDate,
		Description: desc,
		Origin:      entity.EntryOriginInvoicing,
		InvoiceID:   inv.ID,
		Lines: []*entity.LedgerLine{
			{AccountID: receivables.ID, AccountCode: receivables.Code, Description: "Deudores por venta", Debit: inv.TotalAmount, Credit: decimal.Zero},
			{AccountID: revenue.ID, AccountCode: revenue.Code, Description: "Venta neta de servicios", Debit: decimal.Zero, Credit: inv.NetAmount},
			{AccountID: outputTax.ID, AccountCode: outputTax.Code, Description: "IVA débito fiscal", Debit: decimal.Zero, Credit: inv.TaxAmount},
		},
	}
	if err := p.persist(ctx, repos, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// LineInput imputación de un asiento manual, identificada por código de cuenta.
type LineInput struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// RegisterInput asiento manual.
type RegisterInput struct {
	Date        time.Time
	Description string
	Lines       []LineInput
}

// Register valida y persiste un asiento manual en su propia transacción.
func (p *Poster) Register(ctx context.Context, in RegisterInput) (*entity.LedgerEntry, error) {
	if in.Description == "" {
		return nil, domain.NewValidation("description", "requerida")
	}
	if len(in.Lines) == 0 {
		return nil, domain.NewValidation("lines", "el asiento necesita al menos una línea")
	}
	date := in.Date
	if date.IsZero() {
		date = p.now()
	}

	var entry *entity.LedgerEntry
	err := p.tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		entry = &entity.LedgerEntry{
			ID:          uuid.New().String(),
			Date:        date,
			Description: in.Description,
			Origin:      entity.EntryOriginManual,
		}
		for i, l := range in.Lines {
			acc, err := repos.Accounts.GetByCode(ctx, l.AccountCode)
			if err != nil {
				return fmt.Errorf("obtener cuenta: %w", err)
			}
			if acc == nil {
				return domain.NewNotFound("cuenta", l.AccountCode)
			}
			if !acc.Postable {
				return domain.NewValidation(fmt.Sprintf("lines[%d].accountCode", i),
					fmt.Sprintf("la cuenta %s no es imputable", acc.Code))
			}
			entry.Lines = append(entry.Lines, &entity.LedgerLine{
				AccountID:   acc.ID,
				AccountCode: acc.Code,
				Description: l.Description,
				Debit:       l.Debit,
				Credit:      l.Credit,
			})
		}
		return p.persist(ctx, repos, entry)
	})
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("entry_id", entry.ID).Str("total", entry.TotalDebit.StringFixed(2)).Msg("asiento manual registrado")
	return entry, nil
}

// persist descarta líneas en cero, valida importes y balance, y guarda el asiento confirmado.
func (p *Poster) persist(ctx context.Context, repos repository.Repos, entry *entity.LedgerEntry) error {
	lines := make([]*entity.LedgerLine, 0, len(entry.Lines))
	for i, l := range entry.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return domain.NewValidation(fmt.Sprintf("lines[%d]", i), "los importes no pueden ser negativos")
		}
		if l.Debit.IsZero() && l.Credit.IsZero() {
			continue
		}
		if !l.Debit.IsZero() && !l.Credit.IsZero() {
			return domain.NewValidation(fmt.Sprintf("lines[%d]", i), "una línea no puede tener debe y haber")
		}
		l.ID = uuid.New().String()
		l.EntryID = entry.ID
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return domain.NewValidation("lines", "el asiento no tiene importes")
	}

	debit, credit, err := domacct.Balance(lines)
	if err != nil {
		p.log.Error().Err(err).Str("entry_id", entry.ID).Str("invoice_id", entry.InvoiceID).Msg("asiento desbalanceado")
		return err
	}
	entry.Lines = lines
	entry.TotalDebit = debit
	entry.TotalCredit = credit
	entry.Status = entity.EntryStatusConfirmed
	entry.CreatedAt = p.now()

	if err := repos.Ledger.Create(ctx, entry); err != nil {
		return fmt.Errorf("persistir asiento: %w", err)
	}
	return nil
}

// boundAccount resuelve la cuenta imputable vinculada a una clave de parametrización.
// La falta de vínculo es un defecto de despliegue y se registra como error.
func (p *Poster) boundAccount(ctx context.Context, repos repository.Repos, key string) (*entity.Account, error) {
	code, err := repos.Parameters.AccountCode(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("obtener parámetro %s: %w", key, err)
	}
	if code == "" {
		return nil, p.configError(key, "no hay cuenta vinculada")
	}
	acc, err := repos.Accounts.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("obtener cuenta %s: %w", code, err)
	}
	if acc == nil {
		return nil, p.configError(key, fmt.Sprintf("la cuenta %s no existe", code))
	}
	if !acc.Postable {
		return nil, p.configError(key, fmt.Sprintf("la cuenta %s no es imputable", code))
	}
	return acc, nil
}

func (p *Poster) configError(key, message string) error {
	err := domain.NewConfig(key, message)
	p.log.Error().Err(err).Str("key", key).Msg("parametrización contable incompleta")
	return err
}

// invoiceDescription arma "Factura B 0001-00000001 | Socio: Nombre".
func invoiceDescription(ctx context.Context, repos repository.Repos, inv *entity.Invoice) (string, error) {
	docType, err := repos.DocumentTypes.GetByID(ctx, inv.DocumentTypeID)
	if err != nil {
		return "", fmt.Errorf("obtener tipo de comprobante: %w", err)
	}
	pos, err := repos.PointsOfSale.GetByID(ctx, inv.PointOfSaleID)
	if err != nil {
		return "", fmt.Errorf("obtener punto de venta: %w", err)
	}
	customer, err := repos.Customers.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return "", fmt.Errorf("obtener socio: %w", err)
	}
	if docType == nil || pos == nil || customer == nil {
		return "", domain.NewNotFound("referencia de factura", inv.ID)
	}
	return fmt.Sprintf("%s %s %s | Socio: %s", docType.Description, docType.Letter,
		entity.FormatNumber(pos.Number, *inv.DocumentNumber), customer.Name), nil
}
