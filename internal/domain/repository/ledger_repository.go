package repository

import (
	"context"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// AccountRepository define el puerto del plan de cuentas.
type AccountRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Account, error)
	List(ctx context.Context) ([]*entity.Account, error)
	Create(ctx context.Context, a *entity.Account) error
	Delete(ctx context.Context, id string) error
}

// ParameterRepository define el puerto de la parametrización contable.
type ParameterRepository interface {
	// AccountCode devuelve el código vinculado a la clave o "" si no existe.
	AccountCode(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, p *entity.AccountingParameter) error
}

// LedgerRepository define el puerto de persistencia de asientos.
type LedgerRepository interface {
	Create(ctx context.Context, e *entity.LedgerEntry) error
	GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.LedgerEntry, error)
}

// MovementRepository define el puerto de la cuenta corriente del socio.
type MovementRepository interface {
	Create(ctx context.Context, m *entity.AccountMovement) error
	ListByCustomer(ctx context.Context, customerID string) ([]*entity.AccountMovement, error)
}

// BillingRunRepository define el puerto de las corridas de facturación masiva.
type BillingRunRepository interface {
	Create(ctx context.Context, r *entity.BillingRun) error
	Update(ctx context.Context, r *entity.BillingRun) error
	GetByID(ctx context.Context, id string) (*entity.BillingRun, error)
}
