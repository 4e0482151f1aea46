package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// Statement cuenta corriente del socio: movimientos en orden y saldo (DEBE - HABER).
type Statement struct {
	CustomerID string
	Movements  []*entity.AccountMovement
	Balance    decimal.Decimal
}

// Statement devuelve la cuenta corriente del socio.
func (uc *FinalizeUseCase) Statement(ctx context.Context, customerID string) (*Statement, error) {
	customer, err := uc.repos.Customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("obtener socio: %w", err)
	}
	if customer == nil {
		return nil, domain.NewNotFound("socio", customerID)
	}
	movs, err := uc.repos.Movements.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	st := &Statement{CustomerID: customerID, Movements: movs, Balance: decimal.Zero}
	for _, m := range movs {
		switch m.Kind {
		case entity.MovementDebit:
			st.Balance = st.Balance.Add(m.Amount)
		case entity.MovementCredit:
			st.Balance = st.Balance.Sub(m.Amount)
		}
	}
	return st, nil
}

// ComposeForPeriod arma la factura de un suministro entre dos fechas sin persistir nada.
func (uc *FinalizeUseCase) ComposeForPeriod(ctx context.Context, supplyID string, from, to, dueDate time.Time, pointOfSaleID string) (*entity.Invoice, error) {
	pos, err := uc.pointOfSale(ctx, uc.repos, pointOfSaleID)
	if err != nil {
		return nil, err
	}
	return uc.composer.ComposeInvoiceForPeriod(ctx, supplyID, from, to, dueDate, pos)
}
