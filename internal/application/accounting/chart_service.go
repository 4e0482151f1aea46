package accounting

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	domacct "github.com/HectorLiceaga/erp-cooperativa/internal/domain/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// CreateAccountInput datos de una cuenta nueva.
type CreateAccountInput struct {
	Code       string
	Name       string
	ParentCode string
	Postable   bool
}

// ChartService mantiene el plan de cuentas.
type ChartService struct {
	tx       ports.TxRunner
	accounts repository.AccountRepository
	now      ports.Clock
}

// NewChartService construye el servicio.
func NewChartService(tx ports.TxRunner, accounts repository.AccountRepository) *ChartService {
	return &ChartService{tx: tx, accounts: accounts, now: ports.SystemClock}
}

// Tree devuelve el plan de cuentas completo como arena.
func (s *ChartService) Tree(ctx context.Context) (*domacct.Chart, error) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar cuentas: %w", err)
	}
	return domacct.NewChart(list), nil
}

// CreateAccount valida formato, unicidad y padre agrupador antes de persistir.
func (s *ChartService) CreateAccount(ctx context.Context, in CreateAccountInput) (*entity.Account, error) {
	var acc *entity.Account
	err := s.tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		list, err := repos.Accounts.List(ctx)
		if err != nil {
			return fmt.Errorf("listar cuentas: %w", err)
		}
		chart := domacct.NewChart(list)

		acc = &entity.Account{
			ID:        uuid.New().String(),
			Code:      in.Code,
			Name:      in.Name,
			Postable:  in.Postable,
			CreatedAt: s.now(),
		}
		if in.ParentCode != "" {
			parent, ok := chart.ByCode(in.ParentCode)
			if !ok {
				return domain.NewNotFound("cuenta padre", in.ParentCode)
			}
			acc.ParentID = parent.ID
		}
		if err := chart.CheckNew(acc); err != nil {
			return err
		}
		return repos.Accounts.Create(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// DeleteAccount elimina una cuenta sin subcuentas que no esté vinculada a la parametrización contable.
func (s *ChartService) DeleteAccount(ctx context.Context, code string) error {
	return s.tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		list, err := repos.Accounts.List(ctx)
		if err != nil {
			return fmt.Errorf("listar cuentas: %w", err)
		}
		chart := domacct.NewChart(list)
		acc, ok := chart.ByCode(code)
		if !ok {
			return domain.NewNotFound("cuenta", code)
		}
		if err := chart.CheckDelete(acc.ID); err != nil {
			return err
		}
		for _, key := range entity.AccountingParameterKeys {
			bound, err := repos.Parameters.AccountCode(ctx, key)
			if err != nil {
				return fmt.Errorf("obtener parámetro %s: %w", key, err)
			}
			if bound == code {
				return fmt.Errorf("%w: la cuenta %s está vinculada a %s", domain.ErrConflict, code, key)
			}
		}
		return repos.Accounts.Delete(ctx, acc.ID)
	})
}
