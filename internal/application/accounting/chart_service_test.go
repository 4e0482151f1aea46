package accounting_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/memory"
)

func newChartService(t *testing.T) *accounting.ChartService {
	t.Helper()
	store := memory.NewStore(time.Second)
	store.Seed()
	return accounting.NewChartService(store, store.Repos().Accounts)
}

func TestCreateAccount_BajoAgrupadora(t *testing.T) {
	svc := newChartService(t)
	ctx := context.Background()

	acc, err := svc.CreateAccount(ctx, accounting.CreateAccountInput{
		Code: "1.1.02", Name: "Deudores morosos", ParentCode: "1.1", Postable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-1.1", acc.ParentID)

	chart, err := svc.Tree(ctx)
	require.NoError(t, err)
	children := chart.Children("acc-1.1")
	require.Len(t, children, 2)
	assert.Equal(t, "1.1.01", children[0].Code)
	assert.Equal(t, "1.1.02", children[1].Code)
}

func TestCreateAccount_Rechazos(t *testing.T) {
	tests := []struct {
		name    string
		in      accounting.CreateAccountInput
		wantErr error
	}{
		{"código duplicado", accounting.CreateAccountInput{Code: "1.1.01", Name: "Otra"}, domain.ErrDuplicate},
		{"formato inválido", accounting.CreateAccountInput{Code: "1..2", Name: "Mala"}, domain.ErrValidation},
		{"sin nombre", accounting.CreateAccountInput{Code: "5"}, domain.ErrValidation},
		{"padre imputable", accounting.CreateAccountInput{Code: "1.1.01.1", Name: "Sub", ParentCode: "1.1.01"}, domain.ErrValidation},
		{"padre inexistente", accounting.CreateAccountInput{Code: "8.1", Name: "Huérfana", ParentCode: "8"}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newChartService(t)
			_, err := svc.CreateAccount(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	svc := newChartService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteAccount(ctx, "1.1"), domain.ErrConflict, "una agrupadora con hijos no se borra")
	assert.ErrorIs(t, svc.DeleteAccount(ctx, "9"), domain.ErrNotFound)
	for _, code := range []string{"1.1.01", "2.1.01", "4.1.01"} {
		assert.ErrorIs(t, svc.DeleteAccount(ctx, code), domain.ErrConflict, "%s está parametrizada", code)
	}

	_, err := svc.CreateAccount(ctx, accounting.CreateAccountInput{Code: "5", Name: "Transitoria"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx, "5"))

	chart, err := svc.Tree(ctx)
	require.NoError(t, err)
	_, ok := chart.ByCode("5")
	assert.False(t, ok)
}
