package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/memory"
)

func TestRunBilling_ErrorDescartaEscrituras(t *testing.T) {
	store := memory.NewStore(time.Second)
	fx := store.Seed()
	ctx := context.Background()
	boom := errors.New("abortar")

	err := store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		r := &entity.MeterReading{ID: "r-tx", ContractID: fx.ContractID, PeriodDate: memory.SeedDate, TakenAt: memory.SeedDate}
		require.NoError(t, repos.Readings.Create(ctx, r))

		// visible dentro de la propia transacción
		got, err := repos.Readings.GetByID(ctx, "r-tx")
		require.NoError(t, err)
		require.NotNil(t, got)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Repos().Readings.GetByID(ctx, "r-tx")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunBilling_LockOcupadoVenceConConcurrencyError(t *testing.T) {
	store := memory.NewStore(30 * time.Millisecond)
	fx := store.Seed()
	ctx := context.Background()
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
			_, err := repos.Sequences.LockForUpdate(ctx, fx.PointOfSaleID, fx.DocTypeB)
			close(held)
			<-release
			return err
		})
	}()
	<-held

	err := store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		_, err := repos.Sequences.LockForUpdate(ctx, fx.PointOfSaleID, fx.DocTypeB)
		return err
	})
	require.ErrorIs(t, err, domain.ErrConcurrency)
	var ce *domain.ConcurrencyError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Resource, fx.PointOfSaleID)

	// otra clave no está bloqueada
	err = store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		_, err := repos.Sequences.LockForUpdate(ctx, fx.PointOfSaleID, fx.DocTypeA)
		return err
	})
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	// el lock se libera al terminar la transacción
	err = store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		_, err := repos.Sequences.LockForUpdate(ctx, fx.PointOfSaleID, fx.DocTypeB)
		return err
	})
	assert.NoError(t, err)
}

func TestMarkBilled_DosVecesEsConflicto(t *testing.T) {
	store := memory.NewStore(time.Second)
	fx := store.Seed()
	ctx := context.Background()
	store.AddReading("r-1", fx.ContractID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 0, 10)
	repos := store.Repos()

	require.NoError(t, repos.Readings.MarkBilled(ctx, []string{"r-1"}))
	err := repos.Readings.MarkBilled(ctx, []string{"r-1"})
	assert.True(t, domain.IsRetryable(err))

	err = repos.Readings.MarkBilled(ctx, []string{"no-existe"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvoices_NumeroDuplicado(t *testing.T) {
	store := memory.NewStore(time.Second)
	fx := store.Seed()
	ctx := context.Background()
	one := int64(1)
	repos := store.Repos()

	require.NoError(t, repos.Invoices.Create(ctx, &entity.Invoice{
		ID: "a", PointOfSaleID: fx.PointOfSaleID, DocumentTypeID: fx.DocTypeB, DocumentNumber: &one,
	}))
	err := repos.Invoices.Create(ctx, &entity.Invoice{
		ID: "b", PointOfSaleID: fx.PointOfSaleID, DocumentTypeID: fx.DocTypeB, DocumentNumber: &one,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, repos.Invoices.Create(ctx, &entity.Invoice{
		ID: "c", PointOfSaleID: fx.PointOfSaleID, DocumentTypeID: fx.DocTypeA, DocumentNumber: &one,
	}), "el mismo número en otro tipo es válido")
}

func TestSequences_UpdateRegresivoEsConflicto(t *testing.T) {
	store := memory.NewStore(time.Second)
	fx := store.Seed()
	ctx := context.Background()
	repos := store.Repos()

	require.NoError(t, repos.Sequences.Update(ctx, &entity.DocumentSequence{
		PointOfSaleID: fx.PointOfSaleID, DocumentTypeID: fx.DocTypeB, LastNumber: 3,
	}))
	err := repos.Sequences.Update(ctx, &entity.DocumentSequence{
		PointOfSaleID: fx.PointOfSaleID, DocumentTypeID: fx.DocTypeB, LastNumber: 3,
	})
	assert.ErrorIs(t, err, domain.ErrConcurrency)

	seq, err := repos.Sequences.LockForUpdate(ctx, fx.PointOfSaleID, fx.DocTypeB)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq.LastNumber)
}
