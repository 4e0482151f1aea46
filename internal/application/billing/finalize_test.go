package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Emisión
// ──────────────────────────────────────────────────────────────────────────────

func TestComposeAndFinalize_NumeraContabilizaYMarcaLectura(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)

	f, err := h.finalize.ComposeAndFinalize(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)

	require.NotNil(t, f.Invoice.DocumentNumber)
	assert.Equal(t, int64(1), *f.Invoice.DocumentNumber)
	assert.Equal(t, entity.InvoiceStatusIssuedPending, f.Invoice.Status)

	require.NotNil(t, f.Entry)
	assert.Equal(t, f.Invoice.ID, f.Entry.InvoiceID)
	assert.Equal(t, "10285.00", f.Entry.TotalDebit.StringFixed(2))
	assert.True(t, f.Entry.TotalDebit.Equal(f.Entry.TotalCredit))
	assert.Equal(t, "Factura B 0001-00000001 | Socio: Socio cus-0001", f.Entry.Description)

	require.NotNil(t, f.Movement)
	assert.Equal(t, entity.MovementDebit, f.Movement.Kind)
	assert.Equal(t, "Factura B 0001-00000001", f.Movement.Concept)
	assert.True(t, f.Movement.Amount.Equal(f.Invoice.TotalAmount))

	stored, err := h.finalize.GetInvoice(ctx, f.Invoice.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)

	reading, err := h.store.Repos().Readings.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, reading.Billed)

	entry, err := h.store.Repos().Ledger.GetByInvoiceID(ctx, f.Invoice.ID)
	require.NoError(t, err)
	assert.NotNil(t, entry, "toda factura emitida tiene exactamente un asiento")
}

func TestFinalizeInvoice_NoModificaLaFacturaRecibida(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)

	inv, err := h.finalize.Compose(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	_, err = h.finalize.FinalizeInvoice(ctx, inv, h.fx.PointOfSaleID)
	require.NoError(t, err)

	assert.Nil(t, inv.DocumentNumber)
	assert.Equal(t, entity.InvoiceStatusComposed, inv.Status)
}

func TestFinalizeInvoice_LecturaYaFacturada(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)

	_, err := h.finalize.ComposeAndFinalize(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)

	_, err = h.finalize.ComposeAndFinalize(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFinalizeInvoice_LecturaFacturadaEnParalelo_ConcurrencyError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)

	first, err := h.finalize.Compose(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	second, err := h.finalize.Compose(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)

	_, err = h.finalize.FinalizeInvoice(ctx, first, h.fx.PointOfSaleID)
	require.NoError(t, err)
	_, err = h.finalize.FinalizeInvoice(ctx, second, h.fx.PointOfSaleID)
	assert.True(t, domain.IsRetryable(err), "la segunda emisión de la misma lectura se revierte: %v", err)

	next := h.store.AddReading("r-mar", h.fx.ContractID, month(time.March), 1150, 1200)
	f, err := h.finalize.ComposeAndFinalize(ctx, next.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *f.Invoice.DocumentNumber, "la emisión revertida no consumió número")
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturas por período: el consumo se cobra una sola vez
// ──────────────────────────────────────────────────────────────────────────────

func TestFinalizeInvoice_PeriodoMarcaTodasLasLecturasCubiertas(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.AddReading("r-jan", h.fx.ContractID, month(time.January), 0, 1000)
	h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)
	h.store.AddReading("r-mar", h.fx.ContractID, month(time.March), 1150, 1300)

	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	inv, err := h.finalize.ComposeForPeriod(ctx, h.fx.SupplyID, from, to, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	assert.Equal(t, "300", inv.ConsumptionUnits.String())
	assert.Equal(t, "r-mar", inv.SourceReadingID)
	assert.Equal(t, []string{"r-feb", "r-mar"}, inv.CoveredReadingIDs)

	_, err = h.finalize.FinalizeInvoice(ctx, inv, h.fx.PointOfSaleID)
	require.NoError(t, err)

	for id, billed := range map[string]bool{"r-jan": false, "r-feb": true, "r-mar": true} {
		m, err := h.store.Repos().Readings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, billed, m.Billed, id)
	}

	_, err = h.finalize.ComposeAndFinalize(ctx, "r-feb", time.Time{}, h.fx.PointOfSaleID)
	assert.ErrorIs(t, err, domain.ErrValidation, "el consumo de febrero ya está en la factura del período")

	max, err := h.store.Repos().Invoices.MaxNumber(ctx, h.fx.PointOfSaleID, h.fx.DocTypeB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), max)
}

func TestComposeForPeriod_LecturaIntermediaYaFacturada(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.AddReading("r-jan", h.fx.ContractID, month(time.January), 0, 1000)
	h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)
	h.store.AddReading("r-mar", h.fx.ContractID, month(time.March), 1150, 1300)

	_, err := h.finalize.ComposeAndFinalize(ctx, "r-feb", time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)

	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	_, err = h.finalize.ComposeForPeriod(ctx, h.fx.SupplyID, from, to, time.Time{}, h.fx.PointOfSaleID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	mar, err := h.store.Repos().Readings.GetByID(ctx, "r-mar")
	require.NoError(t, err)
	assert.False(t, mar.Billed)
}

func TestComposeForPeriod_SinLecturaInicialSumaLasCubiertas(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)
	h.store.AddReading("r-mar", h.fx.ContractID, month(time.March), 1150, 1300)

	inv, err := h.finalize.ComposeForPeriod(ctx, h.fx.SupplyID, month(time.January), time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	assert.Equal(t, "300", inv.ConsumptionUnits.String())
	assert.Equal(t, []string{"r-feb", "r-mar"}, inv.CoveredReadingIDs)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad: ningún fallo deja número consumido ni factura sin asiento
// ──────────────────────────────────────────────────────────────────────────────

func TestFinalizeInvoice_FalloEnCualquierPasoNoConsumeNumero(t *testing.T) {
	for _, op := range []string{"invoices.create", "ledger.create", "movements.create", "sequences.update", "readings.mark_billed"} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			r := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)

			boom := errors.New("falla inyectada")
			h.store.FailOn = func(o string) error {
				if o == op {
					return boom
				}
				return nil
			}
			inv, err := h.finalize.Compose(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
			require.NoError(t, err)
			_, err = h.finalize.FinalizeInvoice(ctx, inv, h.fx.PointOfSaleID)
			require.ErrorIs(t, err, boom)

			stored, err := h.store.Repos().Invoices.GetByID(ctx, inv.ID)
			require.NoError(t, err)
			assert.Nil(t, stored, "la factura no quedó persistida")
			entry, err := h.store.Repos().Ledger.GetByInvoiceID(ctx, inv.ID)
			require.NoError(t, err)
			assert.Nil(t, entry, "el asiento no quedó persistido")
			st, err := h.finalize.Statement(ctx, h.fx.CustomerID)
			require.NoError(t, err)
			assert.Empty(t, st.Movements)

			h.store.FailOn = nil
			f, err := h.finalize.FinalizeInvoice(ctx, inv, h.fx.PointOfSaleID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), *f.Invoice.DocumentNumber)
		})
	}
}

func TestFinalizeInvoice_SinParametrizacionContable_ConfigErrorSinNumero(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)
	require.NoError(t, h.store.Repos().Parameters.Set(ctx, &entity.AccountingParameter{
		Key: entity.ParamAccountOutputTax, AccountCode: "9.9.99",
	}))

	_, err := h.finalize.ComposeAndFinalize(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
	require.ErrorIs(t, err, domain.ErrConfig)

	max, err := h.store.Repos().Invoices.MaxNumber(ctx, h.fx.PointOfSaleID, h.fx.DocTypeB)
	require.NoError(t, err)
	assert.Zero(t, max)
}

// ──────────────────────────────────────────────────────────────────────────────
// Numeración concurrente
// ──────────────────────────────────────────────────────────────────────────────

func TestFinalizeInvoice_ConcurrentesNumeranSinHuecosNiRepetidos(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const n = 20

	invoices := make([]*entity.Invoice, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%02d", i)
		h.store.AddElectricityContract("ctr-"+id, "sup-"+id, h.fx.CustomerID, h.fx.CategoryID)
		r := h.store.AddReading("r-"+id, "ctr-"+id, month(time.February), 0, int64(10+i))
		inv, err := h.finalize.Compose(ctx, r.ID, time.Time{}, h.fx.PointOfSaleID)
		require.NoError(t, err)
		invoices[i] = inv
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int64
		errs    []error
	)
	for _, inv := range invoices {
		wg.Add(1)
		go func(inv *entity.Invoice) {
			defer wg.Done()
			f, err := h.finalize.FinalizeInvoice(ctx, inv, h.fx.PointOfSaleID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, *f.Invoice.DocumentNumber)
		}(inv)
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, num := range numbers {
		assert.Equal(t, int64(i+1), num)
	}
}

func TestSequencer_NumeracionIndependientePorTipo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.AddCustomer("cus-ri", entity.TaxStatusRegistered)
	h.store.AddElectricityContract("ctr-ri", "sup-ri", "cus-ri", h.fx.CategoryID)
	b := h.store.AddReading("r-b", h.fx.ContractID, month(time.February), 0, 10)
	a := h.store.AddReading("r-a", "ctr-ri", month(time.February), 0, 10)

	fb, err := h.finalize.ComposeAndFinalize(ctx, b.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	fa, err := h.finalize.ComposeAndFinalize(ctx, a.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), *fb.Invoice.DocumentNumber)
	assert.Equal(t, int64(1), *fa.Invoice.DocumentNumber)
	assert.Equal(t, "Factura A 0001-00000001", fa.Movement.Concept)
}

func TestSequencer_ConciliaConElMayorPersistido(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seven := int64(7)
	require.NoError(t, h.store.Repos().Invoices.Create(ctx, &entity.Invoice{
		ID: "legacy", PointOfSaleID: h.fx.PointOfSaleID, DocumentTypeID: h.fx.DocTypeB, DocumentNumber: &seven,
	}))

	err := h.store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		next, err := seqNext(ctx, repos, h)
		require.NoError(t, err)
		assert.Equal(t, int64(8), next)
		return nil
	})
	require.NoError(t, err)
}

func TestSequencer_LockOcupado_ConcurrencyError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = h.store.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
			_, err := seqNext(ctx, repos, h)
			close(held)
			<-done
			return err
		})
	}()
	<-held
	defer close(done)

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := h.store.RunBilling(shortCtx, func(ctx context.Context, repos repository.Repos) error {
		_, err := seqNext(ctx, repos, h)
		return err
	})
	assert.True(t, domain.IsRetryable(err), "el lock ocupado se informa como reintentable: %v", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cuenta corriente
// ──────────────────────────────────────────────────────────────────────────────

func TestStatement_SaldoDeLaCuentaCorriente(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	feb := h.store.AddReading("r-feb", h.fx.ContractID, month(time.February), 1000, 1150)
	mar := h.store.AddReading("r-mar", h.fx.ContractID, month(time.March), 1150, 1300)

	_, err := h.finalize.ComposeAndFinalize(ctx, feb.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)
	_, err = h.finalize.ComposeAndFinalize(ctx, mar.ID, time.Time{}, h.fx.PointOfSaleID)
	require.NoError(t, err)

	st, err := h.finalize.Statement(ctx, h.fx.CustomerID)
	require.NoError(t, err)
	assert.Len(t, st.Movements, 2)
	assert.Equal(t, "20570.00", st.Balance.StringFixed(2))

	_, err = h.finalize.Statement(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
