package reading_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/reading"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/memory"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/config"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

func month(m time.Month) time.Time {
	return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC)
}

func value(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func newService(t *testing.T, policy string) (*reading.Service, *memory.Store, memory.Fixture) {
	t.Helper()
	store := memory.NewStore(time.Second)
	fx := store.Seed()
	svc := reading.NewService(store, store.Repos().Readings, policy, logger.Nop())
	return svc, store, fx
}

func input(contractID string, period time.Time, current int64) reading.RecordInput {
	return reading.RecordInput{
		ContractID:   contractID,
		TakenAt:      period.AddDate(0, 0, -1),
		PeriodDate:   period,
		CurrentValue: value(current),
		Kind:         entity.ReadingNormal,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordReading_PrimeraLecturaPoliticaCero(t *testing.T) {
	svc, _, fx := newService(t, config.FirstReadingZero)

	m, err := svc.RecordReading(context.Background(), input(fx.ContractID, month(time.February), 1150))
	require.NoError(t, err)

	assert.True(t, m.PriorValue.IsZero())
	assert.Equal(t, "1150", m.ConsumptionUnits.String())
	assert.False(t, m.Billed, "una lectura nueva nunca está facturada")
}

func TestRecordReading_PrimeraLecturaPoliticaActual(t *testing.T) {
	svc, _, fx := newService(t, config.FirstReadingCurrent)

	m, err := svc.RecordReading(context.Background(), input(fx.ContractID, month(time.February), 1150))
	require.NoError(t, err)

	assert.Equal(t, "1150", m.PriorValue.String())
	assert.True(t, m.ConsumptionUnits.IsZero())
}

func TestRecordReading_ConsumoDesdeLecturaAnterior(t *testing.T) {
	svc, _, fx := newService(t, config.FirstReadingZero)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.January), 1000))
	require.NoError(t, err)
	m, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.February), 1150))
	require.NoError(t, err)

	assert.Equal(t, "1000", m.PriorValue.String())
	assert.Equal(t, "150", m.ConsumptionUnits.String())
}

func TestRecordReading_ValorMenorAlAnterior_SequenceError(t *testing.T) {
	svc, store, fx := newService(t, config.FirstReadingZero)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.February), 1150))
	require.NoError(t, err)

	_, err = svc.RecordReading(ctx, input(fx.ContractID, month(time.March), 900))
	var se *domain.SequenceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, fx.ContractID, se.ContractID)

	latest, err := store.Repos().Readings.Latest(ctx, fx.ContractID)
	require.NoError(t, err)
	assert.Equal(t, "1150", latest.CurrentValue.String(), "la lectura rechazada no se persiste")
}

func TestRecordReading_PeriodoNoPosterior_SequenceError(t *testing.T) {
	svc, _, fx := newService(t, config.FirstReadingZero)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.February), 1150))
	require.NoError(t, err)

	_, err = svc.RecordReading(ctx, input(fx.ContractID, month(time.February), 1200))
	assert.ErrorIs(t, err, domain.ErrSequence, "mismo período")
	_, err = svc.RecordReading(ctx, input(fx.ContractID, month(time.January), 1200))
	assert.ErrorIs(t, err, domain.ErrSequence, "período anterior")
}

func TestRecordReading_ValorIgualAlAnteriorEsConsumoCero(t *testing.T) {
	svc, _, fx := newService(t, config.FirstReadingZero)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.February), 1150))
	require.NoError(t, err)
	m, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.March), 1150))
	require.NoError(t, err)
	assert.True(t, m.ConsumptionUnits.IsZero())
}

func TestRecordReading_Validaciones(t *testing.T) {
	svc, store, fx := newService(t, config.FirstReadingZero)
	ctx := context.Background()

	missing := input(fx.ContractID, month(time.February), 1)
	missing.CurrentValue = nil
	_, err := svc.RecordReading(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrValidation, "valor ausente no es lo mismo que 0")

	negative := input(fx.ContractID, month(time.February), -1)
	_, err = svc.RecordReading(ctx, negative)
	assert.ErrorIs(t, err, domain.ErrValidation)

	noPeriod := input(fx.ContractID, time.Time{}, 1)
	noPeriod.TakenAt = month(time.February)
	_, err = svc.RecordReading(ctx, noPeriod)
	assert.ErrorIs(t, err, domain.ErrValidation)

	badKind := input(fx.ContractID, month(time.February), 1)
	badKind.Kind = "MANUAL"
	_, err = svc.RecordReading(ctx, badKind)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.RecordReading(ctx, input("no-existe", month(time.February), 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Repos().Contracts.Create(ctx, &entity.ServiceContract{
		ID: "ctr-net", SupplyID: fx.SupplyID, CustomerID: fx.CustomerID,
		Kind: entity.ServiceInternet, Status: entity.ContractActive, StartDate: memory.SeedDate,
	}))
	_, err = svc.RecordReading(ctx, input("ctr-net", month(time.February), 1))
	assert.ErrorIs(t, err, domain.ErrValidation, "servicio sin medidor")
}

// ──────────────────────────────────────────────────────────────────────────────
// Búsquedas
// ──────────────────────────────────────────────────────────────────────────────

func TestFindLastBeforeYFirstAfter(t *testing.T) {
	svc, _, fx := newService(t, config.FirstReadingZero)
	ctx := context.Background()
	for i, v := range []int64{1000, 1150, 1300} {
		_, err := svc.RecordReading(ctx, input(fx.ContractID, month(time.Month(i+1)), v))
		require.NoError(t, err)
	}

	before, err := svc.FindLastBefore(ctx, fx.ContractID, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, before)
	assert.Equal(t, "1150", before.CurrentValue.String())

	before, err = svc.FindLastBefore(ctx, fx.ContractID, month(time.February))
	require.NoError(t, err)
	assert.Equal(t, "1000", before.CurrentValue.String(), "estrictamente anterior")

	after, err := svc.FindFirstAfter(ctx, fx.ContractID, month(time.February))
	require.NoError(t, err)
	assert.Equal(t, "1300", after.CurrentValue.String(), "estrictamente posterior")

	none, err := svc.FindFirstAfter(ctx, fx.ContractID, month(time.March))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.FindLastBefore(ctx, "", month(time.March))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
