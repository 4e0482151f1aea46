package tariff_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newResolver(t *testing.T) (*tariff.Resolver, *memory.Store, memory.Fixture) {
	t.Helper()
	store := memory.NewStore(time.Second)
	fx := store.Seed()
	return tariff.NewResolver(store.Repos().Tariffs, store), store, fx
}

func TestResolveEffectivePrices_DevuelveVigentes(t *testing.T) {
	r, _, fx := newResolver(t)

	prices, err := r.ResolveEffectivePrices(context.Background(), fx.CategoryID, day(2024, 2, 1))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, entity.ConceptEnergy, prices[0].ConceptCode)
	assert.Equal(t, entity.ConceptFixedCharge, prices[1].ConceptCode)

	prices, err = r.ResolveEffectivePrices(context.Background(), fx.CategoryID, day(2023, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, prices, "antes de la vigencia no hay precios")
}

func TestResolveEffectivePrices_Validaciones(t *testing.T) {
	r, _, fx := newResolver(t)

	_, err := r.ResolveEffectivePrices(context.Background(), "", day(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = r.ResolveEffectivePrices(context.Background(), fx.CategoryID, time.Time{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAppendPrice_CierraElVigenteYNoModificaElResto(t *testing.T) {
	r, store, fx := newResolver(t)
	ctx := context.Background()

	next := &entity.TariffPrice{
		CategoryID: fx.CategoryID,
		ConceptID:  "con-energy",
		ValidFrom:  day(2024, 3, 1),
		UnitPrice:  decimal.NewFromInt(55),
	}
	require.NoError(t, r.AppendPrice(ctx, next))

	feb, err := r.Resolve(ctx, fx.CategoryID, day(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, "50", feb.Concept(entity.ConceptEnergy)[0].UnitPrice.String())

	mar, err := r.Resolve(ctx, fx.CategoryID, day(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, mar.Concept(entity.ConceptEnergy), 1)
	assert.Equal(t, "55", mar.Concept(entity.ConceptEnergy)[0].UnitPrice.String())
	assert.Len(t, mar.Concept(entity.ConceptFixedCharge), 1, "el cargo fijo sigue vigente")

	history, err := store.Repos().Tariffs.ListByConcept(ctx, fx.CategoryID, "con-energy")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].ValidTo)
	assert.True(t, history[0].ValidTo.Equal(day(2024, 3, 1)))
	assert.Equal(t, "50", history[0].UnitPrice.String(), "el precio anterior conserva su importe")
}

func TestAppendPrice_SuperposicionRechazada(t *testing.T) {
	r, _, fx := newResolver(t)
	ctx := context.Background()

	apr := day(2024, 4, 1)
	require.NoError(t, r.AppendPrice(ctx, &entity.TariffPrice{
		CategoryID: fx.CategoryID, ConceptID: "con-energy",
		ValidFrom: day(2024, 3, 1), ValidTo: &apr, UnitPrice: decimal.NewFromInt(55),
	}))

	err := r.AppendPrice(ctx, &entity.TariffPrice{
		CategoryID: fx.CategoryID, ConceptID: "con-energy",
		ValidFrom: day(2024, 3, 15), UnitPrice: decimal.NewFromInt(60),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAppendPrice_EntradaInvalida(t *testing.T) {
	r, _, fx := newResolver(t)
	ctx := context.Background()

	jan := day(2024, 1, 1)
	cases := map[string]*entity.TariffPrice{
		"sin categoría":     {ConceptID: "con-energy", ValidFrom: jan},
		"sin vigencia":      {CategoryID: fx.CategoryID, ConceptID: "con-energy"},
		"ventana invertida": {CategoryID: fx.CategoryID, ConceptID: "con-energy", ValidFrom: day(2024, 5, 1), ValidTo: &jan},
		"precio negativo":   {CategoryID: fx.CategoryID, ConceptID: "con-energy", ValidFrom: day(2024, 5, 1), UnitPrice: decimal.NewFromInt(-1)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, r.AppendPrice(ctx, p), domain.ErrValidation)
		})
	}
}

func TestValidateWindow_TramosDistintosNoChocan(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	existing := []*entity.TariffPrice{{ID: "p1", ConceptID: "e", ValidFrom: day(2024, 1, 1), UpperUnits: &hundred}}
	candidate := &entity.TariffPrice{ID: "p2", ConceptID: "e", ValidFrom: day(2024, 1, 1), LowerUnits: &hundred}

	assert.NoError(t, tariff.ValidateWindow(existing, candidate))
}
