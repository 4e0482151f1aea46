package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ──────────────────────────────────────────────────────────────────────────────
// Precios
// ──────────────────────────────────────────────────────────────────────────────

func TestTariffPrice_EffectiveAt_VentanaSemiabierta(t *testing.T) {
	to := date(2024, 3, 1)
	p := &entity.TariffPrice{ValidFrom: date(2024, 1, 1), ValidTo: &to}

	assert.False(t, p.EffectiveAt(date(2023, 12, 31)))
	assert.True(t, p.EffectiveAt(date(2024, 1, 1)), "validFrom es inclusivo")
	assert.True(t, p.EffectiveAt(date(2024, 2, 29)))
	assert.False(t, p.EffectiveAt(date(2024, 3, 1)), "validTo es exclusivo")

	open := &entity.TariffPrice{ValidFrom: date(2024, 1, 1)}
	assert.True(t, open.EffectiveAt(date(2030, 1, 1)))
}

func TestTariffPrice_Overlaps(t *testing.T) {
	mar := date(2024, 3, 1)
	jan := &entity.TariffPrice{ValidFrom: date(2024, 1, 1), ValidTo: &mar}

	assert.False(t, jan.Overlaps(&entity.TariffPrice{ValidFrom: mar}), "ventanas contiguas no se superponen")
	assert.True(t, jan.Overlaps(&entity.TariffPrice{ValidFrom: date(2024, 2, 1)}))
	assert.True(t, (&entity.TariffPrice{ValidFrom: date(2023, 1, 1)}).Overlaps(jan))
}

func TestTariffPrice_Tramos(t *testing.T) {
	a := &entity.TariffPrice{LowerUnits: dec("0"), UpperUnits: dec("100")}
	b := &entity.TariffPrice{LowerUnits: dec("0.00"), UpperUnits: dec("100")}
	c := &entity.TariffPrice{LowerUnits: dec("100")}
	flat := &entity.TariffPrice{}

	assert.True(t, a.Tiered())
	assert.False(t, flat.Tiered())
	assert.True(t, a.SameTier(b))
	assert.False(t, a.SameTier(c))
	assert.True(t, flat.SameTier(&entity.TariffPrice{}))
}

// ──────────────────────────────────────────────────────────────────────────────
// Contratos
// ──────────────────────────────────────────────────────────────────────────────

func TestServiceContract_Metering(t *testing.T) {
	elec := &entity.ServiceContract{
		ID:          "c1",
		Kind:        entity.ServiceElectricity,
		Electricity: &entity.ElectricityTerms{MeterNumber: "M1", CategoryID: "res"},
	}
	m, err := elec.Metering()
	require.NoError(t, err)
	assert.Equal(t, entity.ConceptEnergy, m.ConsumptionConcept)
	assert.True(t, m.Multiplier.Equal(decimal.NewFromInt(1)), "constante cero se interpreta como 1")

	water := &entity.ServiceContract{
		ID:    "c2",
		Kind:  entity.ServiceWater,
		Water: &entity.WaterTerms{MeterNumber: "W1", CategoryID: "agua", MeterMultiplier: decimal.NewFromInt(10)},
	}
	m, err = water.Metering()
	require.NoError(t, err)
	assert.Equal(t, entity.ConceptWater, m.ConsumptionConcept)
	assert.Equal(t, "10", m.Multiplier.String())

	_, err = (&entity.ServiceContract{ID: "c3", Kind: entity.ServiceInternet}).Metering()
	assert.Error(t, err)
	_, err = (&entity.ServiceContract{ID: "c4", Kind: entity.ServiceElectricity}).Metering()
	assert.Error(t, err, "sin payload de energía")
}

func TestServiceContract_ActiveAt(t *testing.T) {
	end := date(2024, 6, 1)
	c := &entity.ServiceContract{Status: entity.ContractActive, StartDate: date(2024, 1, 1), EndDate: &end}

	assert.True(t, c.ActiveAt(date(2024, 3, 1)))
	assert.False(t, c.ActiveAt(date(2023, 12, 31)))
	assert.False(t, c.ActiveAt(end))

	c.Status = entity.ContractSuspended
	assert.False(t, c.ActiveAt(date(2024, 3, 1)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturas
// ──────────────────────────────────────────────────────────────────────────────

func TestInvoice_CloneEsProfundo(t *testing.T) {
	n := int64(7)
	inv := &entity.Invoice{ID: "i1", DocumentNumber: &n, Lines: []*entity.InvoiceLine{{Description: "Energía"}}}

	c := inv.Clone()
	*c.DocumentNumber = 8
	c.Lines[0].Description = "Otro"

	assert.Equal(t, int64(7), *inv.DocumentNumber)
	assert.Equal(t, "Energía", inv.Lines[0].Description)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0001-00000042", entity.FormatNumber(1, 42))
}

func TestReadingKind_Valid(t *testing.T) {
	assert.True(t, entity.ReadingEstimated.Valid())
	assert.False(t, entity.ReadingKind("MANUAL").Valid())
}
