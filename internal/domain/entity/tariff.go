package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Códigos de conceptos facturables.
const (
	ConceptEnergy      = "ENERGY_KWH"   // energía por consumo
	ConceptWater       = "WATER_M3"     // agua por consumo
	ConceptFixedCharge = "FIXED_CHARGE" // cargo fijo del período
)

// Concept tipo de ítem facturable.
type Concept struct {
	ID          string
	Code        string
	Description string
	Unit        string // kWh, m3, u
}

// TariffCategory clasificación del contrato que determina los precios aplicables.
type TariffCategory struct {
	ID          string
	Code        string
	Description string
}

// TariffPrice precio unitario de un concepto para una categoría en una ventana de vigencia.
// ValidTo nil significa vigente. Los tramos (LowerUnits/UpperUnits) son opcionales.
type TariffPrice struct {
	ID          string
	CategoryID  string
	ConceptID   string
	ConceptCode string
	Description string
	ValidFrom   time.Time
	ValidTo     *time.Time
	UnitPrice   decimal.Decimal
	LowerUnits  *decimal.Decimal
	UpperUnits  *decimal.Decimal
	CreatedAt   time.Time
}

// EffectiveAt indica si la ventana contiene la fecha: ValidFrom <= at < ValidTo.
func (p *TariffPrice) EffectiveAt(at time.Time) bool {
	if at.Before(p.ValidFrom) {
		return false
	}
	return p.ValidTo == nil || p.ValidTo.After(at)
}

// Tiered indica si el precio aplica a un tramo de consumo.
func (p *TariffPrice) Tiered() bool {
	return p.LowerUnits != nil || p.UpperUnits != nil
}

// SameTier indica si ambos precios cubren el mismo tramo (o ninguno).
func (p *TariffPrice) SameTier(o *TariffPrice) bool {
	return decimalPtrEqual(p.LowerUnits, o.LowerUnits) && decimalPtrEqual(p.UpperUnits, o.UpperUnits)
}

// Overlaps indica si las ventanas de vigencia se superponen.
func (p *TariffPrice) Overlaps(o *TariffPrice) bool {
	// [a1, a2) ∩ [b1, b2) != ∅  <=>  a1 < b2 && b1 < a2, con extremos abiertos como infinito
	startsBeforeOtherEnds := o.ValidTo == nil || p.ValidFrom.Before(*o.ValidTo)
	otherStartsBeforeEnd := p.ValidTo == nil || o.ValidFrom.Before(*p.ValidTo)
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
