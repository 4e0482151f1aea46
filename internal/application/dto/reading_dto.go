package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// RecordReadingRequest body para POST /api/readings.
// Sin taken_at se usa la hora de carga; sin kind la lectura es NORMAL.
type RecordReadingRequest struct {
	ContractID   string           `json:"contract_id" validate:"required"`
	PeriodDate   string           `json:"period_date" validate:"required,datetime=2006-01-02"`
	TakenAt      *time.Time       `json:"taken_at,omitempty"`
	CurrentValue *decimal.Decimal `json:"current_value" validate:"required"`
	Kind         string           `json:"kind,omitempty" validate:"omitempty,oneof=NORMAL ESTIMATED CUSTOMER_REPORTED"`
}

// ReadingResponse lectura en respuestas.
type ReadingResponse struct {
	ID               string          `json:"id"`
	ContractID       string          `json:"contract_id"`
	PeriodDate       string          `json:"period_date"`
	TakenAt          time.Time       `json:"taken_at"`
	PriorValue       decimal.Decimal `json:"prior_value"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	ConsumptionUnits decimal.Decimal `json:"consumption_units"`
	Kind             string          `json:"kind"`
	Billed           bool            `json:"billed"`
}

// FromReading convierte la entidad al DTO de respuesta.
func FromReading(m *entity.MeterReading) ReadingResponse {
	return ReadingResponse{
		ID:               m.ID,
		ContractID:       m.ContractID,
		PeriodDate:       m.PeriodDate.Format(DateLayout),
		TakenAt:          m.TakenAt,
		PriorValue:       m.PriorValue,
		CurrentValue:     m.CurrentValue,
		ConsumptionUnits: m.ConsumptionUnits,
		Kind:             string(m.Kind),
		Billed:           m.Billed,
	}
}

// TariffPriceResponse precio vigente en respuestas.
type TariffPriceResponse struct {
	ID          string           `json:"id"`
	ConceptCode string           `json:"concept_code"`
	Description string           `json:"description"`
	ValidFrom   string           `json:"valid_from"`
	ValidTo     string           `json:"valid_to,omitempty"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	LowerUnits  *decimal.Decimal `json:"lower_units,omitempty"`
	UpperUnits  *decimal.Decimal `json:"upper_units,omitempty"`
}

// FromTariffPrices convierte la lista de precios al DTO de respuesta.
func FromTariffPrices(prices []*entity.TariffPrice) []TariffPriceResponse {
	out := make([]TariffPriceResponse, 0, len(prices))
	for _, p := range prices {
		r := TariffPriceResponse{
			ID:          p.ID,
			ConceptCode: p.ConceptCode,
			Description: p.Description,
			ValidFrom:   p.ValidFrom.Format(DateLayout),
			UnitPrice:   p.UnitPrice,
			LowerUnits:  p.LowerUnits,
			UpperUnits:  p.UpperUnits,
		}
		if p.ValidTo != nil {
			r.ValidTo = p.ValidTo.Format(DateLayout)
		}
		out = append(out, r)
	}
	return out
}
