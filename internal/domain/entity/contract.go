package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceKind servicio prestado por el contrato.
type ServiceKind string

const (
	ServiceElectricity ServiceKind = "ELECTRICITY"
	ServiceWater       ServiceKind = "WATER"
	ServiceInternet    ServiceKind = "INTERNET"
	ServiceTelephony   ServiceKind = "TELEPHONY"
	ServiceFuneral     ServiceKind = "FUNERAL" // servicio de sepelio
)

// Estados del contrato.
const (
	ContractPending    = "PENDING"
	ContractActive     = "ACTIVE"
	ContractSuspended  = "SUSPENDED"
	ContractTerminated = "TERMINATED"
)

// ElectricityTerms datos propios de un contrato de energía.
type ElectricityTerms struct {
	MeterNumber       string
	MeterMultiplier   decimal.Decimal // constante de multiplicación del medidor
	CategoryID        string
	ContractedPowerKW decimal.Decimal
}

// WaterTerms datos propios de un contrato de agua.
type WaterTerms struct {
	MeterNumber          string
	MeterMultiplier      decimal.Decimal
	CategoryID           string
	ConnectionDiameterMM int
}

// ServiceContract contrato de servicio de un socio sobre un suministro.
// Kind determina cuál de los payloads está presente; los servicios sin medidor no tienen ninguno.
type ServiceContract struct {
	ID          string
	SupplyID    string
	CustomerID  string
	Kind        ServiceKind
	Status      string
	StartDate   time.Time
	EndDate     *time.Time
	Electricity *ElectricityTerms
	Water       *WaterTerms
	CreatedAt   time.Time
}

// Metering datos de medición comunes a los servicios medidos.
type Metering struct {
	MeterNumber        string
	Multiplier         decimal.Decimal
	CategoryID         string
	ConsumptionConcept string // concepto que factura el consumo
}

// Metering resuelve los datos de medición según el tipo de servicio.
func (c *ServiceContract) Metering() (Metering, error) {
	switch c.Kind {
	case ServiceElectricity:
		if c.Electricity == nil {
			return Metering{}, fmt.Errorf("contrato %s: faltan datos de energía", c.ID)
		}
		return Metering{
			MeterNumber:        c.Electricity.MeterNumber,
			Multiplier:         multiplierOrOne(c.Electricity.MeterMultiplier),
			CategoryID:         c.Electricity.CategoryID,
			ConsumptionConcept: ConceptEnergy,
		}, nil
	case ServiceWater:
		if c.Water == nil {
			return Metering{}, fmt.Errorf("contrato %s: faltan datos de agua", c.ID)
		}
		return Metering{
			MeterNumber:        c.Water.MeterNumber,
			Multiplier:         multiplierOrOne(c.Water.MeterMultiplier),
			CategoryID:         c.Water.CategoryID,
			ConsumptionConcept: ConceptWater,
		}, nil
	case ServiceInternet, ServiceTelephony, ServiceFuneral:
		return Metering{}, fmt.Errorf("contrato %s: el servicio %s no se factura por consumo", c.ID, c.Kind)
	default:
		return Metering{}, fmt.Errorf("contrato %s: tipo de servicio desconocido %q", c.ID, c.Kind)
	}
}

// Metered indica si el servicio se factura por lectura de medidor.
func (c *ServiceContract) Metered() bool {
	return c.Kind == ServiceElectricity || c.Kind == ServiceWater
}

// ActiveAt indica si el contrato está activo y vigente en la fecha.
func (c *ServiceContract) ActiveAt(at time.Time) bool {
	if c.Status != ContractActive || at.Before(c.StartDate) {
		return false
	}
	return c.EndDate == nil || c.EndDate.After(at)
}

func multiplierOrOne(m decimal.Decimal) decimal.Decimal {
	if m.IsZero() {
		return decimal.NewFromInt(1)
	}
	return m
}
