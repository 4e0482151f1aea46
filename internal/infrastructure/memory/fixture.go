package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// Fixture ids de los datos de referencia cargados por Seed.
type Fixture struct {
	CategoryID    string
	PointOfSaleID string
	DocTypeA      string
	DocTypeB      string
	CustomerID    string
	SupplyID      string
	ContractID    string
}

// SeedDate inicio de vigencia de los precios cargados por Seed.
var SeedDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Seed carga una cooperativa mínima facturable: tipos de comprobante A y B, conceptos,
// categoría RES con energía a 50 y cargo fijo 1000, plan de cuentas parametrizado,
// punto de venta 1 y un socio consumidor final con un contrato de energía activo.
func (s *Store) Seed() Fixture {
	ctx := context.Background()
	r := s.Repos()
	f := Fixture{
		CategoryID:    "cat-res",
		PointOfSaleID: "pos-0001",
		DocTypeA:      "dt-001",
		DocTypeB:      "dt-006",
		CustomerID:    "cus-0001",
		SupplyID:      "sup-0001",
		ContractID:    "ctr-0001",
	}

	_ = r.DocumentTypes.Create(ctx, &entity.DocumentType{ID: f.DocTypeA, AfipCode: entity.AfipCodeInvoiceA, Letter: "A", Description: "Factura"})
	_ = r.DocumentTypes.Create(ctx, &entity.DocumentType{ID: f.DocTypeB, AfipCode: entity.AfipCodeInvoiceB, Letter: "B", Description: "Factura"})

	_ = r.Concepts.Create(ctx, &entity.Concept{ID: "con-energy", Code: entity.ConceptEnergy, Description: "Energía consumida", Unit: "kWh"})
	_ = r.Concepts.Create(ctx, &entity.Concept{ID: "con-water", Code: entity.ConceptWater, Description: "Agua consumida", Unit: "m3"})
	_ = r.Concepts.Create(ctx, &entity.Concept{ID: "con-fixed", Code: entity.ConceptFixedCharge, Description: "Cargo fijo", Unit: "u"})

	_ = r.Tariffs.CreateCategory(ctx, &entity.TariffCategory{ID: f.CategoryID, Code: "RES", Description: "Residencial"})
	_ = r.Tariffs.Create(ctx, &entity.TariffPrice{
		ID: "price-energy", CategoryID: f.CategoryID, ConceptID: "con-energy", ConceptCode: entity.ConceptEnergy,
		Description: "Energía consumida", ValidFrom: SeedDate, UnitPrice: decimal.NewFromInt(50),
	})
	_ = r.Tariffs.Create(ctx, &entity.TariffPrice{
		ID: "price-fixed", CategoryID: f.CategoryID, ConceptID: "con-fixed", ConceptCode: entity.ConceptFixedCharge,
		Description: "Cargo fijo", ValidFrom: SeedDate, UnitPrice: decimal.NewFromInt(1000),
	})

	accounts := []*entity.Account{
		{ID: "acc-1", Code: "1", Name: "Activo"},
		{ID: "acc-1.1", Code: "1.1", Name: "Créditos", ParentID: "acc-1"},
		{ID: "acc-1.1.01", Code: "1.1.01", Name: "Deudores por servicios", ParentID: "acc-1.1", Postable: true},
		{ID: "acc-2", Code: "2", Name: "Pasivo"},
		{ID: "acc-2.1.01", Code: "2.1.01", Name: "IVA débito fiscal", ParentID: "acc-2", Postable: true},
		{ID: "acc-4", Code: "4", Name: "Ingresos"},
		{ID: "acc-4.1.01", Code: "4.1.01", Name: "Venta de energía", ParentID: "acc-4", Postable: true},
	}
	for _, a := range accounts {
		a.CreatedAt = SeedDate
		_ = r.Accounts.Create(ctx, a)
	}
	_ = r.Parameters.Set(ctx, &entity.AccountingParameter{Key: entity.ParamAccountReceivables, AccountCode: "1.1.01"})
	_ = r.Parameters.Set(ctx, &entity.AccountingParameter{Key: entity.ParamAccountOutputTax, AccountCode: "2.1.01"})
	_ = r.Parameters.Set(ctx, &entity.AccountingParameter{Key: entity.ParamAccountEnergyRevenue, AccountCode: "4.1.01"})

	_ = r.PointsOfSale.Create(ctx, &entity.PointOfSale{ID: f.PointOfSaleID, Number: 1, Description: "Casa central", Enabled: true, CreatedAt: SeedDate})

	s.AddCustomer(f.CustomerID, entity.TaxStatusFinalConsumer)
	s.AddElectricityContract(f.ContractID, f.SupplyID, f.CustomerID, f.CategoryID)
	return f
}

// AddCustomer agrega un socio con la condición de IVA indicada.
func (s *Store) AddCustomer(id, taxStatus string) {
	_ = s.Repos().Customers.Create(context.Background(), &entity.Customer{
		ID: id, Name: "Socio " + id, TaxID: "20-11111111-1", TaxStatus: taxStatus, CreatedAt: SeedDate,
	})
}

// AddElectricityContract agrega un suministro y su contrato de energía activo desde SeedDate.
func (s *Store) AddElectricityContract(contractID, supplyID, customerID, categoryID string) {
	ctx := context.Background()
	r := s.Repos()
	_ = r.Supplies.Create(ctx, &entity.Supply{ID: supplyID, NIS: "NIS-" + supplyID, Address: "San Martín 123", CreatedAt: SeedDate})
	_ = r.Contracts.Create(ctx, &entity.ServiceContract{
		ID:         contractID,
		SupplyID:   supplyID,
		CustomerID: customerID,
		Kind:       entity.ServiceElectricity,
		Status:     entity.ContractActive,
		StartDate:  SeedDate,
		Electricity: &entity.ElectricityTerms{
			MeterNumber: "M-" + contractID,
			CategoryID:  categoryID,
		},
		CreatedAt: SeedDate,
	})
}

// AddReading persiste una lectura sin facturar sin pasar por las validaciones de registro.
func (s *Store) AddReading(id, contractID string, period time.Time, prior, current int64) *entity.MeterReading {
	m := &entity.MeterReading{
		ID:               id,
		ContractID:       contractID,
		PeriodDate:       period,
		TakenAt:          period,
		PriorValue:       decimal.NewFromInt(prior),
		CurrentValue:     decimal.NewFromInt(current),
		ConsumptionUnits: decimal.NewFromInt(current - prior),
		Kind:             entity.ReadingNormal,
		CreatedAt:        period,
	}
	_ = s.Repos().Readings.Create(context.Background(), m)
	return m
}
