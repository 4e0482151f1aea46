package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/config"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// Composer arma facturas sin número a partir de lecturas y precios vigentes.
// No escribe en la base: el resultado se numera y contabiliza con FinalizeUseCase.
type Composer struct {
	repos   repository.Repos
	tariffs *tariff.Resolver
	taxRate decimal.Decimal
	dueDays int
	log     *logger.Logger
	now     ports.Clock
}

// NewComposer construye el compositor. repos se usa solo para lecturas.
func NewComposer(repos repository.Repos, tariffs *tariff.Resolver, cfg config.BillingConfig, log *logger.Logger) *Composer {
	return &Composer{
		repos:   repos,
		tariffs: tariffs,
		taxRate: cfg.TaxRate,
		dueDays: cfg.DueDays,
		log:     log,
		now:     ports.SystemClock,
	}
}

// WithClock reemplaza la fuente de la fecha de emisión (tests).
func (c *Composer) WithClock(clock ports.Clock) *Composer {
	c.now = clock
	return c
}

// composition datos resueltos antes de armar las líneas.
type composition struct {
	contract    *entity.ServiceContract
	reading     *entity.MeterReading
	consumption decimal.Decimal // unidades leídas, sin constante del medidor
	periodFrom  time.Time
	periodTo    time.Time
}

// ComposeInvoice arma la factura del período que cierra finalReading.
func (c *Composer) ComposeInvoice(ctx context.Context, finalReading *entity.MeterReading, dueDate time.Time, pos *entity.PointOfSale) (*entity.Invoice, error) {
	if finalReading == nil {
		return nil, domain.NewValidation("reading", "requerida")
	}
	if finalReading.Billed {
		return nil, domain.NewValidation("reading", "la lectura ya fue facturada")
	}
	if err := checkPointOfSale(pos); err != nil {
		return nil, err
	}

	contract, err := c.repos.Contracts.GetByID(ctx, finalReading.ContractID)
	if err != nil {
		return nil, fmt.Errorf("obtener contrato: %w", err)
	}
	if contract == nil {
		return nil, domain.NewNotFound("contrato", finalReading.ContractID)
	}

	periodFrom := finalReading.PeriodDate.AddDate(0, -1, 0)
	prev, err := c.repos.Readings.LastBefore(ctx, contract.ID, finalReading.PeriodDate)
	if err != nil {
		return nil, fmt.Errorf("obtener lectura anterior: %w", err)
	}
	if prev != nil {
		periodFrom = prev.PeriodDate
	}

	return c.compose(ctx, composition{
		contract:    contract,
		reading:     finalReading,
		consumption: finalReading.ConsumptionUnits,
		periodFrom:  periodFrom,
		periodTo:    finalReading.PeriodDate,
	}, dueDate, pos)
}

// ComposeInvoiceForPeriod arma la factura de un suministro entre from y to usando
// la última lectura anterior a from y la primera posterior a to.
func (c *Composer) ComposeInvoiceForPeriod(ctx context.Context, supplyID string, from, to, dueDate time.Time, pos *entity.PointOfSale) (*entity.Invoice, error) {
	if supplyID == "" {
		return nil, domain.NewValidation("supplyId", "requerido")
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, domain.NewValidation("period", "se requiere un período con fin posterior al inicio")
	}
	if err := checkPointOfSale(pos); err != nil {
		return nil, err
	}

	contract, err := c.repos.Contracts.ActiveBySupply(ctx, supplyID, to)
	if err != nil {
		return nil, fmt.Errorf("obtener contrato activo: %w", err)
	}
	if contract == nil {
		return nil, domain.NewNotFound("contrato activo del suministro", supplyID)
	}

	initial, err := c.repos.Readings.LastBefore(ctx, contract.ID, from)
	if err != nil {
		return nil, fmt.Errorf("obtener lectura inicial: %w", err)
	}
	final, err := c.repos.Readings.FirstAfter(ctx, contract.ID, to)
	if err != nil {
		return nil, fmt.Errorf("obtener lectura final: %w", err)
	}
	if final == nil {
		return nil, domain.NewNotFound("lectura final del contrato", contract.ID)
	}
	if final.Billed {
		return nil, domain.NewValidation("reading", "la lectura final ya fue facturada")
	}

	// Todas las lecturas entre la inicial y la final aportan consumo a esta factura.
	var after time.Time
	if initial != nil {
		after = initial.PeriodDate
	}
	covered, err := c.repos.Readings.ListBetween(ctx, contract.ID, after, final.PeriodDate)
	if err != nil {
		return nil, fmt.Errorf("obtener lecturas del período: %w", err)
	}
	ids := make([]string, 0, len(covered))
	consumption := decimal.Zero
	for _, m := range covered {
		if m.Billed {
			return nil, domain.NewValidation("reading", fmt.Sprintf("la lectura %s del período ya fue facturada", m.ID))
		}
		ids = append(ids, m.ID)
		consumption = consumption.Add(m.ConsumptionUnits)
	}
	if initial != nil {
		consumption = final.CurrentValue.Sub(initial.CurrentValue)
		if consumption.IsNegative() {
			return nil, &domain.SequenceError{
				ContractID: contract.ID,
				Reason:     fmt.Sprintf("la lectura final %s es menor a la inicial %s", final.CurrentValue, initial.CurrentValue),
			}
		}
	}

	inv, err := c.compose(ctx, composition{
		contract:    contract,
		reading:     final,
		consumption: consumption,
		periodFrom:  from,
		periodTo:    to,
	}, dueDate, pos)
	if err != nil {
		return nil, err
	}
	inv.CoveredReadingIDs = ids
	return inv, nil
}

func (c *Composer) compose(ctx context.Context, in composition, dueDate time.Time, pos *entity.PointOfSale) (*entity.Invoice, error) {
	contract := in.contract
	if contract.Status != entity.ContractActive {
		return nil, domain.NewValidation("contract", fmt.Sprintf("el contrato %s no está activo (%s)", contract.ID, contract.Status))
	}
	metering, err := contract.Metering()
	if err != nil {
		return nil, domain.NewValidation("contract", err.Error())
	}

	supply, err := c.repos.Supplies.GetByID(ctx, contract.SupplyID)
	if err != nil {
		return nil, fmt.Errorf("obtener suministro: %w", err)
	}
	if supply == nil {
		return nil, domain.NewNotFound("suministro", contract.SupplyID)
	}
	customer, err := c.repos.Customers.GetByID(ctx, contract.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("obtener socio: %w", err)
	}
	if customer == nil {
		return nil, domain.NewNotFound("socio", contract.CustomerID)
	}

	code := DocumentTypeCode(customer.TaxStatus)
	docType, err := c.repos.DocumentTypes.GetByAfipCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("obtener tipo de comprobante: %w", err)
	}
	if docType == nil {
		return nil, c.configError("document_type."+code, "no existe el tipo de comprobante para la condición "+customer.TaxStatus)
	}

	prices, err := c.tariffs.Resolve(ctx, metering.CategoryID, in.reading.PeriodDate)
	if err != nil {
		return nil, err
	}

	consumption := in.consumption.Mul(metering.Multiplier)
	lines, err := c.consumptionLines(metering, consumption, prices)
	if err != nil {
		return nil, err
	}
	fixed, err := c.fixedChargeLine(metering.CategoryID, prices)
	if err != nil {
		return nil, err
	}
	lines = append(lines, fixed)

	net := decimal.Zero
	for _, l := range lines {
		net = net.Add(l.NetAmount)
	}
	tax := round2(net.Mul(c.taxRate))

	issue := truncateDay(c.now())
	if dueDate.IsZero() {
		dueDate = issue.AddDate(0, 0, c.dueDays)
	}

	inv := &entity.Invoice{
		ID:               uuid.New().String(),
		CustomerID:       customer.ID,
		SupplyID:         supply.ID,
		ContractID:       contract.ID,
		PointOfSaleID:    pos.ID,
		DocumentTypeID:   docType.ID,
		IssueDate:        issue,
		PeriodFrom:       in.periodFrom,
		PeriodTo:         in.periodTo,
		DueDate:          dueDate,
		NetAmount:        net,
		TaxAmount:        tax,
		TotalAmount:      net.Add(tax),
		Status:           entity.InvoiceStatusComposed,
		SourceReadingID:  in.reading.ID,
		ConsumptionUnits: consumption,
		Lines:            lines,
		CreatedAt:        c.now(),
	}
	for _, l := range inv.Lines {
		l.ID = uuid.New().String()
		l.InvoiceID = inv.ID
	}
	return inv, nil
}

// consumptionLines factura el consumo con precio único o repartido en tramos.
func (c *Composer) consumptionLines(m entity.Metering, consumption decimal.Decimal, prices tariff.PriceSet) ([]*entity.InvoiceLine, error) {
	tiers := prices.Concept(m.ConsumptionConcept)
	if len(tiers) == 0 {
		return nil, c.missingPrice(m.CategoryID, m.ConsumptionConcept)
	}
	if len(tiers) == 1 && !tiers[0].Tiered() {
		return []*entity.InvoiceLine{newLine(tiers[0], consumption)}, nil
	}

	var lines []*entity.InvoiceLine
	covered := decimal.Zero
	for _, p := range tiers {
		if !p.Tiered() {
			return nil, c.configError("tariff."+m.CategoryID+"."+m.ConsumptionConcept, "precio sin tramo mezclado con precios por tramo")
		}
		lower := decimal.Zero
		if p.LowerUnits != nil {
			lower = *p.LowerUnits
		}
		if !lower.Equal(covered) {
			return nil, c.configError("tariff."+m.CategoryID+"."+m.ConsumptionConcept,
				fmt.Sprintf("los tramos no son contiguos en %s", covered))
		}
		units := consumption.Sub(lower)
		if p.UpperUnits != nil {
			units = decimal.Min(units, p.UpperUnits.Sub(lower))
			covered = *p.UpperUnits
		} else {
			covered = decimal.Max(consumption, lower)
		}
		if units.IsPositive() {
			lines = append(lines, newLine(p, units))
		}
		if p.UpperUnits == nil {
			break
		}
	}
	if covered.LessThan(consumption) {
		return nil, c.configError("tariff."+m.CategoryID+"."+m.ConsumptionConcept,
			fmt.Sprintf("ningún tramo cubre el consumo por encima de %s", covered))
	}
	if len(lines) == 0 {
		lines = append(lines, newLine(tiers[0], decimal.Zero))
	}
	return lines, nil
}

func (c *Composer) fixedChargeLine(categoryID string, prices tariff.PriceSet) (*entity.InvoiceLine, error) {
	fixed := prices.Concept(entity.ConceptFixedCharge)
	if len(fixed) == 0 {
		return nil, c.missingPrice(categoryID, entity.ConceptFixedCharge)
	}
	return newLine(fixed[0], decimal.NewFromInt(1)), nil
}

func (c *Composer) missingPrice(categoryID, concept string) error {
	return c.configError("tariff."+categoryID+"."+concept,
		fmt.Sprintf("falta el precio vigente del concepto %s para la categoría %s", concept, categoryID))
}

func (c *Composer) configError(key, message string) error {
	err := domain.NewConfig(key, message)
	c.log.Error().Err(err).Str("key", key).Msg("parametrización de facturación incompleta")
	return err
}

func newLine(p *entity.TariffPrice, quantity decimal.Decimal) *entity.InvoiceLine {
	desc := p.Description
	if desc == "" {
		desc = p.ConceptCode
	}
	return &entity.InvoiceLine{
		ConceptID:   p.ConceptID,
		ConceptCode: p.ConceptCode,
		Description: desc,
		Quantity:    quantity,
		UnitPrice:   p.UnitPrice,
		NetAmount:   round2(quantity.Mul(p.UnitPrice)),
	}
}

func checkPointOfSale(pos *entity.PointOfSale) error {
	if pos == nil {
		return domain.NewValidation("pointOfSale", "requerido")
	}
	if !pos.Enabled {
		return domain.NewValidation("pointOfSale", fmt.Sprintf("el punto de venta %04d está deshabilitado", pos.Number))
	}
	return nil
}

// round2 redondea a centavos, mitad hacia arriba (los importes nunca son negativos).
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
