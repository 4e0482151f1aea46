package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

var (
	_ repository.ContractRepository = (*ContractRepo)(nil)
	_ repository.SupplyRepository   = (*SupplyRepo)(nil)
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
)

// Cada tipo de servicio medido guarda sus datos en una tabla propia; el LEFT JOIN
// deja en NULL las columnas del payload que no corresponde.
const contractSelect = `
	SELECT sc.id, sc.supply_id, sc.customer_id, sc.kind, sc.status, sc.start_date, sc.end_date, sc.created_at,
		et.meter_number, et.meter_multiplier, et.category_id, et.contracted_power_kw,
		wt.meter_number, wt.meter_multiplier, wt.category_id, wt.connection_diameter_mm
	FROM service_contracts sc
	LEFT JOIN electricity_terms et ON et.contract_id = sc.id
	LEFT JOIN water_terms wt ON wt.contract_id = sc.id`

// ContractRepo implementación de ContractRepository (usable con pool o tx).
type ContractRepo struct {
	q Querier
}

// NewContractRepository construye el adaptador. Pasar pool o tx (Querier).
func NewContractRepository(q Querier) *ContractRepo {
	return &ContractRepo{q: q}
}

// GetByID obtiene un contrato con sus datos de medición.
func (r *ContractRepo) GetByID(ctx context.Context, id string) (*entity.ServiceContract, error) {
	c, err := scanContract(r.q.QueryRow(ctx, contractSelect+` WHERE sc.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

// GetForUpdate obtiene el contrato bloqueando su fila (SELECT ... FOR UPDATE OF sc).
func (r *ContractRepo) GetForUpdate(ctx context.Context, id string) (*entity.ServiceContract, error) {
	c, err := scanContract(r.q.QueryRow(ctx, contractSelect+` WHERE sc.id = $1 FOR UPDATE OF sc`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isLockTimeout(err) {
			return nil, &domain.ConcurrencyError{Resource: "contrato " + id, Err: err}
		}
		return nil, fmt.Errorf("lock contract: %w", err)
	}
	return c, nil
}

// ActiveBySupply devuelve el contrato medido vigente más reciente del suministro.
func (r *ContractRepo) ActiveBySupply(ctx context.Context, supplyID string, at time.Time) (*entity.ServiceContract, error) {
	query := contractSelect + `
	WHERE sc.supply_id = $1 AND sc.status = $2 AND sc.kind IN ($3, $4)
		AND sc.start_date <= $5 AND (sc.end_date IS NULL OR sc.end_date > $5)
	ORDER BY sc.start_date DESC LIMIT 1`
	c, err := scanContract(r.q.QueryRow(ctx, query, supplyID, entity.ContractActive,
		string(entity.ServiceElectricity), string(entity.ServiceWater), at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("active contract by supply: %w", err)
	}
	return c, nil
}

// Create persiste el contrato y, si corresponde, su payload de medición.
// Debe ejecutarse dentro de una transacción para que ambas filas queden juntas.
func (r *ContractRepo) Create(ctx context.Context, c *entity.ServiceContract) error {
	query := `
		INSERT INTO service_contracts (id, supply_id, customer_id, kind, status, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.q.Exec(ctx, query, c.ID, c.SupplyID, c.CustomerID, string(c.Kind), c.Status,
		c.StartDate, c.EndDate, c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert contract: %w", err)
	}
	switch {
	case c.Electricity != nil:
		e := c.Electricity
		query = `
			INSERT INTO electricity_terms (contract_id, meter_number, meter_multiplier, category_id, contracted_power_kw)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := r.q.Exec(ctx, query, c.ID, e.MeterNumber, e.MeterMultiplier, e.CategoryID, e.ContractedPowerKW); err != nil {
			return fmt.Errorf("insert electricity terms: %w", err)
		}
	case c.Water != nil:
		w := c.Water
		query = `
			INSERT INTO water_terms (contract_id, meter_number, meter_multiplier, category_id, connection_diameter_mm)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := r.q.Exec(ctx, query, c.ID, w.MeterNumber, w.MeterMultiplier, w.CategoryID, w.ConnectionDiameterMM); err != nil {
			return fmt.Errorf("insert water terms: %w", err)
		}
	}
	return nil
}

func scanContract(row pgx.Row) (*entity.ServiceContract, error) {
	var (
		c                   entity.ServiceContract
		kind                string
		eMeter, eCategory   *string
		eMultiplier, ePower *decimal.Decimal
		wMeter, wCategory   *string
		wMultiplier         *decimal.Decimal
		wDiameter           *int
	)
	err := row.Scan(&c.ID, &c.SupplyID, &c.CustomerID, &kind, &c.Status, &c.StartDate, &c.EndDate, &c.CreatedAt,
		&eMeter, &eMultiplier, &eCategory, &ePower,
		&wMeter, &wMultiplier, &wCategory, &wDiameter)
	if err != nil {
		return nil, err
	}
	c.Kind = entity.ServiceKind(kind)
	if eMeter != nil {
		c.Electricity = &entity.ElectricityTerms{
			MeterNumber: *eMeter,
			CategoryID:  derefString(eCategory),
		}
		if eMultiplier != nil {
			c.Electricity.MeterMultiplier = *eMultiplier
		}
		if ePower != nil {
			c.Electricity.ContractedPowerKW = *ePower
		}
	}
	if wMeter != nil {
		c.Water = &entity.WaterTerms{
			MeterNumber: *wMeter,
			CategoryID:  derefString(wCategory),
		}
		if wMultiplier != nil {
			c.Water.MeterMultiplier = *wMultiplier
		}
		if wDiameter != nil {
			c.Water.ConnectionDiameterMM = *wDiameter
		}
	}
	return &c, nil
}

// SupplyRepo implementación de SupplyRepository.
type SupplyRepo struct {
	q Querier
}

// NewSupplyRepository construye el adaptador.
func NewSupplyRepository(q Querier) *SupplyRepo {
	return &SupplyRepo{q: q}
}

// GetByID obtiene un suministro por ID.
func (r *SupplyRepo) GetByID(ctx context.Context, id string) (*entity.Supply, error) {
	var s entity.Supply
	err := r.q.QueryRow(ctx, `SELECT id, nis, address, created_at FROM supplies WHERE id = $1`, id).
		Scan(&s.ID, &s.NIS, &s.Address, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supply: %w", err)
	}
	return &s, nil
}

// Create persiste un suministro.
func (r *SupplyRepo) Create(ctx context.Context, s *entity.Supply) error {
	query := `INSERT INTO supplies (id, nis, address, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.q.Exec(ctx, query, s.ID, s.NIS, s.Address, s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert supply: %w", err)
	}
	return nil
}

// CustomerRepo implementación de CustomerRepository.
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un socio por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `SELECT id, name, tax_id, tax_status, created_at, updated_at FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.TaxID, &c.TaxStatus, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// Create persiste un socio.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	query := `
		INSERT INTO customers (id, name, tax_id, tax_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, c.ID, c.Name, c.TaxID, c.TaxStatus, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}
