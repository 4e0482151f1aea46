package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

var (
	_ repository.TariffRepository  = (*TariffRepo)(nil)
	_ repository.ConceptRepository = (*ConceptRepo)(nil)
)

// El código del concepto y la descripción por defecto vienen de concepts.
const priceSelect = `
	SELECT p.id, p.category_id, p.concept_id, c.code,
		COALESCE(NULLIF(p.description, ''), c.description),
		p.valid_from, p.valid_to, p.unit_price, p.lower_units, p.upper_units, p.created_at
	FROM tariff_prices p
	JOIN concepts c ON c.id = p.concept_id`

// TariffRepo implementación de TariffRepository (usable con pool o tx).
type TariffRepo struct {
	q Querier
}

// NewTariffRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTariffRepository(q Querier) *TariffRepo {
	return &TariffRepo{q: q}
}

// GetCategory obtiene una categoría tarifaria por ID.
func (r *TariffRepo) GetCategory(ctx context.Context, id string) (*entity.TariffCategory, error) {
	return r.category(ctx, `SELECT id, code, description FROM tariff_categories WHERE id = $1`, id)
}

// GetCategoryByCode obtiene una categoría tarifaria por código.
func (r *TariffRepo) GetCategoryByCode(ctx context.Context, code string) (*entity.TariffCategory, error) {
	return r.category(ctx, `SELECT id, code, description FROM tariff_categories WHERE code = $1`, code)
}

func (r *TariffRepo) category(ctx context.Context, query string, arg string) (*entity.TariffCategory, error) {
	var c entity.TariffCategory
	err := r.q.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Code, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tariff category: %w", err)
	}
	return &c, nil
}

// CreateCategory persiste una categoría tarifaria.
func (r *TariffRepo) CreateCategory(ctx context.Context, c *entity.TariffCategory) error {
	query := `INSERT INTO tariff_categories (id, code, description) VALUES ($1, $2, $3)`
	if _, err := r.q.Exec(ctx, query, c.ID, c.Code, c.Description); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert tariff category: %w", err)
	}
	return nil
}

// EffectiveAt devuelve los precios de la categoría cuya ventana contiene at.
func (r *TariffRepo) EffectiveAt(ctx context.Context, categoryID string, at time.Time) ([]*entity.TariffPrice, error) {
	query := priceSelect + `
	WHERE p.category_id = $1 AND p.valid_from <= $2 AND (p.valid_to IS NULL OR p.valid_to > $2)
	ORDER BY c.code, p.lower_units NULLS FIRST`
	return r.list(ctx, "effective tariff prices", query, categoryID, at)
}

// ListByConcept devuelve el historial de precios de un concepto ordenado por vigencia.
func (r *TariffRepo) ListByConcept(ctx context.Context, categoryID, conceptID string) ([]*entity.TariffPrice, error) {
	query := priceSelect + `
	WHERE p.category_id = $1 AND p.concept_id = $2
	ORDER BY p.valid_from, p.lower_units NULLS FIRST`
	return r.list(ctx, "list tariff prices", query, categoryID, conceptID)
}

func (r *TariffRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.TariffPrice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var list []*entity.TariffPrice
	for rows.Next() {
		var p entity.TariffPrice
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.ConceptID, &p.ConceptCode, &p.Description,
			&p.ValidFrom, &p.ValidTo, &p.UnitPrice, &p.LowerUnits, &p.UpperUnits, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tariff price: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// Create persiste un precio nuevo. Los precios no se editan: solo se cierran con Close.
func (r *TariffRepo) Create(ctx context.Context, p *entity.TariffPrice) error {
	query := `
		INSERT INTO tariff_prices (id, category_id, concept_id, description, valid_from, valid_to,
			unit_price, lower_units, upper_units, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.CategoryID, p.ConceptID, p.Description, p.ValidFrom, p.ValidTo,
		p.UnitPrice, p.LowerUnits, p.UpperUnits, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert tariff price: %w", err)
	}
	return nil
}

// Close fija valid_to de un precio abierto. Devuelve ErrConflict si ya estaba cerrado.
func (r *TariffRepo) Close(ctx context.Context, id string, validTo time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE tariff_prices SET valid_to = $2 WHERE id = $1 AND valid_to IS NULL`, id, validTo)
	if err != nil {
		return fmt.Errorf("close tariff price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tariff_prices WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("close tariff price: %w", err)
		}
		if !exists {
			return domain.NewNotFound("precio", id)
		}
		return domain.ErrConflict
	}
	return nil
}

// ConceptRepo implementación de ConceptRepository.
type ConceptRepo struct {
	q Querier
}

// NewConceptRepository construye el adaptador.
func NewConceptRepository(q Querier) *ConceptRepo {
	return &ConceptRepo{q: q}
}

// GetByCode obtiene un concepto facturable por código.
func (r *ConceptRepo) GetByCode(ctx context.Context, code string) (*entity.Concept, error) {
	var c entity.Concept
	err := r.q.QueryRow(ctx, `SELECT id, code, description, unit FROM concepts WHERE code = $1`, code).
		Scan(&c.ID, &c.Code, &c.Description, &c.Unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return &c, nil
}

// Create persiste un concepto facturable.
func (r *ConceptRepo) Create(ctx context.Context, c *entity.Concept) error {
	query := `INSERT INTO concepts (id, code, description, unit) VALUES ($1, $2, $3, $4)`
	if _, err := r.q.Exec(ctx, query, c.ID, c.Code, c.Description, c.Unit); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert concept: %w", err)
	}
	return nil
}
