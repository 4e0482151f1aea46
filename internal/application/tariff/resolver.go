// Package tariff resuelve los precios vigentes de una categoría y mantiene sus ventanas de vigencia.
package tariff

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// PriceSet precios vigentes agrupados por código de concepto, tramos ordenados por límite inferior.
type PriceSet map[string][]*entity.TariffPrice

// Concept devuelve los precios del concepto o nil.
func (s PriceSet) Concept(code string) []*entity.TariffPrice {
	return s[code]
}

// Resolver consulta y agrega precios.
type Resolver struct {
	tariffs repository.TariffRepository
	tx      ports.TxRunner
}

// NewResolver construye el resolvedor. tx puede ser nil si solo se usa para consultas.
func NewResolver(tariffs repository.TariffRepository, tx ports.TxRunner) *Resolver {
	return &Resolver{tariffs: tariffs, tx: tx}
}

// ResolveEffectivePrices devuelve los precios cuya ventana contiene asOf:
// validFrom <= asOf y (validTo nulo o validTo > asOf).
func (r *Resolver) ResolveEffectivePrices(ctx context.Context, categoryID string, asOf time.Time) ([]*entity.TariffPrice, error) {
	if categoryID == "" {
		return nil, domain.NewValidation("categoryId", "requerido")
	}
	if asOf.IsZero() {
		return nil, domain.NewValidation("asOf", "requerida")
	}
	prices, err := r.tariffs.EffectiveAt(ctx, categoryID, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolver precios: %w", err)
	}
	out := make([]*entity.TariffPrice, 0, len(prices))
	for _, p := range prices {
		if p.EffectiveAt(asOf) {
			out = append(out, p)
		}
	}
	sortPrices(out)
	return out, nil
}

// Resolve devuelve los precios vigentes indexados por concepto.
func (r *Resolver) Resolve(ctx context.Context, categoryID string, asOf time.Time) (PriceSet, error) {
	prices, err := r.ResolveEffectivePrices(ctx, categoryID, asOf)
	if err != nil {
		return nil, err
	}
	set := make(PriceSet)
	for _, p := range prices {
		set[p.ConceptCode] = append(set[p.ConceptCode], p)
	}
	return set, nil
}

// AppendPrice agrega un precio nuevo. Si hay un precio abierto anterior del mismo tramo
// se cierra en candidate.ValidFrom; ninguna otra fila existente se modifica.
func (r *Resolver) AppendPrice(ctx context.Context, candidate *entity.TariffPrice) error {
	if candidate.CategoryID == "" || candidate.ConceptID == "" {
		return domain.NewValidation("tariff", "categoría y concepto requeridos")
	}
	if candidate.ValidFrom.IsZero() {
		return domain.NewValidation("validFrom", "requerida")
	}
	if candidate.ValidTo != nil && !candidate.ValidTo.After(candidate.ValidFrom) {
		return domain.NewValidation("validTo", "debe ser posterior a validFrom")
	}
	if candidate.UnitPrice.IsNegative() {
		return domain.NewValidation("unitPrice", "no puede ser negativo")
	}
	if r.tx == nil {
		return fmt.Errorf("tariff: resolver sin TxRunner")
	}
	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}

	return r.tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		existing, err := repos.Tariffs.ListByConcept(ctx, candidate.CategoryID, candidate.ConceptID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.ValidTo == nil && p.SameTier(candidate) && p.ValidFrom.Before(candidate.ValidFrom) {
				if err := repos.Tariffs.Close(ctx, p.ID, candidate.ValidFrom); err != nil {
					return err
				}
				closed := candidate.ValidFrom
				p.ValidTo = &closed
			}
		}
		if err := ValidateWindow(existing, candidate); err != nil {
			return err
		}
		return repos.Tariffs.Create(ctx, candidate)
	})
}

// ValidateWindow rechaza un precio cuya vigencia se superpone con otro del mismo concepto y tramo.
func ValidateWindow(existing []*entity.TariffPrice, candidate *entity.TariffPrice) error {
	for _, p := range existing {
		if p.ID == candidate.ID || p.ConceptID != candidate.ConceptID || !p.SameTier(candidate) {
			continue
		}
		if p.Overlaps(candidate) {
			return domain.NewValidation("validFrom",
				fmt.Sprintf("la vigencia se superpone con el precio %s desde %s", p.ID, p.ValidFrom.Format("2006-01-02")))
		}
	}
	return nil
}

func sortPrices(prices []*entity.TariffPrice) {
	sort.SliceStable(prices, func(i, j int) bool {
		a, b := prices[i], prices[j]
		if a.ConceptCode != b.ConceptCode {
			return a.ConceptCode < b.ConceptCode
		}
		switch {
		case a.LowerUnits == nil:
			return b.LowerUnits != nil
		case b.LowerUnits == nil:
			return false
		default:
			return a.LowerUnits.LessThan(*b.LowerUnits)
		}
	})
}
