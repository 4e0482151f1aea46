package repository

import (
	"context"
	"time"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// TariffRepository define el puerto de persistencia para precios y categorías.
type TariffRepository interface {
	GetCategory(ctx context.Context, id string) (*entity.TariffCategory, error)
	GetCategoryByCode(ctx context.Context, code string) (*entity.TariffCategory, error)
	CreateCategory(ctx context.Context, c *entity.TariffCategory) error
	// EffectiveAt devuelve los precios cuya ventana contiene at.
	EffectiveAt(ctx context.Context, categoryID string, at time.Time) ([]*entity.TariffPrice, error)
	ListByConcept(ctx context.Context, categoryID, conceptID string) ([]*entity.TariffPrice, error)
	Create(ctx context.Context, p *entity.TariffPrice) error
	// Close cierra la ventana de un precio vigente; es la única modificación permitida.
	Close(ctx context.Context, id string, validTo time.Time) error
}

// ConceptRepository define el puerto para conceptos facturables.
type ConceptRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Concept, error)
	Create(ctx context.Context, c *entity.Concept) error
}
