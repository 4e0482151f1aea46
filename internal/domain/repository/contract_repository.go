package repository

import (
	"context"
	"time"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// ContractRepository define el puerto de consulta de contratos (gestionados fuera del motor).
type ContractRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ServiceContract, error)
	// GetForUpdate bloquea la fila del contrato hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.ServiceContract, error)
	// ActiveBySupply devuelve el contrato medido activo del suministro en la fecha.
	ActiveBySupply(ctx context.Context, supplyID string, at time.Time) (*entity.ServiceContract, error)
	Create(ctx context.Context, c *entity.ServiceContract) error
}

// SupplyRepository define el puerto de consulta de suministros.
type SupplyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Supply, error)
	Create(ctx context.Context, s *entity.Supply) error
}

// CustomerRepository define el puerto de consulta de socios.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	Create(ctx context.Context, c *entity.Customer) error
}
