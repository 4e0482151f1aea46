package repository

import (
	"context"
	"time"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

// ReadingRepository define el puerto de persistencia para lecturas de medidor.
// Los métodos de búsqueda devuelven nil, nil cuando no hay resultado.
type ReadingRepository interface {
	Create(ctx context.Context, r *entity.MeterReading) error
	GetByID(ctx context.Context, id string) (*entity.MeterReading, error)
	// Latest devuelve la lectura de período más reciente del contrato.
	Latest(ctx context.Context, contractID string) (*entity.MeterReading, error)
	// LastBefore devuelve la última lectura con período estrictamente anterior a date.
	LastBefore(ctx context.Context, contractID string, date time.Time) (*entity.MeterReading, error)
	// FirstAfter devuelve la primera lectura con período estrictamente posterior a date.
	FirstAfter(ctx context.Context, contractID string, date time.Time) (*entity.MeterReading, error)
	// ListBetween devuelve, ordenadas por período, las lecturas con after < período <= upTo.
	// after cero no acota por abajo.
	ListBetween(ctx context.Context, contractID string, after, upTo time.Time) ([]*entity.MeterReading, error)
	// ListUnbilled pagina por id (keyset) las lecturas no facturadas del período.
	ListUnbilled(ctx context.Context, period time.Time, afterID string, limit int) ([]*entity.MeterReading, error)
	// MarkBilled marca las lecturas como facturadas; falla si alguna ya lo estaba.
	MarkBilled(ctx context.Context, ids []string) error
}
