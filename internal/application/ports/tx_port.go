// Package ports define los puertos de salida compartidos por los casos de uso.
package ports

import (
	"context"
	"time"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repos atados a ella.
// Si fn devuelve error se hace Rollback; si no, Commit.
// Las implementaciones reintentan los conflictos de serialización antes de devolver
// domain.ConcurrencyError, por lo que fn debe poder ejecutarse más de una vez.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error
}

// Clock fuente de la fecha actual, inyectable en tests.
type Clock func() time.Time

// SystemClock devuelve la hora local del sistema.
func SystemClock() time.Time { return time.Now() }
