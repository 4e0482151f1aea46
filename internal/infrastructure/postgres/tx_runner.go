package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/observability/metrics"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL SERIALIZABLE.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	maxRetries  int
	backoff     time.Duration
	log         *logger.Logger
}

// NewTxRunner construye el runner con el pool.
// lockTimeout acota la espera por filas bloqueadas; maxRetries los reintentos por serialización.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration, maxRetries int, log *logger.Logger) *TxRunner {
	if log == nil {
		log = logger.Nop()
	}
	return &TxRunner{
		pool:        pool,
		lockTimeout: lockTimeout,
		maxRetries:  maxRetries,
		backoff:     20 * time.Millisecond,
		log:         log.Component("postgres.tx"),
	}
}

// RunBilling ejecuta fn con repos atados a la transacción y hace Commit o Rollback.
// Los abortos 40001/40P01 se reintentan hasta maxRetries; agotados, o ante lock_timeout,
// se devuelve domain.ConcurrencyError.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= r.maxRetries {
			break
		}
		metrics.IncTxRetry()
		r.log.Debug().Err(err).Int("attempt", attempt+1).Msg("reintentando transacción")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt+1)):
		}
	}
	if isRetryable(err) || isLockTimeout(err) {
		return &domain.ConcurrencyError{Resource: "transaction", Err: err}
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no acepta parámetros: el valor es un entero generado acá.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxCommitRollback) {
			return &domain.ConcurrencyError{Resource: "transaction", Err: err}
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
