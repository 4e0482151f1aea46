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

var _ repository.BillingRunRepository = (*BillingRunRepo)(nil)

// BillingRunRepo implementación de BillingRunRepository.
type BillingRunRepo struct {
	q Querier
}

// NewBillingRunRepository construye el adaptador.
func NewBillingRunRepository(q Querier) *BillingRunRepo {
	return &BillingRunRepo{q: q}
}

// Create registra una corrida nueva.
func (r *BillingRunRepo) Create(ctx context.Context, run *entity.BillingRun) error {
	query := `
		INSERT INTO billing_runs (id, period, due_date, point_of_sale_id, status, started_at, finished_at,
			succeeded, skipped, failed, chunks, failed_chunks, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query, run.ID, run.Period, nullTime(run.DueDate), run.PointOfSaleID, run.Status,
		run.StartedAt, run.FinishedAt, run.Succeeded, run.Skipped, run.Failed, run.Chunks, run.FailedChunks,
		run.LastError)
	if err != nil {
		return fmt.Errorf("insert billing run: %w", err)
	}
	return nil
}

// Update guarda estado y contadores de la corrida.
func (r *BillingRunRepo) Update(ctx context.Context, run *entity.BillingRun) error {
	query := `
		UPDATE billing_runs
		SET status = $2, finished_at = $3, succeeded = $4, skipped = $5, failed = $6,
		    chunks = $7, failed_chunks = $8, last_error = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, run.ID, run.Status, run.FinishedAt, run.Succeeded, run.Skipped,
		run.Failed, run.Chunks, run.FailedChunks, run.LastError)
	if err != nil {
		return fmt.Errorf("update billing run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("corrida", run.ID)
	}
	return nil
}

// GetByID obtiene una corrida por ID.
func (r *BillingRunRepo) GetByID(ctx context.Context, id string) (*entity.BillingRun, error) {
	query := `
		SELECT id, period, due_date, point_of_sale_id, status, started_at, finished_at,
		       succeeded, skipped, failed, chunks, failed_chunks, last_error
		FROM billing_runs WHERE id = $1`
	var run entity.BillingRun
	var due *time.Time
	err := r.q.QueryRow(ctx, query, id).Scan(&run.ID, &run.Period, &due, &run.PointOfSaleID, &run.Status,
		&run.StartedAt, &run.FinishedAt, &run.Succeeded, &run.Skipped, &run.Failed, &run.Chunks,
		&run.FailedChunks, &run.LastError)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get billing run: %w", err)
	}
	run.DueDate = derefTime(due)
	return &run, nil
}
