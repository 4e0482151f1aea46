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

var _ repository.ReadingRepository = (*ReadingRepo)(nil)

const readingColumns = `id, contract_id, period_date, taken_at, prior_value, current_value,
	consumption_units, kind, billed, created_at`

// ReadingRepo implementación de ReadingRepository (usable con pool o tx).
type ReadingRepo struct {
	q Querier
}

// NewReadingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReadingRepository(q Querier) *ReadingRepo {
	return &ReadingRepo{q: q}
}

// Create persiste una lectura nueva. Un segundo registro del mismo período devuelve ErrDuplicate.
func (r *ReadingRepo) Create(ctx context.Context, m *entity.MeterReading) error {
	query := `
		INSERT INTO meter_readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ContractID, m.PeriodDate, m.TakenAt, m.PriorValue, m.CurrentValue,
		m.ConsumptionUnits, string(m.Kind), m.Billed, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert meter reading: %w", err)
	}
	return nil
}

// GetByID obtiene una lectura por ID.
func (r *ReadingRepo) GetByID(ctx context.Context, id string) (*entity.MeterReading, error) {
	query := `SELECT ` + readingColumns + ` FROM meter_readings WHERE id = $1`
	return r.one(ctx, "get meter reading", query, id)
}

// Latest devuelve la lectura de período más reciente del contrato.
func (r *ReadingRepo) Latest(ctx context.Context, contractID string) (*entity.MeterReading, error) {
	query := `
		SELECT ` + readingColumns + ` FROM meter_readings
		WHERE contract_id = $1
		ORDER BY period_date DESC LIMIT 1`
	return r.one(ctx, "latest meter reading", query, contractID)
}

// LastBefore devuelve la última lectura con período anterior a date.
func (r *ReadingRepo) LastBefore(ctx context.Context, contractID string, date time.Time) (*entity.MeterReading, error) {
	query := `
		SELECT ` + readingColumns + ` FROM meter_readings
		WHERE contract_id = $1 AND period_date < $2
		ORDER BY period_date DESC LIMIT 1`
	return r.one(ctx, "meter reading before", query, contractID, date)
}

// FirstAfter devuelve la primera lectura con período posterior a date.
func (r *ReadingRepo) FirstAfter(ctx context.Context, contractID string, date time.Time) (*entity.MeterReading, error) {
	query := `
		SELECT ` + readingColumns + ` FROM meter_readings
		WHERE contract_id = $1 AND period_date > $2
		ORDER BY period_date ASC LIMIT 1`
	return r.one(ctx, "meter reading after", query, contractID, date)
}

// ListUnbilled pagina por id las lecturas no facturadas del mes de period.
func (r *ReadingRepo) ListUnbilled(ctx context.Context, period time.Time, afterID string, limit int) ([]*entity.MeterReading, error) {
	from := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	query := `
		SELECT ` + readingColumns + ` FROM meter_readings
		WHERE NOT billed AND period_date >= $1 AND period_date < $2 AND id > $3
		ORDER BY id
		LIMIT $4`
	return r.many(ctx, "list unbilled readings", query, from, to, afterID, limit)
}

// ListBetween devuelve las lecturas del contrato con after < período <= upTo.
func (r *ReadingRepo) ListBetween(ctx context.Context, contractID string, after, upTo time.Time) ([]*entity.MeterReading, error) {
	query := `
		SELECT ` + readingColumns + ` FROM meter_readings
		WHERE contract_id = $1 AND period_date <= $2 AND ($3::date IS NULL OR period_date > $3)
		ORDER BY period_date`
	var lower *time.Time
	if !after.IsZero() {
		lower = &after
	}
	return r.many(ctx, "list meter readings between", query, contractID, upTo, lower)
}

func (r *ReadingRepo) many(ctx context.Context, op, query string, args ...any) ([]*entity.MeterReading, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var list []*entity.MeterReading
	for rows.Next() {
		m, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meter reading: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// MarkBilled marca las lecturas como facturadas. Si alguna no existe o ya estaba
// facturada se devuelve ConcurrencyError y la transacción debe descartarse.
func (r *ReadingRepo) MarkBilled(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE meter_readings SET billed = true WHERE id = ANY($1) AND NOT billed`
	tag, err := r.q.Exec(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("mark readings billed: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return &domain.ConcurrencyError{
			Resource: "lecturas",
			Err:      fmt.Errorf("%d de %d ya facturadas o inexistentes", int64(len(ids))-tag.RowsAffected(), len(ids)),
		}
	}
	return nil
}

func (r *ReadingRepo) one(ctx context.Context, op, query string, args ...any) (*entity.MeterReading, error) {
	m, err := scanReading(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func scanReading(row pgx.Row) (*entity.MeterReading, error) {
	var m entity.MeterReading
	var kind string
	err := row.Scan(&m.ID, &m.ContractID, &m.PeriodDate, &m.TakenAt, &m.PriorValue, &m.CurrentValue,
		&m.ConsumptionUnits, &kind, &m.Billed, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.ReadingKind(kind)
	return &m, nil
}
