// Package reading implementa el registro de lecturas de medidor y las búsquedas por período.
package reading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/observability/metrics"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/config"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// RecordInput datos de una lectura a registrar. CurrentValue es puntero para distinguir ausente de 0.
type RecordInput struct {
	ContractID   string
	TakenAt      time.Time
	PeriodDate   time.Time
	CurrentValue *decimal.Decimal
	Kind         entity.ReadingKind
}

// Service registra lecturas garantizando el orden de período y valor por contrato.
type Service struct {
	tx       ports.TxRunner
	readings repository.ReadingRepository
	policy   string
	log      *logger.Logger
	now      ports.Clock
}

// NewService construye el servicio. policy es config.FirstReadingZero o config.FirstReadingCurrent.
func NewService(tx ports.TxRunner, readings repository.ReadingRepository, policy string, log *logger.Logger) *Service {
	return &Service{tx: tx, readings: readings, policy: policy, log: log, now: ports.SystemClock}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (s *Service) WithClock(c ports.Clock) *Service {
	s.now = c
	return s
}

// RecordReading valida y persiste una lectura con billed=false.
// El contrato se bloquea durante la transacción para serializar lecturas concurrentes del mismo medidor.
func (s *Service) RecordReading(ctx context.Context, in RecordInput) (*entity.MeterReading, error) {
	if err := validate(in); err != nil {
		metrics.IncReadingRecorded(metrics.ResultError)
		return nil, err
	}

	var out *entity.MeterReading
	err := s.tx.RunBilling(ctx, func(ctx context.Context, r repository.Repos) error {
		contract, err := r.Contracts.GetForUpdate(ctx, in.ContractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return domain.NewNotFound("contrato", in.ContractID)
		}
		if !contract.Metered() {
			return domain.NewValidation("contractId", fmt.Sprintf("el servicio %s no tiene medidor", contract.Kind))
		}

		period := truncateDay(in.PeriodDate)
		prior, err := r.Readings.Latest(ctx, contract.ID)
		if err != nil {
			return err
		}

		priorValue := decimal.Zero
		switch {
		case prior == nil && s.policy == config.FirstReadingCurrent:
			priorValue = *in.CurrentValue
		case prior != nil:
			if !period.After(prior.PeriodDate) {
				return &domain.SequenceError{
					ContractID: contract.ID,
					Reason: fmt.Sprintf("el período %s debe ser posterior al último registrado %s",
						period.Format("2006-01-02"), prior.PeriodDate.Format("2006-01-02")),
				}
			}
			if in.CurrentValue.LessThan(prior.CurrentValue) {
				return &domain.SequenceError{
					ContractID: contract.ID,
					Reason: fmt.Sprintf("el valor %s es menor al anterior %s",
						in.CurrentValue.String(), prior.CurrentValue.String()),
				}
			}
			priorValue = prior.CurrentValue
		}

		out = &entity.MeterReading{
			ID:               uuid.New().String(),
			ContractID:       contract.ID,
			PeriodDate:       period,
			TakenAt:          in.TakenAt,
			PriorValue:       priorValue,
			CurrentValue:     *in.CurrentValue,
			ConsumptionUnits: in.CurrentValue.Sub(priorValue),
			Kind:             in.Kind,
			CreatedAt:        s.now(),
		}
		return r.Readings.Create(ctx, out)
	})
	metrics.IncReadingRecorded(metrics.Result(err))
	if err != nil {
		s.log.Warn().Err(err).Str("contract_id", in.ContractID).Msg("lectura rechazada")
		return nil, err
	}
	s.log.Info().Str("reading_id", out.ID).Str("contract_id", out.ContractID).
		Str("consumption", out.ConsumptionUnits.String()).Msg("lectura registrada")
	return out, nil
}

// FindLastBefore devuelve la última lectura del contrato con período anterior a date, o nil.
func (s *Service) FindLastBefore(ctx context.Context, contractID string, date time.Time) (*entity.MeterReading, error) {
	if err := validateLookup(contractID, date); err != nil {
		return nil, err
	}
	return s.readings.LastBefore(ctx, contractID, truncateDay(date))
}

// FindFirstAfter devuelve la primera lectura del contrato con período posterior a date, o nil.
func (s *Service) FindFirstAfter(ctx context.Context, contractID string, date time.Time) (*entity.MeterReading, error) {
	if err := validateLookup(contractID, date); err != nil {
		return nil, err
	}
	return s.readings.FirstAfter(ctx, contractID, truncateDay(date))
}

func validate(in RecordInput) error {
	switch {
	case in.ContractID == "":
		return domain.NewValidation("contractId", "requerido")
	case in.TakenAt.IsZero():
		return domain.NewValidation("takenAt", "requerido")
	case in.PeriodDate.IsZero():
		return domain.NewValidation("periodDate", "requerido")
	case in.CurrentValue == nil:
		return domain.NewValidation("currentValue", "requerido")
	case in.CurrentValue.IsNegative():
		return domain.NewValidation("currentValue", "no puede ser negativo")
	case !in.Kind.Valid():
		return domain.NewValidation("kind", fmt.Sprintf("tipo de lectura desconocido %q", in.Kind))
	}
	return nil
}

func validateLookup(contractID string, date time.Time) error {
	if contractID == "" {
		return domain.NewValidation("contractId", "requerido")
	}
	if date.IsZero() {
		return domain.NewValidation("date", "requerida")
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
