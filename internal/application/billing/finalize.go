package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/observability/metrics"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// Finalized resultado de numerar y contabilizar una factura.
type Finalized struct {
	Invoice  *entity.Invoice
	Entry    *entity.LedgerEntry
	Movement *entity.AccountMovement
}

// FinalizeUseCase numera, persiste y contabiliza facturas como una única unidad atómica.
type FinalizeUseCase struct {
	tx       ports.TxRunner
	repos    repository.Repos
	composer *Composer
	seq      *Sequencer
	poster   LedgerPoster
	log      *logger.Logger
}

// NewFinalizeUseCase construye el caso de uso.
func NewFinalizeUseCase(tx ports.TxRunner, repos repository.Repos, composer *Composer, seq *Sequencer, poster LedgerPoster, log *logger.Logger) *FinalizeUseCase {
	return &FinalizeUseCase{tx: tx, repos: repos, composer: composer, seq: seq, poster: poster, log: log}
}

// FinalizeInvoice numera y contabiliza una factura armada y marca facturadas las lecturas que cubre.
// Si cualquier paso falla se revierte todo: no quedan facturas sin asiento ni números consumidos.
func (uc *FinalizeUseCase) FinalizeInvoice(ctx context.Context, inv *entity.Invoice, pointOfSaleID string) (*Finalized, error) {
	start := time.Now()
	var out *Finalized
	err := uc.tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		f, err := uc.FinalizeInTx(ctx, repos, inv, pointOfSaleID)
		if err != nil {
			return err
		}
		if ids := inv.BilledReadingIDs(); len(ids) > 0 {
			if err := repos.Readings.MarkBilled(ctx, ids); err != nil {
				return err
			}
		}
		out = f
		return nil
	})
	metrics.ObserveFinalize(metrics.Result(err), time.Since(start))
	if err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Bool("retryable", domain.IsRetryable(err)).Msg("factura no finalizada")
		return nil, err
	}
	uc.log.Info().Str("invoice_id", out.Invoice.ID).Int64("number", *out.Invoice.DocumentNumber).
		Str("total", out.Invoice.TotalAmount.StringFixed(2)).Msg("factura emitida")
	return out, nil
}

// ComposeAndFinalize arma la factura de la lectura y la finaliza.
func (uc *FinalizeUseCase) ComposeAndFinalize(ctx context.Context, readingID string, dueDate time.Time, pointOfSaleID string) (*Finalized, error) {
	inv, err := uc.Compose(ctx, readingID, dueDate, pointOfSaleID)
	if err != nil {
		return nil, err
	}
	return uc.FinalizeInvoice(ctx, inv, pointOfSaleID)
}

// Compose arma la factura de una lectura sin persistir nada.
func (uc *FinalizeUseCase) Compose(ctx context.Context, readingID string, dueDate time.Time, pointOfSaleID string) (*entity.Invoice, error) {
	if readingID == "" {
		return nil, domain.NewValidation("readingId", "requerido")
	}
	reading, err := uc.repos.Readings.GetByID(ctx, readingID)
	if err != nil {
		return nil, fmt.Errorf("obtener lectura: %w", err)
	}
	if reading == nil {
		return nil, domain.NewNotFound("lectura", readingID)
	}
	pos, err := uc.pointOfSale(ctx, uc.repos, pointOfSaleID)
	if err != nil {
		return nil, err
	}
	return uc.composer.ComposeInvoice(ctx, reading, dueDate, pos)
}

// FinalizeInTx ejecuta numeración, asiento y movimiento de cuenta corriente con los repos
// de una transacción abierta por el llamador. No marca la lectura de origen.
func (uc *FinalizeUseCase) FinalizeInTx(ctx context.Context, repos repository.Repos, inv *entity.Invoice, pointOfSaleID string) (*Finalized, error) {
	pos, err := uc.pointOfSale(ctx, repos, pointOfSaleID)
	if err != nil {
		return nil, err
	}
	numbered, err := uc.seq.AssignAndPersist(ctx, repos, inv, pos)
	if err != nil {
		return nil, err
	}
	entry, err := uc.poster.PostInvoice(ctx, repos, numbered)
	if err != nil {
		return nil, err
	}
	mov, err := uc.debitMovement(ctx, repos, numbered, pos)
	if err != nil {
		return nil, err
	}
	return &Finalized{Invoice: numbered, Entry: entry, Movement: mov}, nil
}

// GetInvoice devuelve una factura persistida.
func (uc *FinalizeUseCase) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := uc.repos.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.NewNotFound("factura", id)
	}
	return inv, nil
}

// debitMovement registra el DEBE en la cuenta corriente del socio por el total.
func (uc *FinalizeUseCase) debitMovement(ctx context.Context, repos repository.Repos, inv *entity.Invoice, pos *entity.PointOfSale) (*entity.AccountMovement, error) {
	docType, err := repos.DocumentTypes.GetByID(ctx, inv.DocumentTypeID)
	if err != nil {
		return nil, fmt.Errorf("obtener tipo de comprobante: %w", err)
	}
	if docType == nil {
		return nil, domain.NewConfig("document_type."+inv.DocumentTypeID, "tipo de comprobante inexistente")
	}
	mov := &entity.AccountMovement{
		ID:         uuid.New().String(),
		CustomerID: inv.CustomerID,
		InvoiceID:  inv.ID,
		Date:       inv.IssueDate,
		Kind:       entity.MovementDebit,
		Concept: fmt.Sprintf("%s %s %s", docType.Description, docType.Letter,
			entity.FormatNumber(pos.Number, *inv.DocumentNumber)),
		Amount:    inv.TotalAmount,
		CreatedAt: time.Now(),
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento de cuenta corriente: %w", err)
	}
	return mov, nil
}

func (uc *FinalizeUseCase) pointOfSale(ctx context.Context, repos repository.Repos, id string) (*entity.PointOfSale, error) {
	if id == "" {
		return nil, domain.NewValidation("pointOfSaleId", "requerido")
	}
	pos, err := repos.PointsOfSale.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener punto de venta: %w", err)
	}
	if pos == nil {
		return nil, domain.NewNotFound("punto de venta", id)
	}
	return pos, nil
}
