package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

// Sequencer asigna números correlativos sin huecos por (punto de venta, tipo de comprobante).
// Sus métodos reciben repos atados a una transacción: el lock de la fila de secuencia
// se mantiene hasta el Commit o Rollback del llamador.
type Sequencer struct{}

// NewSequencer construye el secuenciador.
func NewSequencer() *Sequencer { return &Sequencer{} }

// NextNumber bloquea la secuencia y devuelve el siguiente número: último emitido + 1, o 1.
func (s *Sequencer) NextNumber(ctx context.Context, repos repository.Repos, pointOfSaleID, documentTypeID string) (int64, error) {
	seq, err := s.lock(ctx, repos, pointOfSaleID, documentTypeID)
	if err != nil {
		return 0, err
	}
	return seq.LastNumber + 1, nil
}

// AssignAndPersist numera una copia de la factura, la persiste y actualiza el último emitido.
// La factura recibida no se modifica, de modo que un reintento de la transacción parte de cero.
func (s *Sequencer) AssignAndPersist(ctx context.Context, repos repository.Repos, inv *entity.Invoice, pos *entity.PointOfSale) (*entity.Invoice, error) {
	if inv == nil {
		return nil, domain.NewValidation("invoice", "requerida")
	}
	if inv.Numbered() {
		return nil, domain.NewValidation("invoice", fmt.Sprintf("la factura %s ya tiene número", inv.ID))
	}
	if err := checkPointOfSale(pos); err != nil {
		return nil, err
	}
	if inv.DocumentTypeID == "" {
		return nil, domain.NewValidation("documentTypeId", "requerido")
	}

	seq, err := s.lock(ctx, repos, pos.ID, inv.DocumentTypeID)
	if err != nil {
		return nil, err
	}
	number := seq.LastNumber + 1

	numbered := inv.Clone()
	numbered.PointOfSaleID = pos.ID
	numbered.DocumentNumber = &number
	numbered.Status = entity.InvoiceStatusIssuedPending

	if err := repos.Invoices.Create(ctx, numbered); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, &domain.ConcurrencyError{Resource: sequenceResource(pos.ID, inv.DocumentTypeID), Err: err}
		}
		return nil, fmt.Errorf("persistir factura: %w", err)
	}

	seq.LastNumber = number
	if err := repos.Sequences.Update(ctx, seq); err != nil {
		return nil, fmt.Errorf("actualizar secuencia: %w", err)
	}
	return numbered, nil
}

// lock toma la fila de secuencia y la concilia con el mayor número ya persistido.
func (s *Sequencer) lock(ctx context.Context, repos repository.Repos, pointOfSaleID, documentTypeID string) (*entity.DocumentSequence, error) {
	seq, err := repos.Sequences.LockForUpdate(ctx, pointOfSaleID, documentTypeID)
	if err != nil {
		if domain.IsRetryable(err) {
			return nil, err
		}
		return nil, fmt.Errorf("bloquear secuencia: %w", err)
	}
	persisted, err := repos.Invoices.MaxNumber(ctx, pointOfSaleID, documentTypeID)
	if err != nil {
		return nil, fmt.Errorf("obtener último número: %w", err)
	}
	if persisted > seq.LastNumber {
		seq.LastNumber = persisted
	}
	return seq, nil
}

func sequenceResource(pointOfSaleID, documentTypeID string) string {
	return "secuencia " + pointOfSaleID + "/" + documentTypeID
}
