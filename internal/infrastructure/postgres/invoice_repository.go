package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository      = (*InvoiceRepo)(nil)
	_ repository.DocumentTypeRepository = (*DocumentTypeRepo)(nil)
	_ repository.PointOfSaleRepository  = (*PointOfSaleRepo)(nil)
	_ repository.SequenceRepository     = (*SequenceRepo)(nil)
)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera y sus líneas. La factura debe estar numerada.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.DocumentNumber == nil {
		return domain.NewValidation("document_number", "la factura no tiene número asignado")
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, customer_id, supply_id, contract_id, point_of_sale_id, document_type_id,
			document_number, issue_date, period_from, period_to, due_date,
			net_amount, tax_amount, total_amount, status, source_reading_id, consumption_units, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CustomerID, inv.SupplyID, inv.ContractID, inv.PointOfSaleID, inv.DocumentTypeID,
		*inv.DocumentNumber, inv.IssueDate, inv.PeriodFrom, inv.PeriodTo, inv.DueDate,
		inv.NetAmount, inv.TaxAmount, inv.TotalAmount, inv.Status, nullIfEmpty(inv.SourceReadingID),
		inv.ConsumptionUnits, inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	lineQuery := `
		INSERT INTO invoice_lines (id, invoice_id, line_no, concept_id, concept_code, description,
			quantity, unit_price, net_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, l := range inv.Lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.InvoiceID = inv.ID
		if _, err := r.q.Exec(ctx, lineQuery, l.ID, inv.ID, i+1, l.ConceptID, l.ConceptCode, l.Description,
			l.Quantity, l.UnitPrice, l.NetAmount); err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene una factura completa (cabecera y líneas) por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `
		SELECT id, customer_id, supply_id, contract_id, point_of_sale_id, document_type_id,
		       document_number, issue_date, period_from, period_to, due_date,
		       net_amount, tax_amount, total_amount, status, source_reading_id, consumption_units, created_at
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	var number int64
	var sourceReading *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.CustomerID, &inv.SupplyID, &inv.ContractID, &inv.PointOfSaleID, &inv.DocumentTypeID,
		&number, &inv.IssueDate, &inv.PeriodFrom, &inv.PeriodTo, &inv.DueDate,
		&inv.NetAmount, &inv.TaxAmount, &inv.TotalAmount, &inv.Status, &sourceReading, &inv.ConsumptionUnits,
		&inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.DocumentNumber = &number
	inv.SourceReadingID = derefString(sourceReading)

	lines, err := r.lines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

func (r *InvoiceRepo) lines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT id, invoice_id, concept_id, concept_code, description, quantity, unit_price, net_amount
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ConceptID, &l.ConceptCode, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.NetAmount); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// MaxNumber devuelve el mayor número emitido para (punto de venta, tipo) o 0.
func (r *InvoiceRepo) MaxNumber(ctx context.Context, pointOfSaleID, documentTypeID string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(document_number), 0) FROM invoices
		WHERE point_of_sale_id = $1 AND document_type_id = $2`
	var n int64
	if err := r.q.QueryRow(ctx, query, pointOfSaleID, documentTypeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("max invoice number: %w", err)
	}
	return n, nil
}

// DocumentTypeRepo implementación de DocumentTypeRepository.
type DocumentTypeRepo struct {
	q Querier
}

// NewDocumentTypeRepository construye el adaptador.
func NewDocumentTypeRepository(q Querier) *DocumentTypeRepo {
	return &DocumentTypeRepo{q: q}
}

// GetByID obtiene un tipo de comprobante por ID.
func (r *DocumentTypeRepo) GetByID(ctx context.Context, id string) (*entity.DocumentType, error) {
	return r.one(ctx, `SELECT id, afip_code, letter, description FROM document_types WHERE id = $1`, id)
}

// GetByAfipCode obtiene un tipo de comprobante por código AFIP.
func (r *DocumentTypeRepo) GetByAfipCode(ctx context.Context, code string) (*entity.DocumentType, error) {
	return r.one(ctx, `SELECT id, afip_code, letter, description FROM document_types WHERE afip_code = $1`, code)
}

func (r *DocumentTypeRepo) one(ctx context.Context, query, arg string) (*entity.DocumentType, error) {
	var d entity.DocumentType
	if err := r.q.QueryRow(ctx, query, arg).Scan(&d.ID, &d.AfipCode, &d.Letter, &d.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document type: %w", err)
	}
	return &d, nil
}

// Create persiste un tipo de comprobante.
func (r *DocumentTypeRepo) Create(ctx context.Context, d *entity.DocumentType) error {
	query := `INSERT INTO document_types (id, afip_code, letter, description) VALUES ($1, $2, $3, $4)`
	if _, err := r.q.Exec(ctx, query, d.ID, d.AfipCode, d.Letter, d.Description); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert document type: %w", err)
	}
	return nil
}

// PointOfSaleRepo implementación de PointOfSaleRepository.
type PointOfSaleRepo struct {
	q Querier
}

// NewPointOfSaleRepository construye el adaptador.
func NewPointOfSaleRepository(q Querier) *PointOfSaleRepo {
	return &PointOfSaleRepo{q: q}
}

// GetByID obtiene un punto de venta por ID.
func (r *PointOfSaleRepo) GetByID(ctx context.Context, id string) (*entity.PointOfSale, error) {
	query := `SELECT id, number, description, enabled, created_at FROM points_of_sale WHERE id = $1`
	var p entity.PointOfSale
	if err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Number, &p.Description, &p.Enabled, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get point of sale: %w", err)
	}
	return &p, nil
}

// Create persiste un punto de venta.
func (r *PointOfSaleRepo) Create(ctx context.Context, p *entity.PointOfSale) error {
	query := `INSERT INTO points_of_sale (id, number, description, enabled, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.q.Exec(ctx, query, p.ID, p.Number, p.Description, p.Enabled, p.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert point of sale: %w", err)
	}
	return nil
}

// SequenceRepo implementación de SequenceRepository sobre document_sequences.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// LockForUpdate crea la fila si no existe y la bloquea hasta el fin de la transacción.
// Si otro proceso la tiene tomada más de lock_timeout devuelve ConcurrencyError.
func (r *SequenceRepo) LockForUpdate(ctx context.Context, pointOfSaleID, documentTypeID string) (*entity.DocumentSequence, error) {
	insert := `
		INSERT INTO document_sequences (point_of_sale_id, document_type_id, last_number, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (point_of_sale_id, document_type_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, pointOfSaleID, documentTypeID); err != nil {
		if isLockTimeout(err) {
			return nil, &domain.ConcurrencyError{Resource: "secuencia " + pointOfSaleID + "/" + documentTypeID, Err: err}
		}
		return nil, fmt.Errorf("ensure document sequence: %w", err)
	}

	query := `
		SELECT point_of_sale_id, document_type_id, last_number, updated_at
		FROM document_sequences
		WHERE point_of_sale_id = $1 AND document_type_id = $2
		FOR UPDATE`
	var s entity.DocumentSequence
	err := r.q.QueryRow(ctx, query, pointOfSaleID, documentTypeID).
		Scan(&s.PointOfSaleID, &s.DocumentTypeID, &s.LastNumber, &s.UpdatedAt)
	if err != nil {
		if isLockTimeout(err) {
			return nil, &domain.ConcurrencyError{Resource: "secuencia " + pointOfSaleID + "/" + documentTypeID, Err: err}
		}
		return nil, fmt.Errorf("lock document sequence: %w", err)
	}
	return &s, nil
}

// Update avanza last_number. Solo crece: un valor menor o igual al vigente es un conflicto.
func (r *SequenceRepo) Update(ctx context.Context, seq *entity.DocumentSequence) error {
	query := `
		UPDATE document_sequences SET last_number = $3, updated_at = now()
		WHERE point_of_sale_id = $1 AND document_type_id = $2 AND last_number < $3`
	tag, err := r.q.Exec(ctx, query, seq.PointOfSaleID, seq.DocumentTypeID, seq.LastNumber)
	if err != nil {
		return fmt.Errorf("update document sequence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConcurrencyError{Resource: "secuencia " + seq.PointOfSaleID + "/" + seq.DocumentTypeID}
	}
	return nil
}
