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
	_ repository.AccountRepository   = (*AccountRepo)(nil)
	_ repository.ParameterRepository = (*ParameterRepo)(nil)
	_ repository.LedgerRepository    = (*LedgerRepo)(nil)
	_ repository.MovementRepository  = (*MovementRepo)(nil)
)

// AccountRepo implementación de AccountRepository sobre el plan de cuentas.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador.
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// GetByCode obtiene una cuenta por código.
func (r *AccountRepo) GetByCode(ctx context.Context, code string) (*entity.Account, error) {
	query := `SELECT id, code, name, parent_id, postable, created_at FROM accounts WHERE code = $1`
	a, err := scanAccount(r.q.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// List devuelve el plan completo ordenado por código.
func (r *AccountRepo) List(ctx context.Context) ([]*entity.Account, error) {
	rows, err := r.q.Query(ctx, `SELECT id, code, name, parent_id, postable, created_at FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var list []*entity.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Create persiste una cuenta. Un código repetido devuelve ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	query := `INSERT INTO accounts (id, code, name, parent_id, postable, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.q.Exec(ctx, query, a.ID, a.Code, a.Name, nullIfEmpty(a.ParentID), a.Postable, a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Delete elimina una cuenta sin hijos ni imputaciones.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM accounts a
		WHERE a.id = $1
		  AND NOT EXISTS (SELECT 1 FROM accounts c WHERE c.parent_id = a.id)
		  AND NOT EXISTS (SELECT 1 FROM ledger_lines l WHERE l.account_id = a.id)`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	var a entity.Account
	var parent *string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &parent, &a.Postable, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ParentID = derefString(parent)
	return &a, nil
}

// ParameterRepo implementación de ParameterRepository.
type ParameterRepo struct {
	q Querier
}

// NewParameterRepository construye el adaptador.
func NewParameterRepository(q Querier) *ParameterRepo {
	return &ParameterRepo{q: q}
}

// AccountCode devuelve el código vinculado a la clave o "" si no existe.
func (r *ParameterRepo) AccountCode(ctx context.Context, key string) (string, error) {
	var code string
	err := r.q.QueryRow(ctx, `SELECT account_code FROM accounting_parameters WHERE key = $1`, key).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get accounting parameter: %w", err)
	}
	return code, nil
}

// Set crea o reemplaza la vinculación de la clave.
func (r *ParameterRepo) Set(ctx context.Context, p *entity.AccountingParameter) error {
	query := `
		INSERT INTO accounting_parameters (key, account_code) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET account_code = EXCLUDED.account_code`
	if _, err := r.q.Exec(ctx, query, p.Key, p.AccountCode); err != nil {
		return fmt.Errorf("set accounting parameter: %w", err)
	}
	return nil
}

// LedgerRepo implementación de LedgerRepository.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Create persiste cabecera y líneas del asiento.
func (r *LedgerRepo) Create(ctx context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO ledger_entries (id, entry_date, description, origin, invoice_id, total_debit, total_credit, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.q.Exec(ctx, query, e.ID, e.Date, e.Description, e.Origin, nullIfEmpty(e.InvoiceID),
		e.TotalDebit, e.TotalCredit, e.Status, e.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	lineQuery := `
		INSERT INTO ledger_lines (id, entry_id, line_no, account_id, account_code, description, debit, credit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, l := range e.Lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.EntryID = e.ID
		if _, err := r.q.Exec(ctx, lineQuery, l.ID, e.ID, i+1, l.AccountID, l.AccountCode, l.Description,
			l.Debit, l.Credit); err != nil {
			return fmt.Errorf("insert ledger line: %w", err)
		}
	}
	return nil
}

// GetByInvoiceID obtiene el asiento generado por una factura.
func (r *LedgerRepo) GetByInvoiceID(ctx context.Context, invoiceID string) (*entity.LedgerEntry, error) {
	query := `
		SELECT id, entry_date, description, origin, invoice_id, total_debit, total_credit, status, created_at
		FROM ledger_entries WHERE invoice_id = $1`
	var e entity.LedgerEntry
	var inv *string
	err := r.q.QueryRow(ctx, query, invoiceID).Scan(&e.ID, &e.Date, &e.Description, &e.Origin, &inv,
		&e.TotalDebit, &e.TotalCredit, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	e.InvoiceID = derefString(inv)

	rows, err := r.q.Query(ctx, `
		SELECT id, entry_id, account_id, account_code, description, debit, credit
		FROM ledger_lines WHERE entry_id = $1 ORDER BY line_no`, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list ledger lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.LedgerLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.AccountCode, &l.Description, &l.Debit, &l.Credit); err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		e.Lines = append(e.Lines, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}

// MovementRepo implementación de MovementRepository.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador.
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento de cuenta corriente.
func (r *MovementRepo) Create(ctx context.Context, m *entity.AccountMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO account_movements (id, customer_id, invoice_id, movement_date, kind, concept, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.q.Exec(ctx, query, m.ID, m.CustomerID, nullIfEmpty(m.InvoiceID), m.Date, m.Kind,
		m.Concept, m.Amount, m.CreatedAt); err != nil {
		return fmt.Errorf("insert account movement: %w", err)
	}
	return nil
}

// ListByCustomer devuelve los movimientos del socio en orden cronológico.
func (r *MovementRepo) ListByCustomer(ctx context.Context, customerID string) ([]*entity.AccountMovement, error) {
	query := `
		SELECT id, customer_id, invoice_id, movement_date, kind, concept, amount, created_at
		FROM account_movements WHERE customer_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list account movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.AccountMovement
	for rows.Next() {
		var m entity.AccountMovement
		var inv *string
		if err := rows.Scan(&m.ID, &m.CustomerID, &inv, &m.Date, &m.Kind, &m.Concept, &m.Amount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account movement: %w", err)
		}
		m.InvoiceID = derefString(inv)
		list = append(list, &m)
	}
	return list, rows.Err()
}
