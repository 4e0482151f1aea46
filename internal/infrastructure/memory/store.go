// Package memory implementa todos los puertos de repositorio en memoria, con transacciones
// que bufferizan escrituras y locks exclusivos por clave. Se usa en tests y demos.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

var _ ports.TxRunner = (*Store)(nil)

type seqKey struct{ pos, docType string }

// Store estado compartido protegido por mu.
type Store struct {
	mu sync.RWMutex

	readings   map[string]*entity.MeterReading
	prices     map[string]*entity.TariffPrice
	categories map[string]*entity.TariffCategory
	concepts   map[string]*entity.Concept
	contracts  map[string]*entity.ServiceContract
	supplies   map[string]*entity.Supply
	customers  map[string]*entity.Customer
	docTypes   map[string]*entity.DocumentType
	pos        map[string]*entity.PointOfSale
	sequences  map[seqKey]*entity.DocumentSequence
	invoices   map[string]*entity.Invoice
	accounts   map[string]*entity.Account
	params     map[string]string
	entries    map[string]*entity.LedgerEntry
	movements  map[string]*entity.AccountMovement
	runs       map[string]*entity.BillingRun

	locks       *keyedLocks
	lockTimeout time.Duration

	// FailOn, si está definido, se consulta antes de cada escritura ("invoices.create",
	// "ledger.create", "readings.mark_billed", ...). Un error aborta la escritura.
	FailOn func(op string) error
}

// NewStore crea un store vacío. lockTimeout acota la espera por un lock (0 = 5s).
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{
		readings:    make(map[string]*entity.MeterReading),
		prices:      make(map[string]*entity.TariffPrice),
		categories:  make(map[string]*entity.TariffCategory),
		concepts:    make(map[string]*entity.Concept),
		contracts:   make(map[string]*entity.ServiceContract),
		supplies:    make(map[string]*entity.Supply),
		customers:   make(map[string]*entity.Customer),
		docTypes:    make(map[string]*entity.DocumentType),
		pos:         make(map[string]*entity.PointOfSale),
		sequences:   make(map[seqKey]*entity.DocumentSequence),
		invoices:    make(map[string]*entity.Invoice),
		accounts:    make(map[string]*entity.Account),
		params:      make(map[string]string),
		entries:     make(map[string]*entity.LedgerEntry),
		movements:   make(map[string]*entity.AccountMovement),
		runs:        make(map[string]*entity.BillingRun),
		locks:       newKeyedLocks(),
		lockTimeout: lockTimeout,
	}
}

// Repos devuelve repos sin transacción: cada escritura se aplica de inmediato.
func (s *Store) Repos() repository.Repos {
	return (&view{s: s}).repos()
}

// RunBilling ejecuta fn con repos transaccionales. Las escrituras se aplican al final
// si fn no devuelve error; los locks tomados se liberan siempre.
func (s *Store) RunBilling(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	tx := newTxState()
	defer s.release(tx)

	v := &view{s: s, tx: tx}
	if err := fn(ctx, v.repos()); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range tx.ops {
		if op.check == nil {
			continue
		}
		if err := op.check(); err != nil {
			return err
		}
	}
	for _, op := range tx.ops {
		op.apply()
	}
	return nil
}

func (s *Store) release(tx *txState) {
	for key := range tx.held {
		s.locks.release(key)
	}
}

func (s *Store) fail(op string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op)
}

// ── transacción ──────────────────────────────────────────────────────────────

type txOp struct {
	check func() error // se ejecuta con s.mu tomado, antes de aplicar cualquier op
	apply func()
}

// txState escrituras pendientes visibles para la propia transacción.
type txState struct {
	ops       []txOp
	held      map[string]bool
	readings  map[string]*entity.MeterReading
	billed    map[string]bool
	invoices  map[string]*entity.Invoice
	sequences map[seqKey]*entity.DocumentSequence
	entries   map[string]*entity.LedgerEntry
}

func newTxState() *txState {
	return &txState{
		held:      make(map[string]bool),
		readings:  make(map[string]*entity.MeterReading),
		billed:    make(map[string]bool),
		invoices:  make(map[string]*entity.Invoice),
		sequences: make(map[seqKey]*entity.DocumentSequence),
		entries:   make(map[string]*entity.LedgerEntry),
	}
}

// view acceso al store, opcionalmente dentro de una transacción.
type view struct {
	s  *Store
	tx *txState
}

// write aplica la operación ahora (sin tx) o la encola para el commit.
func (v *view) write(op txOp) error {
	if v.tx != nil {
		v.tx.ops = append(v.tx.ops, op)
		return nil
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if op.check != nil {
		if err := op.check(); err != nil {
			return err
		}
	}
	op.apply()
	return nil
}

// lock toma el lock exclusivo de key hasta el fin de la transacción. Es reentrante.
func (v *view) lock(ctx context.Context, key string) error {
	if v.tx == nil || v.tx.held[key] {
		return nil
	}
	if err := v.s.locks.acquire(ctx, key, v.s.lockTimeout); err != nil {
		return &domain.ConcurrencyError{Resource: key, Err: err}
	}
	v.tx.held[key] = true
	return nil
}

func (v *view) repos() repository.Repos {
	return repository.Repos{
		Readings:      &readingRepo{v},
		Tariffs:       &tariffRepo{v},
		Concepts:      &conceptRepo{v},
		Contracts:     &contractRepo{v},
		Supplies:      &supplyRepo{v},
		Customers:     &customerRepo{v},
		DocumentTypes: &docTypeRepo{v},
		PointsOfSale:  &posRepo{v},
		Sequences:     &sequenceRepo{v},
		Invoices:      &invoiceRepo{v},
		Accounts:      &accountRepo{v},
		Parameters:    &paramRepo{v},
		Ledger:        &ledgerRepo{v},
		Movements:     &movementRepo{v},
		Runs:          &runRepo{v},
	}
}
