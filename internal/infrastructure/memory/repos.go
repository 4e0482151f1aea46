package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
)

var (
	_ repository.ReadingRepository      = (*readingRepo)(nil)
	_ repository.TariffRepository       = (*tariffRepo)(nil)
	_ repository.ConceptRepository      = (*conceptRepo)(nil)
	_ repository.ContractRepository     = (*contractRepo)(nil)
	_ repository.SupplyRepository       = (*supplyRepo)(nil)
	_ repository.CustomerRepository     = (*customerRepo)(nil)
	_ repository.DocumentTypeRepository = (*docTypeRepo)(nil)
	_ repository.PointOfSaleRepository  = (*posRepo)(nil)
	_ repository.SequenceRepository     = (*sequenceRepo)(nil)
	_ repository.InvoiceRepository      = (*invoiceRepo)(nil)
	_ repository.AccountRepository      = (*accountRepo)(nil)
	_ repository.ParameterRepository    = (*paramRepo)(nil)
	_ repository.LedgerRepository       = (*ledgerRepo)(nil)
	_ repository.MovementRepository     = (*movementRepo)(nil)
	_ repository.BillingRunRepository   = (*runRepo)(nil)
)

// ── lecturas ─────────────────────────────────────────────────────────────────

type readingRepo struct{ v *view }

func (r *readingRepo) Create(_ context.Context, m *entity.MeterReading) error {
	if err := r.v.s.fail("readings.create"); err != nil {
		return err
	}
	c := *m
	if r.v.tx != nil {
		r.v.tx.readings[c.ID] = &c
	}
	return r.v.write(txOp{
		check: func() error {
			if _, ok := r.v.s.readings[c.ID]; ok {
				return domain.ErrDuplicate
			}
			return nil
		},
		apply: func() { r.v.s.readings[c.ID] = &c },
	})
}

// all devuelve copias de las lecturas del store más las pendientes de la tx.
func (r *readingRepo) all(filter func(*entity.MeterReading) bool) []*entity.MeterReading {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	var out []*entity.MeterReading
	add := func(m *entity.MeterReading) {
		c := *m
		if r.v.tx != nil && r.v.tx.billed[c.ID] {
			c.Billed = true
		}
		if filter(&c) {
			out = append(out, &c)
		}
	}
	for _, m := range r.v.s.readings {
		add(m)
	}
	if r.v.tx != nil {
		for id, m := range r.v.tx.readings {
			if _, committed := r.v.s.readings[id]; !committed {
				add(m)
			}
		}
	}
	return out
}

func (r *readingRepo) GetByID(_ context.Context, id string) (*entity.MeterReading, error) {
	found := r.all(func(m *entity.MeterReading) bool { return m.ID == id })
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *readingRepo) Latest(_ context.Context, contractID string) (*entity.MeterReading, error) {
	list := r.all(func(m *entity.MeterReading) bool { return m.ContractID == contractID })
	return lastByPeriod(list), nil
}

func (r *readingRepo) LastBefore(_ context.Context, contractID string, date time.Time) (*entity.MeterReading, error) {
	list := r.all(func(m *entity.MeterReading) bool {
		return m.ContractID == contractID && m.PeriodDate.Before(date)
	})
	return lastByPeriod(list), nil
}

func (r *readingRepo) FirstAfter(_ context.Context, contractID string, date time.Time) (*entity.MeterReading, error) {
	list := r.all(func(m *entity.MeterReading) bool {
		return m.ContractID == contractID && m.PeriodDate.After(date)
	})
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PeriodDate.Before(list[j].PeriodDate) })
	return list[0], nil
}

func (r *readingRepo) ListBetween(_ context.Context, contractID string, after, upTo time.Time) ([]*entity.MeterReading, error) {
	list := r.all(func(m *entity.MeterReading) bool {
		return m.ContractID == contractID && (after.IsZero() || m.PeriodDate.After(after)) && !m.PeriodDate.After(upTo)
	})
	sort.Slice(list, func(i, j int) bool { return list[i].PeriodDate.Before(list[j].PeriodDate) })
	return list, nil
}

func (r *readingRepo) ListUnbilled(_ context.Context, period time.Time, afterID string, limit int) ([]*entity.MeterReading, error) {
	end := period.AddDate(0, 1, 0)
	list := r.all(func(m *entity.MeterReading) bool {
		return !m.Billed && m.ID > afterID && !m.PeriodDate.Before(period) && m.PeriodDate.Before(end)
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *readingRepo) MarkBilled(_ context.Context, ids []string) error {
	if err := r.v.s.fail("readings.mark_billed"); err != nil {
		return err
	}
	ids = append([]string(nil), ids...)
	if r.v.tx != nil {
		for _, id := range ids {
			if r.v.tx.billed[id] {
				return &domain.ConcurrencyError{Resource: "lectura " + id, Err: fmt.Errorf("ya facturada")}
			}
			r.v.tx.billed[id] = true
		}
	}
	return r.v.write(txOp{
		check: func() error {
			for _, id := range ids {
				m, ok := r.v.s.readings[id]
				if !ok {
					if r.v.tx != nil && r.v.tx.readings[id] != nil {
						continue
					}
					return domain.NewNotFound("lectura", id)
				}
				if m.Billed {
					return &domain.ConcurrencyError{Resource: "lectura " + id, Err: fmt.Errorf("ya facturada")}
				}
			}
			return nil
		},
		apply: func() {
			for _, id := range ids {
				r.v.s.readings[id].Billed = true
			}
		},
	})
}

func lastByPeriod(list []*entity.MeterReading) *entity.MeterReading {
	if len(list) == 0 {
		return nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PeriodDate.After(list[j].PeriodDate) })
	return list[0]
}

// ── tarifas ──────────────────────────────────────────────────────────────────

type tariffRepo struct{ v *view }

func (r *tariffRepo) GetCategory(_ context.Context, id string) (*entity.TariffCategory, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.categories[id]), nil
}

func (r *tariffRepo) GetCategoryByCode(_ context.Context, code string) (*entity.TariffCategory, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	for _, c := range r.v.s.categories {
		if c.Code == code {
			return copyOf(c), nil
		}
	}
	return nil, nil
}

func (r *tariffRepo) CreateCategory(_ context.Context, c *entity.TariffCategory) error {
	cp := *c
	return r.v.write(txOp{apply: func() { r.v.s.categories[cp.ID] = &cp }})
}

func (r *tariffRepo) EffectiveAt(_ context.Context, categoryID string, at time.Time) ([]*entity.TariffPrice, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	var out []*entity.TariffPrice
	for _, p := range r.v.s.prices {
		if p.CategoryID == categoryID && p.EffectiveAt(at) {
			out = append(out, copyOf(p))
		}
	}
	return out, nil
}

func (r *tariffRepo) ListByConcept(_ context.Context, categoryID, conceptID string) ([]*entity.TariffPrice, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	var out []*entity.TariffPrice
	for _, p := range r.v.s.prices {
		if p.CategoryID == categoryID && p.ConceptID == conceptID {
			out = append(out, copyOf(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidFrom.Before(out[j].ValidFrom) })
	return out, nil
}

func (r *tariffRepo) Create(_ context.Context, p *entity.TariffPrice) error {
	cp := *p
	return r.v.write(txOp{
		check: func() error {
			concept, ok := r.v.s.concepts[cp.ConceptID]
			if !ok {
				return domain.NewNotFound("concepto", cp.ConceptID)
			}
			cp.ConceptCode = concept.Code
			if cp.Description == "" {
				cp.Description = concept.Description
			}
			return nil
		},
		apply: func() { r.v.s.prices[cp.ID] = &cp },
	})
}

func (r *tariffRepo) Close(_ context.Context, id string, validTo time.Time) error {
	return r.v.write(txOp{
		check: func() error {
			p, ok := r.v.s.prices[id]
			if !ok {
				return domain.NewNotFound("precio", id)
			}
			if p.ValidTo != nil {
				return domain.ErrConflict
			}
			return nil
		},
		apply: func() {
			t := validTo
			r.v.s.prices[id].ValidTo = &t
		},
	})
}

type conceptRepo struct{ v *view }

func (r *conceptRepo) GetByCode(_ context.Context, code string) (*entity.Concept, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	for _, c := range r.v.s.concepts {
		if c.Code == code {
			return copyOf(c), nil
		}
	}
	return nil, nil
}

func (r *conceptRepo) Create(_ context.Context, c *entity.Concept) error {
	cp := *c
	return r.v.write(txOp{apply: func() { r.v.s.concepts[cp.ID] = &cp }})
}

// ── contratos, suministros y socios ──────────────────────────────────────────

type contractRepo struct{ v *view }

func (r *contractRepo) GetByID(_ context.Context, id string) (*entity.ServiceContract, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.contracts[id]), nil
}

func (r *contractRepo) GetForUpdate(ctx context.Context, id string) (*entity.ServiceContract, error) {
	if err := r.v.lock(ctx, "contract:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *contractRepo) ActiveBySupply(_ context.Context, supplyID string, at time.Time) (*entity.ServiceContract, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	var best *entity.ServiceContract
	for _, c := range r.v.s.contracts {
		if c.SupplyID != supplyID || !c.Metered() || !c.ActiveAt(at) {
			continue
		}
		if best == nil || c.StartDate.After(best.StartDate) {
			best = c
		}
	}
	return copyOf(best), nil
}

func (r *contractRepo) Create(_ context.Context, c *entity.ServiceContract) error {
	cp := *c
	return r.v.write(txOp{apply: func() { r.v.s.contracts[cp.ID] = &cp }})
}

type supplyRepo struct{ v *view }

func (r *supplyRepo) GetByID(_ context.Context, id string) (*entity.Supply, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.supplies[id]), nil
}

func (r *supplyRepo) Create(_ context.Context, s *entity.Supply) error {
	cp := *s
	return r.v.write(txOp{apply: func() { r.v.s.supplies[cp.ID] = &cp }})
}

type customerRepo struct{ v *view }

func (r *customerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.customers[id]), nil
}

func (r *customerRepo) Create(_ context.Context, c *entity.Customer) error {
	cp := *c
	return r.v.write(txOp{apply: func() { r.v.s.customers[cp.ID] = &cp }})
}

// ── comprobantes y numeración ────────────────────────────────────────────────

type docTypeRepo struct{ v *view }

func (r *docTypeRepo) GetByID(_ context.Context, id string) (*entity.DocumentType, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.docTypes[id]), nil
}

func (r *docTypeRepo) GetByAfipCode(_ context.Context, code string) (*entity.DocumentType, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	for _, d := range r.v.s.docTypes {
		if d.AfipCode == code {
			return copyOf(d), nil
		}
	}
	return nil, nil
}

func (r *docTypeRepo) Create(_ context.Context, d *entity.DocumentType) error {
	cp := *d
	return r.v.write(txOp{apply: func() { r.v.s.docTypes[cp.ID] = &cp }})
}

type posRepo struct{ v *view }

func (r *posRepo) GetByID(_ context.Context, id string) (*entity.PointOfSale, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.pos[id]), nil
}

func (r *posRepo) Create(_ context.Context, p *entity.PointOfSale) error {
	cp := *p
	return r.v.write(txOp{apply: func() { r.v.s.pos[cp.ID] = &cp }})
}

type sequenceRepo struct{ v *view }

func (r *sequenceRepo) LockForUpdate(ctx context.Context, pointOfSaleID, documentTypeID string) (*entity.DocumentSequence, error) {
	if err := r.v.lock(ctx, "sequence:"+pointOfSaleID+":"+documentTypeID); err != nil {
		return nil, err
	}
	key := seqKey{pointOfSaleID, documentTypeID}
	if r.v.tx != nil {
		if seq, ok := r.v.tx.sequences[key]; ok {
			return copyOf(seq), nil
		}
	}
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	if seq, ok := r.v.s.sequences[key]; ok {
		return copyOf(seq), nil
	}
	return &entity.DocumentSequence{PointOfSaleID: pointOfSaleID, DocumentTypeID: documentTypeID}, nil
}

func (r *sequenceRepo) Update(_ context.Context, seq *entity.DocumentSequence) error {
	if err := r.v.s.fail("sequences.update"); err != nil {
		return err
	}
	cp := *seq
	cp.UpdatedAt = time.Now()
	key := seqKey{cp.PointOfSaleID, cp.DocumentTypeID}
	if r.v.tx != nil {
		r.v.tx.sequences[key] = &cp
	}
	return r.v.write(txOp{
		check: func() error {
			if cur, ok := r.v.s.sequences[key]; ok && cur.LastNumber >= cp.LastNumber {
				return &domain.ConcurrencyError{Resource: "secuencia " + cp.PointOfSaleID + "/" + cp.DocumentTypeID}
			}
			return nil
		},
		apply: func() { r.v.s.sequences[key] = &cp },
	})
}

type invoiceRepo struct{ v *view }

func (r *invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if err := r.v.s.fail("invoices.create"); err != nil {
		return err
	}
	cp := inv.Clone()
	if r.v.tx != nil {
		for _, staged := range r.v.tx.invoices {
			if sameNumber(staged, cp) {
				return domain.ErrDuplicate
			}
		}
		r.v.tx.invoices[cp.ID] = cp
	}
	return r.v.write(txOp{
		check: func() error {
			for _, existing := range r.v.s.invoices {
				if existing.ID == cp.ID || sameNumber(existing, cp) {
					return domain.ErrDuplicate
				}
			}
			return nil
		},
		apply: func() { r.v.s.invoices[cp.ID] = cp },
	})
}

func (r *invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	if r.v.tx != nil {
		if inv, ok := r.v.tx.invoices[id]; ok {
			return inv.Clone(), nil
		}
	}
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	if inv, ok := r.v.s.invoices[id]; ok {
		return inv.Clone(), nil
	}
	return nil, nil
}

func (r *invoiceRepo) MaxNumber(_ context.Context, pointOfSaleID, documentTypeID string) (int64, error) {
	var max int64
	consider := func(inv *entity.Invoice) {
		if inv.PointOfSaleID == pointOfSaleID && inv.DocumentTypeID == documentTypeID &&
			inv.DocumentNumber != nil && *inv.DocumentNumber > max {
			max = *inv.DocumentNumber
		}
	}
	if r.v.tx != nil {
		for _, inv := range r.v.tx.invoices {
			consider(inv)
		}
	}
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	for _, inv := range r.v.s.invoices {
		consider(inv)
	}
	return max, nil
}

func sameNumber(a, b *entity.Invoice) bool {
	return a.DocumentNumber != nil && b.DocumentNumber != nil &&
		a.PointOfSaleID == b.PointOfSaleID && a.DocumentTypeID == b.DocumentTypeID &&
		*a.DocumentNumber == *b.DocumentNumber
}

// ── contabilidad ─────────────────────────────────────────────────────────────

type accountRepo struct{ v *view }

func (r *accountRepo) GetByCode(_ context.Context, code string) (*entity.Account, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	for _, a := range r.v.s.accounts {
		if a.Code == code {
			return copyOf(a), nil
		}
	}
	return nil, nil
}

func (r *accountRepo) List(_ context.Context) ([]*entity.Account, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	out := make([]*entity.Account, 0, len(r.v.s.accounts))
	for _, a := range r.v.s.accounts {
		out = append(out, copyOf(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *accountRepo) Create(_ context.Context, a *entity.Account) error {
	cp := *a
	return r.v.write(txOp{
		check: func() error {
			for _, existing := range r.v.s.accounts {
				if existing.Code == cp.Code {
					return domain.ErrDuplicate
				}
			}
			return nil
		},
		apply: func() { r.v.s.accounts[cp.ID] = &cp },
	})
}

func (r *accountRepo) Delete(_ context.Context, id string) error {
	return r.v.write(txOp{
		check: func() error {
			for _, a := range r.v.s.accounts {
				if a.ParentID == id {
					return domain.ErrConflict
				}
			}
			return nil
		},
		apply: func() { delete(r.v.s.accounts, id) },
	})
}

type paramRepo struct{ v *view }

func (r *paramRepo) AccountCode(_ context.Context, key string) (string, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return r.v.s.params[key], nil
}

func (r *paramRepo) Set(_ context.Context, p *entity.AccountingParameter) error {
	key, code := p.Key, p.AccountCode
	return r.v.write(txOp{apply: func() { r.v.s.params[key] = code }})
}

type ledgerRepo struct{ v *view }

func (r *ledgerRepo) Create(_ context.Context, e *entity.LedgerEntry) error {
	if err := r.v.s.fail("ledger.create"); err != nil {
		return err
	}
	cp := copyEntry(e)
	if r.v.tx != nil {
		r.v.tx.entries[cp.ID] = cp
	}
	return r.v.write(txOp{apply: func() { r.v.s.entries[cp.ID] = cp }})
}

func (r *ledgerRepo) GetByInvoiceID(_ context.Context, invoiceID string) (*entity.LedgerEntry, error) {
	if r.v.tx != nil {
		for _, e := range r.v.tx.entries {
			if e.InvoiceID == invoiceID {
				return copyEntry(e), nil
			}
		}
	}
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	for _, e := range r.v.s.entries {
		if e.InvoiceID == invoiceID {
			return copyEntry(e), nil
		}
	}
	return nil, nil
}

type movementRepo struct{ v *view }

func (r *movementRepo) Create(_ context.Context, m *entity.AccountMovement) error {
	if err := r.v.s.fail("movements.create"); err != nil {
		return err
	}
	cp := *m
	return r.v.write(txOp{apply: func() { r.v.s.movements[cp.ID] = &cp }})
}

func (r *movementRepo) ListByCustomer(_ context.Context, customerID string) ([]*entity.AccountMovement, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	var out []*entity.AccountMovement
	for _, m := range r.v.s.movements {
		if m.CustomerID == customerID {
			out = append(out, copyOf(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type runRepo struct{ v *view }

func (r *runRepo) Create(_ context.Context, run *entity.BillingRun) error {
	cp := *run
	return r.v.write(txOp{apply: func() { r.v.s.runs[cp.ID] = &cp }})
}

func (r *runRepo) Update(_ context.Context, run *entity.BillingRun) error {
	cp := *run
	return r.v.write(txOp{
		check: func() error {
			if _, ok := r.v.s.runs[cp.ID]; !ok {
				return domain.NewNotFound("corrida", cp.ID)
			}
			return nil
		},
		apply: func() { r.v.s.runs[cp.ID] = &cp },
	})
}

func (r *runRepo) GetByID(_ context.Context, id string) (*entity.BillingRun, error) {
	r.v.s.mu.RLock()
	defer r.v.s.mu.RUnlock()
	return copyOf(r.v.s.runs[id]), nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// copyOf devuelve una copia superficial para que los llamadores no muten el store.
func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyEntry(e *entity.LedgerEntry) *entity.LedgerEntry {
	c := *e
	c.Lines = make([]*entity.LedgerLine, len(e.Lines))
	for i, l := range e.Lines {
		c.Lines[i] = copyOf(l)
	}
	return &c
}
