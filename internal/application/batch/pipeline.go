// Package batch implementa la facturación masiva de un período por chunks,
// con un pool acotado de workers y una transacción por chunk.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/billing"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/ports"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/observability/metrics"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// Config tamaño de chunk y cantidad de workers.
type Config struct {
	ChunkSize int
	Workers   int
}

// Request parámetros de una corrida.
type Request struct {
	Period        time.Time // cualquier fecha del mes a facturar
	DueDate       time.Time
	PointOfSaleID string
}

// Report conteos de una corrida.
type Report struct {
	RunID        string
	Succeeded    int
	Skipped      int
	Failed       int
	Chunks       int
	FailedChunks int
}

// Pipeline lee lecturas no facturadas, arma facturas y las finaliza por chunk.
type Pipeline struct {
	tx       ports.TxRunner
	repos    repository.Repos
	composer *billing.Composer
	finalize *billing.FinalizeUseCase
	cfg      Config
	log      *logger.Logger
	now      ports.Clock

	wg sync.WaitGroup // corridas lanzadas con Start
}

// NewPipeline construye el pipeline.
func NewPipeline(tx ports.TxRunner, repos repository.Repos, composer *billing.Composer, finalize *billing.FinalizeUseCase, cfg Config, log *logger.Logger) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Pipeline{
		tx:       tx,
		repos:    repos,
		composer: composer,
		finalize: finalize,
		cfg:      cfg,
		log:      log,
		now:      ports.SystemClock,
	}
}

// Start registra la corrida y la ejecuta en segundo plano. Devuelve su id.
// La corrida no se cancela cuando termina la request que la lanzó.
func (p *Pipeline) Start(ctx context.Context, req Request) (string, error) {
	run, pos, err := p.begin(ctx, req)
	if err != nil {
		return "", err
	}
	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_, _ = p.execute(bg, run, pos, req.DueDate)
	}()
	return run.ID, nil
}

// Wait bloquea hasta que terminan las corridas lanzadas con Start.
func (p *Pipeline) Wait() { p.wg.Wait() }

// Run ejecuta la corrida de forma sincrónica.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	run, pos, err := p.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.execute(ctx, run, pos, req.DueDate)
}

// GetRun devuelve el registro de una corrida.
func (p *Pipeline) GetRun(ctx context.Context, id string) (*entity.BillingRun, error) {
	run, err := p.repos.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener corrida: %w", err)
	}
	if run == nil {
		return nil, domain.NewNotFound("corrida de facturación", id)
	}
	return run, nil
}

func (p *Pipeline) begin(ctx context.Context, req Request) (*entity.BillingRun, *entity.PointOfSale, error) {
	if req.Period.IsZero() {
		return nil, nil, domain.NewValidation("period", "requerido")
	}
	if req.PointOfSaleID == "" {
		return nil, nil, domain.NewValidation("pointOfSaleId", "requerido")
	}
	pos, err := p.repos.PointsOfSale.GetByID(ctx, req.PointOfSaleID)
	if err != nil {
		return nil, nil, fmt.Errorf("obtener punto de venta: %w", err)
	}
	if pos == nil {
		return nil, nil, domain.NewNotFound("punto de venta", req.PointOfSaleID)
	}
	if !pos.Enabled {
		return nil, nil, domain.NewValidation("pointOfSaleId", "el punto de venta está deshabilitado")
	}

	run := &entity.BillingRun{
		ID:            uuid.New().String(),
		Period:        MonthStart(req.Period),
		DueDate:       req.DueDate,
		PointOfSaleID: pos.ID,
		Status:        entity.RunStatusRunning,
		StartedAt:     p.now(),
	}
	if err := p.repos.Runs.Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("registrar corrida: %w", err)
	}
	return run, pos, nil
}

// tally acumula conteos compartidos por los workers.
type tally struct {
	mu  sync.Mutex
	rep Report
	err error
}

func (t *tally) add(fn func(r *Report)) {
	t.mu.Lock()
	fn(&t.rep)
	t.mu.Unlock()
}

func (p *Pipeline) execute(ctx context.Context, run *entity.BillingRun, pos *entity.PointOfSale, dueDate time.Time) (*Report, error) {
	start := time.Now()
	log := p.log.Zerolog().With().Str("run_id", run.ID).Str("period", run.Period.Format("2006-01")).Logger()
	log.Info().Int("chunk_size", p.cfg.ChunkSize).Int("workers", p.cfg.Workers).Msg("corrida de facturación iniciada")

	t := &tally{rep: Report{RunID: run.ID}}
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	readErr := p.read(ctx, run.Period, func(idx int, chunk []*entity.MeterReading) {
		t.add(func(r *Report) { r.Chunks++ })
		// Go bloquea mientras los workers estén ocupados: el lector no se adelanta.
		g.Go(func() error {
			p.processChunk(ctx, run.ID, idx, chunk, pos, dueDate, t)
			return nil
		})
	})
	_ = g.Wait()

	rep := t.rep
	finished := p.now()
	run.FinishedAt = &finished
	run.Succeeded, run.Skipped, run.Failed = rep.Succeeded, rep.Skipped, rep.Failed
	run.Chunks, run.FailedChunks = rep.Chunks, rep.FailedChunks
	run.Status = entity.RunStatusCompleted
	switch {
	case readErr != nil:
		run.Status = entity.RunStatusFailed
		run.LastError = readErr.Error()
	case rep.FailedChunks > 0:
		run.Status = entity.RunStatusFailed
		if t.err != nil {
			run.LastError = t.err.Error()
		}
	}
	if err := p.repos.Runs.Update(context.WithoutCancel(ctx), run); err != nil {
		log.Error().Err(err).Msg("no se pudo actualizar la corrida")
	}

	result := metrics.ResultSuccess
	if run.Status == entity.RunStatusFailed {
		result = metrics.ResultError
	}
	metrics.ObserveBatchRun(result, time.Since(start))
	log.Info().Str("status", run.Status).Int("succeeded", rep.Succeeded).Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).Int("chunks", rep.Chunks).Int("failed_chunks", rep.FailedChunks).
		Dur("elapsed", time.Since(start)).Msg("corrida de facturación finalizada")

	if readErr != nil {
		return &rep, readErr
	}
	return &rep, nil
}

// read pagina por id las lecturas no facturadas del período y entrega un chunk por página.
func (p *Pipeline) read(ctx context.Context, period time.Time, emit func(idx int, chunk []*entity.MeterReading)) error {
	afterID := ""
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := p.repos.Readings.ListUnbilled(ctx, period, afterID, p.cfg.ChunkSize)
		if err != nil {
			return fmt.Errorf("leer lecturas pendientes: %w", err)
		}
		if len(chunk) == 0 {
			return nil
		}
		afterID = chunk[len(chunk)-1].ID
		emit(idx, chunk)
		if len(chunk) < p.cfg.ChunkSize {
			return nil
		}
	}
}

// processChunk arma las facturas del chunk (omitiendo las que fallan) y las finaliza
// todas en una transacción junto con la marca de lecturas facturadas.
func (p *Pipeline) processChunk(ctx context.Context, runID string, idx int, chunk []*entity.MeterReading, pos *entity.PointOfSale, dueDate time.Time, t *tally) {
	invoices := make([]*entity.Invoice, 0, len(chunk))
	for _, r := range chunk {
		inv, err := p.composer.ComposeInvoice(ctx, r, dueDate, pos)
		if err != nil {
			p.log.Warn().Err(err).Str("run_id", runID).Str("reading_id", r.ID).Str("contract_id", r.ContractID).
				Msg("lectura omitida")
			continue
		}
		invoices = append(invoices, inv)
	}
	skipped := len(chunk) - len(invoices)
	metrics.AddBatchItems(metrics.OutcomeSkipped, skipped)
	if len(invoices) == 0 {
		t.add(func(r *Report) { r.Skipped += skipped })
		return
	}

	// Mismo orden de locks en todos los workers: por tipo de comprobante.
	sort.SliceStable(invoices, func(i, j int) bool { return invoices[i].DocumentTypeID < invoices[j].DocumentTypeID })

	err := p.tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		ids := make([]string, 0, len(invoices))
		for _, inv := range invoices {
			if _, err := p.finalize.FinalizeInTx(ctx, repos, inv, pos.ID); err != nil {
				return fmt.Errorf("factura de lectura %s: %w", inv.SourceReadingID, err)
			}
			ids = append(ids, inv.BilledReadingIDs()...)
		}
		return repos.Readings.MarkBilled(ctx, ids)
	})
	if err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Int("chunk", idx).Int("invoices", len(invoices)).
			Msg("chunk revertido")
		metrics.IncBatchChunk(metrics.ResultError)
		metrics.AddBatchItems(metrics.OutcomeFailed, len(invoices))
		t.add(func(r *Report) {
			r.Skipped += skipped
			r.Failed += len(invoices)
			r.FailedChunks++
		})
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		return
	}
	metrics.IncBatchChunk(metrics.ResultSuccess)
	metrics.AddBatchItems(metrics.OutcomeSucceeded, len(invoices))
	t.add(func(r *Report) {
		r.Skipped += skipped
		r.Succeeded += len(invoices)
	})
}

// MonthStart devuelve el primer día del mes de t (UTC).
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
