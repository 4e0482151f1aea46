package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/billing"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/memory"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/config"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

var issueDay = time.Date(2024, 2, 5, 10, 30, 0, 0, time.UTC)

func month(m time.Month) time.Time {
	return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	store    *memory.Store
	fx       memory.Fixture
	composer *billing.Composer
	finalize *billing.FinalizeUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	fx := store.Seed()
	repos := store.Repos()
	log := logger.Nop()

	composer := billing.NewComposer(repos, tariff.NewResolver(repos.Tariffs, store), config.BillingConfig{
		TaxRate: decimal.RequireFromString("0.21"),
		DueDays: 15,
	}, log).WithClock(func() time.Time { return issueDay })
	poster := accounting.NewPoster(store, log)
	finalize := billing.NewFinalizeUseCase(store, repos, composer, billing.NewSequencer(), poster, log)
	return &harness{store: store, fx: fx, composer: composer, finalize: finalize}
}

// seqNext pide el próximo número B del punto de venta del fixture.
func seqNext(ctx context.Context, repos repository.Repos, h *harness) (int64, error) {
	return billing.NewSequencer().NextNumber(ctx, repos, h.fx.PointOfSaleID, h.fx.DocTypeB)
}
