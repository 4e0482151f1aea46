package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/batch"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/billing"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/reading"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	infrapdf "github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/pdf"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/postgres"
	httpRouter "github.com/HectorLiceaga/erp-cooperativa/internal/interfaces/http"
	"github.com/HectorLiceaga/erp-cooperativa/internal/observability/metrics"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/config"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	if os.Getenv("DB_AUTO_MIGRATE") == "true" {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	repos := postgres.NewRepos(pool)
	txRunner := postgres.NewTxRunner(pool, cfg.Billing.LockTimeout, cfg.Billing.MaxRetries, log.Component("tx"))

	readingSvc := reading.NewService(txRunner, repos.Readings, cfg.Billing.FirstReadingPolicy, log.Component("readings"))
	resolver := tariff.NewResolver(repos.Tariffs, txRunner)
	composer := billing.NewComposer(repos, resolver, cfg.Billing, log.Component("composer"))
	poster := accounting.NewPoster(txRunner, log.Component("ledger"))
	finalizeUC := billing.NewFinalizeUseCase(txRunner, repos, composer, billing.NewSequencer(), poster, log.Component("finalize"))
	pipeline := batch.NewPipeline(txRunner, repos, composer, finalizeUC, batch.Config{
		ChunkSize: cfg.Billing.ChunkSize,
		Workers:   cfg.Billing.Workers,
	}, log.Component("batch"))
	chartSvc := accounting.NewChartService(txRunner, repos.Accounts)

	// PDF: representación impresa de la factura
	pdfGenerator := infrapdf.NewMarotoPDFGenerator(infrapdf.Issuer{
		Name:    os.Getenv("ISSUER_NAME"),
		TaxID:   os.Getenv("ISSUER_TAX_ID"),
		Address: os.Getenv("ISSUER_ADDRESS"),
	})
	invoicePDFUC := billing.NewPDFUseCase(repos, pdfGenerator)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	httpRouter.Router(app, httpRouter.RouterDeps{
		Readings:    readingSvc,
		Tariffs:     resolver,
		Finalize:    finalizeUC,
		PDF:         invoicePDFUC,
		Pipeline:    pipeline,
		Chart:       chartSvc,
		Poster:      poster,
		JWTSecret:   cfg.JWT.Secret,
		MetricsPath: metricsPath,
		Log:         log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Las corridas masivas en curso terminan su chunk antes de cerrar el pool.
	log.Info().Msg("esperando corridas de facturación en curso...")
	pipeline.Wait()

	log.Info().Msg("aplicación detenida")
}
