package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/batch"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/billing"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/reading"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/jwt"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Readings    *reading.Service
	Tariffs     *tariff.Resolver
	Finalize    *billing.FinalizeUseCase
	PDF         *billing.PDFUseCase
	Pipeline    *batch.Pipeline
	Chart       *accounting.ChartService
	Poster      *accounting.Poster
	JWTSecret   string
	MetricsPath string // vacío deshabilita /metrics
	Log         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.MetricsPath != "" {
		app.Get(deps.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Rutas protegidas (requieren Bearer Token); las escrituras además requieren rol.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(jwt.RoleAdmin, jwt.RoleBilling)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Lecturas
	readingHandler := NewReadingHandler(deps.Readings, deps.Log)
	api.Post("/readings", write, readingHandler.Record)
	api.Get("/contracts/:id/readings/last-before", readingHandler.LastBefore)
	api.Get("/contracts/:id/readings/first-after", readingHandler.FirstAfter)

	// Tarifas
	tariffHandler := NewTariffHandler(deps.Tariffs, deps.Log)
	api.Get("/tariffs/:categoryId/effective", tariffHandler.Effective)

	// Facturas
	invoiceHandler := NewInvoiceHandler(deps.Finalize, deps.PDF, deps.Log)
	invoices := api.Group("/invoices")
	invoices.Post("/compose", write, invoiceHandler.Compose)
	invoices.Post("/compose-period", write, invoiceHandler.ComposePeriod)
	invoices.Post("/finalize", write, invoiceHandler.Finalize)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", invoiceHandler.PDF)
	api.Get("/customers/:id/movements", invoiceHandler.Statement)

	// Facturación masiva
	runHandler := NewBillingRunHandler(deps.Pipeline, deps.Log)
	api.Post("/billing-runs", write, runHandler.Start)
	api.Get("/billing-runs/:id", runHandler.GetByID)

	// Contabilidad
	accountingHandler := NewAccountingHandler(deps.Chart, deps.Poster, deps.Log)
	api.Get("/accounts", accountingHandler.ListAccounts)
	api.Post("/accounts", adminOnly, accountingHandler.CreateAccount)
	api.Delete("/accounts/:code", adminOnly, accountingHandler.DeleteAccount)
	api.Post("/ledger-entries", write, accountingHandler.RegisterEntry)
}
