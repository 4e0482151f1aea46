// seed aplica las migraciones y carga los datos de referencia del motor de facturación:
// tipos de comprobante, conceptos, categoría tarifaria por defecto, plan de cuentas
// mínimo con su parametrización y el punto de venta 1.
//
// Uso: go run ./cmd/seed [-tariffs precios.csv]
// El CSV (ISO-8859-1, separado por ';') tiene el formato:
//
//	categoria;concepto;vigente_desde;vigente_hasta;precio_unitario;tramo_desde;tramo_hasta
//
// Las columnas vigente_hasta y tramo_* pueden quedar vacías.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/accounting"
	"github.com/HectorLiceaga/erp-cooperativa/internal/application/tariff"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"
	"github.com/HectorLiceaga/erp-cooperativa/internal/infrastructure/postgres"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/config"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

const defaultCategory = "RES"

var documentTypes = []entity.DocumentType{
	{AfipCode: entity.AfipCodeInvoiceA, Letter: "A", Description: "Factura"},
	{AfipCode: entity.AfipCodeInvoiceB, Letter: "B", Description: "Factura"},
}

var concepts = []entity.Concept{
	{Code: entity.ConceptEnergy, Description: "Energía consumida", Unit: "kWh"},
	{Code: entity.ConceptWater, Description: "Agua consumida", Unit: "m3"},
	{Code: entity.ConceptFixedCharge, Description: "Cargo fijo", Unit: "u"},
}

var chart = []accounting.CreateAccountInput{
	{Code: "1", Name: "Activo"},
	{Code: "1.1", Name: "Créditos", ParentCode: "1"},
	{Code: "1.1.01", Name: "Deudores por servicios", ParentCode: "1.1", Postable: true},
	{Code: "2", Name: "Pasivo"},
	{Code: "2.1", Name: "Deudas fiscales", ParentCode: "2"},
	{Code: "2.1.01", Name: "IVA débito fiscal", ParentCode: "2.1", Postable: true},
	{Code: "4", Name: "Ingresos"},
	{Code: "4.1", Name: "Ventas de servicios", ParentCode: "4"},
	{Code: "4.1.01", Name: "Venta de energía", ParentCode: "4.1", Postable: true},
}

var parameters = []entity.AccountingParameter{
	{Key: entity.ParamAccountReceivables, AccountCode: "1.1.01"},
	{Key: entity.ParamAccountOutputTax, AccountCode: "2.1.01"},
	{Key: entity.ParamAccountEnergyRevenue, AccountCode: "4.1.01"},
}

func main() {
	tariffsPath := flag.String("tariffs", "", "CSV de precios a cargar (opcional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	tx := postgres.NewTxRunner(pool, cfg.Billing.LockTimeout, cfg.Billing.MaxRetries, log.Component("tx"))
	if err := tx.RunBilling(ctx, seedReference); err != nil {
		log.Fatal().Err(err).Msg("datos de referencia")
	}

	chartSvc := accounting.NewChartService(tx, postgres.NewRepos(pool).Accounts)
	for _, in := range chart {
		if _, err := chartSvc.CreateAccount(ctx, in); err != nil && !errors.Is(err, domain.ErrDuplicate) {
			log.Fatal().Err(err).Str("code", in.Code).Msg("plan de cuentas")
		}
	}
	if err := tx.RunBilling(ctx, func(ctx context.Context, repos repository.Repos) error {
		for i := range parameters {
			if err := repos.Parameters.Set(ctx, &parameters[i]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		log.Fatal().Err(err).Msg("parametrización contable")
	}
	log.Info().Msg("datos de referencia cargados")

	if *tariffsPath == "" {
		return
	}
	n, err := loadTariffs(ctx, *tariffsPath, postgres.NewRepos(pool), tariff.NewResolver(postgres.NewRepos(pool).Tariffs, tx))
	if err != nil {
		log.Fatal().Err(err).Str("file", *tariffsPath).Msg("carga de precios")
	}
	log.Info().Int("precios", n).Str("file", *tariffsPath).Msg("precios cargados")
}

// seedReference crea lo que falte; correrlo dos veces no duplica filas.
func seedReference(ctx context.Context, repos repository.Repos) error {
	for i := range documentTypes {
		dt := documentTypes[i]
		existing, err := repos.DocumentTypes.GetByAfipCode(ctx, dt.AfipCode)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		dt.ID = uuid.New().String()
		if err := repos.DocumentTypes.Create(ctx, &dt); err != nil {
			return fmt.Errorf("tipo de comprobante %s: %w", dt.AfipCode, err)
		}
	}
	for i := range concepts {
		c := concepts[i]
		existing, err := repos.Concepts.GetByCode(ctx, c.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		c.ID = uuid.New().String()
		if err := repos.Concepts.Create(ctx, &c); err != nil {
			return fmt.Errorf("concepto %s: %w", c.Code, err)
		}
	}

	cat, err := repos.Tariffs.GetCategoryByCode(ctx, defaultCategory)
	if err != nil {
		return err
	}
	if cat == nil {
		cat = &entity.TariffCategory{ID: uuid.New().String(), Code: defaultCategory, Description: "Residencial"}
		if err := repos.Tariffs.CreateCategory(ctx, cat); err != nil {
			return fmt.Errorf("categoría %s: %w", defaultCategory, err)
		}
	}

	pos, err := repos.PointsOfSale.GetByID(ctx, "pos-0001")
	if err != nil {
		return err
	}
	if pos == nil {
		pos = &entity.PointOfSale{ID: "pos-0001", Number: 1, Description: "Casa central", Enabled: true, CreatedAt: time.Now().UTC()}
		if err := repos.PointsOfSale.Create(ctx, pos); err != nil {
			return fmt.Errorf("punto de venta: %w", err)
		}
	}
	return nil
}

// loadTariffs lee el CSV en Latin-1 y agrega cada precio cerrando la ventana vigente.
func loadTariffs(ctx context.Context, path string, repos repository.Repos, resolver *tariff.Resolver) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	r.Comma = ';'
	r.FieldsPerRecord = 7
	r.TrimLeadingSpace = true

	n := 0
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if line == 1 && strings.EqualFold(rec[0], "categoria") {
			continue
		}
		price, err := parsePrice(ctx, repos, rec)
		if err != nil {
			return n, fmt.Errorf("línea %d: %w", line, err)
		}
		if err := resolver.AppendPrice(ctx, price); err != nil {
			return n, fmt.Errorf("línea %d: %w", line, err)
		}
		n++
	}
}

func parsePrice(ctx context.Context, repos repository.Repos, rec []string) (*entity.TariffPrice, error) {
	cat, err := repos.Tariffs.GetCategoryByCode(ctx, rec[0])
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, domain.NewNotFound("categoría", rec[0])
	}
	concept, err := repos.Concepts.GetByCode(ctx, rec[1])
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, domain.NewNotFound("concepto", rec[1])
	}

	p := &entity.TariffPrice{
		CategoryID:  cat.ID,
		ConceptID:   concept.ID,
		ConceptCode: concept.Code,
		Description: concept.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if p.ValidFrom, err = time.ParseInLocation("2006-01-02", rec[2], time.UTC); err != nil {
		return nil, fmt.Errorf("vigente_desde: %w", err)
	}
	if rec[3] != "" {
		to, err := time.ParseInLocation("2006-01-02", rec[3], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("vigente_hasta: %w", err)
		}
		p.ValidTo = &to
	}
	// Acepta coma decimal.
	if p.UnitPrice, err = decimal.NewFromString(strings.ReplaceAll(rec[4], ",", ".")); err != nil {
		return nil, fmt.Errorf("precio_unitario: %w", err)
	}
	if p.LowerUnits, err = optionalDecimal(rec[5]); err != nil {
		return nil, fmt.Errorf("tramo_desde: %w", err)
	}
	if p.UpperUnits, err = optionalDecimal(rec[6]); err != nil {
		return nil, fmt.Errorf("tramo_hasta: %w", err)
	}
	return p, nil
}

func optionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil, err
	}
	return &d, nil
}
