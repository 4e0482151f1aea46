package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBilling() BillingConfig {
	return BillingConfig{
		TaxRate:            decimal.RequireFromString("0.21"),
		FirstReadingPolicy: FirstReadingZero,
		ChunkSize:          100,
		Workers:            4,
		MaxRetries:         3,
	}
}

func TestBillingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *BillingConfig)
		wantErr bool
	}{
		{"válida", func(c *BillingConfig) {}, false},
		{"política current", func(c *BillingConfig) { c.FirstReadingPolicy = FirstReadingCurrent }, false},
		{"política desconocida", func(c *BillingConfig) { c.FirstReadingPolicy = "average" }, true},
		{"alícuota negativa", func(c *BillingConfig) { c.TaxRate = decimal.RequireFromString("-0.1") }, true},
		{"chunk cero", func(c *BillingConfig) { c.ChunkSize = 0 }, true},
		{"sin workers", func(c *BillingConfig) { c.Workers = 0 }, true},
		{"reintentos negativos", func(c *BillingConfig) { c.MaxRetries = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validBilling()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "erp-cooperativa", cfg.App.Name)
	assert.Equal(t, "0.21", cfg.Billing.TaxRate.String())
	assert.Equal(t, FirstReadingZero, cfg.Billing.FirstReadingPolicy)
	assert.Equal(t, 5*time.Second, cfg.Billing.LockTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 25, cfg.DB.MaxConns)
	assert.Equal(t, 2, cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, cfg.DB.MaxConnIdleTime)
	assert.Equal(t, time.Minute, cfg.DB.HealthCheckPeriod)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("BILLING_TAX_RATE", "0.105")
	t.Setenv("BILLING_FIRST_READING_POLICY", FirstReadingCurrent)
	t.Setenv("BILLING_CHUNK_SIZE", "50")
	t.Setenv("BILLING_LOCK_TIMEOUT", "250ms")
	t.Setenv("HTTP_READ_TIMEOUT", "20")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("DB_MIN_CONNS", "4")
	t.Setenv("DB_MAX_CONN_IDLE_TIME", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.105", cfg.Billing.TaxRate.String())
	assert.Equal(t, FirstReadingCurrent, cfg.Billing.FirstReadingPolicy)
	assert.Equal(t, 50, cfg.Billing.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Billing.LockTimeout)
	assert.Equal(t, 20*time.Second, cfg.HTTP.ReadTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 4, cfg.DB.MinConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.MaxConnIdleTime)
}

func TestLoad_ValoresInvalidos(t *testing.T) {
	t.Run("alícuota", func(t *testing.T) {
		t.Setenv("BILLING_TAX_RATE", "veintiuno")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("política", func(t *testing.T) {
		t.Setenv("BILLING_FIRST_READING_POLICY", "promedio")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "coop", Password: "p@ss", DBName: "cooperativa", SSLMode: "disable"}
	assert.Equal(t, "postgres://coop:p%40ss@db:5432/cooperativa?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otra"
	assert.Equal(t, "postgres://otra", c.ConnectionString())
}
