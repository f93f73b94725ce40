package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotizador/internal/common/config"
	"cotizador/internal/common/logger"
	"cotizador/internal/models"
	"cotizador/internal/service"
)

const pricesCSV = `Aseguradora,Plan,Edad,Precio_Sano,Precio_Cronico
Rimac,Red Médica,30,2400,3000
Pacífico,Multisalud,30,2000,2600
`

const networksCSV = `Aseguradora,Plan,Nombre_Red,Cobertura_Amb,Cobertura_Hosp,Clinicas_Incluidas
Rimac,Red Médica,Red 1,90%,100%,"Clínica Delgado, Clínica San Felipe"
Pacífico,Multisalud,Multi,80%,90%,"Clínica Delgado"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "precios.csv"), []byte(pricesCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "redes.csv"), []byte(networksCSV), 0o644))

	cfg := config.Default()
	cfg.Access.AdminCode = "ADMIN2026"
	cfg.Access.AdvisorCodes = []string{"ASE01"}
	cfg.Data.Dir = dir
	cfg.Data.PricesFile = "precios.csv"
	cfg.Data.NetworksFile = "redes.csv"
	cfg.Folio.Path = filepath.Join(dir, "folio.txt")
	cfg.Leads.CSVPath = filepath.Join(dir, "historial_leads.csv")
	return cfg
}

func quoteRequest() service.QuoteRequest {
	return service.QuoteRequest{
		Client:     "Lucía Fernández",
		HolderAge:  30,
		Health:     models.HealthHealthy,
		Tier:       models.TierIntegral,
		Continuity: models.ContinuityNew,
		Clinics:    []string{"Clínica Delgado"},
		Email:      "lucia@example.com",
		Phone:      "987654321",
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, logger.NewNoOpLogger(), "test dial")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("connection refused")
	}, 2, time.Millisecond, logger.NewNoOpLogger(), "test dial")
	assert.ErrorContains(t, err, "test dial failed after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, func() error { return errors.New("down") }, 5, time.Hour, logger.NewNoOpLogger(), "test dial")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_LocalBackends(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, logger.NewNoOpLogger(), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Notifier)
	assert.Equal(t, []string{"csv"}, a.Leads.Sinks())
	require.NoError(t, a.Ready(context.Background()))

	resp, err := a.Service.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 2)

	leadsFile, err := os.ReadFile(cfg.Leads.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(leadsFile), "Lucía Fernández")

	res, err := a.Service.Proposal(context.Background(), service.ProposalRequest{QuoteID: resp.QuoteID})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Folio)
	assert.True(t, strings.HasPrefix(string(res.Document), "%PDF"))

	clinics, err := a.Service.Clinics(context.Background(), "san", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clínica San Felipe"}, clinics)
}

func TestNew_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Quoting.QuoteStore = "redis"
	cfg.Folio.Backend = config.FolioBackendRedis

	a, err := New(context.Background(), cfg, logger.NewNoOpLogger(), Options{ConnectRetries: 1})
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Service.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)
	assert.True(t, mr.Exists("cotizador:quote:"+resp.QuoteID))

	res, err := a.Service.Proposal(context.Background(), service.ProposalRequest{QuoteID: resp.QuoteID})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Folio)

	folio, err := mr.Get(cfg.Folio.RedisKey)
	require.NoError(t, err)
	assert.Equal(t, "1000", folio)
}

func TestNew_MissingCatalogStillStarts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.PricesFile = "missing.csv"

	a, err := New(context.Background(), cfg, logger.NewNoOpLogger(), Options{})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Service.Quote(context.Background(), quoteRequest())
	assert.Error(t, err)
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Address = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, logger.NewNoOpLogger(), Options{ConnectRetries: 1})
	assert.ErrorContains(t, err, "Redis connection failed after 1 attempts")
}
