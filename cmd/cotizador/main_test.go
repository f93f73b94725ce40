package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotizador/internal/models"
	"cotizador/internal/service"
)

func TestParseDependents(t *testing.T) {
	deps, err := parseDependents([]string{"8", "12:cronico", " 3 : Sano"})
	require.NoError(t, err)
	assert.Equal(t, []models.Dependent{
		{Age: 8, Health: models.HealthHealthy},
		{Age: 12, Health: models.HealthChronic},
		{Age: 3, Health: models.HealthHealthy},
	}, deps)

	_, err = parseDependents([]string{"ocho"})
	assert.ErrorContains(t, err, "invalid age")
	_, err = parseDependents([]string{"8:grave"})
	assert.ErrorContains(t, err, "unknown health")
}

func TestParseTierAndContinuity(t *testing.T) {
	cases := map[string]models.Tier{
		"basica":                             models.TierBasic,
		"Básica":                             models.TierBasic,
		"INTEGRAL":                           models.TierIntegral,
		"reembolso":                          models.TierReimbursement,
		"Integral + Cobertura Internacional": models.TierInternational,
	}
	for in, want := range cases {
		got, err := parseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseTier("premium")
	assert.Error(t, err)

	c, err := parseContinuity("continuidad")
	require.NoError(t, err)
	assert.Equal(t, models.ContinuityTransfer, c)
	c, err = parseContinuity("Nuevo")
	require.NoError(t, err)
	assert.Equal(t, models.ContinuityNew, c)
}

func TestPrintQuote_ClientView(t *testing.T) {
	var buf bytes.Buffer
	printQuote(&buf, &service.QuoteResponse{
		Message: "¡Hemos encontrado 1 opciones compatibles con tus clínicas!",
		Hint:    service.MsgDownloadHint,
		Candidates: []service.CandidateView{
			{ID: "Pacífico-Multisalud", Insurer: "Pacífico", Plan: "Multisalud"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "PLAN")
	assert.Contains(t, out, "Multisalud")
	assert.NotContains(t, out, "S/")
	assert.Contains(t, out, service.MsgDownloadHint)
}

func TestPrintQuote_ComparisonView(t *testing.T) {
	var buf bytes.Buffer
	printQuote(&buf, &service.QuoteResponse{
		Message: "ok",
		Comparison: []service.ComparisonRow{{
			CandidateView: service.CandidateView{ID: "Rimac-Red Médica"},
			ListPrice:     decimal.NewFromInt(3200),
			DiscountPct:   10,
			FinalPrice:    decimal.NewFromInt(2880),
			Savings:       decimal.NewFromInt(320),
			Monthly:       decimal.NewFromInt(240),
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "S/ 3,200.00")
	assert.Contains(t, out, "10%")
	assert.Contains(t, out, "S/ 2,880.00")
}

func TestPrintQuote_Empty(t *testing.T) {
	var buf bytes.Buffer
	printQuote(&buf, &service.QuoteResponse{Empty: true, Message: "sin planes"})
	assert.Equal(t, "sin planes\n", buf.String())
}

func TestFormatStats(t *testing.T) {
	assert.Equal(t, "plans      2\nprices     4\n", formatStats(map[string]int{"prices": 4, "plans": 2}))
}

func TestFolioNextCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
access:
  admin_code: ADMIN2026
data:
  dir: %s
folio:
  path: %s
leads:
  csv_path: %s
`, dir, filepath.Join(dir, "folio.txt"), filepath.Join(dir, "leads.csv"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "--log-level", "error", "folio", "next"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "1000\n", out.String())

	out.Reset()
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "1001\n", out.String())
}

func TestRegistryValidateCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"registry", "validate", "--path", filepath.Join("..", "..", "configs", "activity-registry.json")})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Registry validation passed. Found 3 activities.\n", out.String())
}
