// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotizador/internal/api"
	"cotizador/internal/app"
	"cotizador/internal/common/config"
	"cotizador/internal/common/logger"
	"cotizador/internal/proposal"
	"cotizador/internal/service"
)

const pricesCSV = `Aseguradora,Plan,Edad,Precio_Sano,Precio_Cronico,Link_Cartilla,Link_Carencia
Rimac,Red Médica,30,2400,3000,https://rimac.example/cartilla.pdf,https://rimac.example/carencias.pdf
Rimac,Red Médica,5,900,1100,,
Pacífico,Multisalud,30,2000,2600,-,-
Pacífico,Multisalud,5,700,900,,
`

const networksCSV = `Aseguradora,Plan,Nombre_Red,Cobertura_Amb,Cobertura_Hosp,Clinicas_Incluidas
Rimac,Red Médica,Red 1,90%,100%,"Clínica Delgado, Clínica San Felipe"
Pacífico,Multisalud,Multi,80%,90%,"Clínica Delgado"
`

type env struct {
	cfg    *config.Config
	server *httptest.Server
}

// setup starts the full stack on local backends: CSV catalog, file folio,
// in-memory quotes and the CSV lead history.
func setup(t *testing.T) *env {
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

	log := logger.NewNoOpLogger()
	a, err := app.New(context.Background(), cfg, log, app.Options{ServiceName: "cotizador-e2e", ConnectRetries: 1})
	require.NoError(t, err)

	router := api.NewRouter(a.Service, api.RouterOptions{Ready: a.Ready}, log)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		a.Close()
	})

	return &env{cfg: cfg, server: server}
}

func (e *env) post(t *testing.T, path, code string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if code != "" {
		req.Header.Set(api.AccessHeader, code)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *env) quote(t *testing.T, code string, body map[string]interface{}) *service.QuoteResponse {
	t.Helper()
	resp := e.post(t, "/api/v1/quotes", code, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out service.QuoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

func family() map[string]interface{} {
	return map[string]interface{}{
		"client":     "Lucía Fernández",
		"holderAge":  30,
		"health":     "Sano",
		"dependents": []map[string]interface{}{{"age": 5, "health": "Sano"}},
		"tier":       "Integral",
		"continuity": "Nuevo",
		"clinics":    []string{"Clínica Delgado"},
		"email":      "lucia@example.com",
		"phone":      "987654321",
	}
}

func TestE2E_ClientQuoteAndProposal(t *testing.T) {
	e := setup(t)

	q := e.quote(t, "", family())
	require.False(t, q.Empty)
	assert.Equal(t, "Cliente", string(q.Role))
	assert.Empty(t, q.Comparison, "clients never see prices")
	assert.Equal(t, service.MsgDownloadHint, q.Hint)
	require.Len(t, q.Candidates, 2)
	assert.Equal(t, "Pacífico-Multisalud", q.Candidates[0].ID)
	assert.Equal(t, "Rimac-Red Médica", q.Candidates[1].ID)

	history, err := os.ReadFile(e.cfg.Leads.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(history), "Lucía Fernández")
	assert.Contains(t, string(history), "Clínica Delgado")

	resp := e.post(t, "/api/v1/quotes/"+q.QuoteID+"/proposal", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "1000", resp.Header.Get("X-Folio"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "COTISALUD_Lucía_Clínica_")

	var pdf bytes.Buffer
	_, err = pdf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pdf.String(), "%PDF-"))

	rows, err := proposal.ReadComparisonTable(pdf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pacífico", rows[0].Insurer)
	assert.True(t, rows[0].Recommended)
	assert.True(t, decimal.NewFromInt(2700).Equal(rows[0].AnnualPrice))
	assert.Equal(t, "Rimac", rows[1].Insurer)
	assert.True(t, decimal.NewFromInt(3300).Equal(rows[1].AnnualPrice))
}

func TestE2E_AdvisorComparisonSkipsLeadHistory(t *testing.T) {
	e := setup(t)

	q := e.quote(t, "ASE01", family())
	assert.Equal(t, "Asesor", string(q.Role))
	require.Len(t, q.Comparison, 2)
	assert.True(t, decimal.NewFromInt(2700).Equal(q.Comparison[0].FinalPrice))
	assert.True(t, decimal.NewFromInt(225).Equal(q.Comparison[0].Monthly))
	assert.NotEmpty(t, q.DefaultRationale)

	_, err := os.Stat(e.cfg.Leads.CSVPath)
	assert.True(t, os.IsNotExist(err), "advisor searches are not leads")

	// Advisors may pick any candidate; folios keep counting.
	for _, want := range []string{"1000", "1001"} {
		resp := e.post(t, "/api/v1/quotes/"+q.QuoteID+"/proposal", "ASE01", map[string]string{
			"recommendedId": "Rimac-Red Médica",
			"rationale":     "Cubre la Clínica San Felipe.",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, want, resp.Header.Get("X-Folio"))
	}
}

func TestE2E_EmptyResultAndValidation(t *testing.T) {
	e := setup(t)

	body := family()
	body["tier"] = "Básica"
	q := e.quote(t, "", body)
	assert.True(t, q.Empty)
	assert.Contains(t, q.Message, "'Básica'")

	resp := e.post(t, "/api/v1/quotes/"+q.QuoteID+"/proposal", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body = family()
	body["holderAge"] = 12
	resp = e.post(t, "/api/v1/quotes", "", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body = family()
	body["discountOverrides"] = map[string]int{"Rimac-Red Médica": 20}
	resp = e.post(t, "/api/v1/quotes", "ASE01", body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestE2E_ClinicSearchAndHealth(t *testing.T) {
	e := setup(t)

	resp, err := http.Get(e.server.URL + "/api/v1/catalog/clinics?q=felipe")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Clinics []string `json:"clinics"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"Clínica San Felipe"}, out.Clinics)

	ready, err := http.Get(e.server.URL + "/ready")
	require.NoError(t, err)
	defer ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}
