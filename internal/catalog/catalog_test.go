package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cotizador/internal/common/logger"
	"cotizador/internal/models"
)

const pricesCSV = "\xEF\xBB\xBFAseguradora,Plan,Edad,Precio_Sano,Precio_Cronico,Link_Cartilla,Unnamed: 6\n" +
	" Rimac , Red Médica ,30,2400.50,3100,http://old.example/cartilla,\n" +
	"Rimac,Red Médica,31,2450,3150,,\n" +
	"Pacífico,Multisalud,30.0,2000,n/a,,\n" +
	"Pacífico,Multisalud,abc,1,1,,\n"

const supplementalCSV = "Aseguradora;Plan;Link_Cartilla;Int_Ded_Amb_Pre\n" +
	"Rimac;Red Médica;http://rimac.example/cartilla;US$ 100\n"

const networksCSV = "Aseguradora,Plan,Nombre_Red,Cobertura_Amb,Cobertura_Hosp,Clinicas_Incluidas\n" +
	"Rimac,Red Médica,Red 1,80%,90%,\"Clínica Delgado, Clínica Ricardo Palma\"\n" +
	"Rimac,Red Médica,Red 2,70%,,\"Clínica San Felipe,, \"\n" +
	"Pacífico,Multisalud,Red A,85%,100%,Clínica Delgado\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func readString(t *testing.T, body string) *Table {
	t.Helper()
	tbl, err := ReadDelimited(strings.NewReader(body))
	require.NoError(t, err)
	return tbl
}

func TestReadDelimited_BOMAndUnnamedColumns(t *testing.T) {
	tbl := readString(t, pricesCSV)

	assert.Equal(t, []string{"Aseguradora", "Plan", "Edad", "Precio_Sano", "Precio_Cronico", "Link_Cartilla"}, tbl.Header)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, "Rimac", tbl.Get(0, "aseguradora"))
	assert.Equal(t, "Red Médica", tbl.Get(0, "PLAN"))
	assert.Equal(t, "", tbl.Get(0, "Missing"))
	assert.False(t, tbl.Has("Unnamed: 6"))
}

func TestReadDelimited_SemicolonFallback(t *testing.T) {
	tbl := readString(t, supplementalCSV)

	require.True(t, tbl.Has("Int_Ded_Amb_Pre"))
	assert.Equal(t, "US$ 100", tbl.Get(0, "Int_Ded_Amb_Pre"))
}

func TestReadDelimited_EmptyInput(t *testing.T) {
	_, err := ReadDelimited(strings.NewReader(""))
	assert.Error(t, err)
}

func TestBuild_PricesNetworksAndSupplemental(t *testing.T) {
	cat, err := Build(readString(t, pricesCSV), readString(t, networksCSV), readString(t, supplementalCSV))
	require.NoError(t, err)

	row, ok := cat.PriceRow("Rimac", "Red Médica", 30)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("2400.50").Equal(row.Healthy))

	row, ok = cat.PriceRow("Pacífico", "Multisalud", 30)
	require.True(t, ok, "integral float ages are accepted")
	assert.True(t, row.Chronic.IsZero(), "unparsable premiums price to zero")

	info, ok := cat.PlanInfo("Rimac", "Red Médica")
	require.True(t, ok)
	assert.Equal(t, "http://rimac.example/cartilla", info.BenefitsLink)
	assert.Equal(t, "US$ 100", info.IntAmbDeductible)
	assert.Equal(t, models.Missing, info.WaitingPeriodLink)

	info, ok = cat.PlanInfo("Pacífico", "Multisalud")
	require.True(t, ok)
	assert.Equal(t, models.Missing, info.BenefitsLink, "supplemental owns its columns even without a row")

	_, ok = cat.PlanInfo("Sanitas", "Esencial")
	assert.False(t, ok)

	assert.Equal(t, []string{"Clínica Delgado", "Clínica Ricardo Palma", "Clínica San Felipe"}, cat.Clinics())
	assert.Equal(t, []models.PlanKey{
		{Insurer: "Pacífico", Plan: "Multisalud"},
		{Insurer: "Rimac", Plan: "Red Médica"},
	}, cat.NetworkGroups())

	nets := cat.Networks("Rimac", "Red Médica")
	require.Len(t, nets, 2)
	assert.Equal(t, "Red 1", nets[0].NetworkName)
	assert.Equal(t, models.Missing, nets[1].Hospital)
	assert.Equal(t, []string{"Clínica San Felipe"}, nets[1].Clinics)
}

func TestBuild_MissingTables(t *testing.T) {
	_, err := Build(nil, readString(t, networksCSV), nil)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	_, err = Build(readString(t, "Aseguradora,Plan\nA,B\n"), readString(t, networksCSV), nil)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestSplitClinics(t *testing.T) {
	assert.Nil(t, SplitClinics("  "))
	assert.Equal(t, []string{"A", "B c"}, SplitClinics(" A ,, B c ,"))
}

func TestLoad_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), Sources{
		PricesPath:   filepath.Join(dir, "precios_2026.csv"),
		NetworksPath: filepath.Join(dir, "base_clinicas.xlsx"),
	})
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
}

func TestLoad_WorkbookNetworks(t *testing.T) {
	dir := t.TempDir()
	prices := writeFile(t, dir, "precios_2026.csv", pricesCSV)

	wb := excelize.NewFile()
	_, err := wb.NewSheet("REDES")
	require.NoError(t, err)
	rows := [][]interface{}{
		{"Aseguradora", "Plan", "Nombre_Red", "Cobertura_Amb", "Cobertura_Hosp", "Clinicas_Incluidas"},
		{"Rimac", "Red Médica", "Red 1", "80%", "90%", "Clínica Delgado, Clínica Ricardo Palma"},
		{"Pacífico", "Multisalud", "Red A", "85%", "100%", "Clínica Delgado"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, wb.SetSheetRow("REDES", cell, &row))
	}
	networks := filepath.Join(dir, "base_clinicas.xlsx")
	require.NoError(t, wb.SaveAs(networks))
	require.NoError(t, wb.Close())

	cat, err := Load(context.Background(), Sources{
		PricesPath:       prices,
		NetworksPath:     networks,
		NetworksSheet:    "REDES",
		SupplementalPath: filepath.Join(dir, "info_adicional.csv"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Clínica Delgado", "Clínica Ricardo Palma"}, cat.Clinics())
	assert.Len(t, cat.Networks("Rimac", "Red Médica"), 1)
}

func TestCache_RetriesAfterFailureAndReloads(t *testing.T) {
	calls := 0
	ready := false
	load := func(ctx context.Context, src Sources) (*Catalog, error) {
		calls++
		if !ready {
			return nil, ErrCatalogUnavailable
		}
		return &Catalog{clinics: []string{"A"}}, nil
	}
	cache := NewCacheWithLoader(Sources{}, load, logger.NewNoOpLogger())

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.True(t, cache.LoadedAt().IsZero())

	ready = true
	cat, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, cat.Clinics())

	again, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, cat, again)
	assert.Equal(t, 2, calls)

	ready = false
	_, err = cache.Reload(context.Background())
	assert.Error(t, err)
	kept, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, cat, kept, "failed reload keeps the previous catalog")
}
