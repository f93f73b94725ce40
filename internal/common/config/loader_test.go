package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: cotizador
access:
  admin_code: ADMIN2026
  advisor_codes: [ASE01, ASE02, ASE03, VENTAS2026]
data:
  dir: /srv/data
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ADMIN2026", cfg.Access.AdminCode)
	assert.Len(t, cfg.Access.AdvisorCodes, 4)
	assert.Equal(t, 50, cfg.Quoting.MaxDiscount)
	assert.Equal(t, FolioBackendFile, cfg.Folio.Backend)
	assert.Equal(t, int64(1000), cfg.Folio.Start)
	assert.Equal(t, []string{LeadSinkCSV}, cfg.Leads.Sinks)
	assert.Equal(t, "REDES", cfg.Data.NetworksSheet)
	assert.Equal(t, filepath.Join("/srv/data", "precios_2026.csv"), cfg.Data.Path(cfg.Data.PricesFile))
	assert.Equal(t, "smtppro.zoho.com", cfg.Integrations.SMTP.Host)
	assert.Equal(t, 587, cfg.Integrations.SMTP.Port)
	assert.Equal(t, "https://wa.link/czc7jg", cfg.Proposal.AdvisoryLink)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing admin code",
			body: "app:\n  name: x\n",
		},
		{
			name: "advisor code equals admin code",
			body: "access:\n  admin_code: A\n  advisor_codes: [A]\n",
		},
		{
			name: "redis folio without redis",
			body: "access:\n  admin_code: A\nfolio:\n  backend: redis\n",
		},
		{
			name: "postgres leads without postgres",
			body: "access:\n  admin_code: A\nleads:\n  sinks: [csv, postgres]\n",
		},
		{
			name: "unknown folio backend",
			body: "access:\n  admin_code: A\nfolio:\n  backend: etcd\n",
		},
		{
			name: "unknown email channel",
			body: "access:\n  admin_code: A\nnotifications:\n  email:\n    channel: pigeon\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("COTIZADOR_TEST_ADMIN", "SECRET-ADMIN")
	path := writeConfig(t, "access:\n  admin_code: ${COTIZADOR_TEST_ADMIN}\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SECRET-ADMIN", cfg.Access.AdminCode)
}

func TestLoadFromFile_UnsetVariableFallsBackToEnv(t *testing.T) {
	t.Setenv("COTIZADOR_TEST_UNSET", "")
	t.Setenv("ADMIN_CODE", "FROM-ENV")
	t.Setenv("SMTP_PASSWORD", "")
	t.Setenv("EMAIL_PASSWORD", "")
	path := writeConfig(t, `
access:
  admin_code: ${COTIZADOR_TEST_UNSET}
integrations:
  smtp:
    password: ${COTIZADOR_TEST_UNSET}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FROM-ENV", cfg.Access.AdminCode)
	assert.Empty(t, cfg.Integrations.SMTP.Password)
}

func TestDataConfigPath(t *testing.T) {
	d := DataConfig{Dir: "data"}
	assert.Equal(t, filepath.Join("data", "x.csv"), d.Path("x.csv"))
	assert.Equal(t, "/abs/x.csv", d.Path("/abs/x.csv"))
	assert.Equal(t, "", d.Path(""))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
