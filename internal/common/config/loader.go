package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Folio backends.
const (
	FolioBackendFile     = "file"
	FolioBackendRedis    = "redis"
	FolioBackendPostgres = "postgres"
)

// Lead sinks.
const (
	LeadSinkCSV      = "csv"
	LeadSinkPostgres = "postgres"
	LeadSinkZoho     = "zoho"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration usable without any file: local data
// directory, file folio, CSV leads, in-memory quote store.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			// unset variables become empty so overrideEmptyConfig can fill them
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are usually only present in the
// environment.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Integrations.SMTP.Password, "EMAIL_PASSWORD")
	setIfEmpty(&cfg.Integrations.SMTP.Password, "SMTP_PASSWORD")
	setIfEmpty(&cfg.Integrations.Zoho.APIKey, "ZOHO_CRM_API_KEY")
	setIfEmpty(&cfg.Integrations.Zoho.AuthToken, "ZOHO_CRM_OAUTH_TOKEN")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Access.AdminCode, "ADMIN_CODE")

	if len(cfg.Access.AdvisorCodes) == 0 {
		if val := os.Getenv("ADVISOR_CODES"); val != "" {
			for _, code := range strings.Split(val, ",") {
				if code = strings.TrimSpace(code); code != "" {
					cfg.Access.AdvisorCodes = append(cfg.Access.AdvisorCodes, code)
				}
			}
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cotizador"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 20000
	}

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.PricesFile == "" {
		cfg.Data.PricesFile = "precios_2026.csv"
	}
	if cfg.Data.NetworksFile == "" {
		cfg.Data.NetworksFile = "base_clinicas.xlsx"
	}
	if cfg.Data.NetworksSheet == "" {
		cfg.Data.NetworksSheet = "REDES"
	}
	if cfg.Data.SupplementalFile == "" {
		cfg.Data.SupplementalFile = "info_adicional.csv"
	}
	if cfg.Data.CampaignsFile == "" {
		cfg.Data.CampaignsFile = "campana_descuentos.csv"
	}

	if cfg.Quoting.QuoteTTL == 0 {
		cfg.Quoting.QuoteTTL = 2 * 60 * 60 * 1000
	}
	if cfg.Quoting.QuoteStore == "" {
		cfg.Quoting.QuoteStore = "memory"
	}
	if cfg.Quoting.MaxDiscount == 0 {
		cfg.Quoting.MaxDiscount = 50
	}

	if cfg.Folio.Backend == "" {
		cfg.Folio.Backend = FolioBackendFile
	}
	if cfg.Folio.Path == "" {
		cfg.Folio.Path = "folio.txt"
	}
	if cfg.Folio.Start == 0 {
		cfg.Folio.Start = 1000
	}
	if cfg.Folio.RedisKey == "" {
		cfg.Folio.RedisKey = "cotizador:folio"
	}
	if cfg.Folio.Name == "" {
		cfg.Folio.Name = "proposal"
	}

	if cfg.Leads.CSVPath == "" {
		cfg.Leads.CSVPath = "historial_leads.csv"
	}
	if len(cfg.Leads.Sinks) == 0 {
		cfg.Leads.Sinks = []string{LeadSinkCSV}
	}

	if cfg.Proposal.AdvisoryLink == "" {
		cfg.Proposal.AdvisoryLink = "https://wa.link/czc7jg"
	}
	if cfg.Proposal.ContractLink == "" {
		cfg.Proposal.ContractLink = "https://wa.link/zwdc6r"
	}
	if cfg.Proposal.Author == "" {
		cfg.Proposal.Author = "YQ Corredores de Seguros"
	}

	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "memory"
	}
	if cfg.Search.ClinicIndex == "" {
		cfg.Search.ClinicIndex = "cotizador-clinics"
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 20
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Integrations.SMTP.Host == "" {
		cfg.Integrations.SMTP.Host = "smtppro.zoho.com"
	}
	if cfg.Integrations.SMTP.Port == 0 {
		cfg.Integrations.SMTP.Port = 587
	}
	if cfg.Integrations.SMTP.DefaultFrom == "" {
		cfg.Integrations.SMTP.DefaultFrom = "administracion@yqcorredores.com"
	}
	if cfg.Integrations.SMTP.Username == "" {
		cfg.Integrations.SMTP.Username = cfg.Integrations.SMTP.DefaultFrom
	}
	if cfg.Integrations.Zoho.BaseURL == "" {
		cfg.Integrations.Zoho.BaseURL = "https://www.zohoapis.com/crm/v3"
	}
	if cfg.Integrations.Zoho.Source == "" {
		cfg.Integrations.Zoho.Source = "Cotizador Web"
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}

	if cfg.Notifications.Email.Channel == "" {
		cfg.Notifications.Email.Channel = "smtp"
	}
	if len(cfg.Notifications.Email.Recipients) == 0 {
		cfg.Notifications.Email.Recipients = []string{"administracion@yqcorredores.com"}
	}
	if cfg.Notifications.Email.PlaceholderPassword == "" {
		cfg.Notifications.Email.PlaceholderPassword = "TU_CONTRASEÑA_AQUI"
	}
	if cfg.Notifications.Timeout == 0 {
		cfg.Notifications.Timeout = 10000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Access.AdminCode == "" {
		return fmt.Errorf("access.admin_code is required")
	}
	for _, code := range cfg.Access.AdvisorCodes {
		if code == cfg.Access.AdminCode {
			return fmt.Errorf("access.advisor_codes must not contain the admin code")
		}
	}

	if cfg.Quoting.MaxDiscount < 0 || cfg.Quoting.MaxDiscount > 100 {
		return fmt.Errorf("quoting.max_discount must be between 0 and 100")
	}

	switch cfg.Quoting.QuoteStore {
	case "memory":
	case "redis":
		if !cfg.Database.Redis.Enabled {
			return fmt.Errorf("quoting.quote_store=redis requires database.redis.enabled")
		}
	default:
		return fmt.Errorf("unknown quoting.quote_store %q", cfg.Quoting.QuoteStore)
	}

	switch cfg.Folio.Backend {
	case FolioBackendFile:
	case FolioBackendRedis:
		if !cfg.Database.Redis.Enabled {
			return fmt.Errorf("folio.backend=redis requires database.redis.enabled")
		}
	case FolioBackendPostgres:
		if !cfg.Database.Postgres.Enabled {
			return fmt.Errorf("folio.backend=postgres requires database.postgres.enabled")
		}
	default:
		return fmt.Errorf("unknown folio.backend %q", cfg.Folio.Backend)
	}

	for _, sink := range cfg.Leads.Sinks {
		switch sink {
		case LeadSinkCSV:
		case LeadSinkPostgres:
			if !cfg.Database.Postgres.Enabled {
				return fmt.Errorf("leads sink postgres requires database.postgres.enabled")
			}
		case LeadSinkZoho:
			if cfg.Integrations.Zoho.AuthToken == "" {
				return fmt.Errorf("leads sink zoho requires integrations.zoho.oauth_token")
			}
		default:
			return fmt.Errorf("unknown leads sink %q", sink)
		}
	}

	if cfg.Search.Backend == "elasticsearch" && !cfg.Database.Elasticsearch.Enabled {
		return fmt.Errorf("search.backend=elasticsearch requires database.elasticsearch.enabled")
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	switch cfg.Notifications.Email.Channel {
	case "smtp", "ses":
	default:
		return fmt.Errorf("unknown notifications.email.channel %q", cfg.Notifications.Email.Channel)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
