package config

import (
	"fmt"
	"path/filepath"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Data          DataConfig              `mapstructure:"data"`
	Access        AccessConfig            `mapstructure:"access"`
	Quoting       QuotingConfig           `mapstructure:"quoting"`
	Folio         FolioConfig             `mapstructure:"folio"`
	Leads         LeadsConfig             `mapstructure:"leads"`
	Proposal      ProposalConfig          `mapstructure:"proposal"`
	Policy        PolicyConfig            `mapstructure:"policy"`
	Search        SearchConfig            `mapstructure:"search"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Registry      RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`    // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"`   // milliseconds
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DataConfig locates the prepared catalog files.
type DataConfig struct {
	Dir              string `mapstructure:"dir"`
	PricesFile       string `mapstructure:"prices_file"`
	NetworksFile     string `mapstructure:"networks_file"`
	NetworksSheet    string `mapstructure:"networks_sheet"`
	SupplementalFile string `mapstructure:"supplemental_file"`
	CampaignsFile    string `mapstructure:"campaigns_file"`
}

// Path resolves a data file name against Dir. Absolute names are kept.
func (d DataConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

type AccessConfig struct {
	AdminCode    string   `mapstructure:"admin_code"`
	AdvisorCodes []string `mapstructure:"advisor_codes"`
}

type QuotingConfig struct {
	QuoteTTL    int    `mapstructure:"quote_ttl"` // milliseconds
	QuoteStore  string `mapstructure:"quote_store"`
	MaxDiscount int    `mapstructure:"max_discount"`
}

type FolioConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	Start    int64  `mapstructure:"start"`
	RedisKey string `mapstructure:"redis_key"`
	Name     string `mapstructure:"name"`
}

type LeadsConfig struct {
	CSVPath string   `mapstructure:"csv_path"`
	Sinks   []string `mapstructure:"sinks"`
}

type ProposalConfig struct {
	Compress     bool   `mapstructure:"compress"`
	AdvisoryLink string `mapstructure:"advisory_link"`
	ContractLink string `mapstructure:"contract_link"`
	Author       string `mapstructure:"author"`
	OutputDir    string `mapstructure:"output_dir"`
}

type PolicyConfig struct {
	File string `mapstructure:"file"`
}

type SearchConfig struct {
	Backend     string `mapstructure:"backend"`
	ClinicIndex string `mapstructure:"clinic_index"`
	MaxResults  int    `mapstructure:"max_results"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	LeadProcessID  string `mapstructure:"lead_process_id"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// IntegrationConfig holds settings for CRM, Email, and other external services.
type IntegrationConfig struct {
	Zoho struct {
		Enabled   bool   `mapstructure:"enabled"`
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
		Source    string `mapstructure:"lead_source"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	SMTP struct {
		Host        string `mapstructure:"host"`
		Port        int    `mapstructure:"port"`
		Username    string `mapstructure:"username"`
		Password    string `mapstructure:"password"`
		UseTLS      bool   `mapstructure:"use_tls"`
		DefaultFrom string `mapstructure:"default_from"`
	} `mapstructure:"smtp"`
}

// NotificationConfig controls the lead alert sent to the brokerage.
type NotificationConfig struct {
	Email struct {
		Enabled             bool     `mapstructure:"enabled"`
		Channel             string   `mapstructure:"channel"` // smtp | ses
		Recipients          []string `mapstructure:"recipients"`
		PlaceholderPassword string   `mapstructure:"placeholder_password"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled    bool     `mapstructure:"enabled"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"sms"`
	Timeout int `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
