// Package app wires the quoting service from configuration. Both the API
// server and the worker manager start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsclients "cotizador/internal/common/aws"
	"cotizador/internal/common/auth"
	"cotizador/internal/common/camunda"
	"cotizador/internal/common/config"
	"cotizador/internal/common/database"
	"cotizador/internal/common/logger"
	"cotizador/internal/common/observability"
	"cotizador/internal/common/zoho"

	"cotizador/internal/catalog"
	"cotizador/internal/clinicsearch"
	"cotizador/internal/folio"
	"cotizador/internal/leads"
	"cotizador/internal/matcher"
	"cotizador/internal/notify"
	"cotizador/internal/policy"
	"cotizador/internal/proposal"
	"cotizador/internal/quotestore"
	"cotizador/internal/service"
)

// Options tunes startup.
type Options struct {
	ServiceName    string
	ConnectRetries int
	RetryDelay     time.Duration
	// Workflow connects to Zeebe when camunda.enabled is set.
	Workflow bool
}

func (o Options) withDefaults() Options {
	if o.ServiceName == "" {
		o.ServiceName = "cotizador"
	}
	if o.ConnectRetries <= 0 {
		o.ConnectRetries = 10
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	return o
}

// App holds the wired service and the connections it owns.
type App struct {
	Config        *config.Config
	Service       *service.Service
	Catalog       *catalog.Cache
	Folio         folio.Counter
	Leads         *leads.Multi
	Notifier      *notify.Notifier
	Observability *observability.Observability

	Postgres *database.PostgresClient
	Redis    *database.RedisClient
	Elastic  *database.ElasticsearchClient
	Camunda  *camunda.Client

	log     logger.Logger
	closers []func() error
}

// New connects the configured backends and builds the service. Every
// connection is retried with backoff before giving up.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	opts = opts.withDefaults()
	a := &App{
		Config:        cfg,
		Observability: observability.New(opts.ServiceName),
		log:           log,
	}
	a.closers = append(a.closers, func() error {
		a.Observability.Shutdown()
		return nil
	})

	if err := a.connect(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context, opts Options) error {
	cfg := a.Config

	if cfg.Database.Postgres.Enabled {
		err := RetryWithBackoff(ctx, func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			a.Postgres = pg
			return nil
		}, opts.ConnectRetries, opts.RetryDelay, a.log, "PostgreSQL connection")
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Postgres.Close)
		if err := a.Postgres.EnsureSchema(ctx); err != nil {
			return err
		}
		a.log.Info("PostgreSQL connected successfully", nil)
	}

	if cfg.Database.Redis.Enabled {
		err := RetryWithBackoff(ctx, func() error {
			rc, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			a.Redis = rc
			return nil
		}, opts.ConnectRetries, opts.RetryDelay, a.log, "Redis connection")
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Redis.Close)
		a.log.Info("Redis connected successfully", nil)
	}

	if cfg.Database.Elasticsearch.Enabled {
		err := RetryWithBackoff(ctx, func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			a.Elastic = es
			return nil
		}, opts.ConnectRetries, opts.RetryDelay, a.log, "Elasticsearch connection")
		if err != nil {
			return err
		}
		a.log.Info("Elasticsearch connected successfully", nil)
	}

	if opts.Workflow && cfg.Camunda.Enabled {
		err := RetryWithBackoff(ctx, func() error {
			c, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			if err != nil {
				return err
			}
			a.Camunda = c
			return nil
		}, opts.ConnectRetries, opts.RetryDelay, a.log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Camunda.Close)
		a.log.Info("Zeebe client connected successfully", nil)
	}
	return nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config

	pol := policy.Default()
	if cfg.Policy.File != "" {
		p, err := policy.Load(cfg.Policy.File)
		if err != nil {
			return err
		}
		pol = p
	}

	a.Catalog = catalog.NewCache(catalog.Sources{
		PricesPath:       cfg.Data.Path(cfg.Data.PricesFile),
		NetworksPath:     cfg.Data.Path(cfg.Data.NetworksFile),
		NetworksSheet:    cfg.Data.NetworksSheet,
		SupplementalPath: cfg.Data.Path(cfg.Data.SupplementalFile),
	}, a.log)

	store, err := a.quoteStore()
	if err != nil {
		return err
	}
	counter, err := a.folioCounter()
	if err != nil {
		return err
	}
	a.Folio = counter
	recorder, err := a.leadSinks()
	if err != nil {
		return err
	}
	a.Leads = recorder

	notifier, err := a.notifier(ctx)
	if err != nil {
		return err
	}
	a.Notifier = notifier

	deps := service.Deps{
		Catalog: a.Catalog,
		Access:  auth.NewResolver(cfg.Access.AdminCode, cfg.Access.AdvisorCodes),
		Matcher: matcher.New(pol),
		Store:   store,
		Folio:   counter,
		Renderer: proposal.NewRenderer(proposal.Options{
			Compress:     cfg.Proposal.Compress,
			AdvisoryLink: cfg.Proposal.AdvisoryLink,
			ContractLink: cfg.Proposal.ContractLink,
			Author:       cfg.Proposal.Author,
		}),
		Leads:         recorder,
		Observability: a.Observability,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	if a.Camunda != nil {
		deps.Workflow = a.Camunda
	}

	searchOpts := []clinicsearch.Option{clinicsearch.WithMaxResults(cfg.Search.MaxResults)}
	if cfg.Search.Backend == "elasticsearch" && a.Elastic != nil {
		idx := clinicsearch.NewElasticIndex(a.Elastic.Client, cfg.Search.ClinicIndex)
		searchOpts = append(searchOpts, clinicsearch.WithPrimary(idx))
		deps.ClinicIndexer = idx
	}
	if a.Redis != nil {
		searchOpts = append(searchOpts, clinicsearch.WithCache(a.Redis.Client, 10*time.Minute))
	}
	deps.Clinics = clinicsearch.NewService(nil, a.log, searchOpts...)

	svc, err := service.New(service.Config{
		CampaignsPath: cfg.Data.Path(cfg.Data.CampaignsFile),
		MaxDiscount:   cfg.Quoting.MaxDiscount,
		LeadProcessID: cfg.Camunda.LeadProcessID,
	}, deps, a.log)
	if err != nil {
		return err
	}
	a.Service = svc

	// A missing catalog is reported per request, so startup continues.
	if cat, err := a.Catalog.Get(ctx); err != nil {
		a.log.Warn("Catalog not loaded at startup", map[string]interface{}{"error": err.Error()})
	} else {
		svc.RefreshClinics(ctx, cat)
		a.log.Info("Catalog loaded", map[string]interface{}{"rows": cat.Stats()})
	}
	return nil
}

func (a *App) quoteStore() (quotestore.Store, error) {
	ttl := config.GetDuration(a.Config.Quoting.QuoteTTL)
	switch a.Config.Quoting.QuoteStore {
	case "redis":
		if a.Redis == nil {
			return nil, errors.New("quote store redis: redis is not connected")
		}
		return quotestore.NewRedisStore(a.Redis.Client, "", ttl), nil
	default:
		return quotestore.NewMemoryStore(ttl), nil
	}
}

func (a *App) folioCounter() (folio.Counter, error) {
	fc := a.Config.Folio
	switch fc.Backend {
	case config.FolioBackendRedis:
		if a.Redis == nil {
			return nil, errors.New("folio backend redis: redis is not connected")
		}
		return folio.NewRedisCounter(a.Redis.Client, fc.RedisKey, fc.Start), nil
	case config.FolioBackendPostgres:
		if a.Postgres == nil {
			return nil, errors.New("folio backend postgres: postgres is not connected")
		}
		return folio.NewPostgresCounter(a.Postgres.DB, fc.Name, fc.Start), nil
	default:
		return folio.NewFileCounter(fc.Path, fc.Start), nil
	}
}

func (a *App) leadSinks() (*leads.Multi, error) {
	cfg := a.Config
	var sinks []leads.Named
	for _, name := range cfg.Leads.Sinks {
		switch name {
		case config.LeadSinkCSV:
			sinks = append(sinks, leads.Named{Name: name, Recorder: leads.NewCSVRecorder(cfg.Leads.CSVPath)})
		case config.LeadSinkPostgres:
			if a.Postgres == nil {
				return nil, errors.New("lead sink postgres: postgres is not connected")
			}
			sinks = append(sinks, leads.Named{Name: name, Recorder: leads.NewPostgresRecorder(a.Postgres.DB)})
		case config.LeadSinkZoho:
			crm := zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken)
			sinks = append(sinks, leads.Named{Name: name, Recorder: leads.NewZohoRecorder(crm, cfg.Integrations.Zoho.Source)})
		default:
			return nil, fmt.Errorf("unknown lead sink %q", name)
		}
	}
	return leads.NewMulti(a.log, sinks...), nil
}

// notifier returns nil when neither channel is enabled.
func (a *App) notifier(ctx context.Context) (*notify.Notifier, error) {
	cfg := a.Config
	nc := cfg.Notifications
	if !nc.Email.Enabled && !nc.SMS.Enabled {
		return nil, nil
	}

	opts := notify.Options{
		Channel:       nc.Email.Channel,
		From:          cfg.Integrations.SMTP.DefaultFrom,
		Recipients:    nc.Email.Recipients,
		SMSRecipients: nc.SMS.Recipients,
		Timeout:       config.GetDuration(nc.Timeout),
	}

	var mailer notify.Mailer
	if nc.Email.Enabled {
		switch nc.Email.Channel {
		case "ses":
			client, err := awsclients.NewSESClient(ctx, cfg.Integrations.AWS.Region)
			if err != nil {
				return nil, err
			}
			mailer = notify.NewSESMailer(client)
			if from := cfg.Integrations.AWS.SES.FromEmail; from != "" {
				opts.From = from
			}
		default:
			smtp := cfg.Integrations.SMTP
			mailer = notify.NewSMTPMailer(notify.SMTPConfig{
				Host:                smtp.Host,
				Port:                smtp.Port,
				Username:            smtp.Username,
				Password:            smtp.Password,
				UseTLS:              smtp.UseTLS,
				PlaceholderPassword: nc.Email.PlaceholderPassword,
			})
		}
	}

	var sms notify.SMS
	if nc.SMS.Enabled {
		client, err := awsclients.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, err
		}
		sms = notify.NewSNSSender(client, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
	}

	return notify.NewNotifier(mailer, sms, opts, a.log), nil
}

// Ready pings every connected backend.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	if a.Postgres != nil {
		if err := a.Postgres.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Elastic != nil {
		if err := a.Elastic.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Camunda != nil {
		if err := a.Camunda.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
