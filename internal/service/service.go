// Package service runs the quoting flow: resolve the caller's role,
// validate the form, price the matching plans and turn a stored search
// into a numbered proposal document.
package service

import (
	"context"
	"fmt"
	"time"

	"cotizador/internal/catalog"
	"cotizador/internal/clinicsearch"
	"cotizador/internal/common/auth"
	"cotizador/internal/common/logger"
	"cotizador/internal/common/observability"
	"cotizador/internal/folio"
	"cotizador/internal/leads"
	"cotizador/internal/matcher"
	"cotizador/internal/models"
	"cotizador/internal/proposal"
	"cotizador/internal/quotestore"
)

// CatalogSource hands out the loaded catalog.
type CatalogSource interface {
	Get(ctx context.Context) (*catalog.Catalog, error)
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// LeadNotifier alerts the brokerage about a client lead.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, lead models.Lead) error
}

// Workflow starts the follow-up process for a client lead.
type Workflow interface {
	PublishQuoteRequested(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
}

// ClinicIndexer rebuilds an external clinic index after a catalog reload.
type ClinicIndexer interface {
	Reindex(ctx context.Context, names []string) error
}

// Config carries the tunables of the flow.
type Config struct {
	CampaignsPath string
	MaxDiscount   int
	LeadProcessID string
}

// Deps are the collaborators of the service. Leads, Notifier, Workflow,
// Clinics and ClinicIndexer are optional.
type Deps struct {
	Catalog       CatalogSource
	Access        *auth.Resolver
	Matcher       *matcher.Matcher
	Store         quotestore.Store
	Folio         folio.Counter
	Renderer      *proposal.Renderer
	Leads         leads.Recorder
	Notifier      LeadNotifier
	Workflow      Workflow
	Clinics       *clinicsearch.Service
	ClinicIndexer ClinicIndexer
	Observability *observability.Observability
}

type Service struct {
	config Config
	deps   Deps
	log    logger.Logger
	now    func() time.Time
	newID  func() string
}

func New(cfg Config, deps Deps, log logger.Logger) (*Service, error) {
	if deps.Catalog == nil || deps.Access == nil || deps.Store == nil || deps.Folio == nil {
		return nil, fmt.Errorf("catalog, access, store and folio are required")
	}
	if deps.Matcher == nil {
		deps.Matcher = matcher.New(nil)
	}
	if deps.Renderer == nil {
		deps.Renderer = proposal.NewRenderer(proposal.DefaultOptions())
	}
	if cfg.MaxDiscount <= 0 {
		cfg.MaxDiscount = 50
	}
	return &Service{
		config: cfg,
		deps:   deps,
		log:    log.WithFields(map[string]interface{}{"component": "service"}),
		now:    time.Now,
		newID:  newQuoteID,
	}, nil
}

// Role resolves an access code.
func (s *Service) Role(code string) auth.Role {
	return s.deps.Access.Resolve(code)
}

func (s *Service) record(ctx context.Context, operation, status string, start time.Time) {
	s.deps.Observability.Record(ctx, operation, status, time.Since(start))
}
