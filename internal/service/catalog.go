package service

import (
	"context"
	"time"

	"cotizador/internal/catalog"
	"cotizador/internal/clinicsearch"
	"cotizador/internal/common/errors"
	"cotizador/internal/models"
)

// Options lists the enumerations and bounds of the quoting form.
type Options struct {
	Tiers         []models.Tier        `json:"tiers"`
	Continuity    []models.Continuity  `json:"continuity"`
	Health        []models.HealthClass `json:"health"`
	MinHolderAge  int                  `json:"minHolderAge"`
	MaxHolderAge  int                  `json:"maxHolderAge"`
	MaxDependents int                  `json:"maxDependents"`
	MaxDepAge     int                  `json:"maxDependentAge"`
	Month         string               `json:"month"`
}

func (s *Service) Options() Options {
	return Options{
		Tiers:         models.Tiers(),
		Continuity:    []models.Continuity{models.ContinuityNew, models.ContinuityTransfer},
		Health:        []models.HealthClass{models.HealthHealthy, models.HealthChronic},
		MinHolderAge:  MinHolderAge,
		MaxHolderAge:  MaxHolderAge,
		MaxDependents: MaxDependents,
		MaxDepAge:     MaxDependentAge,
		Month:         models.MonthName(s.now()),
	}
}

// Clinics answers the clinic autocomplete.
func (s *Service) Clinics(ctx context.Context, query string, limit int) ([]string, error) {
	if s.deps.Clinics != nil {
		names, err := s.deps.Clinics.Search(ctx, query, limit)
		if err != nil {
			return nil, errors.NewSearchFailedError(err)
		}
		return names, nil
	}

	cat, err := s.deps.Catalog.Get(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	if limit <= 0 {
		limit = clinicsearch.DefaultMaxResults
	}
	names, _ := clinicsearch.NewMemoryIndex(cat.Clinics()).Search(ctx, query, limit)
	return names, nil
}

// CampaignsResult is the admin view of one month of the campaign table.
type CampaignsResult struct {
	Month      string                `json:"month"`
	ClientType models.ClientType     `json:"clientType"`
	Rows       []catalog.CampaignRow `json:"rows"`
}

// Campaigns lists the discounts configured for a month and client type.
// Empty month means the current one.
func (s *Service) Campaigns(ctx context.Context, accessCode, month string, clientType models.ClientType) (*CampaignsResult, error) {
	if !s.Role(accessCode).CanOverrideDiscounts() {
		return nil, errors.NewAccessDeniedError("campaign listing requires the admin code")
	}
	if month == "" {
		month = models.MonthName(s.now())
	}
	if clientType == "" {
		clientType = models.ClientNew
	}

	fields := map[string]string{}
	if !models.ValidMonth(month) {
		fields["month"] = "unknown month name"
	}
	if clientType != models.ClientNew && clientType != models.ClientContinuity {
		fields["clientType"] = "must be Nuevo or Continuidad"
	}
	if len(fields) > 0 {
		return nil, errors.NewValidationError(fields)
	}

	campaigns, err := catalog.LoadCampaigns(s.config.CampaignsPath)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	rows := campaigns.Rows(clientType, month)
	if rows == nil {
		rows = []catalog.CampaignRow{}
	}
	return &CampaignsResult{Month: month, ClientType: clientType, Rows: rows}, nil
}

// ReloadResult reports the tables of a freshly loaded catalog.
type ReloadResult struct {
	LoadedAt time.Time      `json:"loadedAt"`
	Rows     map[string]int `json:"rows"`
}

// ReloadCatalog re-reads the data files. The previous catalog keeps
// serving when the new one cannot be loaded.
func (s *Service) ReloadCatalog(ctx context.Context, accessCode string) (*ReloadResult, error) {
	if !s.Role(accessCode).CanOverrideDiscounts() {
		return nil, errors.NewAccessDeniedError("catalog reload requires the admin code")
	}

	cat, err := s.deps.Catalog.Reload(ctx)
	if err != nil {
		return nil, errors.NewCatalogUnavailableError(err)
	}
	s.RefreshClinics(ctx, cat)
	return &ReloadResult{LoadedAt: s.now(), Rows: cat.Stats()}, nil
}

// RefreshClinics pushes the catalog clinic list to the search indexes.
func (s *Service) RefreshClinics(ctx context.Context, cat *catalog.Catalog) {
	names := cat.Clinics()
	if s.deps.Clinics != nil {
		s.deps.Clinics.Refresh(names)
	}
	if s.deps.ClinicIndexer != nil {
		if err := s.deps.ClinicIndexer.Reindex(ctx, names); err != nil {
			s.log.Warn("Clinic index rebuild failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
