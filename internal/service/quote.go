package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cotizador/internal/catalog"
	"cotizador/internal/common/auth"
	"cotizador/internal/common/errors"
	"cotizador/internal/common/metrics"
	"cotizador/internal/matcher"
	"cotizador/internal/models"
)

// User-facing texts of the search result.
const (
	MsgFoundFormat    = "¡Hemos encontrado %d opciones compatibles con tus clínicas!"
	MsgEmptyFormat    = "⚠️ No se encontraron planes de cobertura '%s' para las clínicas que has elegido. Por favor, intenta seleccionando un nivel de cobertura superior (Ej. Integral o Integral + Reembolso)."
	MsgContinuityInfo = "ℹ️ Para gozar del beneficio de continuidad debe haber estado asegurado dentro de los últimos 90 días."
	MsgDownloadHint   = "👇 Descarga el PDF para ver el comparativo detallado de precios y coberturas."
)

// QuoteRequest is one submission of the quoting form.
type QuoteRequest struct {
	Client            string             `json:"client"`
	HolderAge         int                `json:"holderAge"`
	Health            models.HealthClass `json:"health"`
	Dependents        []models.Dependent `json:"dependents"`
	Tier              models.Tier        `json:"tier"`
	Continuity        models.Continuity  `json:"continuity"`
	Clinics           []string           `json:"clinics"`
	AccessCode        string             `json:"accessCode"`
	Email             string             `json:"email"`
	Phone             string             `json:"phone"`
	DiscountOverrides map[string]int     `json:"discountOverrides"`
}

// CandidateView is the client-facing row: no list price or discount.
type CandidateView struct {
	ID            string                     `json:"id"`
	Insurer       string                     `json:"insurer"`
	Plan          string                     `json:"plan"`
	Ambulatory    []models.CoverageLine      `json:"ambulatory,omitempty"`
	Hospital      []models.CoverageLine      `json:"hospital,omitempty"`
	International *models.InternationalTerms `json:"international,omitempty"`
}

// ComparisonRow is the advisor/admin table row.
type ComparisonRow struct {
	CandidateView
	ListPrice   decimal.Decimal `json:"listPrice"`
	DiscountPct int             `json:"discountPct"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
	Savings     decimal.Decimal `json:"savings"`
	Monthly     decimal.Decimal `json:"monthlyPrice"`
}

type QuoteResponse struct {
	QuoteID          string          `json:"quoteId"`
	Role             auth.Role       `json:"role"`
	Month            string          `json:"month"`
	Empty            bool            `json:"empty"`
	Message          string          `json:"message"`
	Notice           string          `json:"notice,omitempty"`
	Hint             string          `json:"hint,omitempty"`
	Candidates       []CandidateView `json:"candidates"`
	Comparison       []ComparisonRow `json:"comparison,omitempty"`
	RecommendedID    string          `json:"recommendedId,omitempty"`
	DefaultRationale string          `json:"defaultRationale,omitempty"`
}

// Quote validates the form, records client leads and runs the search. The
// result is stored so a proposal can be generated from it later.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	start := s.now()
	role := s.Role(req.AccessCode)
	log := s.log.WithFields(map[string]interface{}{"role": string(role), "tier": string(req.Tier)})

	fields, err := validateQuote(&req, role)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if len(fields) > 0 {
		metrics.QuotesTotal.WithLabelValues(string(req.Tier), "invalid").Inc()
		s.record(ctx, "quote", "invalid", start)
		return nil, errors.NewValidationError(fields)
	}
	if len(req.DiscountOverrides) > 0 && !role.CanOverrideDiscounts() {
		return nil, errors.NewAccessDeniedError("discount overrides require the admin code")
	}
	req.Clinics = cleanList(req.Clinics)
	req.Client = strings.TrimSpace(req.Client)

	cat, err := s.deps.Catalog.Get(ctx)
	if err != nil {
		metrics.QuotesTotal.WithLabelValues(string(req.Tier), "unavailable").Inc()
		s.record(ctx, "quote", "unavailable", start)
		log.Error("Catalog unavailable", map[string]interface{}{"error": err.Error()})
		return nil, errors.NewCatalogUnavailableError(err)
	}

	month := models.MonthName(start)
	discounts := s.sessionDiscounts(cat, req, role, month)

	if role == auth.RoleClient {
		s.captureLead(ctx, req, role, start)
	}

	household := req.household()
	result := s.deps.Matcher.Match(cat, matcher.Request{
		Household:  household,
		Clinics:    req.Clinics,
		Continuity: req.Continuity,
		Tier:       req.Tier,
		Discounts:  discounts,
	})

	quote := &models.Quote{
		ID:         s.newID(),
		CreatedAt:  start,
		Role:       string(role),
		Profile:    models.NewProfile(req.Client, household, req.Tier, req.Continuity),
		Clinics:    req.Clinics,
		Candidates: result.Candidates,
	}
	if err := s.deps.Store.Save(ctx, quote); err != nil {
		s.record(ctx, "quote", "error", start)
		return nil, errors.NewCacheError("save quote", err)
	}

	outcome := "found"
	if result.Empty {
		outcome = "empty"
	}
	metrics.QuotesTotal.WithLabelValues(string(req.Tier), outcome).Inc()
	metrics.QuoteCandidates.WithLabelValues(string(req.Tier)).Observe(float64(len(result.Candidates)))
	metrics.QuoteDuration.WithLabelValues("quote").Observe(time.Since(start).Seconds())
	s.record(ctx, "quote", outcome, start)

	log.Info("Quote search completed", map[string]interface{}{
		"quote_id":   quote.ID,
		"candidates": len(result.Candidates),
		"clinics":    len(req.Clinics),
		"insured":    household.Insured(),
	})

	return s.view(quote, role, month, result.Empty), nil
}

// sessionDiscounts reloads the campaign table on every search so edits to
// the file apply without a restart.
func (s *Service) sessionDiscounts(cat *catalog.Catalog, req QuoteRequest, role auth.Role, month string) catalog.Session {
	campaigns, err := catalog.LoadCampaigns(s.config.CampaignsPath)
	if err != nil {
		s.log.Warn("Campaign table unreadable, no discounts applied", map[string]interface{}{
			"path":  s.config.CampaignsPath,
			"error": err.Error(),
		})
	}
	var overrides map[string]int
	if role.CanOverrideDiscounts() {
		overrides = req.DiscountOverrides
	}
	return campaigns.ForSession(cat, req.Continuity.ClientType(), month, overrides, s.config.MaxDiscount)
}

// captureLead records and announces a client request exactly once. With a
// lead process configured the record-lead worker owns both steps; the
// request is captured locally only when the process cannot be started.
// Capture is best-effort and the search runs regardless.
func (s *Service) captureLead(ctx context.Context, req QuoteRequest, role auth.Role, now time.Time) {
	lead := models.Lead{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Client:     req.Client,
		Email:      req.Email,
		Phone:      req.Phone,
		HolderAge:  req.HolderAge,
		Health:     req.Health,
		Tier:       req.Tier,
		Continuity: req.Continuity,
		Clinics:    req.Clinics,
		Insured:    req.household().Insured(),
		Role:       string(role),
	}
	lead.Normalize()

	if s.publishLead(ctx, lead) {
		return
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifyLead(ctx, lead); err != nil {
			s.log.Warn("Lead notification failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if s.deps.Leads != nil {
		if err := s.deps.Leads.Record(ctx, lead); err != nil {
			s.log.Warn("Lead recording failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// publishLead hands the lead to the lead process and reports whether it
// was started.
func (s *Service) publishLead(ctx context.Context, lead models.Lead) bool {
	if s.deps.Workflow == nil || s.config.LeadProcessID == "" {
		return false
	}
	vars := map[string]interface{}{
		"leadId":     lead.ID,
		"client":     lead.Client,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"holderAge":  lead.HolderAge,
		"health":     string(lead.Health),
		"tier":       string(lead.Tier),
		"continuity": string(lead.Continuity),
		"clinics":    lead.Clinics,
		"insured":    lead.Insured,
		"role":       lead.Role,
	}
	key, err := s.deps.Workflow.PublishQuoteRequested(ctx, s.config.LeadProcessID, vars)
	if err != nil {
		s.log.Warn("Lead workflow not started, capturing locally", map[string]interface{}{"error": err.Error()})
		return false
	}
	s.log.Debug("Lead workflow started", map[string]interface{}{"process_instance_key": key})
	return true
}

func (s *Service) view(q *models.Quote, role auth.Role, month string, empty bool) *QuoteResponse {
	resp := &QuoteResponse{
		QuoteID:    q.ID,
		Role:       role,
		Month:      month,
		Empty:      empty,
		Candidates: make([]CandidateView, 0, len(q.Candidates)),
	}
	if empty {
		resp.Message = fmt.Sprintf(MsgEmptyFormat, q.Profile.Tier)
		return resp
	}

	resp.Message = fmt.Sprintf(MsgFoundFormat, len(q.Candidates))
	if q.Profile.Continuity.IsContinuity() {
		resp.Notice = MsgContinuityInfo
	}
	resp.RecommendedID = q.Candidates[0].ID
	resp.DefaultRationale = DefaultRationale(q.Clinics, q.Profile.Continuity)

	international := q.Profile.Tier.IsInternational()
	for _, c := range q.Candidates {
		v := CandidateView{ID: c.ID, Insurer: c.Insurer, Plan: c.Plan}
		if international {
			terms := c.International
			v.International = &terms
		} else {
			v.Ambulatory = c.Ambulatory
			v.Hospital = c.Hospital
		}
		resp.Candidates = append(resp.Candidates, v)

		if role.Elevated() {
			resp.Comparison = append(resp.Comparison, ComparisonRow{
				CandidateView: v,
				ListPrice:     c.ListPrice,
				DiscountPct:   c.DiscountPct,
				FinalPrice:    c.FinalPrice,
				Savings:       c.Savings,
				Monthly:       c.MonthlyPrice,
			})
		}
	}
	if !role.Elevated() {
		resp.Hint = MsgDownloadHint
	}
	return resp
}

// DefaultRationale is the expert note proposed for the recommended plan.
func DefaultRationale(clinics []string, continuity models.Continuity) string {
	txt := strings.Join(clinics, ", ")
	if txt == "" {
		txt = "su red de afiliados"
	}
	out := fmt.Sprintf("Este plan es el que tiene mejor precio considerando las clínicas que prefiere (%s) y sus beneficios.", txt)
	if continuity == models.ContinuityNew {
		out += " Recuerde revisar los periodos de carencia."
	}
	return out
}

func newQuoteID() string {
	return uuid.NewString()
}
