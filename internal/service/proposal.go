package service

import (
	"context"
	stderrors "errors"
	"strings"

	"cotizador/internal/common/errors"
	"cotizador/internal/common/metrics"
	"cotizador/internal/models"
	"cotizador/internal/proposal"
	"cotizador/internal/quotestore"
)

// ProposalRequest turns a stored search into a document. RecommendedID and
// Rationale are honoured for advisors and admins only.
type ProposalRequest struct {
	QuoteID       string `json:"quoteId"`
	RecommendedID string `json:"recommendedId"`
	Rationale     string `json:"rationale"`
	AccessCode    string `json:"accessCode"`
}

type ProposalResult struct {
	Folio         int64  `json:"folio"`
	FileName      string `json:"fileName"`
	RecommendedID string `json:"recommendedId"`
	Document      []byte `json:"-"`
}

// Proposal allocates the next folio and renders the comparison PDF. A
// folio is consumed even when rendering fails afterwards.
func (s *Service) Proposal(ctx context.Context, req ProposalRequest) (*ProposalResult, error) {
	start := s.now()
	role := s.Role(req.AccessCode)
	log := s.log.WithFields(map[string]interface{}{"quote_id": req.QuoteID, "role": string(role)})

	quote, err := s.deps.Store.Get(ctx, req.QuoteID)
	if err != nil {
		if stderrors.Is(err, quotestore.ErrNotFound) {
			return nil, errors.NewQuoteNotFoundError(req.QuoteID)
		}
		return nil, errors.NewCacheError("load quote", err)
	}
	if len(quote.Candidates) == 0 {
		return nil, errors.NewValidationError(map[string]string{
			"quoteId": "the search returned no plans; nothing to propose",
		})
	}

	recommended, rationale, err := chooseRecommendation(quote, role.Elevated(), req)
	if err != nil {
		return nil, err
	}

	number, err := s.deps.Folio.Next(ctx)
	if err != nil {
		metrics.ProposalsRendered.WithLabelValues("folio_failed").Inc()
		log.Error("Folio allocation failed", map[string]interface{}{"error": err.Error()})
		return nil, errors.NewFolioFailedError(err)
	}

	doc, err := proposal.Build(quote.Profile, quote.Candidates, recommended, rationale, number, start)
	if err == nil {
		var pdf []byte
		pdf, err = s.deps.Renderer.Render(doc)
		if err == nil {
			metrics.ProposalsRendered.WithLabelValues("rendered").Inc()
			metrics.QuoteDuration.WithLabelValues("proposal").Observe(s.now().Sub(start).Seconds())
			s.record(ctx, "proposal", "rendered", start)
			log.Info("Proposal rendered", map[string]interface{}{
				"folio":       number,
				"recommended": recommended,
				"bytes":       len(pdf),
			})
			return &ProposalResult{
				Folio:         number,
				FileName:      proposal.FileName(quote.Profile.Holder, quote.Clinics, start),
				RecommendedID: recommended,
				Document:      pdf,
			}, nil
		}
	}

	metrics.ProposalsRendered.WithLabelValues("failed").Inc()
	s.record(ctx, "proposal", "failed", start)
	log.Error("Proposal rendering failed", map[string]interface{}{"folio": number, "error": err.Error()})
	return nil, errors.NewProposalRenderFailedError(err)
}

// chooseRecommendation forces clients onto the cheapest plan with the
// default note; elevated roles may pick any candidate and edit the note.
func chooseRecommendation(q *models.Quote, elevated bool, req ProposalRequest) (string, string, error) {
	id := q.Candidates[0].ID
	rationale := DefaultRationale(q.Clinics, q.Profile.Continuity)
	if !elevated {
		return id, rationale, nil
	}

	if want := strings.TrimSpace(req.RecommendedID); want != "" {
		if _, ok := q.Find(want); !ok {
			return "", "", errors.NewValidationError(map[string]string{
				"recommendedId": "not one of the quoted plans",
			})
		}
		id = want
	}
	if r := strings.TrimSpace(req.Rationale); r != "" {
		rationale = r
	}
	return id, rationale, nil
}
