// Package matcher filters the catalog for a household and prices the
// surviving plans.
package matcher

import (
	"sort"
	"strings"

	"cotizador/internal/models"
	"cotizador/internal/policy"
	"cotizador/internal/pricing"
)

// Catalog is the read side of catalog.Catalog used by the matcher.
type Catalog interface {
	pricing.PriceBook
	NetworkGroups() []models.PlanKey
	Networks(insurer, plan string) []models.NetworkRow
	PlanInfo(insurer, plan string) (models.PlanInfo, bool)
}

// Discounts resolves the percent applied to a plan.
type Discounts interface {
	Percent(k models.PlanKey) int
}

// Request carries everything one search needs.
type Request struct {
	Household  models.Household
	Clinics    []string
	Continuity models.Continuity
	Tier       models.Tier
	Discounts  Discounts
}

// Result is the outcome of a search. Empty is set when no plan survived,
// which is distinct from a catalog load failure.
type Result struct {
	Candidates []models.Candidate
	Empty      bool
}

// Matcher applies a policy to catalog searches.
type Matcher struct {
	policy *policy.Policy
}

// New creates a matcher. A nil policy uses policy.Default().
func New(p *policy.Policy) *Matcher {
	if p == nil {
		p = policy.Default()
	}
	return &Matcher{policy: p}
}

// Match runs a search with the default policy.
func Match(cat Catalog, req Request) Result {
	return New(nil).Match(cat, req)
}

// Match returns the priced candidates sorted by final price. Ties keep the
// (insurer, plan) order of the catalog groups.
func (m *Matcher) Match(cat Catalog, req Request) Result {
	wanted := cleanClinics(req.Clinics)
	continuity := req.Continuity.IsContinuity()

	var out []models.Candidate
	for _, key := range cat.NetworkGroups() {
		if !m.policy.Allows(key.Insurer, key.Plan, req.Tier, continuity) {
			continue
		}

		rows := cat.Networks(key.Insurer, key.Plan)
		if len(rows) == 0 || !coversAll(rows, wanted) {
			continue
		}

		info, ok := cat.PlanInfo(key.Insurer, key.Plan)
		if !ok {
			continue
		}

		base, ok := pricing.Price(cat, key.Insurer, key.Plan, req.Household)
		if !ok {
			continue
		}

		pct := 0
		if req.Discounts != nil {
			pct = req.Discounts.Percent(key)
		}
		price := pricing.ApplyDiscount(base, pct)

		c := models.Candidate{
			ID:      key.ID(),
			Insurer: key.Insurer,
			Plan:    key.Plan,
			International: models.InternationalTerms{
				AmbDeductible:     info.IntAmbDeductible,
				AmbReimbursement:  info.IntAmbReimbursement,
				HospDeductible:    info.IntHospDeductible,
				HospReimbursement: info.IntHospReimbursement,
			},
			ListPrice:         price.List,
			DiscountPct:       price.Percent,
			FinalPrice:        price.Final,
			Savings:           price.Savings,
			MonthlyPrice:      price.Monthly,
			BenefitsLink:      info.BenefitsLink,
			WaitingPeriodLink: info.WaitingPeriodLink,
		}
		c.Networks, c.Ambulatory, c.Hospital = coverageLines(rows, wanted)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalPrice.LessThan(out[j].FinalPrice)
	})

	return Result{Candidates: out, Empty: len(out) == 0}
}

func cleanClinics(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// coversAll reports whether the union of the rows' clinics contains every
// wanted clinic.
func coversAll(rows []models.NetworkRow, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	union := make(map[string]struct{})
	for _, r := range rows {
		for _, c := range r.Clinics {
			union[c] = struct{}{}
		}
	}
	for _, w := range wanted {
		if _, ok := union[w]; !ok {
			return false
		}
	}
	return true
}

func coverageLines(rows []models.NetworkRow, wanted []string) (networks, amb, hosp []models.CoverageLine) {
	if len(wanted) == 0 {
		first := rows[0]
		return []models.CoverageLine{{Label: "Red", Text: first.NetworkName}},
			[]models.CoverageLine{{Label: "Amb", Text: first.Ambulatory}},
			[]models.CoverageLine{{Label: "Hosp", Text: first.Hospital}}
	}

	for _, clinic := range wanted {
		for _, r := range rows {
			if !r.Includes(clinic) {
				continue
			}
			networks = append(networks, models.CoverageLine{Label: clinic, Text: r.NetworkName})
			amb = append(amb, models.CoverageLine{Label: clinic, Text: r.Ambulatory})
			hosp = append(hosp, models.CoverageLine{Label: clinic, Text: r.Hospital})
			break
		}
	}
	return networks, amb, hosp
}
