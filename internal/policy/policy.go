// Package policy holds the underwriting tables that decide which plans a
// coverage tier offers and which plans continuity clients may not take.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cotizador/internal/models"
)

// Policy is safe for concurrent reads once built.
type Policy struct {
	// TierPlans lists the plan names offered under each tier.
	TierPlans map[models.Tier][]string `yaml:"tier_plans"`
	// ContinuityExcludedInsurers are case-insensitive substrings of insurer
	// names that are never offered to continuity clients.
	ContinuityExcludedInsurers []string `yaml:"continuity_excluded_insurers"`
	// ContinuityExcludedPlans are plan names withheld from continuity
	// clients within a tier.
	ContinuityExcludedPlans map[models.Tier][]string `yaml:"continuity_excluded_plans"`
}

var (
	BasicPlans = []string{
		"Esencial", "Esencial Plus", "Multisalud Base", "Medisalud Lite", "Medisalud Base",
	}
	IntegralPlans = []string{
		"Red Preferente", "Red Médica", "Multisalud", "Medisalud", "Medisalud Plus",
		"Viva Salud", "Trébol Salud", "Medisalud Senior +",
		"Oro - Plan preferente", "Oro - Plan Red", "Oro - Plan Completo",
	}
	ReimbursementPlans = []string{
		"Full Salud", "Medicvida Nacional", "Medisalud Premium",
	}
	InternationalPlans = []string{
		"Salud Preferencial", "Medicvida Internacional",
	}

	// ContinuityExcludedInsurers: Mapfre does not accept transfers.
	ContinuityExcludedInsurers = []string{"mapfre"}

	// IntegralContinuityExceptions are Integral plans closed to transfers.
	IntegralContinuityExceptions = []string{"Viva Salud", "Trébol Salud"}
)

// Default returns the tables currently in force.
func Default() *Policy {
	return &Policy{
		TierPlans: map[models.Tier][]string{
			models.TierBasic:         clone(BasicPlans),
			models.TierIntegral:      clone(IntegralPlans),
			models.TierReimbursement: clone(ReimbursementPlans),
			models.TierInternational: clone(InternationalPlans),
		},
		ContinuityExcludedInsurers: clone(ContinuityExcludedInsurers),
		ContinuityExcludedPlans: map[models.Tier][]string{
			models.TierIntegral: clone(IntegralContinuityExceptions),
		},
	}
}

// Load reads a YAML override. Sections present in the file replace the
// defaults; absent sections keep them.
func Load(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var override Policy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	p := Default()
	if override.TierPlans != nil {
		p.TierPlans = override.TierPlans
	}
	if override.ContinuityExcludedInsurers != nil {
		p.ContinuityExcludedInsurers = override.ContinuityExcludedInsurers
	}
	if override.ContinuityExcludedPlans != nil {
		p.ContinuityExcludedPlans = override.ContinuityExcludedPlans
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects tables keyed by unknown tiers.
func (p *Policy) Validate() error {
	for tier := range p.TierPlans {
		if !tier.Valid() {
			return fmt.Errorf("policy: unknown tier %q in tier_plans", tier)
		}
	}
	for tier := range p.ContinuityExcludedPlans {
		if !tier.Valid() {
			return fmt.Errorf("policy: unknown tier %q in continuity_excluded_plans", tier)
		}
	}
	return nil
}

// InsurerExcluded reports whether continuity clients must skip insurer.
func (p *Policy) InsurerExcluded(insurer string, continuity bool) bool {
	if !continuity {
		return false
	}
	lower := strings.ToLower(insurer)
	for _, sub := range p.ContinuityExcludedInsurers {
		if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// PlanInTier reports whether plan is offered under tier, taking the
// continuity exceptions into account.
func (p *Policy) PlanInTier(plan string, tier models.Tier, continuity bool) bool {
	name := strings.TrimSpace(plan)
	if !contains(p.TierPlans[tier], name) {
		return false
	}
	if continuity && contains(p.ContinuityExcludedPlans[tier], name) {
		return false
	}
	return true
}

// Allows combines the insurer and tier rules.
func (p *Policy) Allows(insurer, plan string, tier models.Tier, continuity bool) bool {
	if p.InsurerExcluded(insurer, continuity) {
		return false
	}
	return p.PlanInTier(plan, tier, continuity)
}

// TierOf returns the first tier listing plan.
func (p *Policy) TierOf(plan string) (models.Tier, bool) {
	name := strings.TrimSpace(plan)
	for _, tier := range models.Tiers() {
		if contains(p.TierPlans[tier], name) {
			return tier, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
