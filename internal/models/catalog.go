package models

import (
	"github.com/shopspring/decimal"
)

// Missing is the placeholder for optional catalog text.
const Missing = "-"

// PlanKey identifies a plan.
type PlanKey struct {
	Insurer string `json:"insurer"`
	Plan    string `json:"plan"`
}

// ID is the candidate identifier "{insurer}-{plan}".
func (k PlanKey) ID() string {
	return k.Insurer + "-" + k.Plan
}

// PriceRow is one (insurer, plan, age) premium line. Premiums that could
// not be parsed are stored as zero so pricing rejects them.
type PriceRow struct {
	Insurer string          `json:"insurer"`
	Plan    string          `json:"plan"`
	Age     int             `json:"age"`
	Healthy decimal.Decimal `json:"healthy"`
	Chronic decimal.Decimal `json:"chronic"`
}

// Premium selects the column for a health class.
func (r PriceRow) Premium(h HealthClass) decimal.Decimal {
	if h == HealthHealthy {
		return r.Healthy
	}
	return r.Chronic
}

// PlanInfo carries the per-plan supplemental text. Every field defaults
// to Missing.
type PlanInfo struct {
	IntAmbCoverage       string `json:"intAmbCoverage"`
	IntHospCoverage      string `json:"intHospCoverage"`
	WaitingPeriodLink    string `json:"waitingPeriodLink"`
	BenefitsLink         string `json:"benefitsLink"`
	IntAmbDeductible     string `json:"intAmbDeductible"`
	IntAmbReimbursement  string `json:"intAmbReimbursement"`
	IntHospDeductible    string `json:"intHospDeductible"`
	IntHospReimbursement string `json:"intHospReimbursement"`
	HasInternational     string `json:"hasInternational"`
}

// EmptyPlanInfo returns a PlanInfo with all fields set to Missing.
func EmptyPlanInfo() PlanInfo {
	return PlanInfo{
		IntAmbCoverage:       Missing,
		IntHospCoverage:      Missing,
		WaitingPeriodLink:    Missing,
		BenefitsLink:         Missing,
		IntAmbDeductible:     Missing,
		IntAmbReimbursement:  Missing,
		IntHospDeductible:    Missing,
		IntHospReimbursement: Missing,
		HasInternational:     Missing,
	}
}

// NetworkRow is one sub-network of a plan.
type NetworkRow struct {
	Insurer     string   `json:"insurer"`
	Plan        string   `json:"plan"`
	NetworkName string   `json:"networkName"`
	Ambulatory  string   `json:"ambulatory"`
	Hospital    string   `json:"hospital"`
	Clinics     []string `json:"clinics"`
}

// Includes reports whether clinic is listed in the row.
func (n NetworkRow) Includes(clinic string) bool {
	for _, c := range n.Clinics {
		if c == clinic {
			return true
		}
	}
	return false
}

// DiscountKey addresses the campaign table.
type DiscountKey struct {
	Insurer    string     `json:"insurer"`
	Plan       string     `json:"plan"`
	ClientType ClientType `json:"clientType"`
	Month      string     `json:"month"`
}
