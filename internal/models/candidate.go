package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoverageLine is one bullet of a coverage cell. Label is the clinic the
// line refers to, or "Red"/"Amb"/"Hosp" when no clinic was requested.
type CoverageLine struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// InternationalTerms holds the deductible/reimbursement text shown for
// the international tier.
type InternationalTerms struct {
	AmbDeductible     string `json:"ambDeductible"`
	AmbReimbursement  string `json:"ambReimbursement"`
	HospDeductible    string `json:"hospDeductible"`
	HospReimbursement string `json:"hospReimbursement"`
}

// Candidate is one priced plan of a search. It is never mutated after
// the matcher emits it.
type Candidate struct {
	ID                string             `json:"id"`
	Insurer           string             `json:"insurer"`
	Plan              string             `json:"plan"`
	Networks          []CoverageLine     `json:"networks"`
	Ambulatory        []CoverageLine     `json:"ambulatory"`
	Hospital          []CoverageLine     `json:"hospital"`
	International     InternationalTerms `json:"international"`
	ListPrice         decimal.Decimal    `json:"listPrice"`
	DiscountPct       int                `json:"discountPct"`
	FinalPrice        decimal.Decimal    `json:"finalPrice"`
	Savings           decimal.Decimal    `json:"savings"`
	MonthlyPrice      decimal.Decimal    `json:"monthlyPrice"`
	BenefitsLink      string             `json:"benefitsLink"`
	WaitingPeriodLink string             `json:"waitingPeriodLink"`
}

// Key returns the plan identity of the candidate.
func (c Candidate) Key() PlanKey {
	return PlanKey{Insurer: c.Insurer, Plan: c.Plan}
}

// Quote is the stored outcome of one search, handed from the search step
// to the proposal step.
type Quote struct {
	ID         string      `json:"id"`
	CreatedAt  time.Time   `json:"createdAt"`
	Role       string      `json:"role"`
	Profile    Profile     `json:"profile"`
	Clinics    []string    `json:"clinics"`
	Candidates []Candidate `json:"candidates"`
}

// Find returns the candidate with id.
func (q *Quote) Find(id string) (Candidate, bool) {
	for _, c := range q.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}
