package models

import (
	"fmt"
	"strings"
)

// HealthClass selects the premium column used for a member.
type HealthClass string

const (
	HealthHealthy HealthClass = "Sano"
	HealthChronic HealthClass = "Crónico"
)

func (h HealthClass) Valid() bool {
	return h == HealthHealthy || h == HealthChronic
}

// MemberRole distinguishes the policy holder from dependents.
type MemberRole string

const (
	RoleHolder    MemberRole = "Titular"
	RoleDependent MemberRole = "Dependiente"
)

// HouseholdMember is built fresh per quote request and never persisted.
type HouseholdMember struct {
	Age    int         `json:"age"`
	Health HealthClass `json:"health"`
	Role   MemberRole  `json:"role"`
}

// Dependent is the form input for one dependent.
type Dependent struct {
	Age    int         `json:"age"`
	Health HealthClass `json:"health"`
}

// Household is ordered: the holder first, then dependents as entered.
type Household []HouseholdMember

func NewHousehold(holderAge int, holderHealth HealthClass, dependents []Dependent) Household {
	h := make(Household, 0, len(dependents)+1)
	h = append(h, HouseholdMember{Age: holderAge, Health: holderHealth, Role: RoleHolder})
	for _, d := range dependents {
		h = append(h, HouseholdMember{Age: d.Age, Health: d.Health, Role: RoleDependent})
	}
	return h
}

// Dependents returns the members after the holder.
func (h Household) Dependents() []HouseholdMember {
	if len(h) <= 1 {
		return nil
	}
	return h[1:]
}

// Insured is the number of people covered.
func (h Household) Insured() int {
	return len(h)
}

// Continuity is the client's declared insurance history.
type Continuity string

const (
	ContinuityNew      Continuity = "Nuevo"
	ContinuityTransfer Continuity = "Vengo con continuidad"
)

func (c Continuity) Valid() bool {
	return c == ContinuityNew || c == ContinuityTransfer
}

func (c Continuity) IsContinuity() bool {
	return c == ContinuityTransfer
}

// ClientType is the campaign-table spelling of Continuity.
type ClientType string

const (
	ClientNew        ClientType = "Nuevo"
	ClientContinuity ClientType = "Continuidad"
)

func (c Continuity) ClientType() ClientType {
	if c.IsContinuity() {
		return ClientContinuity
	}
	return ClientNew
}

// Tier is the requested coverage level.
type Tier string

const (
	TierBasic         Tier = "Básica"
	TierIntegral      Tier = "Integral"
	TierReimbursement Tier = "Integral + Reembolso"
	TierInternational Tier = "Integral + Cobertura Internacional"
)

// Tiers lists the coverage levels in ascending order.
func Tiers() []Tier {
	return []Tier{TierBasic, TierIntegral, TierReimbursement, TierInternational}
}

func (t Tier) Valid() bool {
	for _, known := range Tiers() {
		if t == known {
			return true
		}
	}
	return false
}

func (t Tier) IsInternational() bool {
	return t == TierInternational
}

// Profile is the household summary printed on the proposal.
type Profile struct {
	Holder        string     `json:"holder"`
	HolderAge     int        `json:"holderAge"`
	Tier          Tier       `json:"tier"`
	Continuity    Continuity `json:"continuity"`
	DependentAges []int      `json:"dependentAges,omitempty"`
}

// NewProfile summarises a household for the document.
func NewProfile(holder string, household Household, tier Tier, continuity Continuity) Profile {
	p := Profile{Holder: strings.TrimSpace(holder), Tier: tier, Continuity: continuity}
	if len(household) > 0 {
		p.HolderAge = household[0].Age
	}
	for _, d := range household.Dependents() {
		p.DependentAges = append(p.DependentAges, d.Age)
	}
	return p
}

// HolderLabel renders "{name} ({age} años)".
func (p Profile) HolderLabel() string {
	return fmt.Sprintf("%s (%d años)", p.Holder, p.HolderAge)
}

// DependentsLabel renders "Dep (10a), Dep (7a)" or "Ninguno".
func (p Profile) DependentsLabel() string {
	if len(p.DependentAges) == 0 {
		return "Ninguno"
	}
	parts := make([]string, len(p.DependentAges))
	for i, age := range p.DependentAges {
		parts[i] = fmt.Sprintf("Dep (%da)", age)
	}
	return strings.Join(parts, ", ")
}
