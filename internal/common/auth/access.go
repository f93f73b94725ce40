// Package auth resolves the optional access code typed into the quoting
// form into a quoting role.
package auth

import (
	"crypto/subtle"
	"strings"
)

// Role is the privilege level of the person using the quoting form.
type Role string

const (
	RoleClient  Role = "Cliente"
	RoleAdvisor Role = "Asesor"
	RoleAdmin   Role = "Admin"
)

// Elevated roles see discount columns and may pick the recommended plan.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleAdvisor
}

// CanOverrideDiscounts is reserved to the admin code.
func (r Role) CanOverrideDiscounts() bool {
	return r == RoleAdmin
}

// Resolver compares codes against one admin code and a set of advisor codes.
type Resolver struct {
	adminCode    string
	advisorCodes []string
}

func NewResolver(adminCode string, advisorCodes []string) *Resolver {
	codes := make([]string, 0, len(advisorCodes))
	for _, c := range advisorCodes {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return &Resolver{adminCode: strings.TrimSpace(adminCode), advisorCodes: codes}
}

// Resolve never elevates an empty code, so an unconfigured admin code
// cannot be matched by leaving the field blank.
func (r *Resolver) Resolve(code string) Role {
	if code == "" {
		return RoleClient
	}
	if r.adminCode != "" && equal(code, r.adminCode) {
		return RoleAdmin
	}
	for _, c := range r.advisorCodes {
		if equal(code, c) {
			return RoleAdvisor
		}
	}
	return RoleClient
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
