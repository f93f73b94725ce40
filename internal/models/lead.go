package models

import (
	"strings"
	"time"
)

// Lead is written once per client quote request and never updated.
type Lead struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Client     string      `json:"client"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	HolderAge  int         `json:"holderAge"`
	Health     HealthClass `json:"health"`
	Tier       Tier        `json:"tier"`
	Continuity Continuity  `json:"continuity"`
	Clinics    []string    `json:"clinics"`
	Insured    int         `json:"insured"`
	Role       string      `json:"role"`
}

// Normalize trims the contact fields and counts at least the holder. The
// client name is optional and stays empty when not given.
func (l *Lead) Normalize() {
	l.Client = strings.TrimSpace(l.Client)
	l.Email = strings.TrimSpace(l.Email)
	l.Phone = strings.TrimSpace(l.Phone)
	if l.Insured <= 0 {
		l.Insured = 1
	}
}
