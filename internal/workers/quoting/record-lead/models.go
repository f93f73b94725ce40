package recordlead

import "cotizador/internal/models"

// Input matches the variables the quote flow publishes with a new lead.
type Input struct {
	LeadID     string             `json:"leadId"`
	Client     string             `json:"client"`
	Email      string             `json:"email"`
	Phone      string             `json:"phone"`
	HolderAge  int                `json:"holderAge"`
	Health     models.HealthClass `json:"health"`
	Tier       models.Tier        `json:"tier"`
	Continuity models.Continuity  `json:"continuity"`
	Clinics    []string           `json:"clinics"`
	Insured    int                `json:"insured"`
	Role       string             `json:"role"`
}

type Output struct {
	LeadID   string `json:"leadId"`
	Recorded bool   `json:"leadRecorded"`
	Notified bool   `json:"leadNotified"`
}
