package searchplans

import (
	"cotizador/internal/models"
	"cotizador/internal/service"
)

// Input mirrors the quoting form.
type Input struct {
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

func (in *Input) request() service.QuoteRequest {
	return service.QuoteRequest{
		Client:            in.Client,
		HolderAge:         in.HolderAge,
		Health:            in.Health,
		Dependents:        in.Dependents,
		Tier:              in.Tier,
		Continuity:        in.Continuity,
		Clinics:           in.Clinics,
		AccessCode:        in.AccessCode,
		Email:             in.Email,
		Phone:             in.Phone,
		DiscountOverrides: in.DiscountOverrides,
	}
}

type Output struct {
	QuoteID          string   `json:"quoteId"`
	Empty            bool     `json:"empty"`
	Message          string   `json:"message"`
	Notice           string   `json:"notice,omitempty"`
	Candidates       []string `json:"candidates"`
	RecommendedID    string   `json:"recommendedId,omitempty"`
	DefaultRationale string   `json:"defaultRationale,omitempty"`
}
