package leads

import (
	"context"
	"fmt"
	"strings"

	"cotizador/internal/common/zoho"
	"cotizador/internal/models"
)

// CRM is the part of the Zoho client used for lead sync.
type CRM interface {
	SearchLeadsByEmail(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

// ZohoRecorder creates a CRM lead unless one already exists for the email.
type ZohoRecorder struct {
	crm    CRM
	source string
}

func NewZohoRecorder(crm CRM, source string) *ZohoRecorder {
	if source == "" {
		source = "Cotizador Web"
	}
	return &ZohoRecorder{crm: crm, source: source}
}

func (r *ZohoRecorder) Record(ctx context.Context, lead models.Lead) error {
	if lead.Email != "" {
		existing, err := r.crm.SearchLeadsByEmail(ctx, lead.Email)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
	}

	first, last := splitName(lead.Client)
	_, err := r.crm.CreateLead(ctx, &zoho.Lead{
		FirstName:   first,
		LastName:    last,
		Email:       lead.Email,
		Mobile:      lead.Phone,
		Source:      r.source,
		Description: describe(lead),
	})
	return err
}

// splitName puts the last word in Last_Name, which Zoho requires.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", "Cliente"
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func describe(l models.Lead) string {
	clinics := strings.Join(l.Clinics, ", ")
	if clinics == "" {
		clinics = "Sin preferencia específica"
	}
	return fmt.Sprintf("Edad titular: %d\nCobertura: %s\nCondición: %s\nClínicas: %s\nAsegurados: %d",
		l.HolderAge, l.Tier, l.Continuity, clinics, l.Insured)
}
