package service

import (
	"strconv"
	"strings"

	"cotizador/internal/common/auth"
	"cotizador/internal/common/validation"
	"cotizador/internal/models"
)

// Form bounds.
const (
	MinHolderAge     = 18
	MaxHolderAge     = 99
	MaxDependents    = 10
	MaxDependentAge  = 99
	MaxClinicsPerAsk = 50
)

// Client-facing validation messages.
const (
	MsgClinicRequired  = "⚠️ Por favor selecciona al menos una Clínica de preferencia."
	MsgContactRequired = "⚠️ Por favor ingrese su Correo y Celular para continuar."
)

// QuoteRequestSchema is the JSON Schema of a quote request.
const QuoteRequestSchema = `{
  "type": "object",
  "required": ["holderAge", "health", "tier", "continuity"],
  "properties": {
    "client": {"type": "string", "maxLength": 200},
    "holderAge": {"type": "integer", "minimum": 18, "maximum": 99},
    "health": {"type": "string", "enum": ["Sano", "Crónico"]},
    "dependents": {
      "type": ["array", "null"],
      "maxItems": 10,
      "items": {
        "type": "object",
        "required": ["age", "health"],
        "properties": {
          "age": {"type": "integer", "minimum": 0, "maximum": 99},
          "health": {"type": "string", "enum": ["Sano", "Crónico"]}
        }
      }
    },
    "tier": {"type": "string", "enum": ["Básica", "Integral", "Integral + Reembolso", "Integral + Cobertura Internacional"]},
    "continuity": {"type": "string", "enum": ["Nuevo", "Vengo con continuidad"]},
    "clinics": {"type": ["array", "null"], "maxItems": 50, "items": {"type": "string"}},
    "accessCode": {"type": "string"},
    "email": {"type": "string", "pattern": "^$|^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"},
    "phone": {"type": "string", "pattern": "^[0-9]*$"},
    "discountOverrides": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "integer"}
    }
  }
}`

var quoteValidator = mustValidator(QuoteRequestSchema)

func mustValidator(schema string) *validation.Validator {
	v, err := validation.NewValidator(schema)
	if err != nil {
		panic(err)
	}
	return v
}

// validateQuote returns field -> message for every problem found; an
// empty map means the request may be processed.
func validateQuote(req *QuoteRequest, role auth.Role) (map[string]string, error) {
	result, err := quoteValidator.Validate(req)
	if err != nil {
		return nil, err
	}
	fields := result.Fields()
	if len(fields) > 0 {
		return fields, nil
	}

	if role == auth.RoleClient {
		if !req.Tier.IsInternational() && len(cleanList(req.Clinics)) == 0 {
			fields["clinics"] = MsgClinicRequired
		}
		if strings.TrimSpace(req.Email) == "" || !positiveNumber(req.Phone) {
			fields["contact"] = MsgContactRequired
		}
	}
	return fields, nil
}

func positiveNumber(s string) bool {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return err == nil && n > 0
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// household builds the ordered member list of a request.
func (r *QuoteRequest) household() models.Household {
	return models.NewHousehold(r.HolderAge, r.Health, r.Dependents)
}
