package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"cotizador/internal/models"
)

// Campaign table columns.
const (
	ColClientType = "Tipo_Cliente"
	ColMonth      = "Mes"
	ColPercent    = "Porcentaje_Descuento"
)

// Campaigns maps (insurer, plan, client type, month) to a discount percent.
type Campaigns map[models.DiscountKey]int

// LoadCampaigns reads the campaign file. A missing file is an empty table.
// On a parse failure the empty table is returned with the error so callers
// can log it and go on without discounts.
func LoadCampaigns(path string) (Campaigns, error) {
	out := Campaigns{}
	if path == "" {
		return out, nil
	}

	t, err := ReadDelimitedFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("load campaigns: %w", err)
	}
	return ParseCampaigns(t), nil
}

// ParseCampaigns converts a campaign table. Unparsable percentages are 0.
func ParseCampaigns(t *Table) Campaigns {
	out := Campaigns{}
	for i := 0; i < t.Len(); i++ {
		key := models.DiscountKey{
			Insurer:    t.Get(i, ColInsurer),
			Plan:       t.Get(i, ColPlan),
			ClientType: models.ClientType(t.Get(i, ColClientType)),
			Month:      t.Get(i, ColMonth),
		}
		out[key] = parsePercent(t.Get(i, ColPercent))
	}
	return out
}

func parsePercent(s string) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Lookup returns the percent for key, or 0.
func (c Campaigns) Lookup(key models.DiscountKey) int {
	return c[key]
}

// Session is the discount set of one quote request, keyed by plan.
type Session map[models.PlanKey]int

// Percent returns the discount of a plan, or 0.
func (s Session) Percent(k models.PlanKey) int {
	return s[k]
}

// ForSession resolves the discount of every priced plan for a client type
// and month. Overrides, keyed by "{insurer}-{plan}", replace the campaign
// value and are clamped to 0..maxDiscount; pass nil for non-admin callers.
func (c Campaigns) ForSession(cat *Catalog, clientType models.ClientType, month string, overrides map[string]int, maxDiscount int) Session {
	out := make(Session, len(cat.PricedPlans()))
	for _, k := range cat.PricedPlans() {
		pct := c.Lookup(models.DiscountKey{
			Insurer:    k.Insurer,
			Plan:       k.Plan,
			ClientType: clientType,
			Month:      month,
		})
		if v, ok := overrides[k.ID()]; ok {
			pct = ClampDiscount(v, maxDiscount)
		}
		out[k] = pct
	}
	return out
}

// ClampDiscount limits pct to 0..max.
func ClampDiscount(pct, max int) int {
	if pct < 0 {
		return 0
	}
	if pct > max {
		return max
	}
	return pct
}

// Rows flattens the table for one client type and month, for the admin
// campaign listing.
func (c Campaigns) Rows(clientType models.ClientType, month string) []CampaignRow {
	var out []CampaignRow
	for k, v := range c {
		if k.ClientType == clientType && k.Month == month {
			out = append(out, CampaignRow{Insurer: k.Insurer, Plan: k.Plan, Percent: v})
		}
	}
	sortCampaignRows(out)
	return out
}

// CampaignRow is one entry of the admin campaign listing.
type CampaignRow struct {
	Insurer string `json:"insurer"`
	Plan    string `json:"plan"`
	Percent int    `json:"percent"`
}

func sortCampaignRows(rows []CampaignRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Insurer != rows[j].Insurer {
			return rows[i].Insurer < rows[j].Insurer
		}
		return rows[i].Plan < rows[j].Plan
	})
}
