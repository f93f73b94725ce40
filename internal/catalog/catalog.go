// Package catalog loads the plan price table, the clinic network table
// and the campaign discounts into memory.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cotizador/internal/models"
)

// ErrCatalogUnavailable is returned when the price or network source is
// missing or cannot be read.
var ErrCatalogUnavailable = errors.New("catalog data unavailable")

// Column names of the source files.
const (
	ColInsurer  = "Aseguradora"
	ColPlan     = "Plan"
	ColAge      = "Edad"
	ColHealthy  = "Precio_Sano"
	ColChronic  = "Precio_Cronico"
	ColNetwork  = "Nombre_Red"
	ColAmb      = "Cobertura_Amb"
	ColHosp     = "Cobertura_Hosp"
	ColClinics  = "Clinicas_Incluidas"
	ColIntAmb   = "Cob_Int_Amb"
	ColIntHosp  = "Cob_Int_Hosp"
	ColWaiting  = "Link_Carencia"
	ColBenefits = "Link_Cartilla"
	ColAmbDed   = "Int_Ded_Amb_Pre"
	ColAmbReemb = "Int_Reem_Amb_Sin"
	ColHospDed  = "Int_Ded_Hosp_Pre"
	ColHospReem = "Int_Reem_Hosp_Sin"
	ColHasInt   = "Tiene_Int"
)

var infoColumns = []string{
	ColIntAmb, ColIntHosp, ColWaiting, ColBenefits,
	ColAmbDed, ColAmbReemb, ColHospDed, ColHospReem, ColHasInt,
}

// Sources locates the catalog files.
type Sources struct {
	PricesPath       string
	NetworksPath     string
	NetworksSheet    string
	SupplementalPath string
}

type priceKey struct {
	insurer string
	plan    string
	age     int
}

// Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	prices   map[priceKey]models.PriceRow
	info     map[models.PlanKey]models.PlanInfo
	planKeys []models.PlanKey
	networks map[models.PlanKey][]models.NetworkRow
	groups   []models.PlanKey
	clinics  []string
}

// Load reads the sources and builds a catalog. A missing price or network
// file yields ErrCatalogUnavailable; a missing supplemental file is skipped.
func Load(ctx context.Context, src Sources) (*Catalog, error) {
	for _, p := range []string{src.PricesPath, src.NetworksPath} {
		if p == "" {
			return nil, fmt.Errorf("%w: source path not configured", ErrCatalogUnavailable)
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prices, err := ReadTable(src.PricesPath, "")
	if err != nil {
		return nil, fmt.Errorf("%w: prices: %v", ErrCatalogUnavailable, err)
	}

	var supplemental *Table
	if src.SupplementalPath != "" {
		if _, statErr := os.Stat(src.SupplementalPath); statErr == nil {
			supplemental, err = ReadTable(src.SupplementalPath, "")
			if err != nil {
				return nil, fmt.Errorf("%w: supplemental: %v", ErrCatalogUnavailable, err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	networks, err := ReadTable(src.NetworksPath, src.NetworksSheet)
	if err != nil {
		return nil, fmt.Errorf("%w: networks: %v", ErrCatalogUnavailable, err)
	}

	return Build(prices, networks, supplemental)
}

// Build turns parsed tables into a catalog. supplemental may be nil.
func Build(prices, networks, supplemental *Table) (*Catalog, error) {
	if prices == nil || networks == nil {
		return nil, ErrCatalogUnavailable
	}
	for _, col := range []string{ColInsurer, ColPlan, ColAge, ColHealthy, ColChronic} {
		if !prices.Has(col) {
			return nil, fmt.Errorf("%w: price table has no %s column", ErrCatalogUnavailable, col)
		}
	}
	for _, col := range []string{ColInsurer, ColPlan} {
		if !networks.Has(col) {
			return nil, fmt.Errorf("%w: network table has no %s column", ErrCatalogUnavailable, col)
		}
	}

	c := &Catalog{
		prices:   make(map[priceKey]models.PriceRow),
		info:     make(map[models.PlanKey]models.PlanInfo),
		networks: make(map[models.PlanKey][]models.NetworkRow),
	}
	c.loadPrices(prices, supplementalIndex(supplemental))
	c.loadNetworks(networks)
	return c, nil
}

func supplementalIndex(t *Table) func(models.PlanKey, string) (string, bool) {
	if t == nil || !t.Has(ColInsurer) || !t.Has(ColPlan) {
		return func(models.PlanKey, string) (string, bool) { return "", false }
	}

	first := make(map[models.PlanKey]int)
	for i := 0; i < t.Len(); i++ {
		k := models.PlanKey{Insurer: t.Get(i, ColInsurer), Plan: t.Get(i, ColPlan)}
		if _, seen := first[k]; !seen {
			first[k] = i
		}
	}

	// The supplemental file owns every column it carries, including for
	// plans it has no row for.
	return func(k models.PlanKey, col string) (string, bool) {
		if !t.Has(col) {
			return "", false
		}
		i, ok := first[k]
		if !ok {
			return "", true
		}
		return t.Get(i, col), true
	}
}

func (c *Catalog) loadPrices(t *Table, supplemental func(models.PlanKey, string) (string, bool)) {
	for i := 0; i < t.Len(); i++ {
		key := models.PlanKey{Insurer: t.Get(i, ColInsurer), Plan: t.Get(i, ColPlan)}
		if key.Insurer == "" || key.Plan == "" {
			continue
		}

		if _, seen := c.info[key]; !seen {
			info := models.EmptyPlanInfo()
			fields := []*string{
				&info.IntAmbCoverage, &info.IntHospCoverage, &info.WaitingPeriodLink, &info.BenefitsLink,
				&info.IntAmbDeductible, &info.IntAmbReimbursement, &info.IntHospDeductible,
				&info.IntHospReimbursement, &info.HasInternational,
			}
			for j, col := range infoColumns {
				v, owned := supplemental(key, col)
				if !owned {
					v = t.Get(i, col)
				}
				*fields[j] = orMissing(v)
			}
			c.info[key] = info
			c.planKeys = append(c.planKeys, key)
		}

		age, ok := parseAge(t.Get(i, ColAge))
		if !ok {
			continue
		}
		pk := priceKey{insurer: key.Insurer, plan: key.Plan, age: age}
		if _, dup := c.prices[pk]; dup {
			continue
		}
		c.prices[pk] = models.PriceRow{
			Insurer: key.Insurer,
			Plan:    key.Plan,
			Age:     age,
			Healthy: parsePremium(t.Get(i, ColHealthy)),
			Chronic: parsePremium(t.Get(i, ColChronic)),
		}
	}
}

func (c *Catalog) loadNetworks(t *Table) {
	all := make(map[string]struct{})
	for i := 0; i < t.Len(); i++ {
		key := models.PlanKey{Insurer: t.Get(i, ColInsurer), Plan: t.Get(i, ColPlan)}
		if key.Insurer == "" || key.Plan == "" {
			continue
		}

		row := models.NetworkRow{
			Insurer:     key.Insurer,
			Plan:        key.Plan,
			NetworkName: orMissing(t.Get(i, ColNetwork)),
			Ambulatory:  orMissing(t.Get(i, ColAmb)),
			Hospital:    orMissing(t.Get(i, ColHosp)),
			Clinics:     SplitClinics(t.Get(i, ColClinics)),
		}
		for _, name := range row.Clinics {
			all[name] = struct{}{}
		}

		if _, seen := c.networks[key]; !seen {
			c.groups = append(c.groups, key)
		}
		c.networks[key] = append(c.networks[key], row)
	}

	sort.SliceStable(c.groups, func(i, j int) bool {
		if c.groups[i].Insurer != c.groups[j].Insurer {
			return c.groups[i].Insurer < c.groups[j].Insurer
		}
		return c.groups[i].Plan < c.groups[j].Plan
	})

	c.clinics = make([]string, 0, len(all))
	for name := range all {
		c.clinics = append(c.clinics, name)
	}
	sort.Strings(c.clinics)
}

// SplitClinics splits a comma separated clinic list, trimming names and
// dropping empty ones.
func SplitClinics(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Clinics returns the sorted, deduplicated clinic names of the network
// table. The slice must not be modified.
func (c *Catalog) Clinics() []string {
	return c.clinics
}

// PriceRow implements pricing.PriceBook.
func (c *Catalog) PriceRow(insurer, plan string, age int) (models.PriceRow, bool) {
	row, ok := c.prices[priceKey{insurer: insurer, plan: plan, age: age}]
	return row, ok
}

// PlanInfo returns the supplemental text of a plan. ok is false when the
// plan has no row in the price table.
func (c *Catalog) PlanInfo(insurer, plan string) (models.PlanInfo, bool) {
	info, ok := c.info[models.PlanKey{Insurer: insurer, Plan: plan}]
	if !ok {
		return models.EmptyPlanInfo(), false
	}
	return info, true
}

// PricedPlans lists the plans of the price table in file order.
func (c *Catalog) PricedPlans() []models.PlanKey {
	return c.planKeys
}

// NetworkGroups lists the plans of the network table sorted by insurer
// then plan.
func (c *Catalog) NetworkGroups() []models.PlanKey {
	return c.groups
}

// Networks returns the sub-network rows of a plan in file order.
func (c *Catalog) Networks(insurer, plan string) []models.NetworkRow {
	return c.networks[models.PlanKey{Insurer: insurer, Plan: plan}]
}

// Stats reports row counts per table.
func (c *Catalog) Stats() map[string]int {
	rows := 0
	for _, n := range c.networks {
		rows += len(n)
	}
	return map[string]int{
		"prices":   len(c.prices),
		"plans":    len(c.planKeys),
		"networks": rows,
		"clinics":  len(c.clinics),
	}
}

func parseAge(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// parsePremium returns zero for anything that is not a number, which
// pricing then treats as "no price".
func parsePremium(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orMissing(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return models.Missing
	}
	return s
}
