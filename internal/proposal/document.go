// Package proposal turns a quote into the PDF proposal handed to the
// client, and reads the comparison table back out of it.
package proposal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cotizador/internal/models"
)

var (
	ErrNoCandidates          = errors.New("no candidates to render")
	ErrUnknownRecommendation = errors.New("recommended plan is not among the candidates")
)

// Fixed document texts.
const (
	Brand           = "YQ CORREDORES DE SEGUROS"
	Subtitle        = "Propuesta de seguro de salud"
	Intro           = "En YQ Corredores de Seguros, entendemos la importancia de proteger tu salud. Te presentamos esta cotización personalizada con precios de campaña exclusivos."
	ProfileHeading  = "TU PERFIL"
	RecommendedMark = "RECOMENDADO"
	ExpertHeading   = "ANÁLISIS DEL EXPERTO:"
	CTAHeading      = "¿Listo para estar protegido?"
	AdvisoryCTA     = "¡QUIERO MI ASESORÍA GRATUITA!"
	ContractCTA     = "¡QUIERO CONTRATAR AHORA!"
	Disclaimer      = "Nota: Precios referenciales sujetos a evaluación médica. Incluyen IGV."

	NewClientNoticeTitle  = "IMPORTANTE:"
	NewClientNoticeBody   = "Al ser un seguro nuevo, aplican periodos de carencia (30 días) y espera (para preexistencias). Por favor revise el enlace de carencias en la tabla superior."
	ContinuityNoticeTitle = "BENEFICIO DE CONTINUIDAD:"
	ContinuityNoticeBody  = "Para gozar del beneficio de continuidad debe haber estado asegurado dentro de los últimos 90 días con una póliza de salud EPS o Individual."
)

var (
	standardColumns      = []string{"Plan", "Clínicas / Redes", "Cob. Ambulatoria", "Cob. Hospitalaria", "Mensual", "Anual"}
	internationalColumns = []string{"Plan", "Clínicas / Redes", "Int. Amb", "Int. Hosp", "Mensual", "Anual"}
)

// Link is a hyperlink shown under a plan name.
type Link struct {
	Text    string
	URL     string
	Warning bool
}

// Row is one line of the comparison table.
type Row struct {
	Label       string
	Candidate   models.Candidate
	Recommended bool
	Links       []Link
}

// Notice is the legal box printed after the table.
type Notice struct {
	Title      string
	Body       string
	Continuity bool
}

// Document is the layout-independent content of a proposal.
type Document struct {
	Folio         int64
	Date          time.Time
	Profile       models.Profile
	International bool
	Columns       []string
	Rows          []Row
	Notice        *Notice
	Recommended   models.Candidate
	Rationale     string
}

// ExpertHeadline is the heading of the rationale block.
func (d *Document) ExpertHeadline() string {
	return fmt.Sprintf("¿POR QUÉ RECOMENDAMOS EL PLAN %s?", strings.ToUpper(d.Recommended.Plan))
}

// RowLabel numbers table rows from 1.
func RowLabel(i int) string {
	return fmt.Sprintf("Opción %d", i+1)
}

// Build assembles a document. Candidates are rendered in the given order;
// recommendedID must name one of them.
func Build(profile models.Profile, candidates []models.Candidate, recommendedID, rationale string, folio int64, now time.Time) (*Document, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	doc := &Document{
		Folio:         folio,
		Date:          now,
		Profile:       profile,
		International: profile.Tier.IsInternational(),
		Rationale:     strings.TrimSpace(rationale),
	}
	doc.Columns = standardColumns
	if doc.International {
		doc.Columns = internationalColumns
	}

	found := false
	for i, c := range candidates {
		rec := c.ID == recommendedID
		if rec {
			found = true
			doc.Recommended = c
		}
		doc.Rows = append(doc.Rows, Row{
			Label:       RowLabel(i),
			Candidate:   c,
			Recommended: rec,
			Links:       linksFor(c, profile.Continuity),
		})
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecommendation, recommendedID)
	}

	switch profile.Continuity {
	case models.ContinuityNew:
		doc.Notice = &Notice{Title: NewClientNoticeTitle, Body: NewClientNoticeBody}
	case models.ContinuityTransfer:
		doc.Notice = &Notice{Title: ContinuityNoticeTitle, Body: ContinuityNoticeBody, Continuity: true}
	}

	return doc, nil
}

// linksFor shows the benefits sheet when it is a URL, and the waiting
// period sheet only to new clients.
func linksFor(c models.Candidate, continuity models.Continuity) []Link {
	var links []Link
	if isURL(c.BenefitsLink) {
		links = append(links, Link{Text: "Cartilla", URL: c.BenefitsLink})
	}
	if continuity == models.ContinuityNew && isURL(c.WaitingPeriodLink) {
		links = append(links, Link{Text: "Carencias", URL: c.WaitingPeriodLink, Warning: true})
	}
	return links
}

func isURL(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "http")
}

// FileName builds "COTISALUD_{first name}_{clinic first words}_{ddmmyy_HHMM}.pdf".
func FileName(client string, clinics []string, now time.Time) string {
	first := "Cliente"
	if fields := strings.Fields(client); len(fields) > 0 {
		first = fields[0]
	}

	words := make([]string, 0, len(clinics))
	for _, c := range clinics {
		if fields := strings.Fields(c); len(fields) > 0 {
			words = append(words, fields[0])
		}
	}

	name := fmt.Sprintf("COTISALUD_%s_%s_%s.pdf", first, strings.Join(words, "_"), now.Format("020106_1504"))
	return strings.NewReplacer("/", "-", "\\", "-").Replace(name)
}
