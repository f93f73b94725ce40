package proposal

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Options controls rendering.
type Options struct {
	Compress     bool
	AdvisoryLink string
	ContractLink string
	Author       string
}

// DefaultOptions are the production call-to-action links.
func DefaultOptions() Options {
	return Options{
		Compress:     true,
		AdvisoryLink: "https://wa.link/czc7jg",
		ContractLink: "https://wa.link/zwdc6r",
		Author:       "YQ Corredores de Seguros",
	}
}

// Renderer draws documents as A4 PDFs.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// RenderPDF renders with DefaultOptions.
func RenderPDF(doc *Document) ([]byte, error) {
	return NewRenderer(DefaultOptions()).Render(doc)
}

type rgb [3]int

var (
	blue      = rgb{36, 86, 166}
	lightBlue = rgb{230, 243, 255}
	goldFill  = rgb{255, 242, 204}
	goldLine  = rgb{214, 182, 86}
	green     = rgb{40, 167, 69}
	lightGrn  = rgb{232, 245, 233}
	red       = rgb{211, 47, 47}
	grey      = rgb{110, 122, 138}
	gridGrey  = rgb{170, 170, 170}
	black     = rgb{0, 0, 0}
	white     = rgb{255, 255, 255}
)

const (
	font      = "Helvetica"
	marginX   = 10.0
	marginTop = 12.0
	pageLimit = 282.0
	cellPad   = 1.2
	lineH     = 3.3
)

var (
	standardWidths      = []float64{32, 44, 44, 32, 15, 23}
	internationalWidths = []float64{32, 44, 39, 37, 15, 23}
)

// line is one drawn text line inside a table cell.
type line struct {
	text   string
	style  string
	size   float64
	color  rgb
	link   string
	strike bool
}

type page struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	doc    *Document
	widths []float64
}

// Render produces the PDF bytes of doc.
func (r *Renderer) Render(doc *Document) ([]byte, error) {
	if doc == nil || len(doc.Rows) == 0 {
		return nil, ErrNoCandidates
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.opts.Compress)
	pdf.SetCreationDate(doc.Date)
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("Propuesta %d", doc.Folio), true)
	if r.opts.Author != "" {
		pdf.SetAuthor(r.opts.Author, true)
	}

	p := &page{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		doc:    doc,
		widths: standardWidths,
	}
	if doc.International {
		p.widths = internationalWidths
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		p.setFont("", 7, grey)
		pdf.CellFormat(0, 4, p.tr(fmt.Sprintf("Folio %d - Página %d", doc.Folio, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	p.header()
	p.profile()
	p.table()
	p.notice()
	p.expert()
	p.callToAction(r.opts)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *page) setFont(style string, size float64, c rgb) {
	p.pdf.SetFont(font, style, size)
	p.pdf.SetTextColor(c[0], c[1], c[2])
}

func (p *page) width(s string) float64 {
	return p.pdf.GetStringWidth(p.tr(s))
}

// ensure starts a new page when h more millimetres do not fit.
func (p *page) ensure(h float64) bool {
	if p.pdf.GetY()+h <= pageLimit {
		return false
	}
	p.pdf.AddPage()
	return true
}

// wrap splits s into lines no wider than w using the current font.
func (p *page) wrap(s string, w float64) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		cur := ""
		for _, word := range words {
			for p.width(word) > w && len([]rune(word)) > 1 {
				head, tail := p.splitWord(word, w)
				if cur != "" {
					out = append(out, cur)
					cur = ""
				}
				out = append(out, head)
				word = tail
			}
			candidate := word
			if cur != "" {
				candidate = cur + " " + word
			}
			if cur != "" && p.width(candidate) > w {
				out = append(out, cur)
				cur = word
				continue
			}
			cur = candidate
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return out
}

func (p *page) splitWord(word string, w float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && p.width(string(runes[:n+1])) <= w {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// paragraph writes wrapped text at the current position and advances.
func (p *page) paragraph(s string, style string, size float64, c rgb, w, h float64) {
	p.setFont(style, size, c)
	for _, l := range p.wrap(s, w) {
		p.ensure(h)
		p.pdf.SetX(marginX)
		p.pdf.CellFormat(w, h, p.tr(l), "", 1, "L", false, 0, "")
	}
}

func (p *page) header() {
	pdf := p.pdf
	top := pdf.GetY()

	p.setFont("B", 14, blue)
	pdf.SetXY(marginX, top)
	pdf.CellFormat(130, 7, p.tr(Brand), "", 1, "L", false, 0, "")
	p.setFont("", 11, blue)
	pdf.SetX(marginX)
	pdf.CellFormat(130, 6, p.tr(Subtitle), "", 1, "L", false, 0, "")

	p.setFont("", 9, grey)
	pdf.SetXY(140, top)
	pdf.CellFormat(60, 5, p.tr(fmt.Sprintf("Folio: %d", p.doc.Folio)), "", 2, "R", false, 0, "")
	pdf.CellFormat(60, 5, p.tr("Fecha: "+p.doc.Date.Format("02/01/2006")), "", 2, "R", false, 0, "")

	pdf.SetY(top + 18)
	p.paragraph(Intro, "", 9, grey, 190, 4.2)
	pdf.Ln(4)
}

func (p *page) profile() {
	pdf := p.pdf
	p.setFont("B", 11, blue)
	pdf.SetX(marginX)
	pdf.CellFormat(190, 6, p.tr(ProfileHeading), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	prof := p.doc.Profile
	cells := [][4]string{
		{"Titular:", prof.HolderLabel(), "Cobertura:", string(prof.Tier)},
		{"Dependientes:", prof.DependentsLabel(), "Condición:", string(prof.Continuity)},
	}
	widths := [4]float64{25, 70, 25, 70}

	pdf.SetDrawColor(211, 211, 211)
	for _, row := range cells {
		x := marginX
		y := pdf.GetY()
		for i, text := range row {
			if i%2 == 0 {
				p.setFont("B", 9, blue)
			} else {
				p.setFont("", 9, grey)
			}
			pdf.SetXY(x, y)
			pdf.CellFormat(widths[i], 7, p.tr(p.fit(text, widths[i]-2)), "B", 0, "L", false, 0, "")
			x += widths[i]
		}
		pdf.SetY(y + 7)
	}
	pdf.Ln(6)
}

// fit shortens s with an ellipsis until it fits w with the current font.
func (p *page) fit(s string, w float64) string {
	if p.width(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if p.width(string(runes)+"...") <= w {
			return string(runes) + "..."
		}
	}
	return string(runes)
}

func (p *page) tableHeader() {
	pdf := p.pdf
	pdf.SetFillColor(blue[0], blue[1], blue[2])
	pdf.SetDrawColor(gridGrey[0], gridGrey[1], gridGrey[2])
	p.setFont("B", 8, white)
	pdf.SetX(marginX)
	for i, col := range p.doc.Columns {
		pdf.CellFormat(p.widths[i], 7, p.tr(col), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(7)
}

func (p *page) table() {
	p.ensure(20)
	p.tableHeader()
	for _, row := range p.doc.Rows {
		p.row(row)
	}
	p.pdf.Ln(4)
}

func (p *page) row(r Row) {
	pdf := p.pdf
	cols := p.cells(r)

	maxLines := 1
	for _, c := range cols {
		if len(c) > maxLines {
			maxLines = len(c)
		}
	}
	h := float64(maxLines)*lineH + 2*cellPad

	// Rows never split across pages; the header repeats on the new page.
	if p.ensure(h) {
		p.tableHeader()
	}

	total := 0.0
	for _, w := range p.widths {
		total += w
	}
	y := pdf.GetY()

	if r.Recommended {
		pdf.SetFillColor(goldFill[0], goldFill[1], goldFill[2])
		pdf.Rect(marginX, y, total, h, "F")
	}

	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(gridGrey[0], gridGrey[1], gridGrey[2])
	x := marginX
	for i, c := range cols {
		pdf.Rect(x, y, p.widths[i], h, "D")
		for j, l := range c {
			p.drawLine(l, x+cellPad, y+cellPad+float64(j)*lineH, p.widths[i]-2*cellPad)
		}
		x += p.widths[i]
	}

	if r.Recommended {
		pdf.SetLineWidth(0.6)
		pdf.SetDrawColor(goldLine[0], goldLine[1], goldLine[2])
		pdf.Rect(marginX, y, total, h, "D")
		pdf.SetLineWidth(0.2)
	}

	pdf.SetXY(marginX, y+h)
}

func (p *page) drawLine(l line, x, y, w float64) {
	pdf := p.pdf
	style := l.style
	if l.link != "" {
		style += "U"
	}
	p.setFont(style, l.size, l.color)
	pdf.SetXY(x, y)
	pdf.CellFormat(w, lineH, p.tr(l.text), "", 0, "L", false, 0, l.link)
	if l.strike {
		sw := p.width(l.text)
		pdf.SetDrawColor(l.color[0], l.color[1], l.color[2])
		pdf.Line(x, y+lineH/2, x+sw, y+lineH/2)
		pdf.SetDrawColor(gridGrey[0], gridGrey[1], gridGrey[2])
	}
}

// single returns a one-line cell entry, shrinking the font until it fits.
func (p *page) single(text, style string, size float64, c rgb, w float64) line {
	for size > 4 {
		p.pdf.SetFont(font, style, size)
		if p.width(text) <= w {
			break
		}
		size -= 0.5
	}
	return line{text: text, style: style, size: size, color: c}
}

func (p *page) wrapped(text, style string, size float64, c rgb, w float64) []line {
	p.pdf.SetFont(font, style, size)
	var out []line
	for _, t := range p.wrap(text, w) {
		out = append(out, line{text: t, style: style, size: size, color: c})
	}
	return out
}

func (p *page) cells(r Row) [][]line {
	c := r.Candidate
	inner := func(i int) float64 { return p.widths[i] - 2*cellPad }

	plan := []line{p.single(r.Label, "", 6, grey, inner(0))}
	if r.Recommended {
		plan = append(plan, p.single(RecommendedMark, "B", 7, red, inner(0)))
	}
	plan = append(plan,
		p.single(c.Insurer, "B", 7.5, black, inner(0)),
		p.single(c.Plan, "", 7.5, black, inner(0)),
	)
	for _, link := range r.Links {
		color := blue
		if link.Warning {
			color = red
		}
		l := p.single(link.Text, "", 7, color, inner(0))
		l.link = link.URL
		plan = append(plan, l)
	}

	var networks []line
	for _, n := range c.Networks {
		networks = append(networks, p.wrapped("• "+n.Label+": "+n.Text, "", 7, black, inner(1))...)
	}

	var third, fourth []line
	if p.doc.International {
		third = append(p.wrapped("Ded: "+c.International.AmbDeductible, "", 7, black, inner(2)),
			p.wrapped("Reemb: "+c.International.AmbReimbursement, "", 7, black, inner(2))...)
		fourth = append(p.wrapped("Ded: "+c.International.HospDeductible, "", 7, black, inner(3)),
			p.wrapped("Reemb: "+c.International.HospReimbursement, "", 7, black, inner(3))...)
	} else {
		for _, a := range c.Ambulatory {
			third = append(third, p.wrapped("• "+a.Label+": "+a.Text, "", 7, black, inner(2))...)
		}
		for _, h := range c.Hospital {
			fourth = append(fourth, p.wrapped("• "+h.Label+": "+h.Text, "", 7, black, inner(3))...)
		}
	}

	monthly := []line{p.single(WholeSoles(c.MonthlyPrice), "B", 7.5, blue, inner(4))}

	var annual []line
	if c.DiscountPct > 0 {
		list := p.single(WholeSoles(c.ListPrice), "", 7, grey, inner(5))
		list.strike = true
		annual = append(annual, list)
	}
	annual = append(annual, p.single(Soles(c.FinalPrice), "B", 7.5, blue, inner(5)))
	if c.DiscountPct > 0 {
		annual = append(annual, p.single("Ahorras "+WholeSoles(c.Savings), "", 6.5, red, inner(5)))
	}

	return [][]line{plan, networks, third, fourth, monthly, annual}
}

func (p *page) notice() {
	n := p.doc.Notice
	if n == nil {
		return
	}
	pdf := p.pdf

	fill, edge, text := lightBlue, blue, blue
	if n.Continuity {
		fill, edge, text = lightGrn, green, green
	}

	p.setFont("", 9, text)
	body := p.wrap(n.Body, 180)
	h := 4.5*float64(len(body)+1) + 6
	p.ensure(h)

	y := pdf.GetY()
	pdf.SetFillColor(fill[0], fill[1], fill[2])
	pdf.SetDrawColor(edge[0], edge[1], edge[2])
	pdf.Rect(marginX, y, 190, h, "FD")

	pdf.SetXY(marginX+5, y+3)
	p.setFont("B", 9, text)
	pdf.CellFormat(180, 4.5, p.tr(n.Title), "", 2, "L", false, 0, "")
	p.setFont("", 9, text)
	for _, l := range body {
		pdf.CellFormat(180, 4.5, p.tr(l), "", 2, "L", false, 0, "")
	}
	pdf.SetXY(marginX, y+h+6)
}

func (p *page) expert() {
	if p.doc.Rationale == "" {
		return
	}
	pdf := p.pdf

	p.setFont("B", 11, blue)
	heading := p.wrap(p.doc.ExpertHeadline(), 190)
	p.setFont("", 9, grey)
	body := p.wrap(p.doc.Rationale, 176)
	h := 5.5*float64(len(body)+2) + 8
	p.ensure(6*float64(len(heading)) + 4 + h)

	p.setFont("B", 11, blue)
	for _, l := range heading {
		pdf.SetX(marginX)
		pdf.CellFormat(190, 6, p.tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	y := pdf.GetY()
	pdf.SetFillColor(goldFill[0], goldFill[1], goldFill[2])
	pdf.SetDrawColor(goldLine[0], goldLine[1], goldLine[2])
	pdf.Rect(marginX, y, 190, h, "FD")

	pdf.SetXY(marginX+7, y+4)
	p.setFont("B", 9, blue)
	pdf.CellFormat(176, 5.5, p.tr(ExpertHeading), "", 2, "L", false, 0, "")
	pdf.Ln(5.5)
	pdf.SetX(marginX + 7)
	p.setFont("", 9, grey)
	for _, l := range body {
		pdf.CellFormat(176, 5.5, p.tr(l), "", 2, "L", false, 0, "")
	}
	pdf.SetXY(marginX, y+h+8)
}

func (p *page) callToAction(opts Options) {
	pdf := p.pdf
	p.ensure(40)

	p.setFont("B", 11, blue)
	pdf.SetX(marginX)
	pdf.CellFormat(190, 6, p.tr(CTAHeading), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	y := pdf.GetY()
	p.setFont("B", 10, white)

	pdf.SetFillColor(blue[0], blue[1], blue[2])
	pdf.SetXY(marginX+10, y)
	pdf.CellFormat(75, 12, p.tr(AdvisoryCTA), "", 0, "C", true, 0, opts.AdvisoryLink)

	pdf.SetFillColor(green[0], green[1], green[2])
	pdf.SetXY(marginX+105, y)
	pdf.CellFormat(75, 12, p.tr(ContractCTA), "", 0, "C", true, 0, opts.ContractLink)

	pdf.SetXY(marginX, y+24)
	p.paragraph(Disclaimer, "", 7, grey, 190, 4)
}
