package proposal

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoTable is returned when a PDF holds no comparison rows.
var ErrNoTable = errors.New("no comparison table found")

// TableRow is one comparison row as read back from a rendered proposal.
type TableRow struct {
	Insurer     string
	Plan        string
	AnnualPrice decimal.Decimal
	Recommended bool
}

var (
	streamHead  = regexp.MustCompile(`<<([^<>]*)>>\s*stream\r?\n`)
	lengthField = regexp.MustCompile(`/Length\s+(\d+)(\s+\d+\s+R)?`)
	showText    = regexp.MustCompile(`(?s)\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	rowLabel    = regexp.MustCompile(`^Opción \d+$`)
	annualPrice = regexp.MustCompile(`^S/ [\d,]+\.\d{2}$`)
)

// Headings that follow the table in the document.
var tableEnd = []string{
	NewClientNoticeTitle,
	ContinuityNoticeTitle,
	"¿POR QUÉ RECOMENDAMOS",
	CTAHeading,
}

// ReadComparisonTable extracts the (insurer, plan, annual price) rows of a
// proposal in document order.
func ReadComparisonTable(pdf []byte) ([]TableRow, error) {
	tokens, err := textTokens(pdf)
	if err != nil {
		return nil, err
	}

	var rows []TableRow
	for i := 0; i < len(tokens); i++ {
		if !rowLabel.MatchString(tokens[i]) {
			continue
		}

		j := i + 1
		row := TableRow{}
		if j < len(tokens) && tokens[j] == RecommendedMark {
			row.Recommended = true
			j++
		}
		if j+1 >= len(tokens) {
			return nil, fmt.Errorf("truncated row %q", tokens[i])
		}
		row.Insurer, row.Plan = tokens[j], tokens[j+1]

		end := j + 2
		price := ""
		for ; end < len(tokens); end++ {
			if rowLabel.MatchString(tokens[end]) || endsTable(tokens[end]) {
				break
			}
			if annualPrice.MatchString(tokens[end]) {
				price = tokens[end]
			}
		}
		if price == "" {
			return nil, fmt.Errorf("row %q has no annual price", tokens[i])
		}
		if row.AnnualPrice, err = ParseSoles(price); err != nil {
			return nil, err
		}

		rows = append(rows, row)
		i = end - 1
	}

	if len(rows) == 0 {
		return nil, ErrNoTable
	}
	return rows, nil
}

func endsTable(tok string) bool {
	for _, prefix := range tableEnd {
		if strings.HasPrefix(tok, prefix) {
			return true
		}
	}
	return false
}

// textTokens returns every shown string of every content stream, decoded
// from WinAnsi.
func textTokens(pdf []byte) ([]string, error) {
	decoder := charmap.Windows1252.NewDecoder()

	var tokens []string
	for _, loc := range streamHead.FindAllSubmatchIndex(pdf, -1) {
		dict := pdf[loc[2]:loc[3]]
		start := loc[1]

		data, err := streamData(pdf, dict, start)
		if err != nil {
			return nil, err
		}
		if bytes.Contains(dict, []byte("/FlateDecode")) {
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("inflate content stream: %w", err)
			}
			data, err = io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("inflate content stream: %w", err)
			}
		}

		for _, m := range showText.FindAllSubmatch(data, -1) {
			text, err := decoder.Bytes(unescape(m[1]))
			if err != nil {
				return nil, fmt.Errorf("decode text: %w", err)
			}
			if s := strings.TrimSpace(string(text)); s != "" {
				tokens = append(tokens, s)
			}
		}
	}
	return tokens, nil
}

func streamData(pdf, dict []byte, start int) ([]byte, error) {
	if m := lengthField.FindSubmatch(dict); m != nil && len(m[2]) == 0 {
		n, err := strconv.Atoi(string(m[1]))
		if err == nil && start+n <= len(pdf) {
			return pdf[start : start+n], nil
		}
	}
	end := bytes.Index(pdf[start:], []byte("endstream"))
	if end < 0 {
		return nil, fmt.Errorf("unterminated stream at offset %d", start)
	}
	return bytes.TrimRight(pdf[start:start+end], "\r\n"), nil
}

// unescape resolves the backslash escapes of a PDF literal string.
func unescape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\\' || i+1 >= len(b) {
			out = append(out, c)
			continue
		}
		i++
		switch e := b[i]; e {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r':
			if i+1 < len(b) && b[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			if e >= '0' && e <= '7' {
				v := int(e - '0')
				for k := 0; k < 2 && i+1 < len(b) && b[i+1] >= '0' && b[i+1] <= '7'; k++ {
					i++
					v = v*8 + int(b[i]-'0')
				}
				out = append(out, byte(v))
				continue
			}
			out = append(out, e)
		}
	}
	return out
}
