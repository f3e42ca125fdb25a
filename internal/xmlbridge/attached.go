package xmlbridge

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ripsnc/internal/domain"
)

// LineMode selects how the credit note lines are written.
type LineMode string

const (
	// LineModeSingle writes one line carrying the total.
	LineModeSingle LineMode = "UNA_LINEA"
	// LineModePerService writes one line per selected amount.
	LineModePerService LineMode = "POR_SERVICIO"
)

// DefaultCurrency is used when AttachedParams.Currency is empty.
const DefaultCurrency = "COP"

// AttachedParams are the values rewritten in an AttachedDocument template.
type AttachedParams struct {
	ID               string            `json:"id_nota_credito"`
	ParentDocumentID string            `json:"parent_document_id"`
	Amounts          []decimal.Decimal `json:"amounts"`
	Mode             LineMode          `json:"mode"`
	Currency         string            `json:"currency"`
}

var (
	creditNoteLine = regexp.MustCompile(`\s*<cac:CreditNoteLine[\s>][\s\S]*?</cac:CreditNoteLine>`)
	creditNoteEnd  = regexp.MustCompile(`</(?:\w+:)?CreditNote>`)
	legalTotal     = regexp.MustCompile(`<cac:LegalMonetaryTotal[\s>][\s\S]*?</cac:LegalMonetaryTotal>`)
	currencyAttr   = regexp.MustCompile(`\scurrencyID="[^"]*"`)
	tagPatterns    = map[string]*regexp.Regexp{}
)

func tagPattern(tag string) *regexp.Regexp {
	if re, ok := tagPatterns[tag]; ok {
		return re
	}
	q := regexp.QuoteMeta(tag)
	return regexp.MustCompile(`<` + q + `(\s[^>]*)?>([^<]*)</` + q + `>`)
}

func init() {
	for _, t := range []string{
		"cbc:ID", "cbc:ParentDocumentID", "cbc:LineCountNumeric",
		"cbc:PayableAmount", "cbc:TaxExclusiveAmount", "cbc:LineExtensionAmount",
	} {
		tagPatterns[t] = tagPattern(t)
	}
}

// BuildAttachedDocument reuses a valid AttachedDocument template carrying a
// CreditNote. It rewrites the envelope ID and ParentDocumentID, and inside
// the embedded CreditNote the ID, the lines, the line count and the
// monetary totals. Everything else is kept byte for byte, which invalidates
// any existing signature.
func BuildAttachedDocument(template []byte, p AttachedParams) ([]byte, error) {
	if len(p.Amounts) == 0 {
		return nil, fmt.Errorf("%w: no hay ítems seleccionados para el CreditNote", domain.ErrValidation)
	}
	mode := p.Mode
	if mode == "" {
		mode = LineModeSingle
	}
	if mode != LineModeSingle && mode != LineModePerService {
		return nil, fmt.Errorf("%w: modo de líneas %q inválido", domain.ErrValidation, mode)
	}
	currency := p.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	start, _, err := payloadBounds(template)
	if err != nil {
		return nil, err
	}
	head := string(template[:start-len(OpenMarker)])
	if !strings.Contains(head, "AttachedDocument") {
		return nil, fmt.Errorf("%w: el XML no es un AttachedDocument", domain.ErrTemplateFormat)
	}
	inner, err := ExtractEmbedded(template)
	if err != nil {
		return nil, err
	}
	if err := checkFamily(inner, CreditNoteFamily); err != nil {
		return nil, err
	}

	head = replaceText(head, "cbc:ID", p.ID)
	head = replaceText(head, "cbc:ParentDocumentID", p.ParentDocumentID)

	inner = rewriteCreditNote(inner, p.ID, p.Amounts, mode, currency)

	rebuilt := make([]byte, 0, len(template))
	rebuilt = append(rebuilt, head...)
	rebuilt = append(rebuilt, template[start-len(OpenMarker):]...)
	return EmbedInTemplate(rebuilt, inner)
}

func rewriteCreditNote(cn, id string, amounts []decimal.Decimal, mode LineMode, currency string) string {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}

	// Skip UBL extensions so the first cbc:ID is the note's own.
	offset := 0
	if i := strings.Index(cn, "</ext:UBLExtensions>"); i >= 0 {
		offset = i
	}
	cn = cn[:offset] + replaceText(cn[offset:], "cbc:ID", id)

	cn = creditNoteLine.ReplaceAllString(cn, "")

	var lines []string
	if mode == LineModeSingle {
		lines = append(lines, noteLine(1, total, currency))
	} else {
		for i, a := range amounts {
			lines = append(lines, noteLine(i+1, a, currency))
		}
	}
	cn = replaceText(cn, "cbc:LineCountNumeric", strconv.Itoa(len(lines)))

	if loc := legalTotal.FindStringIndex(cn); loc != nil {
		block := cn[loc[0]:loc[1]]
		block = setMoney(block, "cbc:PayableAmount", total, currency)
		block = setMoney(block, "cbc:LineExtensionAmount", total, currency)
		cn = cn[:loc[0]] + block + cn[loc[1]:]
	}
	cn = setMoney(cn, "cbc:TaxExclusiveAmount", total, currency)

	ends := creditNoteEnd.FindAllStringIndex(cn, -1)
	if len(ends) == 0 {
		return cn + strings.Join(lines, "")
	}
	at := ends[len(ends)-1][0]
	return cn[:at] + strings.Join(lines, "") + cn[at:]
}

func noteLine(n int, amount decimal.Decimal, currency string) string {
	return fmt.Sprintf(
		`<cac:CreditNoteLine><cbc:ID>%d</cbc:ID><cbc:CreditedQuantity unitCode="94">1</cbc:CreditedQuantity>`+
			`<cbc:LineExtensionAmount currencyID="%s">%s</cbc:LineExtensionAmount></cac:CreditNoteLine>`,
		n, escape(currency), amount.StringFixed(2))
}

// replaceText sets the text of the first tag element in s, if any.
func replaceText(s, tag, text string) string {
	re := tagPatterns[tag]
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[4]] + escape(text) + s[loc[5]:]
}

// setMoney sets amount and currencyID on the first tag element in s, if any.
func setMoney(s, tag string, amount decimal.Decimal, currency string) string {
	re := tagPatterns[tag]
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	attrs := ""
	if loc[2] >= 0 {
		attrs = currencyAttr.ReplaceAllString(s[loc[2]:loc[3]], "")
	}
	attrs += ` currencyID="` + escape(currency) + `"`
	el := "<" + tag + attrs + ">" + amount.StringFixed(2) + "</" + tag + ">"
	return s[:loc[0]] + el + s[loc[1]:]
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
