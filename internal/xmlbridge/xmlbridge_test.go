package xmlbridge_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/domain"
	"ripsnc/internal/rips"
	"ripsnc/internal/xmlbridge"
)

func TestEmbedInTemplate_ReplacesOnlyPayload(t *testing.T) {
	tpl := []byte(`<a><cbc:Description><![CDATA[OLD]]></cbc:Description></a>`)

	out, err := xmlbridge.EmbedInTemplate(tpl, "NEW")
	require.NoError(t, err)
	assert.Equal(t, `<a><cbc:Description><![CDATA[NEW]]></cbc:Description></a>`, string(out))
	assert.Equal(t, `<a><cbc:Description><![CDATA[OLD]]></cbc:Description></a>`, string(tpl))
}

func TestEmbedInTemplate_Errors(t *testing.T) {
	_, err := xmlbridge.EmbedInTemplate([]byte(`<a><b/></a>`), "NEW")
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)

	_, err = xmlbridge.EmbedInTemplate([]byte(`<a><cbc:Description><![CDATA[OLD</a>`), "NEW")
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)

	_, err = xmlbridge.EmbedInTemplate([]byte(`<a><cbc:Description><![CDATA[OLD]]></cbc:Description></a>`), "x]]>y")
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)
}

func TestExtractEmbedded(t *testing.T) {
	got, err := xmlbridge.ExtractEmbedded([]byte(`<a><cbc:Description><![CDATA[<CreditNote/>]]></cbc:Description></a>`))
	require.NoError(t, err)
	assert.Equal(t, "<CreditNote/>", got)
}

func TestEmbedInTemplateStrict(t *testing.T) {
	cn := []byte(`<a><cbc:Description><![CDATA[<CreditNote><x/></CreditNote>]]></cbc:Description></a>`)
	inv := []byte(`<a><cbc:Description><![CDATA[<Invoice><x/></Invoice>]]></cbc:Description></a>`)

	out, err := xmlbridge.EmbedInTemplateStrict(cn, "<CreditNote>new</CreditNote>", xmlbridge.CreditNoteFamily)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<CreditNote>new</CreditNote>")

	_, err = xmlbridge.EmbedInTemplateStrict(inv, "<CreditNote/>", xmlbridge.CreditNoteFamily)
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)

	_, err = xmlbridge.EmbedInTemplateStrict(cn, "<RipsDocumento/>", xmlbridge.ClaimsFamily)
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)
}

func TestFamilyByName(t *testing.T) {
	f, err := xmlbridge.FamilyByName(" CreditNote ")
	require.NoError(t, err)
	assert.Equal(t, xmlbridge.CreditNoteFamily, f)

	f, err = xmlbridge.FamilyByName("claims")
	require.NoError(t, err)
	assert.Equal(t, xmlbridge.ClaimsFamily, f)

	_, err = xmlbridge.FamilyByName("invoice")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestToXML(t *testing.T) {
	doc, err := rips.Parse([]byte(`{
	  "numDocumentoIdObligado": "900123456",
	  "numFactura": "FE-1",
	  "tipoNota": null,
	  "numNota": null,
	  "usuarios": [{
	    "tipoDocumentoIdentificacion": "CC",
	    "numDocumentoIdentificacion": "123",
	    "servicios": {"procedimientos": [{"vrServicio": 100.10, "codProcedimiento": "890201"}]}
	  }]
	}`))
	require.NoError(t, err)

	out, err := xmlbridge.ToXML(doc)
	require.NoError(t, err)
	s := string(out)

	assert.True(t, strings.HasPrefix(s, xmlbridge.Header))
	assert.True(t, strings.HasSuffix(s, "</RipsDocumento>\n"))
	assert.Contains(t, s, "<numFactura>FE-1</numFactura>")
	assert.Contains(t, s, "<tipoNota></tipoNota>")
	assert.NotContains(t, s, "<codSexo>", "absent fields are not rendered")
	assert.Contains(t, s, "<usuarios>")
	assert.Contains(t, s, "<usuario>")
	assert.Contains(t, s, "<servicios>")
	assert.Contains(t, s, "<procedimientos>")
	assert.Contains(t, s, "<item>")
	assert.Contains(t, s, "<vrServicio>100.10</vrServicio>")
	assert.Less(t, strings.Index(s, "<codProcedimiento>"), strings.Index(s, "<vrServicio>"), "item keys are sorted")
}

func TestToXML_NilDocument(t *testing.T) {
	_, err := xmlbridge.ToXML(nil)
	assert.Error(t, err)
}

const attachedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<AttachedDocument xmlns="urn:oasis:names:specification:ubl:schema:xsd:AttachedDocument-2">
  <cbc:ID>OLD-ENV</cbc:ID>
  <cbc:ParentDocumentID>OLD-PARENT</cbc:ParentDocumentID>
  <cac:Attachment><cac:ExternalReference><cbc:Description><![CDATA[<CreditNote>
  <ext:UBLExtensions><ext:UBLExtension><cbc:ID>EXT</cbc:ID></ext:UBLExtension></ext:UBLExtensions>
  <cbc:ID>NC-OLD</cbc:ID>
  <cbc:LineCountNumeric>2</cbc:LineCountNumeric>
  <cac:LegalMonetaryTotal>
    <cbc:LineExtensionAmount currencyID="USD">10.00</cbc:LineExtensionAmount>
    <cbc:TaxExclusiveAmount currencyID="USD">0.00</cbc:TaxExclusiveAmount>
    <cbc:PayableAmount>10.00</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
  <cac:CreditNoteLine><cbc:ID>1</cbc:ID></cac:CreditNoteLine>
  <cac:CreditNoteLine><cbc:ID>2</cbc:ID></cac:CreditNoteLine>
</CreditNote>]]></cbc:Description></cac:ExternalReference></cac:Attachment>
</AttachedDocument>
`

func TestBuildAttachedDocument_SingleLine(t *testing.T) {
	out, err := xmlbridge.BuildAttachedDocument([]byte(attachedTemplate), xmlbridge.AttachedParams{
		ID:               "NC-9",
		ParentDocumentID: "FE-1",
		Amounts:          []decimal.Decimal{decimal.RequireFromString("100.5"), decimal.RequireFromString("50")},
	})
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "<cbc:ID>NC-9</cbc:ID>\n  <cbc:ParentDocumentID>FE-1</cbc:ParentDocumentID>")
	assert.Contains(t, s, "<cbc:ID>EXT</cbc:ID>", "extension IDs untouched")
	assert.NotContains(t, s, "NC-OLD")
	assert.Contains(t, s, "<cbc:LineCountNumeric>1</cbc:LineCountNumeric>")
	assert.Contains(t, s, `<cbc:PayableAmount currencyID="COP">150.50</cbc:PayableAmount>`)
	assert.Contains(t, s, `<cbc:TaxExclusiveAmount currencyID="COP">150.50</cbc:TaxExclusiveAmount>`)
	assert.Equal(t, 1, strings.Count(s, "<cac:CreditNoteLine>"))
	assert.Contains(t, s, `<cbc:LineExtensionAmount currencyID="COP">150.50</cbc:LineExtensionAmount></cac:CreditNoteLine></CreditNote>]]>`)
	assert.True(t, strings.HasSuffix(s, "</AttachedDocument>\n"))
}

func TestBuildAttachedDocument_PerService(t *testing.T) {
	out, err := xmlbridge.BuildAttachedDocument([]byte(attachedTemplate), xmlbridge.AttachedParams{
		ID:      "NC-9",
		Mode:    xmlbridge.LineModePerService,
		Amounts: []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3)},
	})
	require.NoError(t, err)
	s := string(out)

	assert.Equal(t, 3, strings.Count(s, "<cac:CreditNoteLine>"))
	assert.Contains(t, s, "<cbc:LineCountNumeric>3</cbc:LineCountNumeric>")
	assert.Contains(t, s, `<cbc:PayableAmount currencyID="COP">6.00</cbc:PayableAmount>`)
	assert.Contains(t, s, "<cbc:ID>3</cbc:ID>")
}

func TestBuildAttachedDocument_Errors(t *testing.T) {
	_, err := xmlbridge.BuildAttachedDocument([]byte(attachedTemplate), xmlbridge.AttachedParams{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	notAttached := strings.ReplaceAll(attachedTemplate, "AttachedDocument", "Envelope")
	_, err = xmlbridge.BuildAttachedDocument([]byte(notAttached), xmlbridge.AttachedParams{
		Amounts: []decimal.Decimal{decimal.NewFromInt(1)},
	})
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)

	invoice := strings.ReplaceAll(attachedTemplate, "CreditNote>", "Invoice>")
	invoice = strings.ReplaceAll(invoice, "<CreditNote", "<Invoice")
	_, err = xmlbridge.BuildAttachedDocument([]byte(invoice), xmlbridge.AttachedParams{
		Amounts: []decimal.Decimal{decimal.NewFromInt(1)},
	})
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)
}
