package xmlbridge

import (
	"bytes"
	"fmt"
	"strings"

	"ripsnc/internal/domain"
)

// Markers delimiting the embedded document of an exchange envelope.
const (
	OpenMarker  = "<cbc:Description><![CDATA["
	CloseMarker = "]]></cbc:Description>"
)

// Family identifies the kind of document a template must carry.
type Family struct {
	Name   string
	Expect string
	Reject string
}

// Template families.
var (
	CreditNoteFamily = Family{Name: "creditnote", Expect: "<CreditNote", Reject: "<Invoice"}
	ClaimsFamily     = Family{Name: "rips", Expect: "<" + RootElement, Reject: "<CreditNote"}
)

// FamilyByName resolves "creditnote" or "rips".
func FamilyByName(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CreditNoteFamily.Name:
		return CreditNoteFamily, nil
	case ClaimsFamily.Name, "claims":
		return ClaimsFamily, nil
	}
	return Family{}, fmt.Errorf("%w: familia de plantilla desconocida %q", domain.ErrValidation, name)
}

// payloadBounds returns the byte range strictly between the markers.
func payloadBounds(template []byte) (start, end int, err error) {
	i := bytes.Index(template, []byte(OpenMarker))
	if i < 0 {
		return 0, 0, fmt.Errorf("%w: no se encontró %s", domain.ErrTemplateFormat, OpenMarker)
	}
	start = i + len(OpenMarker)
	j := bytes.Index(template[start:], []byte(CloseMarker))
	if j < 0 {
		return 0, 0, fmt.Errorf("%w: no se encontró %s", domain.ErrTemplateFormat, CloseMarker)
	}
	return start, start + j, nil
}

// ExtractEmbedded returns the current CDATA payload of template.
func ExtractEmbedded(template []byte) (string, error) {
	start, end, err := payloadBounds(template)
	if err != nil {
		return "", err
	}
	return string(template[start:end]), nil
}

// EmbedInTemplate replaces the CDATA payload with inner. All other bytes of
// template are kept as they are.
func EmbedInTemplate(template []byte, inner string) ([]byte, error) {
	if strings.Contains(inner, "]]>") {
		return nil, fmt.Errorf("%w: el contenido no puede incluir ]]>", domain.ErrTemplateFormat)
	}
	start, end, err := payloadBounds(template)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(template)-(end-start)+len(inner))
	out = append(out, template[:start]...)
	out = append(out, inner...)
	out = append(out, template[end:]...)
	return out, nil
}

// EmbedInTemplateStrict embeds inner only when the current payload belongs
// to family.
func EmbedInTemplateStrict(template []byte, inner string, family Family) ([]byte, error) {
	current, err := ExtractEmbedded(template)
	if err != nil {
		return nil, err
	}
	if err := checkFamily(current, family); err != nil {
		return nil, err
	}
	return EmbedInTemplate(template, inner)
}

func checkFamily(payload string, f Family) error {
	if !strings.Contains(payload, f.Expect) {
		return fmt.Errorf("%w: la plantilla no contiene %s", domain.ErrTemplateFormat, f.Expect)
	}
	if f.Reject != "" && strings.Contains(payload, f.Reject) {
		return fmt.Errorf("%w: la plantilla contiene %s", domain.ErrTemplateFormat, f.Reject)
	}
	return nil
}

// DetectFamily reports which known family the current payload of template
// belongs to.
func DetectFamily(template []byte) (Family, error) {
	current, err := ExtractEmbedded(template)
	if err != nil {
		return Family{}, err
	}
	for _, f := range []Family{CreditNoteFamily, ClaimsFamily} {
		if checkFamily(current, f) == nil {
			return f, nil
		}
	}
	return Family{}, fmt.Errorf("%w: contenido embebido no reconocido", domain.ErrTemplateFormat)
}
