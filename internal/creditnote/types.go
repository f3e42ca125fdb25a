// Package creditnote assembles the Afacturar "documento equivalente TTP /
// nota crédito" payload from caller-supplied sections, and derives those
// sections from the billable service lines of a claims document.
package creditnote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Code is a scalar that may arrive as a JSON string or number. Numbers
// keep their literal text.
type Code string

func (c Code) String() string { return string(c) }

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*c = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected scalar, got %s", string(b))
	default:
		*c = Code(b)
	}
	return nil
}

// NoteText is the header "nota": a single string or a list of strings.
type NoteText []string

func (n *NoteText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = nil
		return nil
	}
	if b[0] == '[' {
		var parts []Code
		if err := json.Unmarshal(b, &parts); err != nil {
			return fmt.Errorf("nota: %w", err)
		}
		out := make(NoteText, len(parts))
		for i, p := range parts {
			out[i] = p.String()
		}
		*n = out
		return nil
	}
	var c Code
	if err := c.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("nota: %w", err)
	}
	if c == "" {
		*n = nil
		return nil
	}
	*n = NoteText{c.String()}
	return nil
}

// Record is a free-form section (line item, tax line, totals block, ...).
type Record map[string]any

// Clone deep-copies the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []Record:
		return cloneRecords(t)
	default:
		return v
	}
}

func cloneRecords(rs []Record) []Record {
	if rs == nil {
		return nil
	}
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

// HeaderSection is the caller's "encabezado".
type HeaderSection struct {
	IDNotaCredito   Code     `json:"id_nota_credito"`
	Fecha           Code     `json:"fecha"`
	Hora            Code     `json:"hora"`
	Moneda          Code     `json:"moneda"`
	TipoOperacion   Code     `json:"tipo_operacion"`
	TipoNotaCredito Code     `json:"tipo_nota_credito"`
	Nota            NoteText `json:"nota,omitempty"`
	NumeroOrden     Code     `json:"numero_orden,omitempty"`
	Prefijo         Code     `json:"prefijo,omitempty"`
}

// Vehicle is the service's "datos_vehiculo".
type Vehicle struct {
	Codigo Code `json:"codigo"`
	Placa  Code `json:"placa"`
	Tipo   Code `json:"tipo"`
}

// Service is the transport-service block. It is passed through to the
// payload once validated.
type Service struct {
	ModoTransporte Code     `json:"modo_transporte"`
	LugarOrigen    Code     `json:"lugar_origen"`
	LugarDestino   Code     `json:"lugar_destino"`
	HoraSalida     Code     `json:"hora_salida"`
	DatosVehiculo  *Vehicle `json:"datos_vehiculo"`
}

// DocumentReferenceSection is the caller's "informacion_documento". The
// CUDE may come as codigo_unico_documento or codigo_unico_factura; the
// first one present is used.
type DocumentReferenceSection struct {
	IDDocumento          Code  `json:"id_documento"`
	Fecha                Code  `json:"fecha"`
	Hora                 Code  `json:"hora"`
	CodigoUnicoDocumento *Code `json:"codigo_unico_documento,omitempty"`
	CodigoUnicoFactura   *Code `json:"codigo_unico_factura,omitempty"`
	CodigoTipoDocumento  Code  `json:"codigo_tipo_documento,omitempty"`
}

// CUDE returns the unique document code under its first present alias.
func (d DocumentReferenceSection) CUDE() string {
	switch {
	case d.CodigoUnicoDocumento != nil:
		return d.CodigoUnicoDocumento.String()
	case d.CodigoUnicoFactura != nil:
		return d.CodigoUnicoFactura.String()
	}
	return ""
}

// Integrator identifies the sending system.
type Integrator struct {
	Nombre  string `json:"nombre"`
	Tipo    string `json:"tipo"`
	Webhook string `json:"webhook"`
}

// Generalities is "data.generalidades".
type Generalities struct {
	TipoAmbienteDIAN         Code        `json:"tipo_ambiente_dian"`
	Version                  Code        `json:"version"`
	IdentificadorTransmision Code        `json:"identificador_transmision"`
	RgTipo                   Code        `json:"rg_tipo"`
	RgBase64                 string      `json:"rg_base_64"`
	Integrador               *Integrator `json:"integrador,omitempty"`
}

// Sections is the full input of Build.
type Sections struct {
	DocumentoObligado      Code                     `json:"documento_obligado"`
	Encabezado             HeaderSection            `json:"encabezado"`
	Servicio               Service                  `json:"servicio"`
	InformacionDocumento   DocumentReferenceSection `json:"informacion_documento"`
	DetalleFactura         []Record                 `json:"detalle_factura"`
	Impuestos              []Record                 `json:"impuestos"`
	Descuentos             []Record                 `json:"descuentos"`
	ValorNotaCredito       Record                   `json:"valor_nota_credito"`
	Generalidades          Generalities             `json:"generalidades"`
	FormasDePago           []Record                 `json:"formas_de_pago,omitempty"`
	CambioDeMoneda         Record                   `json:"cambio_de_moneda,omitempty"`
	Retenciones            []Record                 `json:"retenciones,omitempty"`
	Recargos               []Record                 `json:"recargos,omitempty"`
	CambioDeMonedaTotales  Record                   `json:"cambio_de_moneda_totales,omitempty"`
	EntregaDeBienes        Record                   `json:"entrega_de_bienes,omitempty"`
	InformacionAdquiriente Record                   `json:"informacion_adquiriente,omitempty"`
}

// Header is the normalized "encabezado".
type Header struct {
	IDNotaCredito   string   `json:"id_nota_credito"`
	Fecha           string   `json:"fecha"`
	Hora            string   `json:"hora"`
	Nota            []string `json:"nota"`
	Moneda          string   `json:"moneda"`
	TipoOperacion   string   `json:"tipo_operacion"`
	TipoNotaCredito string   `json:"tipo_nota_credito"`
	NumeroOrden     string   `json:"numero_orden"`
	Prefijo         string   `json:"prefijo"`
}

// DocumentReference is the normalized "informacion_documento".
type DocumentReference struct {
	IDDocumento          string `json:"id_documento"`
	CodigoUnicoDocumento string `json:"codigo_unico_documento"`
	Fecha                string `json:"fecha"`
	Hora                 string `json:"hora"`
	CodigoTipoDocumento  string `json:"codigo_tipo_documento"`
}

// NoteBody is one entry of "data.nota_credito".
type NoteBody struct {
	Encabezado             Header            `json:"encabezado"`
	Servicio               Service           `json:"servicio"`
	InformacionDocumento   DocumentReference `json:"informacion_documento"`
	DetalleFactura         []Record          `json:"detalle_factura"`
	Impuestos              []Record          `json:"impuestos"`
	Descuentos             []Record          `json:"descuentos"`
	ValorNotaCredito       Record            `json:"valor_nota_credito"`
	FormasDePago           []Record          `json:"formas_de_pago,omitempty"`
	CambioDeMoneda         Record            `json:"cambio_de_moneda,omitempty"`
	Retenciones            []Record          `json:"retenciones,omitempty"`
	Recargos               []Record          `json:"recargos,omitempty"`
	CambioDeMonedaTotales  Record            `json:"cambio_de_moneda_totales,omitempty"`
	EntregaDeBienes        Record            `json:"entrega_de_bienes,omitempty"`
	InformacionAdquiriente Record            `json:"informacion_adquiriente,omitempty"`
}

// Data is the "data" envelope.
type Data struct {
	NotaCredito   []NoteBody   `json:"nota_credito"`
	Generalidades Generalities `json:"generalidades"`
}

// Document is the provider-ready credit note payload.
type Document struct {
	DocumentoObligado string `json:"documento_obligado"`
	Data              Data   `json:"data"`
}

// Note returns the single note body.
func (d *Document) Note() *NoteBody {
	if d == nil || len(d.Data.NotaCredito) == 0 {
		return nil
	}
	return &d.Data.NotaCredito[0]
}
