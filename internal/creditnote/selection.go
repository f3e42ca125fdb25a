package creditnote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ripsnc/internal/domain"
	"ripsnc/internal/rips"
)

// ServiceLine is a billable service of a claims document, selectable for a
// partial credit note. ValorNC starts as the original amount and may be
// edited.
type ServiceLine struct {
	Incluir             bool            `json:"incluir"`
	Paciente            string          `json:"paciente"`
	Tabla               string          `json:"tabla"`
	UIdx                int             `json:"u_idx"`
	SIdx                int             `json:"s_idx"`
	CodPrestador        string          `json:"codPrestador"`
	CodConsulta         string          `json:"codConsulta"`
	CodProcedimiento    string          `json:"codProcedimiento"`
	CodServicio         string          `json:"codServicio"`
	FechaInicioAtencion string          `json:"fechaInicioAtencion"`
	ValorOriginal       decimal.Decimal `json:"valor_original"`
	ValorNC             decimal.Decimal `json:"valor_nc"`
}

// ExtractBillable lists every service item with a positive vrServicio,
// all included.
func ExtractBillable(doc *rips.Document) []ServiceLine {
	var out []ServiceLine
	if doc == nil {
		return out
	}
	for u, p := range doc.Usuarios {
		if p == nil {
			continue
		}
		for _, g := range p.Servicios.GroupNames() {
			for s, it := range p.Servicios[g] {
				vr, ok := it.Amount(rips.FieldVrServicio)
				if !ok || !vr.IsPositive() {
					continue
				}
				out = append(out, ServiceLine{
					Incluir:             true,
					Paciente:            p.DocNumber(),
					Tabla:               g,
					UIdx:                u,
					SIdx:                s,
					CodPrestador:        itemText(it, "codPrestador"),
					CodConsulta:         itemText(it, "codConsulta"),
					CodProcedimiento:    itemText(it, "codProcedimiento"),
					CodServicio:         itemText(it, "codServicio"),
					FechaInicioAtencion: itemText(it, "fechaInicioAtencion"),
					ValorOriginal:       vr,
					ValorNC:             vr,
				})
			}
		}
	}
	return out
}

// Included returns the selected lines.
func Included(lines []ServiceLine) []ServiceLine {
	var out []ServiceLine
	for _, l := range lines {
		if l.Incluir {
			out = append(out, l)
		}
	}
	return out
}

// Amounts returns the note value of every selected line.
func Amounts(lines []ServiceLine) []decimal.Decimal {
	var out []decimal.Decimal
	for _, l := range Included(lines) {
		out = append(out, l.ValorNC)
	}
	return out
}

// SelectionParams completes the sections derived from a selection.
type SelectionParams struct {
	IDNotaCredito     string      `json:"id_nota_credito"`
	DocumentoRef      string      `json:"documento_referencia"`
	CUDERef           string      `json:"cude_referencia"`
	DocumentoObligado string      `json:"documento_obligado"`
	Moneda            string      `json:"moneda"`
	TipoOperacion     string      `json:"tipo_operacion"`
	TipoNotaCredito   string      `json:"tipo_nota_credito"`
	Prefijo           string      `json:"prefijo"`
	Adquiriente       Record      `json:"informacion_adquiriente,omitempty"`
	Integrador        *Integrator `json:"integrador,omitempty"`

	// Now stamps the note and reference date/time; zero means time.Now.
	Now time.Time `json:"-"`
}

func (p SelectionParams) withDefaults() SelectionParams {
	if p.Moneda == "" {
		p.Moneda = "COP"
	}
	if p.TipoOperacion == "" {
		p.TipoOperacion = "35"
	}
	if p.TipoNotaCredito == "" {
		p.TipoNotaCredito = "4"
	}
	if p.Prefijo == "" {
		p.Prefijo = "NC"
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	return p
}

// SectionsFromSelection builds the sections of a partial credit note with
// one health-sector line per included service and zeroed taxes.
func SectionsFromSelection(lines []ServiceLine, params SelectionParams) (Sections, error) {
	sel := Included(lines)
	if len(sel) == 0 {
		return Sections{}, fmt.Errorf("%w: no hay ítems seleccionados para la nota crédito", domain.ErrValidation)
	}
	p := params.withDefaults()

	detail := make([]Record, 0, len(sel))
	total := decimal.Zero
	for i, l := range sel {
		total = total.Add(l.ValorNC)
		detail = append(detail, healthLine(i+1, money(l.ValorNC), l.Paciente))
	}
	sum := money(total)

	totals := Record{}
	for _, k := range TotalKeys {
		totals[k] = zeroMoney
	}
	for _, k := range []string{"valor_base", "valor_base_mas_impuestos", "total_nota_credito", "valor_total_a_pagar"} {
		totals[k] = sum
	}

	date := p.Now.Format("2006-01-02")
	clock := p.Now.Format("15:04:05")
	cude := Code(p.CUDERef)

	s := Sections{
		DocumentoObligado: Code(p.DocumentoObligado),
		Encabezado: HeaderSection{
			IDNotaCredito:   Code(p.IDNotaCredito),
			Fecha:           Code(date),
			Hora:            Code(clock),
			Nota:            NoteText{fmt.Sprintf("{'MOTIVO':'Nota crédito parcial','SOPORTE':'Ajuste/Glosa','OBS':'Ref %s'}", p.DocumentoRef)},
			Moneda:          Code(p.Moneda),
			TipoOperacion:   Code(p.TipoOperacion),
			TipoNotaCredito: Code(p.TipoNotaCredito),
			Prefijo:         Code(p.Prefijo),
		},
		Servicio: Service{
			ModoTransporte: "TERRESTRE",
			LugarOrigen:    "Bogotá",
			LugarDestino:   "Bogotá",
			HoraSalida:     "08:30",
			DatosVehiculo:  &Vehicle{Codigo: "BUS-01", Placa: "ABC123", Tipo: "AUTOBUS"},
		},
		InformacionDocumento: DocumentReferenceSection{
			IDDocumento:          Code(p.DocumentoRef),
			Fecha:                Code(date),
			Hora:                 Code(clock),
			CodigoUnicoDocumento: &cude,
			CodigoTipoDocumento:  "TTP",
		},
		DetalleFactura: detail,
		Impuestos: []Record{{
			"codigo_impuesto":             "0",
			"porcentaje_impuesto":         zeroMoney,
			"valor_base_calculo_impuesto": zeroMoney,
			"valor_total_impuesto":        zeroMoney,
		}},
		Retenciones: []Record{{
			"codigo":         "0",
			"porcentaje":     zeroMoney,
			"valor_base":     zeroMoney,
			"valor_retenido": zeroMoney,
		}},
		Descuentos: []Record{{
			"codigo_descuento":             "99",
			"porcentaje_descuento":         zeroMoney,
			"valor_base_calculo_descuento": zeroMoney,
			"valor_total_descuento":        zeroMoney,
		}},
		ValorNotaCredito: totals,
		FormasDePago: []Record{{
			"metodo_de_pago":        "1",
			"tipo_de_pago":          "10",
			"identificador_de_pago": "",
			"fecha_vencimiento":     "",
		}},
		InformacionAdquiriente: p.Adquiriente.Clone(),
		Generalidades: Generalities{
			TipoAmbienteDIAN:         "2",
			Version:                  "1",
			IdentificadorTransmision: Code("PKG-" + p.IDNotaCredito),
			RgTipo:                   "PDF",
			Integrador:               p.Integrador,
		},
	}
	return s, nil
}

const zeroMoney = "0.00"

// money rounds half away from zero to two places.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func healthLine(n int, value, patient string) Record {
	return Record{
		"numero_linea":       n,
		"cantidad":           1,
		"unidad_de_cantidad": "94",
		"valor_unitario":     value,
		"descripcion":        "Servicio sector salud",
		"nota_detalle":       "Ajuste parcial - Paciente " + patient,
		"marca":              "N/A",
		"modelo":             "N/A",
		"codificacion_estandar": map[string]any{
			"cod_grupo_bien_servicio":    "1",
			"nombre_grupo_bien_servicio": "UNSPSC",
			"cod_segmento_bien_servicio": "7811",
			"cod_bien_servicio":          "78111000",
		},
		"regalo": map[string]any{
			"es_regalo":             false,
			"cod_precio_referencia": "0",
			"precio_referencia":     zeroMoney,
		},
		"cargo_descuento": map[string]any{
			"es_descuento":               true,
			"porcentaje_cargo_descuento": zeroMoney,
			"valor_base_cargo_descuento": zeroMoney,
			"valor_cargo_descuento":      zeroMoney,
		},
		"impuestos_detalle": map[string]any{
			"codigo_impuesto":     "0",
			"porcentaje_impuesto": zeroMoney,
			"valor_base_impuesto": zeroMoney,
			"valor_impuesto":      zeroMoney,
		},
		"retenciones_detalle": []any{
			map[string]any{"codigo": "0", "porcentaje": zeroMoney, "valor_base": zeroMoney, "valor_retenido": zeroMoney},
		},
		"valores_unitarios": map[string]any{
			"valor_impuesto_1": zeroMoney,
			"valor_impuesto_2": zeroMoney,
			"valor_impuesto_3": zeroMoney,
			"valor_impuesto_4": zeroMoney,
			"valor_a_pagar":    value,
		},
		"valor_total_detalle_con_cargo_descuento": value,
		"valor_total_detalle":                     value,
		"informacion_adicional": []any{
			map[string]any{"variable": "IDENTIFICACION_USUARIO", "valor": patient},
		},
	}
}

func itemText(it rips.Item, key string) string {
	switch v := it[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
