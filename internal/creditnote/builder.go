package creditnote

import (
	"fmt"
	"strings"

	"ripsnc/internal/normalize"
	"ripsnc/internal/validator"
)

// Closed code lists accepted by the provider.
var (
	OperationTypes = []string{"35"}
	NoteTypes      = []string{"1", "2", "3", "4", "5"}
	TransportModes = []string{"TERRESTRE"}
	VehicleTypes   = []string{"AUTOBUS", "MICROBUS", "BUS"}
	Environments   = []string{"1", "2"}
	ReportTypes    = []string{"HTML", "PDF", "PDF_PROPIO"}
)

// Line item amounts reformatted to two decimals.
var lineMoneyKeys = []string{
	"valor_unitario",
	"valor_total_detalle",
	"valor_total_detalle_con_cargo_descuento",
}

// TotalKeys are the monetary keys of a totals block.
var TotalKeys = []string{
	"valor_base",
	"valor_base_calculo_impuestos",
	"valor_base_mas_impuestos",
	"valor_anticipo",
	"valor_descuento_total",
	"valor_total_recargos",
	"valor_total_impuesto_1",
	"valor_total_impuesto_2",
	"valor_total_impuesto_3",
	"valor_total_impuesto_4",
	"valor_total_reteiva",
	"valor_total_retefuente",
	"valor_total_reteica",
	"total_nota_credito",
	"valor_total_a_pagar",
}

// DefaultNote is serialized into the header when the caller gives no
// note text. OBS is completed with the note id.
var DefaultNote = []normalize.NoteField{
	{Key: "MOTIVO", Value: "Nota crédito parcial por ajuste de precio"},
	{Key: "SOPORTE", Value: "Glosa parcial sobre servicios"},
	{Key: "OBS"},
}

// Build validates and normalizes the sections into a provider payload.
// Inputs are not modified. The first failing rule aborts the build.
func Build(s Sections) (*Document, error) {
	header, err := buildHeader(s.Encabezado)
	if err != nil {
		return nil, err
	}
	if err := checkService(s.Servicio); err != nil {
		return nil, err
	}
	ref, err := buildReference(s.InformacionDocumento)
	if err != nil {
		return nil, err
	}

	if len(s.DetalleFactura) == 0 {
		return nil, validator.MissingMessage("detalle_factura", "detalle_factura debe contener al menos una línea")
	}
	lines := cloneRecords(s.DetalleFactura)
	for i, it := range lines {
		for _, k := range lineMoneyKeys {
			v, ok := it[k]
			if !ok {
				continue
			}
			f, err := normalize.FormatMoney(v)
			if err != nil {
				return nil, fmt.Errorf("detalle_factura[%d].%s: %w", i, k, err)
			}
			it[k] = f
		}
	}

	if len(s.Impuestos) == 0 {
		return nil, validator.MissingMessage("impuestos", "impuestos requiere al menos 1 ítem")
	}
	if len(s.Descuentos) == 0 {
		return nil, validator.MissingMessage("descuentos", "descuentos requiere al menos 1 ítem")
	}

	totals, err := normalizeTotals(s.ValorNotaCredito, "valor_nota_credito")
	if err != nil {
		return nil, err
	}
	for _, k := range []string{"total_nota_credito", "valor_total_a_pagar"} {
		field := "valor_nota_credito." + k
		v := recordText(totals, k)
		if err := validator.Required(field, v); err != nil {
			return nil, err
		}
		if err := validator.AssertDecimalString(v, field); err != nil {
			return nil, err
		}
	}

	var fxTotals Record
	if len(s.CambioDeMonedaTotales) > 0 {
		if fxTotals, err = normalizeTotals(s.CambioDeMonedaTotales, "cambio_de_moneda_totales"); err != nil {
			return nil, err
		}
	}

	if err := checkGeneralities(s.Generalidades); err != nil {
		return nil, err
	}

	if len(s.CambioDeMoneda) > 0 {
		if _, ok := s.CambioDeMoneda["fecha_cambio"]; ok {
			if err := validator.AssertDate(recordText(s.CambioDeMoneda, "fecha_cambio"), "cambio_de_moneda.fecha_cambio"); err != nil {
				return nil, err
			}
		}
	}

	body := NoteBody{
		Encabezado:           header,
		Servicio:             cloneService(s.Servicio),
		InformacionDocumento: ref,
		DetalleFactura:       lines,
		Impuestos:            cloneRecords(s.Impuestos),
		Descuentos:           cloneRecords(s.Descuentos),
		ValorNotaCredito:     totals,
	}
	if fxTotals != nil {
		body.CambioDeMonedaTotales = fxTotals
	}
	if len(s.FormasDePago) > 0 {
		body.FormasDePago = cloneRecords(s.FormasDePago)
	}
	if len(s.CambioDeMoneda) > 0 {
		body.CambioDeMoneda = s.CambioDeMoneda.Clone()
	}
	if len(s.Retenciones) > 0 {
		body.Retenciones = cloneRecords(s.Retenciones)
	}
	if len(s.Recargos) > 0 {
		body.Recargos = cloneRecords(s.Recargos)
	}
	if len(s.EntregaDeBienes) > 0 {
		body.EntregaDeBienes = s.EntregaDeBienes.Clone()
	}
	if len(s.InformacionAdquiriente) > 0 {
		body.InformacionAdquiriente = s.InformacionAdquiriente.Clone()
	}

	gen := s.Generalidades
	if gen.Integrador != nil {
		in := *gen.Integrador
		gen.Integrador = &in
	}

	return &Document{
		DocumentoObligado: normalize.SanitizeText(s.DocumentoObligado.String(), 0),
		Data: Data{
			NotaCredito:   []NoteBody{body},
			Generalidades: gen,
		},
	}, nil
}

func buildHeader(h HeaderSection) (Header, error) {
	required := []struct {
		name  string
		value Code
	}{
		{"id_nota_credito", h.IDNotaCredito},
		{"fecha", h.Fecha},
		{"hora", h.Hora},
		{"moneda", h.Moneda},
		{"tipo_operacion", h.TipoOperacion},
		{"tipo_nota_credito", h.TipoNotaCredito},
	}
	for _, r := range required {
		if err := validator.Required("encabezado."+r.name, normalize.SanitizeText(r.value.String(), 0)); err != nil {
			return Header{}, err
		}
	}
	if err := validator.AssertDate(h.Fecha.String(), "encabezado.fecha"); err != nil {
		return Header{}, err
	}
	if err := validator.AssertTimeHMS(h.Hora.String(), "encabezado.hora"); err != nil {
		return Header{}, err
	}
	if err := validator.AssertEnum(h.TipoOperacion.String(), "encabezado.tipo_operacion", OperationTypes...); err != nil {
		return Header{}, err
	}
	if err := validator.AssertEnum(h.TipoNotaCredito.String(), "encabezado.tipo_nota_credito", NoteTypes...); err != nil {
		return Header{}, err
	}

	var text string
	if len(h.Nota) > 0 {
		text = normalize.SanitizeText(strings.Join(h.Nota, ""), 0)
	} else {
		fields := make([]normalize.NoteField, len(DefaultNote))
		copy(fields, DefaultNote)
		fields[len(fields)-1].Value = "NC " + h.IDNotaCredito.String()
		text = normalize.SerializeNoteMap(fields)
	}

	return Header{
		IDNotaCredito:   normalize.SanitizeText(h.IDNotaCredito.String(), 0),
		Fecha:           normalize.SanitizeText(h.Fecha.String(), 0),
		Hora:            normalize.SanitizeText(h.Hora.String(), 0),
		Nota:            normalize.SplitIntoChunks(text, normalize.DefaultChunkLen, normalize.DefaultMinPiece),
		Moneda:          normalize.SanitizeText(h.Moneda.String(), 0),
		TipoOperacion:   normalize.SanitizeText(h.TipoOperacion.String(), 0),
		TipoNotaCredito: normalize.SanitizeText(h.TipoNotaCredito.String(), 0),
		NumeroOrden:     normalize.SanitizeText(h.NumeroOrden.String(), 0),
		Prefijo:         normalize.SanitizeText(h.Prefijo.String(), 0),
	}, nil
}

func checkService(s Service) error {
	if s.ModoTransporte == "" || s.LugarOrigen == "" || s.LugarDestino == "" || s.HoraSalida == "" || s.DatosVehiculo == nil {
		return validator.MissingMessage("servicio",
			"servicio requiere modo_transporte, lugar_origen, lugar_destino, hora_salida y datos_vehiculo")
	}
	if err := validator.AssertEnum(s.ModoTransporte.String(), "servicio.modo_transporte", TransportModes...); err != nil {
		return err
	}
	if err := validator.AssertTimeHM(s.HoraSalida.String(), "servicio.hora_salida"); err != nil {
		return err
	}
	v := s.DatosVehiculo
	if v.Codigo == "" || v.Placa == "" || v.Tipo == "" {
		return validator.MissingMessage("servicio.datos_vehiculo", "servicio.datos_vehiculo requiere codigo, placa y tipo")
	}
	return validator.AssertEnum(v.Tipo.String(), "servicio.datos_vehiculo.tipo", VehicleTypes...)
}

func cloneService(s Service) Service {
	if s.DatosVehiculo != nil {
		v := *s.DatosVehiculo
		s.DatosVehiculo = &v
	}
	return s
}

func buildReference(d DocumentReferenceSection) (DocumentReference, error) {
	for _, r := range []struct {
		name  string
		value Code
	}{{"id_documento", d.IDDocumento}, {"fecha", d.Fecha}, {"hora", d.Hora}} {
		if err := validator.Required("informacion_documento."+r.name, r.value.String()); err != nil {
			return DocumentReference{}, err
		}
	}
	if err := validator.AssertDate(d.Fecha.String(), "informacion_documento.fecha"); err != nil {
		return DocumentReference{}, err
	}
	if err := validator.AssertTimeHMS(d.Hora.String(), "informacion_documento.hora"); err != nil {
		return DocumentReference{}, err
	}
	cude := normalize.SanitizeText(d.CUDE(), 0)
	if cude == "" {
		return DocumentReference{}, validator.MissingMessage("informacion_documento.codigo_unico_documento",
			"informacion_documento requiere codigo_unico_documento (CUDE)")
	}
	return DocumentReference{
		IDDocumento:          normalize.SanitizeText(d.IDDocumento.String(), 0),
		CodigoUnicoDocumento: cude,
		Fecha:                normalize.SanitizeText(d.Fecha.String(), 0),
		Hora:                 normalize.SanitizeText(d.Hora.String(), 0),
		CodigoTipoDocumento:  normalize.SanitizeText(d.CodigoTipoDocumento.String(), 0),
	}, nil
}

func checkGeneralities(g Generalities) error {
	if g.TipoAmbienteDIAN == "" || g.Version == "" || g.IdentificadorTransmision == "" || g.RgTipo == "" {
		return validator.MissingMessage("generalidades",
			"generalidades requiere tipo_ambiente_dian, version, identificador_transmision y rg_tipo")
	}
	if err := validator.AssertEnum(g.TipoAmbienteDIAN.String(), "generalidades.tipo_ambiente_dian", Environments...); err != nil {
		return err
	}
	return validator.AssertEnum(g.RgTipo.String(), "generalidades.rg_tipo", ReportTypes...)
}

// normalizeTotals returns a copy of r with every present, non-blank
// total key formatted to two decimals.
func normalizeTotals(r Record, section string) (Record, error) {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for _, k := range TotalKeys {
		v, ok := out[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		f, err := normalize.FormatMoney(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", section, k, err)
		}
		out[k] = f
	}
	return out, nil
}

func recordText(r Record, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
