package creditnote

import "ripsnc/internal/validator"

// Sections returns the build input that produces d again. Only the first
// note body is read.
func (d *Document) Sections() Sections {
	s := Sections{DocumentoObligado: Code(d.DocumentoObligado), Generalidades: d.Data.Generalidades}
	n := d.Note()
	if n == nil {
		return s
	}
	h := n.Encabezado
	s.Encabezado = HeaderSection{
		IDNotaCredito:   Code(h.IDNotaCredito),
		Fecha:           Code(h.Fecha),
		Hora:            Code(h.Hora),
		Moneda:          Code(h.Moneda),
		TipoOperacion:   Code(h.TipoOperacion),
		TipoNotaCredito: Code(h.TipoNotaCredito),
		Nota:            NoteText(h.Nota),
		NumeroOrden:     Code(h.NumeroOrden),
		Prefijo:         Code(h.Prefijo),
	}
	s.Servicio = n.Servicio

	ref := n.InformacionDocumento
	s.InformacionDocumento = DocumentReferenceSection{
		IDDocumento:         Code(ref.IDDocumento),
		Fecha:               Code(ref.Fecha),
		Hora:                Code(ref.Hora),
		CodigoTipoDocumento: Code(ref.CodigoTipoDocumento),
	}
	if ref.CodigoUnicoDocumento != "" {
		cude := Code(ref.CodigoUnicoDocumento)
		s.InformacionDocumento.CodigoUnicoDocumento = &cude
	}

	s.DetalleFactura = n.DetalleFactura
	s.Impuestos = n.Impuestos
	s.Descuentos = n.Descuentos
	s.ValorNotaCredito = n.ValorNotaCredito
	s.FormasDePago = n.FormasDePago
	s.CambioDeMoneda = n.CambioDeMoneda
	s.Retenciones = n.Retenciones
	s.Recargos = n.Recargos
	s.CambioDeMonedaTotales = n.CambioDeMonedaTotales
	s.EntregaDeBienes = n.EntregaDeBienes
	s.InformacionAdquiriente = n.InformacionAdquiriente
	return s
}

// Rebuild runs a payload received from outside through Build again and
// returns the normalized copy. A payload must carry exactly one note.
func Rebuild(d *Document) (*Document, error) {
	if d == nil || len(d.Data.NotaCredito) == 0 {
		return nil, validator.MissingMessage("data.nota_credito", "data.nota_credito debe contener una nota")
	}
	if len(d.Data.NotaCredito) > 1 {
		return nil, validator.Invalid("data.nota_credito", "data.nota_credito admite una sola nota")
	}
	return Build(d.Sections())
}
