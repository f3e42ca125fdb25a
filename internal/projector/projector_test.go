package projector_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/projector"
	"ripsnc/internal/rips"
)

const refJSON = `{
  "usuarios": [
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "1", "codSexo": "F",
     "servicios": {"procedimientos": [
       {"codProcedimiento": "A", "vrServicio": 100.10, "valorPagoModerador": 0, "finalidad": "16"},
       {"codProcedimiento": "B", "vrServicio": 50}
     ]}},
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "2",
     "servicios": {"consultas": [{"codConsulta": "C", "vrServicio": 30000.00}]}}
  ]
}`

const targetJSON = `{
  "usuarios": [
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "1",
     "servicios": {"procedimientos": [{"codProcedimiento": "A", "vrServicio": -100.10}]}},
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "2", "servicios": {}}
  ]
}`

func docs(t *testing.T) (*rips.Document, *rips.Document) {
	t.Helper()
	target, err := rips.Parse([]byte(targetJSON))
	require.NoError(t, err)
	ref, err := rips.Parse([]byte(refJSON))
	require.NoError(t, err)
	return target, ref
}

func TestFlatten(t *testing.T) {
	target, ref := docs(t)
	table := projector.Flatten(target, ref)

	assert.Equal(t, []string{"codProcedimiento", "finalidad", "valorPagoModerador", "vrServicio"},
		projector.ExpectedFields(target, ref))
	assert.Contains(t, table.Columns, "srv.finalidad")
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, 0, first[projector.ColIdxUsuario])
	assert.Equal(t, "procedimientos", first[projector.ColTipoServicio])
	assert.Equal(t, json.Number("-100.10"), first[projector.ColVrNota])
	assert.Equal(t, json.Number("100.10"), first[projector.ColVrFactura])
	assert.Equal(t, "finalidad,valorPagoModerador", first[projector.ColFaltantes])
	assert.Equal(t, "F", first[rips.FieldCodSexo], "falls back to reference demographics")
	assert.Equal(t, false, first[projector.ColSinEstructura])

	placeholder := table.Rows[1]
	assert.Equal(t, 1, placeholder[projector.ColIdxUsuario])
	assert.Equal(t, "consultas", placeholder[projector.ColTipoServicio])
	assert.Nil(t, placeholder[projector.ColVrNota])
	assert.Equal(t, json.Number("30000.00"), placeholder[projector.ColVrFactura])
	assert.Equal(t, true, placeholder[projector.ColSinEstructura])
}

func TestFlattenApply_RoundTripKeepsAmounts(t *testing.T) {
	target, ref := docs(t)
	table := projector.Flatten(target, ref)

	out, errs := projector.Apply(target, ref, table, projector.Options{})
	assert.Empty(t, errs)

	before, err := json.Marshal(target.Usuarios[0].Servicios)
	require.NoError(t, err)
	after, err := json.Marshal(out.Usuarios[0].Servicios[rips.GroupProcedimientos])
	require.NoError(t, err)
	assert.Contains(t, string(before), `"vrServicio":-100.10`)
	assert.Contains(t, string(after), `"vrServicio":-100.10`)
	assert.Empty(t, out.Usuarios[1].Servicios[rips.GroupConsultas], "placeholder rows carry no amount")
}

func TestFlattenApply_KeepsDemographicKinds(t *testing.T) {
	doc, err := rips.Parse([]byte(`{"usuarios": [
	  {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": 123, "incapacidad": true,
	   "servicios": {"consultas": [{"codConsulta": "C", "vrServicio": 10}]}}
	]}`))
	require.NoError(t, err)

	table := projector.Flatten(doc, nil)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, true, row[rips.FieldIncapacidad])
	row[rips.FieldNumDocumento] = "123"

	out, errs := projector.Apply(doc, nil, table, projector.Options{})
	assert.Empty(t, errs)
	p := out.Usuarios[0]
	assert.True(t, p.Incapacidad.IsBool())
	assert.True(t, p.NumDocumentoIdentificacion.IsNumber())
}

func TestFlattenApply_KeepsStringAmounts(t *testing.T) {
	doc, err := rips.Parse([]byte(`{"usuarios": [
	  {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "1",
	   "servicios": {"consultas": [{"codConsulta": "C", "vrServicio": "30000"}]}}
	]}`))
	require.NoError(t, err)

	out, errs := projector.Apply(doc, nil, projector.Flatten(doc, nil), projector.Options{})
	assert.Empty(t, errs)
	assert.Equal(t, "30000", out.Usuarios[0].Servicios[rips.GroupConsultas][0][rips.FieldVrServicio])

	edited := projector.Table{
		Columns: projector.RequiredColumns,
		Rows: []projector.Row{
			{"idx_usuario": 0, "tipo_servicio": "consultas", "idx_item": 0, "vrServicio_nota": "-30000.00"},
		},
	}
	out, errs = projector.Apply(doc, nil, edited, projector.Options{})
	assert.Empty(t, errs)
	assert.Equal(t, "-30000.00", out.Usuarios[0].Servicios[rips.GroupConsultas][0][rips.FieldVrServicio])
}

func TestApply_SeedsFromReference(t *testing.T) {
	target, ref := docs(t)
	table := projector.Table{
		Columns: projector.RequiredColumns,
		Rows: []projector.Row{
			{"idx_usuario": "1", "tipo_servicio": "consultas", "idx_item": "0", "vrServicio_nota": "-30000,5"},
			{"idx_usuario": 0, "tipo_servicio": "procedimientos", "idx_item": 1, "vrServicio_nota": "-50.00"},
		},
	}

	out, errs := projector.Apply(target, ref, table, projector.Options{})
	require.Empty(t, errs)

	seeded := out.Usuarios[1].Servicios[rips.GroupConsultas]
	require.Len(t, seeded, 1)
	assert.Equal(t, "C", seeded[0]["codConsulta"])
	assert.Equal(t, json.Number("-30000.5"), seeded[0][rips.FieldVrServicio])

	procs := out.Usuarios[0].Servicios[rips.GroupProcedimientos]
	require.Len(t, procs, 2)
	assert.Equal(t, "B", procs[1]["codProcedimiento"])
	assert.Equal(t, json.Number("-50.00"), procs[1][rips.FieldVrServicio])

	assert.Equal(t, json.Number("50"), ref.Usuarios[0].Servicios[rips.GroupProcedimientos][1][rips.FieldVrServicio])
	assert.Empty(t, target.Usuarios[1].Servicios, "input untouched")
}

func TestApply_SeedsByIdentification(t *testing.T) {
	target, ref := docs(t)
	table := projector.Table{Rows: []projector.Row{{
		"idx_usuario": 0, "tipo_servicio": "consultas", "idx_item": 0, "vrServicio_nota": "1",
		rips.FieldTipoDocumento: "cc", rips.FieldNumDocumento: "2",
	}}}

	out, errs := projector.Apply(target, ref, table, projector.Options{})
	require.Empty(t, errs)
	p := out.Usuarios[0]
	assert.Equal(t, "2", p.DocNumber())
	assert.Equal(t, "CC", p.DocType())
	require.Len(t, p.Servicios[rips.GroupConsultas], 1)
	assert.Equal(t, "C", p.Servicios[rips.GroupConsultas][0]["codConsulta"])
}

func TestApply_RowErrors(t *testing.T) {
	target, ref := docs(t)
	table := projector.Table{
		Columns: projector.RequiredColumns,
		Rows: []projector.Row{
			{"idx_usuario": "x", "tipo_servicio": "consultas", "idx_item": 0, "vrServicio_nota": "1"},
			{"idx_usuario": 0, "tipo_servicio": "procedimientos", "idx_item": 5, "vrServicio_nota": "1"},
			{"idx_usuario": 0, "tipo_servicio": "procedimientos", "idx_item": 0, "vrServicio_nota": "abc"},
			{"idx_usuario": 9, "tipo_servicio": "procedimientos", "idx_item": 0, "vrServicio_nota": "1"},
			{"idx_usuario": 1, "tipo_servicio": "urgencias", "idx_item": 0, "vrServicio_nota": "1"},
			{"idx_usuario": 0, "tipo_servicio": "procedimientos", "idx_item": 0, "vrServicio_nota": ""},
			{"idx_usuario": 0, "tipo_servicio": "procedimientos", "idx_item": 0, "vrServicio_nota": "7"},
		},
	}

	out, errs := projector.Apply(target, ref, table, projector.Options{})
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0], "fila 1:")
	assert.Contains(t, errs[1], "fila 2:")
	assert.Contains(t, errs[1], "hueco")
	assert.Contains(t, errs[2], "fila 3:")
	assert.Contains(t, errs[3], "fuera de rango")
	assert.Contains(t, errs[4], "no hay servicio de referencia")
	assert.Equal(t, json.Number("7"), out.Usuarios[0].Servicios[rips.GroupProcedimientos][0][rips.FieldVrServicio])
}

func TestApply_MissingColumnAborts(t *testing.T) {
	target, ref := docs(t)
	table := projector.Table{Rows: []projector.Row{
		{"idx_usuario": 0, "tipo_servicio": "procedimientos", "vrServicio_nota": "1"},
	}}

	out, errs := projector.Apply(target, ref, table, projector.Options{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "idx_item")
	assert.Equal(t, json.Number("-100.10"), out.Usuarios[0].Servicios[rips.GroupProcedimientos][0][rips.FieldVrServicio])
}
