package reconcile_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/reconcile"
	"ripsnc/internal/rips"
)

const invoiceJSON = `{
  "numFactura": "FE-10",
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": "123",
      "tipoUsuario": "01",
      "fechaNacimiento": "1980-05-06 00:00:00",
      "codSexo": "F",
      "codPaisResidencia": 170,
      "codMunicipioResidencia": "5001",
      "codZonaTerritorialResidencia": "1",
      "consecutivo": "1",
      "servicios": {
        "procedimientos": [
          {"codProcedimiento": "A", "vrServicio": 1500.50, "valorPagoModerador": 0},
          {"codProcedimiento": "B", "vrServicio": 200, "valorPagoModerador": "-10"}
        ]
      }
    },
    {"tipoDocumentoIdentificacion": "TI", "numDocumentoIdentificacion": "999", "codSexo": "M",
     "servicios": {"consultas": [{"vrServicio": 10}]}},
    {"tipoDocumentoIdentificacion": "CE", "numDocumentoIdentificacion": "999", "codSexo": "F",
     "servicios": {"consultas": [{"vrServicio": 20}]}},
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "", "codSexo": "M"}
  ]
}`

const noteJSON = `{
  "numFactura": "FE-10",
  "tipoNota": "NC",
  "usuarios": [
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": 123, "codSexo": "M", "servicios": {}},
    {"tipoDocumentoIdentificacion": "RC", "numDocumentoIdentificacion": "999"},
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": "555", "servicios": {"consultas": []}},
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": ""},
    {"tipoDocumentoIdentificacion": "TI", "numDocumentoIdentificacion": "999",
     "servicios": {"urgencias": [{"vrServicio": 5}]}}
  ]
}`

func parse(t *testing.T, raw string) *rips.Document {
	t.Helper()
	doc, err := rips.Parse([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestReconcile_CopiesServicesDeep(t *testing.T) {
	ref := parse(t, invoiceJSON)
	target := parse(t, noteJSON)

	out, sum := reconcile.Reconcile(ref, target, reconcile.Options{})

	got := out.Usuarios[0].Servicios[rips.GroupProcedimientos]
	want := ref.Usuarios[0].Servicios[rips.GroupProcedimientos]
	require.Len(t, got, 2)
	assert.Equal(t, want, got)

	got[0][rips.FieldVrServicio] = json.Number("1")
	assert.Equal(t, json.Number("1500.50"), ref.Usuarios[0].Servicios[rips.GroupProcedimientos][0][rips.FieldVrServicio])

	assert.Equal(t, 4, sum.TotalReference)
	assert.Equal(t, 5, sum.TotalTarget)
}

func TestReconcile_DoesNotTouchInputs(t *testing.T) {
	ref := parse(t, invoiceJSON)
	target := parse(t, noteJSON)
	before, err := rips.Encode(target)
	require.NoError(t, err)

	_, _ = reconcile.Reconcile(ref, target, reconcile.Options{ForceSign: -1})

	after, err := rips.Encode(target)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestReconcile_ForceSignNegates(t *testing.T) {
	out, _ := reconcile.Reconcile(parse(t, invoiceJSON), parse(t, noteJSON), reconcile.Options{ForceSign: -1})

	items := out.Usuarios[0].Servicios[rips.GroupProcedimientos]
	assert.Equal(t, json.Number("-1500.50"), items[0][rips.FieldVrServicio])
	assert.Equal(t, json.Number("0"), items[0][rips.FieldValorPagoModerador])
	assert.Equal(t, json.Number("-200"), items[1][rips.FieldVrServicio])
	assert.Equal(t, "10", items[1][rips.FieldValorPagoModerador])
}

func TestReconcile_CompletesOnlyBlankDemographics(t *testing.T) {
	out, sum := reconcile.Reconcile(parse(t, invoiceJSON), parse(t, noteJSON), reconcile.Options{})

	p := out.Usuarios[0]
	assert.Equal(t, "M", p.CodSexo.String(), "populated field kept")
	assert.Equal(t, "1980-05-06", p.FechaNacimiento.String())
	assert.Equal(t, "170", p.CodPaisResidencia.String())
	assert.Equal(t, "05001", p.CodMunicipioResidencia.String())
	assert.Equal(t, "01", p.CodZonaTerritorialResidencia.String())
	assert.Equal(t, rips.DefaultTipoUsuario, p.TipoUsuario.String())
	assert.True(t, p.Consecutivo.IsNumber())
	assert.Nil(t, p.Incapacidad)
	assert.True(t, p.NumDocumentoIdentificacion.IsNumber(), "identification left as given")

	assert.Equal(t, 3, sum.DemographicsCompleted)
}

func TestReconcile_FallbackAndUnmatched(t *testing.T) {
	target := parse(t, noteJSON)
	out, sum := reconcile.Reconcile(parse(t, invoiceJSON), target, reconcile.Options{TipoUsuario: "12"})

	fallback := out.Usuarios[1]
	assert.Equal(t, "RC", fallback.DocType(), "populated type kept")
	assert.Equal(t, "F", fallback.CodSexo.String(), "last patient with the number wins")
	assert.Equal(t, "12", fallback.TipoUsuario.String())
	require.Len(t, fallback.Servicios[rips.GroupConsultas], 1)
	assert.Equal(t, json.Number("20"), fallback.Servicios[rips.GroupConsultas][0][rips.FieldVrServicio])

	assert.Equal(t, []string{"CC:555", "CC:"}, sum.Unmatched)
	assert.Equal(t, target.Usuarios[2].Servicios, out.Usuarios[2].Servicios, "unmatched patient untouched")
	assert.Nil(t, out.Usuarios[2].TipoUsuario)

	require.Len(t, sum.Warnings, 1)
	assert.Contains(t, sum.Warnings[0], "999")
}

func TestReconcile_ExistingServicesKept(t *testing.T) {
	out, sum := reconcile.Reconcile(parse(t, invoiceJSON), parse(t, noteJSON), reconcile.Options{ForceSign: -1})

	p := out.Usuarios[4]
	assert.Equal(t, json.Number("5"), p.Servicios[rips.GroupUrgencias][0][rips.FieldVrServicio])
	assert.Empty(t, p.Servicios[rips.GroupConsultas])
	for _, g := range rips.Groups {
		assert.NotNil(t, p.Servicios[g], g)
	}
	assert.Equal(t, 1, sum.AlreadyHadServices)
	assert.Equal(t, 2, sum.Modified)
}

func TestReconcile_NilReference(t *testing.T) {
	target := parse(t, noteJSON)
	out, sum := reconcile.Reconcile(nil, target, reconcile.Options{})
	assert.Len(t, out.Usuarios, 5)
	assert.Len(t, sum.Unmatched, 5)
	assert.Zero(t, sum.Modified)
}
