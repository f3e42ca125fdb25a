package rips_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/rips"
)

const sampleDoc = `{
  "numDocumentoIdObligado": "901002487",
  "numFactura": "FE123",
  "tipoNota": null,
  "numNota": null,
  "extraTop": {"a": 1},
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": 123,
      "tipoUsuario": "01",
      "fechaNacimiento": "1990-01-01 00:00",
      "codSexo": "M",
      "codPaisResidencia": "170",
      "codMunicipioResidencia": "11001",
      "codZonaTerritorialResidencia": "01",
      "incapacidad": "NO",
      "consecutivo": 1,
      "codPaisOrigen": "170",
      "servicios": {
        "procedimientos": [
          {"codProcedimiento": "890201", "vrServicio": 15000.50, "valorPagoModerador": 0}
        ]
      }
    }
  ]
}`

func TestParse_ReadsHeaderAndPatients(t *testing.T) {
	doc, err := rips.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "901002487", doc.NumDocumentoIdObligado.String())
	assert.Equal(t, "FE123", doc.NumFactura.String())
	assert.True(t, doc.TipoNota.IsNull())
	require.Len(t, doc.Usuarios, 1)

	p := doc.Usuarios[0]
	assert.Equal(t, "CC:123", p.Key())
	assert.True(t, p.NumDocumentoIdentificacion.IsNumber())
	require.Len(t, p.Servicios[rips.GroupProcedimientos], 1)
	assert.Equal(t, json.Number("15000.50"), p.Servicios[rips.GroupProcedimientos][0]["vrServicio"])
	assert.Contains(t, doc.Extra, "extraTop")
}

func TestParse_RejectsNonObject(t *testing.T) {
	_, err := rips.Parse([]byte(`[1,2]`))
	assert.ErrorIs(t, err, rips.ErrNotObject)

	_, err = rips.Parse([]byte(`{"usuarios": [null]}`))
	assert.Error(t, err)
}

func TestEncode_RoundTripKeepsAmountsVerbatim(t *testing.T) {
	doc, err := rips.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	out, err := rips.Encode(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"vrServicio": 15000.50`)
	assert.Contains(t, string(out), `"numDocumentoIdentificacion": 123`)
	assert.Contains(t, string(out), `"tipoNota": null`)
	assert.Contains(t, string(out), "\n  \"numFactura\"")

	again, err := rips.Parse(out)
	require.NoError(t, err)
	out2, err := rips.Encode(again)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestEncode_KeepsAbsentFieldsAbsent(t *testing.T) {
	doc, err := rips.Parse([]byte(`{"numFactura": "F1", "usuarios": [
	  {"numDocumentoIdentificacion": "1", "incapacidad": true, "codSexo": null, "servicios": {}}
	]}`))
	require.NoError(t, err)

	out, err := rips.Encode(doc)
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, rips.FieldObligado)
	assert.NotContains(t, s, rips.FieldTipoDocumento)
	assert.NotContains(t, s, rips.FieldTipoUsuario)
	assert.Contains(t, s, `"codSexo": null`)
	assert.Contains(t, s, `"incapacidad": true`)

	p := doc.Usuarios[0]
	assert.True(t, p.Incapacidad.IsBool())
	assert.True(t, p.CodSexo.Blank())
	assert.Nil(t, p.TipoDocumentoIdentificacion)
}

func TestNormalizeServices_Idempotent(t *testing.T) {
	doc, err := rips.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	doc.NormalizeServices()
	first, err := rips.Encode(doc)
	require.NoError(t, err)

	for _, g := range rips.Groups {
		assert.NotNil(t, doc.Usuarios[0].Servicios[g], g)
	}

	doc.NormalizeServices()
	second, err := rips.Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestClone_IsDeep(t *testing.T) {
	doc, err := rips.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	cp := doc.Clone()
	cp.Usuarios[0].Servicios[rips.GroupProcedimientos][0]["vrServicio"] = json.Number("1")
	cp.Usuarios[0].CodSexo = rips.NewText("F")
	cp.NumFactura = rips.NewText("OTHER")

	assert.Equal(t, json.Number("15000.50"), doc.Usuarios[0].Servicios[rips.GroupProcedimientos][0]["vrServicio"])
	assert.Equal(t, "M", doc.Usuarios[0].CodSexo.String())
	assert.Equal(t, "FE123", doc.NumFactura.String())
}

func TestNormalizeDemographic(t *testing.T) {
	tests := []struct {
		name  string
		field string
		in    *rips.Value
		want  string
		num   bool
	}{
		{"pads country", rips.FieldCodPais, rips.NewText("57"), "057", false},
		{"pads numeric country", rips.FieldCodPaisOrigen, rips.NewNumber("170.0"), "170", false},
		{"pads municipality", rips.FieldCodMunicipio, rips.NewNumber("5001"), "05001", false},
		{"pads zone", rips.FieldCodZona, rips.NewText("1"), "01", false},
		{"truncates birth date", rips.FieldFechaNacimiento, rips.NewText("1990-01-01T00:00:00"), "1990-01-01", false},
		{"takes first component", rips.FieldFechaNacimiento, rips.NewText("1990-1-1 00:00"), "1990-1-1", false},
		{"coerces consecutive", rips.FieldConsecutivo, rips.NewText("7"), "7", true},
		{"keeps odd consecutive", rips.FieldConsecutivo, rips.NewText("A7"), "A7", false},
		{"forces user type", rips.FieldTipoUsuario, rips.NewText("01"), "04", false},
		{"upper-cases doc type", rips.FieldTipoDocumento, rips.NewText(" cc "), "CC", false},
		{"keeps sex", rips.FieldCodSexo, rips.NewText("F"), "F", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rips.NormalizeDemographic(tt.field, tt.in, "")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.num, got.IsNumber())
		})
	}
}

func TestNormalizeDemographic_ForcedUserTypeIgnoresBlankSource(t *testing.T) {
	got := rips.NormalizeDemographic(rips.FieldTipoUsuario, nil, "12")
	assert.Equal(t, "12", got.String())

	assert.Nil(t, rips.NormalizeDemographic(rips.FieldCodSexo, nil, ""))
}

func TestValue_JSONKinds(t *testing.T) {
	var v rips.Value
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &v))
	assert.False(t, v.IsNumber())
	require.NoError(t, json.Unmarshal([]byte(`12.50`), &v))
	assert.True(t, v.IsNumber())
	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "12.50", string(out))

	require.NoError(t, json.Unmarshal([]byte(`false`), &v))
	assert.True(t, v.IsBool())
	assert.False(t, v.Blank())
	out, err = json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "false", string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}
