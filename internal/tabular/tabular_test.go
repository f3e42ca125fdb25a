package tabular_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/domain"
	"ripsnc/internal/projector"
	"ripsnc/internal/tabular"
)

func sampleTable() projector.Table {
	return projector.Table{
		Columns: []string{"idx_usuario", "tipo_servicio", "idx_item", "vrServicio_nota", "codSexo", "sin_estructura_nota"},
		Rows: []projector.Row{
			{"idx_usuario": 0, "tipo_servicio": "procedimientos", "idx_item": 0,
				"vrServicio_nota": json.Number("-100.10"), "codSexo": "F", "sin_estructura_nota": false},
			{"idx_usuario": 1, "tipo_servicio": "consultas", "idx_item": 0,
				"vrServicio_nota": nil, "codSexo": "Ñ", "sin_estructura_nota": true},
		},
	}
}

func assertRoundTrip(t *testing.T, got projector.Table) {
	t.Helper()
	assert.Equal(t, sampleTable().Columns, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, projector.Row{
		"idx_usuario": "0", "tipo_servicio": "procedimientos", "idx_item": "0",
		"vrServicio_nota": "-100.10", "codSexo": "F", "sin_estructura_nota": "false",
	}, got.Rows[0])
	_, ok := got.Rows[1]["vrServicio_nota"]
	assert.False(t, ok, "blank cells are absent")
	assert.Equal(t, "Ñ", got.Rows[1]["codSexo"])
}

func TestCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tabular.WriteCSV(&buf, sampleTable()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), tabular.BOM))

	got, err := tabular.ReadCSV(&buf)
	require.NoError(t, err)
	assertRoundTrip(t, got)
}

func TestReadCSV_WithoutBOM(t *testing.T) {
	got, err := tabular.ReadCSV(bytes.NewBufferString("idx_usuario,vrServicio_nota\n0,\"-5,5\"\n"))
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "-5,5", got.Rows[0]["vrServicio_nota"])
}

func TestXLSX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tabular.WriteXLSX(&buf, sampleTable()))

	got, err := tabular.ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assertRoundTrip(t, got)
}

func TestReadXLSX_Garbage(t *testing.T) {
	_, err := tabular.ReadXLSX(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestWriteRead_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tabular.Write(&buf, sampleTable(), domain.ExportFormatJSON))
	got, err := tabular.Read(&buf, domain.ExportFormatJSON)
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, json.Number("-100.10"), got.Rows[0]["vrServicio_nota"])
}

func TestFormatFromFilename(t *testing.T) {
	f, err := tabular.FormatFromFilename("Plantilla.XLSX")
	require.NoError(t, err)
	assert.Equal(t, domain.ExportFormatXLSX, f)

	_, err = tabular.FormatFromFilename("notes.txt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "FE_123_nota", tabular.SanitizeFilename("FE 123 / nota"))
	assert.Equal(t, "nota", tabular.SanitizeFilename("///"))
}
