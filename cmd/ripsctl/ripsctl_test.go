package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripsnc/internal/xmlbridge"
)

const noteJSON = `{
  "numDocumentoIdObligado": "901002487",
  "numFactura": "FE123",
  "tipoNota": "NC",
  "numNota": "NC9",
  "usuarios": [
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": 123, "consecutivo": 1}
  ]
}`

const referenceJSON = `{
  "numDocumentoIdObligado": "901002487",
  "numFactura": "FE123",
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": 123,
      "codSexo": "M",
      "consecutivo": 1,
      "servicios": {
        "procedimientos": [{"codProcedimiento": "890201", "vrServicio": 15000.50}]
      }
    }
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PORT", "")
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReadStructured_YAMLParams(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "params.yaml", `
id_nota_credito: NC-9
parent_document_id: FE-1
mode: POR_SERVICIO
amounts:
  - "12.50"
  - 3
`)
	var params xmlbridge.AttachedParams
	require.NoError(t, readStructured(p, &params))

	assert.Equal(t, "NC-9", params.ID)
	assert.Equal(t, xmlbridge.LineModePerService, params.Mode)
	require.Len(t, params.Amounts, 2)
	assert.True(t, params.Amounts[0].Equal(decimal.RequireFromString("12.5")))
	assert.True(t, params.Amounts[1].Equal(decimal.NewFromInt(3)))
}

func TestReadStructured_RejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "params.toml", "a = 1")
	var params xmlbridge.AttachedParams
	assert.Error(t, readStructured(p, &params))
}

func TestReconcileCommand(t *testing.T) {
	dir := t.TempDir()
	note := writeFile(t, dir, "nc.json", noteJSON)
	ref := writeFile(t, dir, "fe.json", referenceJSON)

	out, err := run(t, "reconcile", "--note", note, "--reference", ref)
	require.NoError(t, err)
	assert.Contains(t, out, `"vrServicio": -15000.50`)
	assert.Contains(t, out, `"codSexo": "M"`)
}

func TestReconcileCommand_PositiveSign(t *testing.T) {
	dir := t.TempDir()
	note := writeFile(t, dir, "nc.json", noteJSON)
	ref := writeFile(t, dir, "fe.json", referenceJSON)

	out, err := run(t, "reconcile", "--note", note, "--reference", ref, "--sign", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"vrServicio": 15000.50`)
}

func TestXMLCommand_WritesFile(t *testing.T) {
	dir := t.TempDir()
	note := writeFile(t, dir, "nc.json", noteJSON)
	dest := filepath.Join(dir, "nc.xml")

	_, err := run(t, "xml", "--note", note, "-o", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<"+xmlbridge.RootElement+">")
}

func TestReconcileCommand_RequiresReference(t *testing.T) {
	dir := t.TempDir()
	note := writeFile(t, dir, "nc.json", noteJSON)

	_, err := run(t, "reconcile", "--note", note)
	assert.Error(t, err)
}
