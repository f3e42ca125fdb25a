package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ripsnc/internal/config"
	"ripsnc/internal/domain"
	"ripsnc/internal/port"
	"ripsnc/internal/repository/memory"
	"ripsnc/internal/rips"
	"ripsnc/internal/service"
	"ripsnc/mocks"
)

const noteDoc = `{
  "numDocumentoIdObligado": "901002487",
  "numFactura": "FE123",
  "tipoNota": "NC",
  "numNota": "NC9",
  "usuarios": [
    {"tipoDocumentoIdentificacion": "CC", "numDocumentoIdentificacion": 123, "consecutivo": 1},
    {"tipoDocumentoIdentificacion": "TI", "numDocumentoIdentificacion": "999", "consecutivo": 2}
  ]
}`

const referenceDoc = `{
  "numDocumentoIdObligado": "901002487",
  "numFactura": "FE123",
  "usuarios": [
    {
      "tipoDocumentoIdentificacion": "CC",
      "numDocumentoIdentificacion": 123,
      "codSexo": "F",
      "codPaisResidencia": "170",
      "consecutivo": 1,
      "servicios": {
        "consultas": [{"codConsulta": "890201", "vrServicio": 42000.00, "valorPagoModerador": 0}]
      }
    }
  ]
}`

var testRIPS = &config.RIPSConfig{TipoUsuario: "04", ForceSign: -1}

func newSessionService(archiver *service.ExportArchiver) service.SessionService {
	return service.NewSessionService(memory.NewSessionStore(), archiver, testRIPS, zap.NewNop())
}

func openSession(t *testing.T, svc service.SessionService, withRef bool) *domain.Session {
	t.Helper()
	input := service.CreateSessionInput{NoteName: "nc.json", Note: []byte(noteDoc)}
	if withRef {
		input.ReferenceName = "fe.json"
		input.Reference = []byte(referenceDoc)
	}
	sess, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return sess
}

func TestSessionService_Create_InvalidDocument(t *testing.T) {
	svc := newSessionService(nil)
	_, err := svc.Create(context.Background(), service.CreateSessionInput{NoteName: "x.json", Note: []byte(`[1]`)})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestSessionService_Create_NormalizesServiceGroups(t *testing.T) {
	svc := newSessionService(nil)
	sess := openSession(t, svc, true)

	for _, g := range rips.Groups {
		assert.NotNil(t, sess.Note.Usuarios[0].Servicios[g], g)
	}
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].HasReference)
	assert.Equal(t, 2, list[0].NotePatients)
}

func TestSessionService_Reconcile(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess := openSession(t, svc, true)

	sum, err := svc.Reconcile(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Modified)
	assert.Equal(t, []string{"TI:999"}, sum.Unmatched)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	items := got.Note.Usuarios[0].Servicios[rips.GroupConsultas]
	require.Len(t, items, 1)
	assert.Equal(t, "-42000.00", items[0]["vrServicio"].(interface{ String() string }).String())
	assert.Equal(t, "F", got.Note.Usuarios[0].CodSexo.String())

	// The reference keeps its positive amounts.
	refItems := got.Reference.Usuarios[0].Servicios[rips.GroupConsultas]
	assert.Equal(t, "42000.00", refItems[0]["vrServicio"].(interface{ String() string }).String())
}

func TestSessionService_Reconcile_NoReference(t *testing.T) {
	svc := newSessionService(nil)
	sess := openSession(t, svc, false)

	_, err := svc.Reconcile(context.Background(), sess.ID, 0)
	assert.ErrorIs(t, err, domain.ErrNoReference)
}

func TestSessionService_Reconcile_BadSign(t *testing.T) {
	svc := newSessionService(nil)
	sess := openSession(t, svc, true)

	_, err := svc.Reconcile(context.Background(), sess.ID, 3)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionService_UpdatePatient(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess := openSession(t, svc, false)

	p, err := svc.UpdatePatient(ctx, sess.ID, 0, map[string]any{"codPaisResidencia": "57"})
	require.NoError(t, err)
	assert.Equal(t, "057", p.CodPaisResidencia.String())

	_, err = svc.UpdatePatient(ctx, sess.ID, 0, map[string]any{"servicios": "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdatePatient(ctx, sess.ID, 7, map[string]any{"codSexo": "M"})
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
}

func TestSessionService_Export(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess := openSession(t, svc, false)

	out, err := svc.Export(ctx, sess.ID, domain.ExportFormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", out.ContentType)
	assert.True(t, strings.HasSuffix(out.Filename, ".json"))
	assert.Contains(t, string(out.Data), `"numFactura": "FE123"`)

	out, err = svc.Export(ctx, sess.ID, domain.ExportFormatXML)
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), "<numFactura>FE123</numFactura>")

	_, err = svc.Export(ctx, sess.ID, domain.ExportFormatXLSX)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestSessionService_TemplateRoundTrip(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess := openSession(t, svc, true)
	_, err := svc.Reconcile(ctx, sess.ID, 0)
	require.NoError(t, err)

	tpl, err := svc.ExportTemplate(ctx, sess.ID, domain.ExportFormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(tpl.Filename, ".csv"))

	res, err := svc.ApplyTemplate(ctx, sess.ID, domain.ExportFormatCSV, bytes.NewReader(tpl.Data))
	require.NoError(t, err)
	assert.Equal(t, sess.ID, res.Session.ID)
	assert.NotNil(t, res.Errors)
}

func TestSessionService_EmbedXML(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess := openSession(t, svc, false)
	tpl := []byte(`<AttachedDocument><cbc:Description><![CDATA[<RipsDocumento/>]]></cbc:Description></AttachedDocument>`)

	out, err := svc.EmbedXML(ctx, sess.ID, tpl, "rips")
	require.NoError(t, err)
	s := string(out.Data)
	assert.True(t, strings.HasPrefix(s, "<AttachedDocument><cbc:Description><![CDATA[<RipsDocumento>"))
	assert.NotContains(t, s, "<?xml")

	_, err = svc.EmbedXML(ctx, sess.ID, tpl, "creditnote")
	assert.ErrorIs(t, err, domain.ErrTemplateFormat)
}

func TestSessionService_Archive(t *testing.T) {
	ctx := context.Background()

	_, err := newSessionService(nil).Archive(ctx, uuid.Nil, domain.ExportFormatJSON)
	assert.ErrorIs(t, err, domain.ErrArchiveDisabled)

	storage := new(mocks.MockObjectStorage)
	archiver := service.NewExportArchiver(storage,
		&config.S3Config{Bucket: "b", PresignExpiry: 60},
		&config.ArchiveConfig{Enabled: true, Prefix: "exports"},
		zap.NewNop())
	svc := newSessionService(archiver)
	sess := openSession(t, svc, false)
	prefix := "exports/" + sess.ID.String() + "/nota_FE123_"

	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "b" && strings.HasPrefix(in.Key, prefix) && strings.HasSuffix(in.Key, ".xml") &&
			in.ContentType == "application/xml"
	})).Return(&port.UploadOutput{Location: "s3://b/key"}, nil)
	storage.On("GetPresignedURL", mock.Anything, "b", mock.AnythingOfType("string"), int64(60)).Return("https://signed", nil)

	archived, err := svc.Archive(ctx, sess.ID, domain.ExportFormatXML)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(archived.Key, prefix))
	assert.Equal(t, "https://signed", archived.DownloadURL)
	storage.AssertExpectations(t)
}

func TestSessionService_SweepAndDelete(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	first := openSession(t, svc, false)
	openSession(t, svc, false)

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err := svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	n, err := svc.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = svc.Sweep(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
