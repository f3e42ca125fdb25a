package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ripsnc/internal/config"
	"ripsnc/internal/domain"
	"ripsnc/internal/port"
	"ripsnc/internal/projector"
	"ripsnc/internal/reconcile"
	"ripsnc/internal/rips"
	"ripsnc/internal/tabular"
	"ripsnc/internal/xmlbridge"
)

// CreateSessionInput is the DTO for opening a session from uploaded files.
type CreateSessionInput struct {
	NoteName      string
	Note          []byte
	ReferenceName string
	Reference     []byte
}

// ExportOutput is a rendered file ready to be downloaded.
type ExportOutput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ApplyTemplateResult reports the outcome of applying an edited table.
type ApplyTemplateResult struct {
	Session domain.SessionInfo `json:"session"`
	Errors  []string           `json:"errors"`
}

// SessionService defines the claims session contract.
type SessionService interface {
	Create(ctx context.Context, input CreateSessionInput) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	List(ctx context.Context) ([]domain.SessionInfo, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetReference(ctx context.Context, id uuid.UUID, name string, data []byte) (*domain.Session, error)
	Normalize(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Reconcile(ctx context.Context, id uuid.UUID, forceSign int) (*reconcile.Summary, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, idx int, fields map[string]any) (*rips.Patient, error)
	ExportTemplate(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*ExportOutput, error)
	ApplyTemplate(ctx context.Context, id uuid.UUID, format domain.ExportFormat, r io.Reader) (*ApplyTemplateResult, error)
	Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*ExportOutput, error)
	EmbedXML(ctx context.Context, id uuid.UUID, template []byte, family string) (*ExportOutput, error)
	Archive(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*domain.ArchivedExport, error)
	Sweep(ctx context.Context, ttl time.Duration) (int, error)
}

type sessionService struct {
	store    port.SessionStore
	archiver *ExportArchiver
	cfg      *config.RIPSConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService implementation. archiver
// may be nil when exports are not archived.
func NewSessionService(
	store port.SessionStore,
	archiver *ExportArchiver,
	cfg *config.RIPSConfig,
	log *zap.Logger,
) SessionService {
	return &sessionService{
		store:    store,
		archiver: archiver,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func parseClaims(name string, data []byte) (*rips.Document, error) {
	doc, err := rips.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, name, err)
	}
	doc.NormalizeServices()
	return doc, nil
}

func (s *sessionService) Create(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	note, err := parseClaims(input.NoteName, input.Note)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.New(),
		NoteName:  input.NoteName,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(input.Reference) > 0 {
		ref, err := parseClaims(input.ReferenceName, input.Reference)
		if err != nil {
			return nil, err
		}
		sess.RefName = input.ReferenceName
		sess.Reference = ref
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("sessionService.Create: %w", err)
	}
	s.log.Info("sessionService.Create: session opened",
		zap.String("session_id", sess.ID.String()),
		zap.Int("note_patients", len(note.Usuarios)),
		zap.Bool("has_reference", sess.Reference != nil))
	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.store.Get(ctx, id)
}

func (s *sessionService) List(ctx context.Context) ([]domain.SessionInfo, error) {
	return s.store.List(ctx)
}

func (s *sessionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("sessionService.Delete: session closed", zap.String("session_id", id.String()))
	return nil
}

func (s *sessionService) SetReference(ctx context.Context, id uuid.UUID, name string, data []byte) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref, err := parseClaims(name, data)
	if err != nil {
		return nil, err
	}
	sess.RefName = name
	sess.Reference = ref
	sess.Summary = nil
	return sess, s.save(ctx, sess)
}

func (s *sessionService) Normalize(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Note.NormalizeServices()
	if sess.Reference != nil {
		sess.Reference.NormalizeServices()
	}
	return sess, s.save(ctx, sess)
}

func (s *sessionService) Reconcile(ctx context.Context, id uuid.UUID, forceSign int) (*reconcile.Summary, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Reference == nil {
		return nil, domain.ErrNoReference
	}
	if forceSign == 0 {
		forceSign = s.cfg.ForceSign
	}
	if forceSign != 1 && forceSign != -1 {
		return nil, fmt.Errorf("%w: force_sign debe ser 1 o -1", domain.ErrValidation)
	}

	out, sum := reconcile.Reconcile(sess.Reference, sess.Note, reconcile.Options{
		ForceSign:   forceSign,
		TipoUsuario: s.cfg.TipoUsuario,
	})
	for _, w := range sum.Warnings {
		s.log.Warn("sessionService.Reconcile: ambiguous fallback match",
			zap.String("session_id", id.String()), zap.String("detail", w))
	}
	sess.Note = out
	sess.Summary = &sum
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("sessionService.Reconcile: note reconciled",
		zap.String("session_id", id.String()),
		zap.Int("modified", sum.Modified),
		zap.Int("already_had_services", sum.AlreadyHadServices),
		zap.Int("unmatched", len(sum.Unmatched)))
	return &sum, nil
}

func (s *sessionService) UpdatePatient(ctx context.Context, id uuid.UUID, idx int, fields map[string]any) (*rips.Patient, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := sess.Note.Patient(idx)
	if p == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrPatientNotFound, idx)
	}
	for name := range fields {
		if !rips.IsDemographic(name) {
			return nil, fmt.Errorf("%w: campo %q no editable", domain.ErrValidation, name)
		}
	}
	for name, raw := range fields {
		v := rips.ValueOf(raw)
		code := s.cfg.TipoUsuario
		if name == rips.FieldTipoUsuario && !v.Blank() {
			code = v.String()
		}
		p.SetField(name, rips.NormalizeDemographic(name, v, code))
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *sessionService) ExportTemplate(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*ExportOutput, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	table := projector.Flatten(sess.Note, sess.Reference)
	var buf bytes.Buffer
	if err := tabular.Write(&buf, table, format); err != nil {
		return nil, fmt.Errorf("sessionService.ExportTemplate: %w", err)
	}
	return &ExportOutput{
		Filename:    tabular.BuildFilename("plantilla_"+sess.Note.NumFactura.String(), string(format)),
		ContentType: domain.ContentTypes[format],
		Data:        buf.Bytes(),
	}, nil
}

func (s *sessionService) ApplyTemplate(ctx context.Context, id uuid.UUID, format domain.ExportFormat, r io.Reader) (*ApplyTemplateResult, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	table, err := tabular.Read(r, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	out, errs := projector.Apply(sess.Note, sess.Reference, table, projector.Options{TipoUsuario: s.cfg.TipoUsuario})
	if errs == nil {
		errs = []string{}
	}
	sess.Note = out
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		s.log.Warn("sessionService.ApplyTemplate: rows rejected",
			zap.String("session_id", id.String()), zap.Int("count", len(errs)))
	}
	return &ApplyTemplateResult{Session: sess.Info(), Errors: errs}, nil
}

func (s *sessionService) Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*ExportOutput, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return render(sess, format)
}

func render(sess *domain.Session, format domain.ExportFormat) (*ExportOutput, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case domain.ExportFormatJSON:
		data, err = rips.Encode(sess.Note)
	case domain.ExportFormatXML:
		data, err = xmlbridge.ToXML(sess.Note)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, format)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", format, err)
	}
	return &ExportOutput{
		Filename:    tabular.BuildFilename("nota_"+sess.Note.NumFactura.String(), string(format)),
		ContentType: domain.ContentTypes[format],
		Data:        data,
	}, nil
}

func (s *sessionService) EmbedXML(ctx context.Context, id uuid.UUID, template []byte, family string) (*ExportOutput, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inner, err := xmlbridge.ToXML(sess.Note)
	if err != nil {
		return nil, fmt.Errorf("sessionService.EmbedXML: %w", err)
	}
	// The payload goes inside CDATA, so it carries no declaration.
	payload := string(bytes.TrimPrefix(inner, []byte(xmlbridge.Header)))

	var out []byte
	if family == "" {
		out, err = xmlbridge.EmbedInTemplate(template, payload)
	} else {
		f, ferr := xmlbridge.FamilyByName(family)
		if ferr != nil {
			return nil, ferr
		}
		out, err = xmlbridge.EmbedInTemplateStrict(template, payload, f)
	}
	if err != nil {
		return nil, err
	}
	return &ExportOutput{
		Filename:    tabular.BuildFilename("attached_"+sess.Note.NumFactura.String(), "xml"),
		ContentType: domain.ContentTypes[domain.ExportFormatXML],
		Data:        out,
	}, nil
}

func (s *sessionService) Archive(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*domain.ArchivedExport, error) {
	if s.archiver == nil {
		return nil, domain.ErrArchiveDisabled
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := render(sess, format)
	if err != nil {
		return nil, err
	}
	return s.archiver.Archive(ctx, id, out)
}

func (s *sessionService) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	n, err := s.store.Sweep(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("sessionService.Sweep: %w", err)
	}
	if n > 0 {
		s.log.Info("sessionService.Sweep: expired sessions dropped", zap.Int("count", n))
	}
	return n, nil
}

func (s *sessionService) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
