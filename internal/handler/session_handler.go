package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ripsnc/internal/domain"
	"ripsnc/internal/service"
	"ripsnc/internal/tabular"
)

// SessionHandler handles claims session endpoints.
type SessionHandler struct {
	sessionService service.SessionService
	maxUpload      int64
	log            *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. maxUploadBytes bounds
// every uploaded file.
func NewSessionHandler(sessionService service.SessionService, maxUploadBytes int64, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, maxUpload: maxUploadBytes, log: log}
}

// Create handles POST /api/v1/sessions
// @Summary Open a session
// @Description Upload the note claims JSON and, optionally, the invoice claims JSON used as reference
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param note formData file true "Note claims document (JSON)"
// @Param reference formData file false "Invoice claims document (JSON)"
// @Success 201 {object} Response{data=domain.SessionInfo}
// @Failure 400 {object} ErrorResponseBody "Missing or invalid document"
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	noteName, note, err := h.readFormFile(c, "note")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	input := service.CreateSessionInput{NoteName: noteName, Note: note}
	if form := c.Request.MultipartForm; form != nil && len(form.File["reference"]) > 0 {
		refName, ref, err := h.readFormFile(c, "reference")
		if err != nil {
			RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
			return
		}
		input.ReferenceName = refName
		input.Reference = ref
	}

	sess, err := h.sessionService.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondCreated(c, sess.Info())
}

// List handles GET /api/v1/sessions
// @Summary List open sessions
// @Tags sessions
// @Produce json
// @Success 200 {object} Response{data=[]domain.SessionInfo}
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessionService.List(c.Request.Context())
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, sessions)
}

// Get handles GET /api/v1/sessions/:id
// @Summary Get a session with its documents
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=domain.Session}
// @Failure 404 {object} ErrorResponseBody "Session not found"
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessionService.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, sess)
}

// Delete handles DELETE /api/v1/sessions/:id
// @Summary Close a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=MessageResponse}
// @Failure 404 {object} ErrorResponseBody "Session not found"
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessionService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, MessageResponse{Message: "session closed"})
}

// SetReference handles PUT /api/v1/sessions/:id/reference
// @Summary Replace the reference claims document
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param reference formData file true "Invoice claims document (JSON)"
// @Success 200 {object} Response{data=domain.SessionInfo}
// @Router /sessions/{id}/reference [put]
func (h *SessionHandler) SetReference(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	name, data, err := h.readFormFile(c, "reference")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	sess, err := h.sessionService.SetReference(c.Request.Context(), id, name, data)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, sess.Info())
}

// Normalize handles POST /api/v1/sessions/:id/normalize
// @Summary Normalize service groups of the session documents
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=domain.SessionInfo}
// @Router /sessions/{id}/normalize [post]
func (h *SessionHandler) Normalize(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessionService.Normalize(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, sess.Info())
}

// Reconcile handles POST /api/v1/sessions/:id/reconcile
// @Summary Complete the note from the reference claims
// @Description Matches patients, completes demographics and copies services with the given sign
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body ReconcileRequest false "Sign applied to copied amounts"
// @Success 200 {object} Response{data=reconcile.Summary}
// @Failure 409 {object} ErrorResponseBody "Session has no reference"
// @Router /sessions/{id}/reconcile [post]
func (h *SessionHandler) Reconcile(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}
	sum, err := h.sessionService.Reconcile(c.Request.Context(), id, req.ForceSign)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, sum)
}

// UpdatePatient handles PATCH /api/v1/sessions/:id/patients/:idx
// @Summary Edit demographic fields of a note patient
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param idx path int true "Patient index"
// @Param body body UpdatePatientRequest true "Field values"
// @Success 200 {object} Response{data=rips.Patient}
// @Router /sessions/{id}/patients/{idx} [patch]
func (h *SessionHandler) UpdatePatient(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid patient index")
		return
	}
	var req UpdatePatientRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || len(req) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "body must be a non-empty JSON object")
		return
	}
	p, err := h.sessionService.UpdatePatient(c.Request.Context(), id, idx, req)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, p)
}

// ExportTemplate handles GET /api/v1/sessions/:id/template
// @Summary Download the service edit table
// @Tags templates
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Param format query string false "xlsx, csv or json" default(xlsx)
// @Success 200 {file} binary
// @Router /sessions/{id}/template [get]
func (h *SessionHandler) ExportTemplate(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	format := domain.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ExportFormatXLSX))))
	out, err := h.sessionService.ExportTemplate(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondFile(c, out.Filename, out.ContentType, out.Data)
}

// ApplyTemplate handles POST /api/v1/sessions/:id/template
// @Summary Apply an edited service table
// @Description Row problems are returned in the errors list; valid rows are applied
// @Tags templates
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Edited table (xlsx, csv or json)"
// @Success 200 {object} Response{data=service.ApplyTemplateResult}
// @Router /sessions/{id}/template [post]
func (h *SessionHandler) ApplyTemplate(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	name, data, err := h.readFormFile(c, "file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	format, err := tabular.FormatFromFilename(name)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	res, err := h.sessionService.ApplyTemplate(c.Request.Context(), id, format, bytes.NewReader(data))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, res)
}

// Export handles GET /api/v1/sessions/:id/export/:format
// @Summary Download the note claims document
// @Tags exports
// @Produce application/json,application/xml
// @Param id path string true "Session ID"
// @Param format path string true "json or xml"
// @Success 200 {file} binary
// @Router /sessions/{id}/export/{format} [get]
func (h *SessionHandler) Export(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	out, err := h.sessionService.Export(c.Request.Context(), id, domain.ExportFormat(strings.ToLower(c.Param("format"))))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondFile(c, out.Filename, out.ContentType, out.Data)
}

// Embed handles POST /api/v1/sessions/:id/export/embed
// @Summary Embed the note XML in an envelope template
// @Tags exports
// @Accept multipart/form-data
// @Produce application/xml
// @Param id path string true "Session ID"
// @Param template formData file true "Envelope XML with a CDATA description"
// @Param family formData string false "creditnote or rips; empty skips the family check"
// @Success 200 {file} binary
// @Failure 422 {object} ErrorResponseBody "Template format error"
// @Router /sessions/{id}/export/embed [post]
func (h *SessionHandler) Embed(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	_, tpl, err := h.readFormFile(c, "template")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	out, err := h.sessionService.EmbedXML(c.Request.Context(), id, tpl, c.PostForm("family"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondFile(c, out.Filename, out.ContentType, out.Data)
}

// Archive handles POST /api/v1/sessions/:id/export/archive
// @Summary Copy an export to object storage
// @Tags exports
// @Produce json
// @Param id path string true "Session ID"
// @Param format query string false "json or xml" default(json)
// @Success 201 {object} Response{data=domain.ArchivedExport}
// @Failure 501 {object} ErrorResponseBody "Archive disabled"
// @Router /sessions/{id}/export/archive [post]
func (h *SessionHandler) Archive(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	format := domain.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ExportFormatJSON))))
	archived, err := h.sessionService.Archive(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondCreated(c, archived)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// readFormFile reads a multipart file field, bounded by the upload limit.
func (h *SessionHandler) readFormFile(c *gin.Context, field string) (string, []byte, error) {
	return readUpload(c, field, h.maxUpload)
}

func readUpload(c *gin.Context, field string, maxBytes int64) (string, []byte, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("%s field is required", field)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", field, err)
	}
	if int64(len(data)) > maxBytes {
		return "", nil, fmt.Errorf("%s exceeds %d bytes", field, maxBytes)
	}
	return header.Filename, data, nil
}
