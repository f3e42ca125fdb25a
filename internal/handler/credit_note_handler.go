package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ripsnc/internal/creditnote"
	"ripsnc/internal/domain"
	"ripsnc/internal/service"
	"ripsnc/internal/xmlbridge"
)

// CreditNoteHandler handles credit note payload and submission endpoints.
type CreditNoteHandler struct {
	creditNoteService service.CreditNoteService
	submissionService service.SubmissionService
	maxUpload         int64
	log               *zap.Logger
}

// NewCreditNoteHandler creates a new CreditNoteHandler.
func NewCreditNoteHandler(
	creditNoteService service.CreditNoteService,
	submissionService service.SubmissionService,
	maxUploadBytes int64,
	log *zap.Logger,
) *CreditNoteHandler {
	return &CreditNoteHandler{
		creditNoteService: creditNoteService,
		submissionService: submissionService,
		maxUpload:         maxUploadBytes,
		log:               log,
	}
}

// Build handles POST /api/v1/credit-notes/build
// @Summary Build a provider-ready credit note payload
// @Description Validates and normalizes the input sections
// @Tags credit-notes
// @Accept json
// @Produce json
// @Param body body creditnote.Sections true "Credit note sections"
// @Success 200 {object} Response{data=creditnote.Document}
// @Failure 400 {object} ErrorResponseBody "Missing required field"
// @Failure 422 {object} ErrorResponseBody "Validation error"
// @Router /credit-notes/build [post]
func (h *CreditNoteHandler) Build(c *gin.Context) {
	var sections creditnote.Sections
	if err := c.ShouldBindJSON(&sections); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	doc, err := h.creditNoteService.Build(c.Request.Context(), sections)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, doc)
}

// Billable handles GET /api/v1/sessions/:id/billable
// @Summary List billable services of a session
// @Tags credit-notes
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=[]creditnote.ServiceLine}
// @Router /sessions/{id}/billable [get]
func (h *CreditNoteHandler) Billable(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	lines, err := h.creditNoteService.Billable(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, lines)
}

// FromSelection handles POST /api/v1/sessions/:id/credit-note/selection
// @Summary Build a partial credit note from selected services
// @Tags credit-notes
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body service.SelectionInput true "Selected lines and note parameters"
// @Success 200 {object} Response{data=creditnote.Document}
// @Router /sessions/{id}/credit-note/selection [post]
func (h *CreditNoteHandler) FromSelection(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var input service.SelectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	doc, err := h.creditNoteService.FromSelection(c.Request.Context(), id, input)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, doc)
}

// AttachedDocument handles POST /api/v1/sessions/:id/attached-document
// @Summary Rewrite an AttachedDocument template for this note
// @Description Without amounts in params, the billable services of the session are used
// @Tags credit-notes
// @Accept multipart/form-data
// @Produce application/xml
// @Param id path string true "Session ID"
// @Param template formData file true "AttachedDocument XML carrying a CreditNote"
// @Param params formData string true "JSON with id_nota_credito, parent_document_id, mode, amounts"
// @Param lines formData string false "JSON array of selected service lines"
// @Success 200 {file} binary
// @Failure 422 {object} ErrorResponseBody "Template format error"
// @Router /sessions/{id}/attached-document [post]
func (h *CreditNoteHandler) AttachedDocument(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	name, tpl, err := readUpload(c, "template", h.maxUpload)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	input := service.AttachedInput{SessionID: &id, Template: tpl}
	if err := json.Unmarshal([]byte(c.PostForm("params")), &input.Params); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "params must be a JSON object")
		return
	}
	if raw := c.PostForm("lines"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.Lines); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "lines must be a JSON array")
			return
		}
	}
	out, err := h.creditNoteService.AttachedDocument(c.Request.Context(), input)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondFile(c, "nc_"+name, domain.ContentTypes[domain.ExportFormatXML], out)
}

// Submit handles POST /api/v1/credit-notes/submit
// @Summary Send a credit note payload to the invoicing provider
// @Description The provider status and body are returned as received
// @Tags credit-notes
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "Environment and payload"
// @Success 200 {object} Response{data=service.SubmitOutput}
// @Failure 422 {object} ErrorResponseBody "Payload fails validation"
// @Failure 502 {object} ErrorResponseBody "Provider unreachable"
// @Router /credit-notes/submit [post]
func (h *CreditNoteHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	out, err := h.submissionService.Submit(c.Request.Context(), service.SubmitInput{
		SessionID:   req.SessionID,
		Environment: req.Environment,
		Payload:     req.Payload,
	})
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, out)
}

// ListSubmissions handles GET /api/v1/credit-notes/submissions
// @Summary List recorded provider submissions
// @Tags credit-notes
// @Produce json
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(20)
// @Success 200 {object} Response{data=[]domain.SubmissionAudit,meta=PagMeta}
// @Router /credit-notes/submissions [get]
func (h *CreditNoteHandler) ListSubmissions(c *gin.Context) {
	offset, limit := parsePagination(c)
	entries, total, err := h.submissionService.ListAudit(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondPaginated(c, entries, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// InspectTemplate handles POST /api/v1/templates/inspect
// @Summary Show the embedded document of an envelope template
// @Tags credit-notes
// @Accept multipart/form-data
// @Produce json
// @Param template formData file true "Envelope XML"
// @Success 200 {object} Response{data=TemplateInfo}
// @Failure 422 {object} ErrorResponseBody "Template format error"
// @Router /templates/inspect [post]
func (h *CreditNoteHandler) InspectTemplate(c *gin.Context) {
	_, tpl, err := readUpload(c, "template", h.maxUpload)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	inner, err := xmlbridge.ExtractEmbedded(tpl)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	info := TemplateInfo{Embedded: inner}
	if f, ferr := xmlbridge.DetectFamily(tpl); ferr == nil {
		info.Family = f.Name
	}
	RespondOK(c, info)
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
