package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/shared/server/middleware"
	"esign-backend/internal/shared/server/respond"
)

// maxUploadSize caps the multipart request body. Slightly above the
// document limit to leave room for the form envelope.
const maxUploadSize = maxUploadBytes + 1<<20

// Handler wires HTTP handlers to the document service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.create)
	rg.POST("/documents/from-s3", h.createFromS3)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.delete)
	rg.POST("/documents/:id/send", h.send)
	rg.POST("/documents/:id/reject", h.reject)
	rg.POST("/documents/:id/resend", h.resend)
	rg.GET("/documents/:id/download", h.download)
	rg.GET("/documents/:id/integrity", h.integrity)
	rg.GET("/documents/:id/audit", h.auditTrail)
}

func identity(c *gin.Context) Identity {
	return Identity{
		UserID:    middleware.UserIDFromContext(c),
		Email:     middleware.UserEmailFromContext(c),
		Name:      middleware.UserNameFromContext(c),
		Admin:     middleware.IsAdminFromContext(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func (h *Handler) create(c *gin.Context) {
	id := identity(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	var signers []signerPayload
	if raw := strings.TrimSpace(c.PostForm("signers")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &signers); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "signers must be a JSON array", nil)
			return
		}
	}
	in := draftRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Signers:     signers,
	}.toInput()

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.CreateDraft(requestContext(c), id, in, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, doc)
}

func (h *Handler) createFromS3(c *gin.Context) {
	id := identity(c)

	var req createFromS3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.StorageKey = strings.TrimSpace(req.StorageKey)
	req.OriginalFileName = strings.TrimSpace(req.OriginalFileName)
	if req.StorageKey == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "storageKey is required", nil)
		return
	}
	if req.OriginalFileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "originalFileName is required", nil)
		return
	}

	in := draftRequest{
		Title:       req.Title,
		Description: req.Description,
		Signers:     req.Signers,
	}.toInput()

	doc, err := h.Svc.CreateFromS3(requestContext(c), id, in, req.OriginalFileName, req.StorageKey)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, doc)
}

func (h *Handler) list(c *gin.Context) {
	id := identity(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Svc.List(requestContext(c), id, c.Query("status"), limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, docs)
}

func (h *Handler) get(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, err := h.Svc.Get(requestContext(c), id, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) update(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.UpdateDraft(requestContext(c), id, documentID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this document", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "only draft documents can be edited", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) delete(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	err := h.Svc.DeleteDraft(requestContext(c), id, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this document", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "only draft documents can be deleted", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) send(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, err := h.Svc.Send(requestContext(c), id, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this document", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "document has already been sent", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to send document", nil)
		}
		return
	}

	c.Set("statusTransition", "draft->sent")
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) reject(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	if id.Email == "" {
		respond.Error(c, http.StatusForbidden, "forbidden", "rejecting requires a signed-in identity", nil)
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.Reject(requestContext(c), id, documentID, id.Email, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrSignerNotFound):
			respond.Error(c, http.StatusForbidden, "forbidden", "you are not a signer on this document", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "document is not awaiting signatures", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reject document", nil)
		}
		return
	}

	c.Set("signerEmail", id.Email)
	c.Set("statusTransition", "sent->rejected")
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) resend(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.SignerEmail = strings.TrimSpace(req.SignerEmail)
	if req.SignerEmail == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "signerEmail is required", nil)
		return
	}

	err := h.Svc.Resend(requestContext(c), id, documentID, req.SignerEmail)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrSignerNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "signer not found", nil)
		case errors.Is(err, ErrSignerAlreadySigned):
			respond.Error(c, http.StatusConflict, "conflict", "signer has already signed", nil)
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this document", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "document is not awaiting signatures", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resend signing request", nil)
		}
		return
	}

	c.Set("signerEmail", req.SignerEmail)
	respond.JSON(c, http.StatusOK, gin.H{"status": "resent", "signerEmail": strings.ToLower(req.SignerEmail)})
}

func (h *Handler) download(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)
	variant := c.DefaultQuery("variant", "original")

	body, doc, err := h.Svc.Download(requestContext(c), id, documentID, variant)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "signed version is not available yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to download document", nil)
		}
		return
	}
	defer body.Close()

	fileName := doc.OriginalFileName
	contentLength := doc.SizeBytes
	if variant == "signed" {
		fileName = strings.TrimSuffix(fileName, ".pdf") + ".signed.pdf"
		contentLength = -1
	}

	c.DataFromReader(http.StatusOK, contentLength, "application/pdf", body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", fileName),
	})
}

func (h *Handler) integrity(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	report, err := h.Svc.VerifyIntegrity(requestContext(c), id, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to verify document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, report)
}

func (h *Handler) auditTrail(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := h.Svc.AuditTrail(requestContext(c), id, documentID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch audit trail", nil)
		}
		return
	}

	resp := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		item := gin.H{
			"id":        e.ID,
			"action":    e.Action,
			"outcome":   e.Outcome,
			"createdAt": e.CreatedAt,
		}
		if e.ActorID != "" {
			item["actorId"] = e.ActorID
		}
		if e.ErrorMessage != "" {
			item["error"] = e.ErrorMessage
		}
		if len(e.Metadata) > 0 {
			item["metadata"] = e.Metadata
		}
		if e.IPAddress != "" {
			item["ipAddress"] = e.IPAddress
		}
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}
