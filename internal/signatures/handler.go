package signatures

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/documents"
	"esign-backend/internal/shared/server/middleware"
	"esign-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the signature service. Token routes
// carry no session; the token itself is the credential. Declining by
// token goes through the documents service so both entry paths share
// one transition.
type Handler struct {
	Svc  *Service
	Docs *documents.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, docs *documents.Service) *Handler {
	return &Handler{Svc: svc, Docs: docs}
}

// RegisterRoutes attaches the authenticated signature routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/:id/signatures", h.list)
	rg.POST("/documents/:id/signatures", h.submitAuthenticated)
	rg.POST("/documents/:id/complete", h.complete)
}

// RegisterPublicRoutes attaches the token signing routes. The caller
// mounts these behind rate limiting, outside auth.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/sign/:token", h.signingContext)
	rg.POST("/sign/:token", h.submitByToken)
	rg.POST("/sign/:token/reject", h.rejectByToken)
}

func identity(c *gin.Context) documents.Identity {
	return documents.Identity{
		UserID:    middleware.UserIDFromContext(c),
		Email:     middleware.UserEmailFromContext(c),
		Name:      middleware.UserNameFromContext(c),
		Admin:     middleware.IsAdminFromContext(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// origin carries request provenance for token-based signers, who have
// no authenticated identity.
func origin(c *gin.Context) documents.Identity {
	return documents.Identity{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func requestContext(c *gin.Context) context.Context {
	return documents.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func (h *Handler) signingContext(c *gin.Context) {
	sc, err := h.Svc.GetSigningContext(requestContext(c), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenInvalid):
			respond.Error(c, http.StatusNotFound, "token_invalid", "signing link is invalid or expired", nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load signing session", nil)
		}
		return
	}

	c.Set("documentId", sc.DocumentID)
	c.Set("signerEmail", sc.SignerEmail)
	respond.JSON(c, http.StatusOK, sc)
}

func (h *Handler) submitByToken(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	sig, allSigned, err := h.Svc.SubmitByToken(requestContext(c), c.Param("token"), origin(c), req.toSubmission())
	if err != nil {
		h.submitError(c, err)
		return
	}

	c.Set("documentId", sig.DocumentID)
	c.Set("signerEmail", sig.SignerEmail)
	if allSigned {
		c.Set("statusTransition", "sent->signed")
	}
	respond.JSON(c, http.StatusCreated, gin.H{
		"signature": sig,
		"allSigned": allSigned,
	})
}

func (h *Handler) submitAuthenticated(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	sig, allSigned, err := h.Svc.SubmitAuthenticated(requestContext(c), id, documentID, req.toSubmission())
	if err != nil {
		h.submitError(c, err)
		return
	}

	c.Set("signerEmail", sig.SignerEmail)
	if allSigned {
		c.Set("statusTransition", "sent->signed")
	}
	respond.JSON(c, http.StatusCreated, gin.H{
		"signature": sig,
		"allSigned": allSigned,
	})
}

func (h *Handler) submitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTokenInvalid):
		respond.Error(c, http.StatusNotFound, "token_invalid", "signing link is invalid or expired", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, documents.ErrSignerNotFound):
		respond.Error(c, http.StatusForbidden, "forbidden", "you are not a signer on this document", nil)
	case errors.Is(err, documents.ErrSignerAlreadySigned):
		respond.Error(c, http.StatusConflict, "conflict", "you have already signed this document", nil)
	case errors.Is(err, documents.ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "document is not awaiting signatures", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record signature", nil)
	}
}

func (h *Handler) rejectByToken(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := requestContext(c)
	rec, err := h.Svc.ResolveToken(ctx, c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenInvalid):
			respond.Error(c, http.StatusNotFound, "token_invalid", "signing link is invalid or expired", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to decline document", nil)
		}
		return
	}
	c.Set("documentId", rec.DocumentID)

	doc, err := h.Docs.Reject(ctx, origin(c), rec.DocumentID, rec.SignerEmail, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, documents.ErrSignerNotFound):
			respond.Error(c, http.StatusForbidden, "forbidden", "you are not a signer on this document", nil)
		case errors.Is(err, documents.ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "document is not awaiting signatures", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to decline document", nil)
		}
		return
	}

	c.Set("signerEmail", rec.SignerEmail)
	c.Set("statusTransition", "sent->rejected")
	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) complete(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, err := h.Svc.Complete(requestContext(c), id, documentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, documents.ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "administrators cannot modify other users' documents", nil)
		case errors.Is(err, ErrIncomplete):
			respond.Error(c, http.StatusConflict, "conflict", "signatures are still outstanding", nil)
		case errors.Is(err, documents.ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "document is not awaiting signatures", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to finalize document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, doc)
}

func (h *Handler) list(c *gin.Context) {
	id := identity(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	sigs, err := h.Svc.List(requestContext(c), id, documentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list signatures", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"documentId": documentID,
		"signatures": sigs,
		"count":      len(sigs),
	})
}
