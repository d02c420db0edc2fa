package signatures

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"esign-backend/internal/assembly"
	"esign-backend/internal/audit"
	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/signingtokens"
	"esign-backend/internal/users"
)

// maxImageBytes caps drawn and uploaded signature images.
const maxImageBytes = 2 << 20

// Service collects signatures and drives completion: the moment the
// last signer submits, it assembles the signed artifact and moves the
// document to signed. Between recording and completion the document
// stays sent, so a failed assembly can be retried.
type Service struct {
	Repo      Repo
	Docs      documents.Repo
	Users     users.Repo
	Store     object.ObjectStore
	Tokens    *signingtokens.Service
	Assembler assembly.Assembler
	Notifier  notify.Notifier
	Audit     *audit.Recorder
}

// ResolveToken verifies a signing token and returns its binding.
// Unknown, expired, and used tokens all come back as ErrTokenInvalid.
func (s *Service) ResolveToken(ctx context.Context, token string) (signingtokens.Record, error) {
	rec, err := s.Tokens.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, signingtokens.ErrNotFound) {
			s.recordDenied(ctx)
			return signingtokens.Record{}, ErrTokenInvalid
		}
		return signingtokens.Record{}, err
	}
	return rec, nil
}

// GetSigningContext resolves a token into everything a signing UI
// needs to render the session.
func (s *Service) GetSigningContext(ctx context.Context, token string) (SigningContext, error) {
	rec, err := s.ResolveToken(ctx, token)
	if err != nil {
		return SigningContext{}, err
	}
	doc, err := s.Docs.GetByID(ctx, rec.DocumentID)
	if err != nil {
		return SigningContext{}, err
	}
	signer, ok := findSigner(doc, rec.SignerEmail)
	if !ok {
		return SigningContext{}, documents.ErrSignerNotFound
	}

	s.record(ctx, documents.Identity{}, doc.ID, audit.ActionViewed, map[string]any{"signer": rec.SignerEmail})
	return SigningContext{
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Description:   doc.Description,
		Status:        doc.Status,
		PageCount:     doc.PageCount,
		SignerName:    signer.Name,
		SignerEmail:   signer.Email,
		AlreadySigned: signer.Signed,
		ExpiresAt:     rec.ExpiresAt,
	}, nil
}

// SubmitByToken records a signature on behalf of the token's signer,
// retires the token, and completes the document if this was the last
// outstanding signature.
func (s *Service) SubmitByToken(ctx context.Context, token string, origin documents.Identity, sub Submission) (Signature, bool, error) {
	rec, err := s.ResolveToken(ctx, token)
	if err != nil {
		return Signature{}, false, err
	}

	sig, allSigned, err := s.submit(ctx, rec.DocumentID, rec.SignerEmail, origin, sub)
	if err != nil {
		return Signature{}, false, err
	}

	if err := s.Tokens.Invalidate(ctx, token); err != nil {
		telemetry.Warn("signatures.token_invalidate_failed", map[string]any{
			"document_id": rec.DocumentID,
			"signer":      rec.SignerEmail,
			"error":       err.Error(),
		})
	} else {
		s.record(ctx, origin, rec.DocumentID, audit.ActionTokenInvalidated, map[string]any{"signer": rec.SignerEmail})
	}

	if allSigned {
		if err := s.complete(ctx, rec.DocumentID, rec.SignerEmail); err != nil {
			return Signature{}, false, err
		}
	}
	return sig, allSigned, nil
}

// SubmitAuthenticated records a signature for a signed-in signer whose
// account email matches a signer entry.
func (s *Service) SubmitAuthenticated(ctx context.Context, actor documents.Identity, documentID string, sub Submission) (Signature, bool, error) {
	signerEmail := strings.ToLower(strings.TrimSpace(actor.Email))
	if signerEmail == "" {
		return Signature{}, false, documents.ErrSignerNotFound
	}

	sig, allSigned, err := s.submit(ctx, documentID, signerEmail, actor, sub)
	if err != nil {
		return Signature{}, false, err
	}

	// The signer may still hold an emailed link; it has served its
	// purpose now.
	if err := s.Tokens.InvalidateFor(ctx, documentID, signerEmail); err != nil {
		telemetry.Warn("signatures.token_invalidate_failed", map[string]any{
			"document_id": documentID,
			"signer":      signerEmail,
			"error":       err.Error(),
		})
	}

	if allSigned {
		if err := s.complete(ctx, documentID, signerEmail); err != nil {
			return Signature{}, false, err
		}
	}
	return sig, allSigned, nil
}

// Complete re-runs completion for an owner after a failed assembly.
// Idempotent on already-signed documents.
func (s *Service) Complete(ctx context.Context, actor documents.Identity, documentID string) (documents.Document, error) {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.OwnerID != actor.UserID {
		if actor.Admin {
			return documents.Document{}, documents.ErrForbidden
		}
		return documents.Document{}, documents.ErrNotFound
	}
	if doc.Status == documents.StatusSigned {
		return doc, nil
	}
	if doc.Status != documents.StatusSent {
		return documents.Document{}, documents.ErrConflict
	}
	if doc.SignedCount < doc.SignerCount {
		return documents.Document{}, ErrIncomplete
	}

	if err := s.complete(ctx, documentID, ""); err != nil {
		return documents.Document{}, err
	}
	return s.Docs.GetByID(ctx, documentID)
}

// List returns a document's signatures for its owner or an admin.
func (s *Service) List(ctx context.Context, actor documents.Identity, documentID string) ([]Signature, error) {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != actor.UserID && !actor.Admin {
		return nil, documents.ErrNotFound
	}
	return s.Repo.ListByDocument(ctx, documentID)
}

// submit validates and records one signature. The repo decides
// atomically whether it was the last one.
func (s *Service) submit(ctx context.Context, documentID, signerEmail string, origin documents.Identity, sub Submission) (Signature, bool, error) {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		return Signature{}, false, err
	}
	signer, ok := findSigner(doc, signerEmail)
	if !ok {
		return Signature{}, false, documents.ErrSignerNotFound
	}
	if err := validateSubmission(doc, &sub); err != nil {
		return Signature{}, false, err
	}

	sig := Signature{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		SignerEmail: signerEmail,
		SignerName:  displayName(signer, sub),
		Method:      sub.Method,
		Placement:   sub.Placement,
		IPAddress:   origin.IP,
		UserAgent:   origin.UserAgent,
		Verified:    true,
		SubmittedAt: time.Now().UTC(),
	}
	if len(sub.ImageData) > 0 {
		key, err := s.saveImage(ctx, documentID, sig.ID, sub.ImageData)
		if err != nil {
			return Signature{}, false, err
		}
		sig.ImageKey = key
	}

	allSigned, err := s.Repo.Record(ctx, sig)
	if err != nil {
		if sig.ImageKey != "" {
			if delErr := s.Store.Delete(ctx, sig.ImageKey); delErr != nil {
				telemetry.Warn("signatures.image_cleanup_failed", map[string]any{
					"storage_key": sig.ImageKey,
					"error":       delErr.Error(),
				})
			}
		}
		return Signature{}, false, err
	}

	metrics.IncSignaturesRecorded()
	s.record(ctx, origin, documentID, audit.ActionSignatureAdded, map[string]any{
		"signer": signerEmail,
		"method": sub.Method,
		"page":   sub.Placement.Page,
	})
	telemetry.Info("signature.recorded", map[string]any{
		"request_id":   documents.RequestIDFromContext(ctx),
		"document_id":  documentID,
		"signer_email": signerEmail,
		"method":       sub.Method,
		"all_signed":   allSigned,
	})
	return sig, allSigned, nil
}

// complete assembles the signed artifact and wins the sent→signed
// transition. Assembly failure leaves the document sent; losing the
// MarkSigned race means another submission already completed it.
func (s *Service) complete(ctx context.Context, documentID, signedBy string) error {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	sigs, err := s.Repo.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load signatures: %w", err)
	}

	in := assembly.Input{OriginalKey: doc.OriginalFileKey}
	for _, sig := range sigs {
		in.Signatures = append(in.Signatures, assembly.Placed{
			Page:       sig.Placement.Page,
			X:          sig.Placement.X,
			Y:          sig.Placement.Y,
			Width:      sig.Placement.Width,
			Height:     sig.Placement.Height,
			ImageKey:   sig.ImageKey,
			SignerName: sig.SignerName,
			SignedAt:   sig.SubmittedAt,
		})
	}

	signedKey, err := s.Assembler.AssembleSigned(ctx, in)
	if err != nil {
		s.recordFailure(ctx, documentID, audit.ActionSigned, err)
		telemetry.Error("document.assembly_failed", map[string]any{
			"request_id":  documents.RequestIDFromContext(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		})
		return fmt.Errorf("assemble signed document: %w", err)
	}

	now := time.Now().UTC()
	won, err := s.Docs.MarkSigned(ctx, documentID, signedKey, now)
	if err != nil {
		return err
	}
	if !won {
		telemetry.Info("document.completion_already_won", map[string]any{"document_id": documentID})
		return nil
	}

	metrics.IncDocumentsSigned()
	s.record(ctx, documents.Identity{}, documentID, audit.ActionSigned, map[string]any{"signed_by": signedBy})
	telemetry.Info("document.status", map[string]any{
		"request_id":        documents.RequestIDFromContext(ctx),
		"document_id":       documentID,
		"signer_email":      signedBy,
		"status":            documents.StatusSigned,
		"status_transition": "sent->signed",
	})
	s.notifyOwnerSigned(ctx, doc, signedBy)
	return nil
}

func (s *Service) notifyOwnerSigned(ctx context.Context, doc documents.Document, signedBy string) {
	if s.Notifier == nil || s.Users == nil {
		return
	}
	if strings.HasPrefix(doc.OwnerID, "guest:") {
		return
	}
	owner, err := s.Users.GetByID(ctx, doc.OwnerID)
	if err != nil {
		telemetry.Warn("signatures.owner_lookup_failed", map[string]any{
			"document_id": doc.ID,
			"owner_id":    doc.OwnerID,
			"error":       err.Error(),
		})
		return
	}
	err = s.Notifier.SendSignedNotice(ctx, notify.SignedNotice{
		DocumentID:    doc.ID,
		RequestID:     documents.RequestIDFromContext(ctx),
		To:            owner.Email,
		DocumentTitle: doc.Title,
		SignedBy:      signedBy,
	})
	if err != nil {
		telemetry.Warn("signatures.notify_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
}

func (s *Service) saveImage(ctx context.Context, documentID, signatureID string, data []byte) (string, error) {
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidInput, maxImageBytes)
	}
	var ext string
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	default:
		return "", fmt.Errorf("%w: image must be PNG or JPEG, got %s", ErrInvalidInput, contentType)
	}
	key := "signatures/" + documentID + "/" + signatureID + ext
	if _, err := s.Store.SaveWithKey(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store signature image: %w", err)
	}
	return key, nil
}

func (s *Service) record(ctx context.Context, actor documents.Identity, documentID string, action audit.Action, metadata map[string]any) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		DocumentID: documentID,
		Action:     action,
		Metadata:   metadata,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
}

func (s *Service) recordFailure(ctx context.Context, documentID string, action audit.Action, cause error) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, audit.Entry{
		DocumentID:   documentID,
		Action:       action,
		Outcome:      audit.OutcomeFailure,
		ErrorMessage: cause.Error(),
	})
}

func (s *Service) recordDenied(ctx context.Context) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, audit.Entry{
		Action:  audit.ActionTokenDenied,
		Outcome: audit.OutcomeFailure,
	})
}

func findSigner(doc documents.Document, email string) (documents.Signer, bool) {
	for _, s := range doc.Signers {
		if s.Email == email {
			return s, true
		}
	}
	return documents.Signer{}, false
}

// displayName prefers the name the signer typed over the invited name.
func displayName(signer documents.Signer, sub Submission) string {
	if sub.Method == MethodTyped {
		if typed := strings.TrimSpace(sub.TypedText); typed != "" {
			return typed
		}
	}
	return signer.Name
}

func validateSubmission(doc documents.Document, sub *Submission) error {
	sub.Method = strings.ToLower(strings.TrimSpace(sub.Method))
	switch sub.Method {
	case MethodDrawn, MethodUploaded:
		if len(sub.ImageData) == 0 {
			return fmt.Errorf("%w: %s signatures need an image payload", ErrInvalidInput, sub.Method)
		}
	case MethodTyped:
		if len(sub.ImageData) > 0 {
			return fmt.Errorf("%w: typed signatures do not carry an image", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidInput, sub.Method)
	}
	if sub.Placement.Page < 1 {
		return fmt.Errorf("%w: page must be at least 1", ErrInvalidInput)
	}
	if doc.PageCount > 0 && sub.Placement.Page > doc.PageCount {
		return fmt.Errorf("%w: page %d beyond the document's %d pages", ErrInvalidInput, sub.Placement.Page, doc.PageCount)
	}
	if sub.Placement.X < 0 || sub.Placement.Y < 0 {
		return fmt.Errorf("%w: placement coordinates must not be negative", ErrInvalidInput)
	}
	if sub.Placement.Width < 0 || sub.Placement.Height < 0 {
		return fmt.Errorf("%w: signature size must not be negative", ErrInvalidInput)
	}
	return nil
}
