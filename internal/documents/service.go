package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"esign-backend/internal/audit"
	"esign-backend/internal/notify"
	"esign-backend/internal/pdfinfo"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/shared/util"
	"esign-backend/internal/signingtokens"
	"esign-backend/internal/users"
)

// maxUploadBytes caps document uploads. Oversized PDFs make assembly
// and download paths too slow to be useful.
const maxUploadBytes = 25 << 20

// SignerInput is the caller-provided signer list entry.
type SignerInput struct {
	Name  string
	Email string
}

// DraftInput carries the metadata for creating or updating a draft.
type DraftInput struct {
	Title       string
	Description string
	Signers     []SignerInput
}

// IntegrityReport is the result of re-hashing a stored original
// against the digest recorded at upload time.
type IntegrityReport struct {
	DocumentID     string    `json:"documentId"`
	StoredSHA256   string    `json:"storedSha256"`
	ComputedSHA256 string    `json:"computedSha256"`
	Match          bool      `json:"match"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// Service contains the document lifecycle logic: drafting, sending,
// rejecting, downloading and integrity checking. Signature submission
// lives in the signatures package.
type Service struct {
	Repo     Repo
	Users    users.Repo
	Store    object.ObjectStore
	Tokens   *signingtokens.Service
	Notifier notify.Notifier
	Audit    *audit.Recorder

	SigningBaseURL string
	SenderName     string
}

// CreateDraft stores an uploaded PDF and creates a draft around it.
func (s *Service) CreateDraft(ctx context.Context, id Identity, in DraftInput, fileName string, file io.Reader) (Document, error) {
	signers, err := normalizeInput(&in)
	if err != nil {
		return Document{}, err
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, maxUploadBytes)
	}
	pages, err := pdfinfo.PageCount(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	storageKey, size, _, err := s.Store.Save(ctx, id.UserID, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now().UTC()
	doc := Document{
		ID:               uuid.NewString(),
		OwnerID:          id.UserID,
		Title:            in.Title,
		Description:      in.Description,
		Status:           StatusDraft,
		OriginalFileName: fileName,
		OriginalFileKey:  storageKey,
		OriginalSHA256:   util.HashBytes(data),
		SizeBytes:        size,
		PageCount:        pages,
		CreatedAt:        now,
		UpdatedAt:        now,
		Signers:          signers,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	s.record(ctx, id, doc.ID, audit.ActionCreated, nil)
	return s.Repo.GetByID(ctx, doc.ID)
}

// CreateFromS3 creates a draft around an object already uploaded via
// a presigned URL.
func (s *Service) CreateFromS3(ctx context.Context, id Identity, in DraftInput, fileName, storageKey string) (Document, error) {
	signers, err := normalizeInput(&in)
	if err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(storageKey) == "" {
		return Document{}, fmt.Errorf("%w: storage key is required", ErrInvalidInput)
	}

	body, err := s.Store.Open(ctx, storageKey)
	if err != nil {
		return Document{}, fmt.Errorf("open uploaded object %s: %w", storageKey, err)
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, maxUploadBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read uploaded object %s: %w", storageKey, err)
	}
	if len(data) > maxUploadBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, maxUploadBytes)
	}
	pages, err := pdfinfo.PageCount(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	doc := Document{
		ID:               uuid.NewString(),
		OwnerID:          id.UserID,
		Title:            in.Title,
		Description:      in.Description,
		Status:           StatusDraft,
		OriginalFileName: fileName,
		OriginalFileKey:  storageKey,
		OriginalSHA256:   util.HashBytes(data),
		SizeBytes:        int64(len(data)),
		PageCount:        pages,
		CreatedAt:        now,
		UpdatedAt:        now,
		Signers:          signers,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	s.record(ctx, id, doc.ID, audit.ActionCreated, map[string]any{"source": "s3"})
	return s.Repo.GetByID(ctx, doc.ID)
}

// UpdateDraft replaces a draft's metadata and signer list.
func (s *Service) UpdateDraft(ctx context.Context, id Identity, documentID string, in DraftInput) (Document, error) {
	signers, err := normalizeInput(&in)
	if err != nil {
		return Document{}, err
	}
	doc, err := s.getOwned(ctx, id, documentID)
	if err != nil {
		return Document{}, err
	}
	if err := s.denyAdminWrite(doc, id); err != nil {
		return Document{}, err
	}

	doc.Title = in.Title
	doc.Description = in.Description
	doc.Signers = signers
	doc.UpdatedAt = time.Now().UTC()
	if err := s.Repo.UpdateDraft(ctx, doc); err != nil {
		return Document{}, err
	}
	s.record(ctx, id, documentID, audit.ActionUpdated, nil)
	return s.Repo.GetByID(ctx, documentID)
}

// Send freezes the draft and emails every signer a single-use signing
// link. Exactly one Send wins; repeats see ErrConflict.
func (s *Service) Send(ctx context.Context, id Identity, documentID string) (Document, error) {
	doc, err := s.getOwned(ctx, id, documentID)
	if err != nil {
		return Document{}, err
	}
	if err := s.denyAdminWrite(doc, id); err != nil {
		return Document{}, err
	}
	if len(doc.Signers) == 0 {
		return Document{}, fmt.Errorf("%w: document has no signers", ErrInvalidInput)
	}

	now := time.Now().UTC()
	won, err := s.Repo.MarkSent(ctx, documentID, now)
	if err != nil {
		return Document{}, err
	}
	if !won {
		return Document{}, ErrConflict
	}

	for _, signer := range doc.Signers {
		if err := s.inviteSigner(ctx, doc, signer); err != nil {
			return Document{}, err
		}
	}

	metrics.IncDocumentsSent()
	s.record(ctx, id, documentID, audit.ActionSent, map[string]any{"signers": len(doc.Signers)})
	telemetry.Info("document.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           id.UserID,
		"document_id":       documentID,
		"status":            StatusSent,
		"status_transition": "draft->sent",
	})
	return s.Repo.GetByID(ctx, documentID)
}

// inviteSigner mints a fresh token for one signer and mails the link.
// Token persistence errors surface so the owner can retry via resend;
// mail failures only warn because the token remains valid.
func (s *Service) inviteSigner(ctx context.Context, doc Document, signer Signer) error {
	token, expiresAt, err := s.Tokens.Issue(ctx, doc.ID, signer.Email)
	if err != nil {
		return fmt.Errorf("issue token for %s: %w", signer.Email, err)
	}
	if err := s.Repo.SetSignerToken(ctx, doc.ID, signer.Email, util.HashBytes([]byte(token)), expiresAt); err != nil {
		return fmt.Errorf("store token for %s: %w", signer.Email, err)
	}
	s.record(ctx, Identity{UserID: doc.OwnerID}, doc.ID, audit.ActionTokenIssued, map[string]any{"signer": signer.Email})

	if s.Notifier == nil {
		return nil
	}
	err = s.Notifier.SendSigningRequest(ctx, notify.SigningRequest{
		DocumentID:    doc.ID,
		RequestID:     RequestIDFromContext(ctx),
		To:            signer.Email,
		SignerName:    signer.Name,
		DocumentTitle: doc.Title,
		SenderName:    s.SenderName,
		SigningURL:    s.SigningURL(token),
	})
	if err != nil {
		telemetry.Warn("document.notify_failed", map[string]any{
			"document_id": doc.ID,
			"signer":      signer.Email,
			"error":       err.Error(),
		})
	}
	return nil
}

// SigningURL builds the public link for a plaintext token.
func (s *Service) SigningURL(token string) string {
	return strings.TrimRight(s.SigningBaseURL, "/") + "/sign/" + token
}

// Reject declines a sent document and retires every outstanding
// signing link. Bound signers decline; the owner may void their own
// document the same way.
func (s *Service) Reject(ctx context.Context, actor Identity, documentID, signerEmail, reason string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	signerEmail = strings.ToLower(strings.TrimSpace(signerEmail))
	if !hasSigner(doc, signerEmail) {
		if actor.UserID == "" || actor.UserID != doc.OwnerID {
			return Document{}, ErrSignerNotFound
		}
	}

	now := time.Now().UTC()
	won, err := s.Repo.MarkRejected(ctx, documentID, strings.TrimSpace(reason), signerEmail, now)
	if err != nil {
		return Document{}, err
	}
	if !won {
		return Document{}, ErrConflict
	}

	for _, signer := range doc.Signers {
		if err := s.Tokens.InvalidateFor(ctx, documentID, signer.Email); err != nil {
			telemetry.Warn("document.token_invalidate_failed", map[string]any{
				"document_id": documentID,
				"signer":      signer.Email,
				"error":       err.Error(),
			})
		}
	}

	metrics.IncDocumentsRejected()
	s.record(ctx, actor, documentID, audit.ActionRejected, map[string]any{"reason": reason, "rejected_by": signerEmail})
	telemetry.Info("document.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           actor.UserID,
		"document_id":       documentID,
		"signer_email":      signerEmail,
		"status":            StatusRejected,
		"status_transition": "sent->rejected",
	})
	s.notifyOwnerRejected(ctx, doc, signerEmail, reason)
	return s.Repo.GetByID(ctx, documentID)
}

func (s *Service) notifyOwnerRejected(ctx context.Context, doc Document, rejectedBy, reason string) {
	if s.Notifier == nil || s.Users == nil {
		return
	}
	if strings.HasPrefix(doc.OwnerID, "guest:") {
		return
	}
	owner, err := s.Users.GetByID(ctx, doc.OwnerID)
	if err != nil {
		telemetry.Warn("document.owner_lookup_failed", map[string]any{
			"document_id": doc.ID,
			"owner_id":    doc.OwnerID,
			"error":       err.Error(),
		})
		return
	}
	err = s.Notifier.SendRejectionNotice(ctx, notify.RejectionNotice{
		DocumentID:    doc.ID,
		RequestID:     RequestIDFromContext(ctx),
		To:            owner.Email,
		DocumentTitle: doc.Title,
		Reason:        reason,
		RejectedBy:    rejectedBy,
	})
	if err != nil {
		telemetry.Warn("document.notify_failed", map[string]any{
			"document_id": doc.ID,
			"signer":      owner.Email,
			"error":       err.Error(),
		})
	}
}

// DeleteDraft removes a draft and its stored original. Sent and
// completed documents are immutable records and cannot be deleted.
func (s *Service) DeleteDraft(ctx context.Context, id Identity, documentID string) error {
	doc, err := s.getOwned(ctx, id, documentID)
	if err != nil {
		return err
	}
	if err := s.denyAdminWrite(doc, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.OriginalFileKey); err != nil {
		telemetry.Warn("document.delete_object_failed", map[string]any{
			"document_id": documentID,
			"storage_key": doc.OriginalFileKey,
			"error":       err.Error(),
		})
	}
	s.record(ctx, id, documentID, audit.ActionDeleted, nil)
	return nil
}

// Get returns a document for its owner or an admin.
func (s *Service) Get(ctx context.Context, id Identity, documentID string) (Document, error) {
	return s.getOwned(ctx, id, documentID)
}

// List returns the caller's documents newest-first, optionally
// filtered by status.
func (s *Service) List(ctx context.Context, id Identity, status string, limit, offset int) ([]Document, error) {
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.Repo.ListByOwner(ctx, id.UserID, status, limit, offset)
}

// Download streams the original or signed rendition. The signed
// variant exists only once the document is fully signed.
func (s *Service) Download(ctx context.Context, id Identity, documentID, variant string) (io.ReadCloser, Document, error) {
	doc, err := s.getOwned(ctx, id, documentID)
	if err != nil {
		return nil, Document{}, err
	}

	var key string
	switch variant {
	case "", "original":
		key = doc.OriginalFileKey
	case "signed":
		if doc.Status != StatusSigned || doc.SignedFileKey == "" {
			return nil, Document{}, ErrConflict
		}
		key = doc.SignedFileKey
	default:
		return nil, Document{}, fmt.Errorf("%w: unknown variant %q", ErrInvalidInput, variant)
	}

	body, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, Document{}, fmt.Errorf("open %s: %w", key, err)
	}
	s.record(ctx, id, documentID, audit.ActionDownloaded, map[string]any{"variant": variant})
	return body, doc, nil
}

// VerifyIntegrity re-hashes the stored original and compares it with
// the digest recorded at upload time.
func (s *Service) VerifyIntegrity(ctx context.Context, id Identity, documentID string) (IntegrityReport, error) {
	doc, err := s.getOwned(ctx, id, documentID)
	if err != nil {
		return IntegrityReport{}, err
	}
	body, err := s.Store.Open(ctx, doc.OriginalFileKey)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("open %s: %w", doc.OriginalFileKey, err)
	}
	defer body.Close()
	computed, err := util.HashReader(body)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("hash %s: %w", doc.OriginalFileKey, err)
	}
	report := IntegrityReport{
		DocumentID:     documentID,
		StoredSHA256:   doc.OriginalSHA256,
		ComputedSHA256: computed,
		Match:          computed == doc.OriginalSHA256,
		CheckedAt:      time.Now().UTC(),
	}
	if !report.Match {
		telemetry.Error("document.integrity_mismatch", map[string]any{
			"document_id": documentID,
			"stored":      report.StoredSHA256,
			"computed":    report.ComputedSHA256,
		})
	}
	return report, nil
}

// Resend retires a signer's outstanding link and mails a fresh one.
// Unlike Send, mail failure here is surfaced: a resend that sends
// nothing has not done its job.
func (s *Service) Resend(ctx context.Context, id Identity, documentID, signerEmail string) error {
	doc, err := s.getOwned(ctx, id, documentID)
	if err != nil {
		return err
	}
	if err := s.denyAdminWrite(doc, id); err != nil {
		return err
	}
	if doc.Status != StatusSent {
		return ErrConflict
	}
	signerEmail = strings.ToLower(strings.TrimSpace(signerEmail))
	signer, ok := findSigner(doc, signerEmail)
	if !ok {
		return ErrSignerNotFound
	}
	if signer.Signed {
		return ErrSignerAlreadySigned
	}

	if err := s.Tokens.InvalidateFor(ctx, documentID, signerEmail); err != nil {
		return fmt.Errorf("invalidate outstanding token: %w", err)
	}
	token, expiresAt, err := s.Tokens.Issue(ctx, documentID, signerEmail)
	if err != nil {
		return fmt.Errorf("issue token for %s: %w", signerEmail, err)
	}
	if err := s.Repo.SetSignerToken(ctx, documentID, signerEmail, util.HashBytes([]byte(token)), expiresAt); err != nil {
		return fmt.Errorf("store token for %s: %w", signerEmail, err)
	}
	s.record(ctx, id, documentID, audit.ActionTokenIssued, map[string]any{"signer": signerEmail, "resend": true})

	if s.Notifier == nil {
		return nil
	}
	err = s.Notifier.SendSigningRequest(ctx, notify.SigningRequest{
		DocumentID:    doc.ID,
		RequestID:     RequestIDFromContext(ctx),
		To:            signer.Email,
		SignerName:    signer.Name,
		DocumentTitle: doc.Title,
		SenderName:    s.SenderName,
		SigningURL:    s.SigningURL(token),
	})
	if err != nil {
		return fmt.Errorf("send signing request: %w", err)
	}
	return nil
}

// AuditTrail returns the document's audit entries, newest first.
func (s *Service) AuditTrail(ctx context.Context, id Identity, documentID string, limit, offset int) ([]audit.Entry, error) {
	if _, err := s.getOwned(ctx, id, documentID); err != nil {
		return nil, err
	}
	if s.Audit == nil {
		return []audit.Entry{}, nil
	}
	return s.Audit.List(ctx, documentID, limit, offset)
}

// getOwned loads a document and hides it from callers who are neither
// its owner nor an admin.
func (s *Service) getOwned(ctx context.Context, id Identity, documentID string) (Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return Document{}, errors.New("documentID is required")
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.OwnerID != id.UserID && !id.Admin {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// denyAdminWrite keeps admin access read-only on other users'
// documents.
func (s *Service) denyAdminWrite(doc Document, id Identity) error {
	if doc.OwnerID != id.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) record(ctx context.Context, id Identity, documentID string, action audit.Action, metadata map[string]any) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, audit.Entry{
		ActorID:    id.UserID,
		DocumentID: documentID,
		Action:     action,
		Metadata:   metadata,
		IPAddress:  id.IP,
		UserAgent:  id.UserAgent,
	})
}

func hasSigner(doc Document, email string) bool {
	_, ok := findSigner(doc, email)
	return ok
}

func findSigner(doc Document, email string) (Signer, bool) {
	for _, s := range doc.Signers {
		if s.Email == email {
			return s, true
		}
	}
	return Signer{}, false
}

func validStatus(status string) bool {
	switch status {
	case StatusDraft, StatusSent, StatusSigned, StatusRejected:
		return true
	}
	return false
}

// normalizeInput validates the draft metadata and returns the cleaned
// signer list. Emails are lowercased and must be unique per document.
func normalizeInput(in *DraftInput) ([]Signer, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(in.Signers))
	signers := make([]Signer, 0, len(in.Signers))
	for i, raw := range in.Signers {
		email := strings.ToLower(strings.TrimSpace(raw.Email))
		name := strings.TrimSpace(raw.Name)
		if email == "" || name == "" {
			return nil, fmt.Errorf("%w: signer name and email are required", ErrInvalidInput)
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid signer email %q", ErrInvalidInput, raw.Email)
		}
		if seen[email] {
			return nil, fmt.Errorf("%w: duplicate signer email %q", ErrInvalidInput, email)
		}
		seen[email] = true
		signers = append(signers, Signer{
			Name:     name,
			Email:    email,
			Position: i + 1,
		})
	}
	return signers, nil
}
