package notify

import "context"

// SigningRequest asks one signer to sign a document via their
// single-use link.
type SigningRequest struct {
	DocumentID    string
	RequestID     string
	To            string
	SignerName    string
	DocumentTitle string
	SenderName    string
	SigningURL    string
}

// SignedNotice tells the document owner that every signer has signed.
type SignedNotice struct {
	DocumentID    string
	RequestID     string
	To            string
	DocumentTitle string
	SignedBy      string
}

// RejectionNotice tells the document owner that a signer declined.
type RejectionNotice struct {
	DocumentID    string
	RequestID     string
	To            string
	DocumentTitle string
	Reason        string
	RejectedBy    string
}

// Notifier delivers workflow notifications. Implementations may send
// mail directly or hand the job to a queue for the worker.
type Notifier interface {
	SendSigningRequest(ctx context.Context, req SigningRequest) error
	SendSignedNotice(ctx context.Context, notice SignedNotice) error
	SendRejectionNotice(ctx context.Context, notice RejectionNotice) error
}
