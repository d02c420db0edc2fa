package documents

import "time"

// Document status values. Transitions are one-way: draft documents
// move to sent, sent documents end signed or rejected.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusSigned   = "signed"
	StatusRejected = "rejected"
)

// Signer is one requested signature on a document. Email is stored
// lowercase and identifies the signer within the document.
type Signer struct {
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Position       int        `json:"position"`
	Signed         bool       `json:"signed"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

// Document is a PDF routed through the signing workflow.
type Document struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"-"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	OriginalFileName string     `json:"originalFileName"`
	OriginalFileKey  string     `json:"-"`
	OriginalSHA256   string     `json:"originalSha256"`
	SizeBytes        int64      `json:"sizeBytes"`
	PageCount        int        `json:"pageCount"`
	SignedFileKey    string     `json:"-"`
	SentAt           *time.Time `json:"sentAt,omitempty"`
	SignedAt         *time.Time `json:"signedAt,omitempty"`
	RejectedAt       *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	RejectedBy       string     `json:"rejectedBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	Signers []Signer `json:"signers,omitempty"`

	// SignerCount and SignedCount are filled by list queries without
	// loading the full signer rows.
	SignerCount int `json:"signerCount"`
	SignedCount int `json:"signedCount"`
}

// Identity carries the acting principal through service calls so
// authorization and audit attribution stay together.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	Admin     bool
	IP        string
	UserAgent string
}
