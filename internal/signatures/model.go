package signatures

import "time"

// Signature methods. Drawn and uploaded signatures carry an image;
// typed signatures render the signer's name as text.
const (
	MethodDrawn    = "drawn"
	MethodTyped    = "typed"
	MethodUploaded = "uploaded"
)

// Placement locates a signature on a page of the document.
type Placement struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Signature is one recorded signing act. Immutable once stored.
type Signature struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"documentId"`
	SignerEmail string    `json:"signerEmail"`
	SignerName  string    `json:"signerName"`
	Method      string    `json:"method"`
	ImageKey    string    `json:"-"`
	Placement   Placement `json:"placement"`
	IPAddress   string    `json:"-"`
	UserAgent   string    `json:"-"`
	Verified    bool      `json:"verified"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Submission is a signer's signature payload before it is recorded.
type Submission struct {
	Method    string
	ImageData []byte
	TypedText string
	Placement Placement
}

// SigningContext is what a signing UI needs to render a token-based
// signing session without any authentication.
type SigningContext struct {
	DocumentID    string    `json:"documentId"`
	DocumentTitle string    `json:"documentTitle"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	PageCount     int       `json:"pageCount"`
	SignerName    string    `json:"signerName"`
	SignerEmail   string    `json:"signerEmail"`
	AlreadySigned bool      `json:"alreadySigned"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
