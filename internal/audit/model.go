package audit

import "time"

// Action enumerates auditable workflow events.
type Action string

const (
	ActionCreated          Action = "created"
	ActionUpdated          Action = "updated"
	ActionViewed           Action = "viewed"
	ActionSent             Action = "sent"
	ActionSigned           Action = "signed"
	ActionRejected         Action = "rejected"
	ActionSignatureAdded   Action = "signature_added"
	ActionSignatureRemoved Action = "signature_removed"
	ActionDownloaded       Action = "downloaded"
	ActionDeleted          Action = "deleted"
	ActionTokenIssued      Action = "token_issued"
	ActionTokenVerified    Action = "token_verified"
	ActionTokenDenied      Action = "token_denied"
	ActionTokenInvalidated Action = "token_invalidated"
	ActionLogin            Action = "login"
	ActionLoginFailed      Action = "login_failed"
)

// Outcome records whether the audited action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

// Entry is one append-only audit record. ActorID is empty for
// anonymous token-based actions.
type Entry struct {
	ID           string
	ActorID      string
	DocumentID   string
	Action       Action
	Outcome      Outcome
	ErrorMessage string
	Metadata     map[string]any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
