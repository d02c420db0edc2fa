package signatures

import "context"

// Repo stores signatures. Record is the critical operation: it must
// decide atomically whether this submission finished the document, so
// that exactly one caller sees allSigned=true.
type Repo interface {
	// Record stores the signature and flips the signer's signed flag
	// in one atomic step. Returns whether every signer on the document
	// has now signed. Fails with documents.ErrNotFound,
	// documents.ErrConflict (not sent), documents.ErrSignerNotFound,
	// or documents.ErrSignerAlreadySigned.
	Record(ctx context.Context, sig Signature) (allSigned bool, err error)
	// ListByDocument returns the document's signatures in submission
	// order.
	ListByDocument(ctx context.Context, documentID string) ([]Signature, error)
}
