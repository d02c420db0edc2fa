package documents

import "errors"

var (
	// ErrNotFound means the document does not exist or the caller may
	// not see it.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput covers malformed or incomplete request data.
	ErrInvalidInput = errors.New("invalid document input")
	// ErrForbidden means the caller is authenticated but not allowed
	// to perform this operation on the document.
	ErrForbidden = errors.New("operation not allowed for this user")
	// ErrConflict means the document's status does not permit the
	// requested transition.
	ErrConflict = errors.New("document status does not allow this operation")
	// ErrSignerNotFound means the referenced signer is not on the
	// document's signer list.
	ErrSignerNotFound = errors.New("signer not found on document")
	// ErrSignerAlreadySigned means the signer has already recorded a
	// signature.
	ErrSignerAlreadySigned = errors.New("signer has already signed")
)
