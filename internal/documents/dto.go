package documents

// signerPayload is one signer entry in create and update requests.
type signerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// draftRequest carries the metadata for JSON create and update
// requests. Multipart uploads send the same fields as form values.
type draftRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Signers     []signerPayload `json:"signers"`
}

func (r draftRequest) toInput() DraftInput {
	in := DraftInput{Title: r.Title, Description: r.Description}
	for _, s := range r.Signers {
		in.Signers = append(in.Signers, SignerInput{Name: s.Name, Email: s.Email})
	}
	return in
}

type createFromS3Request struct {
	StorageKey       string          `json:"storageKey"`
	OriginalFileName string          `json:"originalFileName"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Signers          []signerPayload `json:"signers"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type resendRequest struct {
	SignerEmail string `json:"signerEmail"`
}
