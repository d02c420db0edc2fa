package queue

import "encoding/json"

// Message kinds understood by the notification worker.
const (
	KindSigningRequest = "signing_request"
	KindSigned         = "signed"
	KindRejected       = "rejected"
)

// Message is the notification job sent to downstream queue consumers.
// Exactly one of the kind-specific field groups is populated.
type Message struct {
	Kind       string `json:"kind"`
	DocumentID string `json:"documentId"`
	RequestID  string `json:"requestId,omitempty"`

	To            string `json:"to"`
	DocumentTitle string `json:"documentTitle"`

	// signing_request fields.
	SignerName string `json:"signerName,omitempty"`
	SigningURL string `json:"signingUrl,omitempty"`
	SenderName string `json:"senderName,omitempty"`

	// signed fields.
	SignedBy string `json:"signedBy,omitempty"`

	// rejected fields.
	Reason     string `json:"reason,omitempty"`
	RejectedBy string `json:"rejectedBy,omitempty"`

	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
