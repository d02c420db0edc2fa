package signatures

// submitRequest is the JSON body shared by the token and authenticated
// signing endpoints. ImageData arrives base64-encoded per the usual
// encoding/json []byte convention.
type submitRequest struct {
	Method    string  `json:"method"`
	ImageData []byte  `json:"imageData"`
	TypedText string  `json:"typedText"`
	Page      int     `json:"page"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

func (r submitRequest) toSubmission() Submission {
	return Submission{
		Method:    r.Method,
		ImageData: r.ImageData,
		TypedText: r.TypedText,
		Placement: Placement{
			Page:   r.Page,
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
		},
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}
