package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var signingRequestTmpl = template.Must(template.New("signing_request").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Signature requested</h2>
  <p>Hello {{.SignerName}},</p>
  <p>{{.SenderName}} has asked you to sign <strong>{{.DocumentTitle}}</strong>.</p>
  <p style="text-align: center;">
    <a href="{{.SigningURL}}" style="display: inline-block; background-color: #2d6cdf; color: white; text-decoration: none; padding: 10px 20px; border-radius: 5px;">Review and sign</a>
  </p>
  <p>If the button does not work, open this link:<br>{{.SigningURL}}</p>
  <p style="font-size: 12px; color: #777;">This link is personal to you and can be used once. If you were not expecting this document, you can ignore this message.</p>
</body>
</html>
`))

var signedNoticeTmpl = template.Must(template.New("signed_notice").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Document completed</h2>
  <p><strong>{{.DocumentTitle}}</strong> has been signed by all parties.</p>
  {{if .SignedBy}}<p>Final signature by {{.SignedBy}}.</p>{{end}}
  <p>The completed document is available in your account.</p>
</body>
</html>
`))

var rejectionNoticeTmpl = template.Must(template.New("rejection_notice").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Document declined</h2>
  <p><strong>{{.DocumentTitle}}</strong> was declined by {{.RejectedBy}}.</p>
  {{if .Reason}}<p>Reason given: {{.Reason}}</p>{{end}}
  <p>No further signatures will be collected for this document.</p>
</body>
</html>
`))

func renderSigningRequest(req SigningRequest) (subject, body string, err error) {
	subject = fmt.Sprintf("%s asked you to sign %q", req.SenderName, req.DocumentTitle)
	var buf bytes.Buffer
	if err := signingRequestTmpl.Execute(&buf, req); err != nil {
		return "", "", fmt.Errorf("render signing request: %w", err)
	}
	return subject, buf.String(), nil
}

func renderSignedNotice(notice SignedNotice) (subject, body string, err error) {
	subject = fmt.Sprintf("%q is fully signed", notice.DocumentTitle)
	var buf bytes.Buffer
	if err := signedNoticeTmpl.Execute(&buf, notice); err != nil {
		return "", "", fmt.Errorf("render signed notice: %w", err)
	}
	return subject, buf.String(), nil
}

func renderRejectionNotice(notice RejectionNotice) (subject, body string, err error) {
	subject = fmt.Sprintf("%q was declined", notice.DocumentTitle)
	var buf bytes.Buffer
	if err := rejectionNoticeTmpl.Execute(&buf, notice); err != nil {
		return "", "", fmt.Errorf("render rejection notice: %w", err)
	}
	return subject, buf.String(), nil
}
