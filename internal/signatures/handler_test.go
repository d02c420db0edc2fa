package signatures_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/documents"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/signatures"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := bootstrap.Build(config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		SigningBaseURL:  "https://esign.test",
	})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

// sentDocumentID uploads a two-signer draft as a guest owner and sends
// it, returning the document id.
func sentDocumentID(t *testing.T, app *bootstrap.App) string {
	t.Helper()

	pdf, err := os.ReadFile("testdata/sample.pdf")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "contract.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(pdf); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("title", "Contract"); err != nil {
		t.Fatalf("write title: %v", err)
	}
	if err := writer.WriteField("signers", `[{"name":"Ann","email":"ann@example.com"},{"name":"Bob","email":"bob@example.com"}]`); err != nil {
		t.Fatalf("write signers: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "owner-guest")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create draft: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc documents.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}

	sendReq := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID+"/send", nil)
	sendReq.Header.Set("X-Guest-Id", "owner-guest")
	sendResp := httptest.NewRecorder()
	app.Router.ServeHTTP(sendResp, sendReq)
	if sendResp.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", sendResp.Code, sendResp.Body.String())
	}
	return doc.ID
}

func issueToken(t *testing.T, app *bootstrap.App, documentID, email string) string {
	t.Helper()
	token, _, err := app.Tokens.Issue(context.Background(), documentID, email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// postJSON sends a token-route request without any identity headers,
// the way an emailed signing link is opened.
func postJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func typedPayload(name string) map[string]any {
	return map[string]any{
		"method":    "typed",
		"typedText": name,
		"page":      1,
		"x":         72.0,
		"y":         120.0,
		"width":     180.0,
		"height":    40.0,
	}
}

func TestSigningContextWithoutSession(t *testing.T) {
	app := newTestApp(t)
	docID := sentDocumentID(t, app)
	token := issueToken(t, app, docID, "ann@example.com")

	resp := postJSON(t, app.Router, http.MethodGet, "/api/v1/sign/"+token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var sc signatures.SigningContext
	if err := json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		t.Fatalf("decode signing context: %v", err)
	}
	if sc.DocumentID != docID || sc.SignerEmail != "ann@example.com" {
		t.Fatalf("unexpected context: %+v", sc)
	}
	if sc.DocumentTitle != "Contract" || sc.Status != documents.StatusSent {
		t.Fatalf("unexpected context: %+v", sc)
	}
	if sc.AlreadySigned {
		t.Fatalf("expected alreadySigned false")
	}
	if sc.ExpiresAt.IsZero() {
		t.Fatalf("expected token expiry in context")
	}
}

func TestSigningContextUnknownToken(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app.Router, http.MethodGet, "/api/v1/sign/not-a-token", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "token_invalid" {
		t.Fatalf("expected token_invalid, got %q", envelope.Error.Code)
	}
}

func TestSubmitByTokenRetiresLink(t *testing.T) {
	app := newTestApp(t)
	docID := sentDocumentID(t, app)
	token := issueToken(t, app, docID, "ann@example.com")

	resp := postJSON(t, app.Router, http.MethodPost, "/api/v1/sign/"+token, typedPayload("Ann Example"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var result struct {
		Signature signatures.Signature `json:"signature"`
		AllSigned bool                 `json:"allSigned"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Signature.SignerEmail != "ann@example.com" || result.Signature.Method != "typed" {
		t.Fatalf("unexpected signature: %+v", result.Signature)
	}
	if result.AllSigned {
		t.Fatalf("one of two signers should not complete the document")
	}

	reuse := postJSON(t, app.Router, http.MethodPost, "/api/v1/sign/"+token, typedPayload("Ann Example"))
	if reuse.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on reused link, got %d", reuse.Code)
	}
}

func TestSubmitByTokenValidatesPlacement(t *testing.T) {
	app := newTestApp(t)
	docID := sentDocumentID(t, app)
	token := issueToken(t, app, docID, "ann@example.com")

	payload := typedPayload("Ann Example")
	payload["page"] = 9
	resp := postJSON(t, app.Router, http.MethodPost, "/api/v1/sign/"+token, payload)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range page, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRejectByTokenDeclinesDocument(t *testing.T) {
	app := newTestApp(t)
	docID := sentDocumentID(t, app)
	token := issueToken(t, app, docID, "bob@example.com")

	resp := postJSON(t, app.Router, http.MethodPost, "/api/v1/sign/"+token+"/reject", map[string]string{"reason": "outdated terms"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc documents.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Status != documents.StatusRejected || doc.RejectedBy != "bob@example.com" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.RejectionReason != "outdated terms" {
		t.Fatalf("unexpected reason: %q", doc.RejectionReason)
	}
}
