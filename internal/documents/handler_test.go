package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/bootstrap"
	"esign-backend/internal/documents"
	"esign-backend/internal/shared/auth"
	"esign-backend/internal/shared/config"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		SigningBaseURL:  "https://esign.test",
		SenderName:      "Acme eSign",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app.Router
}

func samplePDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/sample.pdf")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func asGuest(id string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("X-Guest-Id", id)
	}
}

func asUser(t *testing.T, sub, email, name string) func(*http.Request) {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Sub: sub, Email: email, Name: name})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func uploadDraft(t *testing.T, router *gin.Engine, identity func(*http.Request), fileName string, file []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(file); err != nil {
		t.Fatalf("write file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	identity(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any, identity func(*http.Request)) *httptest.ResponseRecorder {
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
	if identity != nil {
		identity(req)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeDocument(t *testing.T, resp *httptest.ResponseRecorder) documents.Document {
	t.Helper()
	var doc documents.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

var twoSigners = `[{"name":"Ann","email":"ann@example.com"},{"name":"Bob","email":"bob@example.com"}]`

func TestCreateDraftAndFetch(t *testing.T) {
	router := newTestRouter(t)

	resp := uploadDraft(t, router, asGuest("g-1"), "sample.pdf", samplePDF(t), map[string]string{
		"title":   "Lease Agreement",
		"signers": twoSigners,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	doc := decodeDocument(t, resp)
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.Status != documents.StatusDraft {
		t.Fatalf("expected draft, got %s", doc.Status)
	}
	if doc.Title != "Lease Agreement" || doc.OriginalFileName != "sample.pdf" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount)
	}
	if len(doc.OriginalSHA256) != 64 {
		t.Fatalf("expected sha256 hex, got %q", doc.OriginalSHA256)
	}
	if doc.SignerCount != 2 {
		t.Fatalf("expected 2 signers, got %d", doc.SignerCount)
	}

	getResp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, nil, asGuest("g-1"))
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}
	fetched := decodeDocument(t, getResp)
	if fetched.ID != doc.ID || len(fetched.Signers) != 2 {
		t.Fatalf("unexpected fetched document: %+v", fetched)
	}
	if fetched.Signers[0].Email != "ann@example.com" {
		t.Fatalf("expected ann first, got %s", fetched.Signers[0].Email)
	}

	otherResp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, nil, asGuest("g-2"))
	if otherResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other guest, got %d", otherResp.Code)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	router := newTestRouter(t)

	resp := uploadDraft(t, router, asGuest("g-1"), "notes.txt", []byte("hello world"), map[string]string{"title": "Notes"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %q", envelope.Error.Code)
	}
}

func TestSendTransitionsAndConflicts(t *testing.T) {
	router := newTestRouter(t)
	owner := asUser(t, "google:u-1", "owner@example.com", "Olivia Owner")

	resp := uploadDraft(t, router, owner, "sample.pdf", samplePDF(t), map[string]string{
		"title":   "NDA",
		"signers": twoSigners,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	doc := decodeDocument(t, resp)

	sendResp := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+doc.ID+"/send", nil, owner)
	if sendResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", sendResp.Code, sendResp.Body.String())
	}
	sent := decodeDocument(t, sendResp)
	if sent.Status != documents.StatusSent {
		t.Fatalf("expected sent, got %s", sent.Status)
	}
	if sent.SentAt == nil {
		t.Fatalf("expected sentAt to be set")
	}
	for _, signer := range sent.Signers {
		if signer.TokenExpiresAt == nil {
			t.Fatalf("expected token expiry for %s", signer.Email)
		}
	}

	againResp := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+doc.ID+"/send", nil, owner)
	if againResp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second send, got %d", againResp.Code)
	}

	editResp := doJSON(t, router, http.MethodPatch, "/api/v1/documents/"+doc.ID, map[string]string{"title": "Renamed"}, owner)
	if editResp.Code != http.StatusConflict {
		t.Fatalf("expected 409 editing a sent document, got %d", editResp.Code)
	}
}

func TestSendWithoutSignersFails(t *testing.T) {
	router := newTestRouter(t)

	resp := uploadDraft(t, router, asGuest("g-1"), "sample.pdf", samplePDF(t), map[string]string{"title": "Empty"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	doc := decodeDocument(t, resp)

	sendResp := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+doc.ID+"/send", nil, asGuest("g-1"))
	if sendResp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for signerless send, got %d: %s", sendResp.Code, sendResp.Body.String())
	}
}

func TestRejectBySigner(t *testing.T) {
	router := newTestRouter(t)
	owner := asUser(t, "google:u-1", "owner@example.com", "Olivia Owner")

	resp := uploadDraft(t, router, owner, "sample.pdf", samplePDF(t), map[string]string{
		"title":   "NDA",
		"signers": twoSigners,
	})
	doc := decodeDocument(t, resp)
	if sendResp := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+doc.ID+"/send", nil, owner); sendResp.Code != http.StatusOK {
		t.Fatalf("send failed: %d", sendResp.Code)
	}

	outsider := asUser(t, "google:u-2", "carol@example.com", "Carol")
	denied := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reject", map[string]string{"reason": "not mine"}, outsider)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-signer, got %d", denied.Code)
	}

	ann := asUser(t, "google:u-3", "ann@example.com", "Ann")
	rejected := doJSON(t, router, http.MethodPost, "/api/v1/documents/"+doc.ID+"/reject", map[string]string{"reason": "wrong terms"}, ann)
	if rejected.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rejected.Code, rejected.Body.String())
	}
	rejectedDoc := decodeDocument(t, rejected)
	if rejectedDoc.Status != documents.StatusRejected {
		t.Fatalf("expected rejected, got %s", rejectedDoc.Status)
	}
	if rejectedDoc.RejectedBy != "ann@example.com" || rejectedDoc.RejectionReason != "wrong terms" {
		t.Fatalf("unexpected rejection details: %+v", rejectedDoc)
	}
}

func TestDownloadOriginal(t *testing.T) {
	router := newTestRouter(t)
	pdf := samplePDF(t)

	resp := uploadDraft(t, router, asGuest("g-1"), "sample.pdf", pdf, map[string]string{"title": "Contract"})
	doc := decodeDocument(t, resp)

	dlResp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/download", nil, asGuest("g-1"))
	if dlResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", dlResp.Code)
	}
	if ct := dlResp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if cd := dlResp.Header().Get("Content-Disposition"); !strings.Contains(cd, "sample.pdf") {
		t.Fatalf("expected file name in disposition, got %q", cd)
	}
	if !bytes.Equal(dlResp.Body.Bytes(), pdf) {
		t.Fatalf("downloaded bytes differ from upload")
	}

	signedResp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/download?variant=signed", nil, asGuest("g-1"))
	if signedResp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unsigned variant, got %d", signedResp.Code)
	}
}

func TestAuditTrailOwnerOnly(t *testing.T) {
	router := newTestRouter(t)

	resp := uploadDraft(t, router, asGuest("g-1"), "sample.pdf", samplePDF(t), map[string]string{"title": "Contract"})
	doc := decodeDocument(t, resp)

	auditResp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/audit", nil, asGuest("g-1"))
	if auditResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", auditResp.Code)
	}
	var entries []map[string]any
	if err := json.NewDecoder(auditResp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected audit entries")
	}
	if entries[0]["action"] != "created" {
		t.Fatalf("expected created entry, got %v", entries[0]["action"])
	}

	otherResp := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID+"/audit", nil, asGuest("g-2"))
	if otherResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stranger, got %d", otherResp.Code)
	}
}

func TestMissingIdentityRejected(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/documents", nil, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
