package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins))
	r.POST("/api/v1/documents/:id/send", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestCORSPreflightAllowsListedOrigin(t *testing.T) {
	r := corsRouter("https://app.esign.test")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents/doc-1/send", nil)
	req.Header.Set("Origin", "https://app.esign.test")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.esign.test" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Guest-Id") {
		t.Fatalf("expected X-Guest-Id in Allow-Headers, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("expected Max-Age 600, got %q", got)
	}
}

func TestCORSSkipsUnlistedOrigin(t *testing.T) {
	r := corsRouter("https://app.esign.test")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/send", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected handler to run, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no Allow-Origin for unlisted origin, got %q", got)
	}
}

func TestCORSWildcardEchoesAnyOrigin(t *testing.T) {
	r := corsRouter("*")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/send", nil)
	req.Header.Set("Origin", "https://partner.example.net")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://partner.example.net" {
		t.Fatalf("expected origin echoed under wildcard, got %q", got)
	}
}
