package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// captureStdout runs fn with os.Stdout redirected and returns what was
// written. Telemetry logs to stdout, so this is how log output is
// observed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read log output: %v", err)
	}
	return buf.String()
}

func lastLogLine(t *testing.T, out string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("expected log output")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	return payload
}

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), Auth("dev"), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set("documentId", "doc-1")
		c.Set("signerEmail", "alice@example.com")
		c.Set("statusTransition", "draft->sent")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	out := captureStdout(t, func() {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Guest-Id", "guest1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
	})
	payload := lastLogLine(t, out)

	required := []string{"request_id", "user_id", "document_id", "signer_email", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != "guest:guest1" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["document_id"] != "doc-1" {
		t.Fatalf("unexpected document_id: %v", payload["document_id"])
	}
	if payload["signer_email"] != "alice@example.com" {
		t.Fatalf("unexpected signer_email: %v", payload["signer_email"])
	}
	if payload["status_transition"] != "draft->sent" {
		t.Fatalf("unexpected status_transition: %v", payload["status_transition"])
	}
	if payload["level"] != "info" {
		t.Fatalf("expected info level for 200, got %v", payload["level"])
	}
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), Auth("dev"), Logging())
	router.GET("/bad", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"nope": true})
	})

	out := captureStdout(t, func() {
		req := httptest.NewRequest(http.MethodGet, "/bad", nil)
		req.Header.Set("X-Guest-Id", "guest1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
	})
	payload := lastLogLine(t, out)

	if payload["level"] != "warn" {
		t.Fatalf("expected warn level for 400, got %v", payload["level"])
	}
	if payload["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
}

func TestLoggingSkipsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Logging())
	router.OPTIONS("/any", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	out := captureStdout(t, func() {
		req := httptest.NewRequest(http.MethodOptions, "/any", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
	})
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no log output for preflight, got %q", out)
	}
}
