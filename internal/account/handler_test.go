package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/documents"
)

func newRouter(repo *documents.MemoryRepo, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(NewService(repo))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", false)
		c.Next()
	})
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return router
}

func seedDocument(t *testing.T, repo *documents.MemoryRepo, id, ownerID, status string) {
	t.Helper()
	now := time.Now().UTC()
	doc := documents.Document{
		ID:               id,
		OwnerID:          ownerID,
		Title:            "Agreement " + id,
		Status:           status,
		OriginalFileName: id + ".pdf",
		OriginalFileKey:  "objects/" + ownerID + "/" + id + ".pdf",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create document %s: %v", id, err)
	}
}

func TestClaimGuestMigratesDocuments(t *testing.T) {
	repo := documents.NewMemoryRepo()
	router := newRouter(repo, "user-1")

	guestID := "11111111-1111-1111-1111-111111111111"
	seedDocument(t, repo, "doc-1", "guest:"+guestID, documents.StatusDraft)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}

	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.MigratedDocuments != 1 {
		t.Fatalf("MigratedDocuments = %d, want 1", result.MigratedDocuments)
	}

	docs, err := repo.ListByOwner(context.Background(), "user-1", "", 10, 0)
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-1" {
		t.Fatalf("expected doc-1 under user-1, got %+v", docs)
	}
}

func TestClaimGuestIdempotentAndIsolated(t *testing.T) {
	repo := documents.NewMemoryRepo()
	router := newRouter(repo, "user-1")

	guestID := "22222222-2222-2222-2222-222222222222"
	seedDocument(t, repo, "doc-2", "guest:"+guestID, documents.StatusDraft)
	seedDocument(t, repo, "doc-3", "guest:33333333-3333-3333-3333-333333333333", documents.StatusDraft)

	claim := func() ClaimResult {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
		req.Header.Set("X-Guest-Id", guestID)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.Code)
		}
		var result ClaimResult
		if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return result
	}

	if first := claim(); first.MigratedDocuments != 1 {
		t.Fatalf("first claim moved %d, want 1", first.MigratedDocuments)
	}
	if second := claim(); second.MigratedDocuments != 0 {
		t.Fatalf("second claim moved %d, want 0", second.MigratedDocuments)
	}

	// The other guest's draft stays put.
	others, err := repo.ListByOwner(context.Background(), "guest:33333333-3333-3333-3333-333333333333", "", 10, 0)
	if err != nil {
		t.Fatalf("list other guest docs: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("other guest should keep 1 doc, got %d", len(others))
	}
}

func TestClaimGuestRequiresValidHeader(t *testing.T) {
	repo := documents.NewMemoryRepo()
	router := newRouter(repo, "user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing header status = %d, want 400", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", "not-a-uuid")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad header status = %d, want 400", resp.Code)
	}
}

func TestSummaryCountsByStatus(t *testing.T) {
	repo := documents.NewMemoryRepo()
	router := newRouter(repo, "user-1")

	seedDocument(t, repo, "doc-a", "user-1", documents.StatusDraft)
	seedDocument(t, repo, "doc-b", "user-1", documents.StatusDraft)
	seedDocument(t, repo, "doc-c", "user-1", documents.StatusSent)
	seedDocument(t, repo, "doc-d", "user-1", documents.StatusSigned)
	seedDocument(t, repo, "doc-e", "user-2", documents.StatusDraft)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/account/summary", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}

	var summary Summary
	if err := json.Unmarshal(resp.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.Total != 4 {
		t.Fatalf("Total = %d, want 4", summary.Total)
	}
	if summary.ByStatus[documents.StatusDraft] != 2 || summary.ByStatus[documents.StatusSent] != 1 || summary.ByStatus[documents.StatusSigned] != 1 {
		t.Fatalf("ByStatus = %v", summary.ByStatus)
	}
	if summary.ByStatus[documents.StatusRejected] != 0 {
		t.Fatalf("rejected count should be present and zero, got %v", summary.ByStatus)
	}
}
