package pdfinfo

import (
	"errors"
	"os"
	"testing"
)

func TestIsPDFChecksHeader(t *testing.T) {
	if !IsPDF([]byte("%PDF-1.7\nrest")) {
		t.Fatal("expected PDF header to be recognized")
	}
	if !IsPDF(append([]byte{0xEF, 0xBB, 0xBF}, []byte("%PDF-1.4")...)) {
		t.Fatal("expected BOM-prefixed PDF header to be recognized")
	}
	if IsPDF([]byte("PK\x03\x04zipfile")) {
		t.Fatal("zip payload must not pass the PDF check")
	}
	if IsPDF(nil) {
		t.Fatal("nil payload must not pass the PDF check")
	}
}

func TestPageCountReadsPageTree(t *testing.T) {
	data, err := os.ReadFile("testdata/three_pages.pdf")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	pages, err := PageCount(data)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}
}

func TestPageCountRejectsEmptyData(t *testing.T) {
	if _, err := PageCount(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestPageCountRejectsNonPDF(t *testing.T) {
	if _, err := PageCount([]byte("hello world")); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestPageCountRejectsTruncatedPDF(t *testing.T) {
	if _, err := PageCount([]byte("%PDF-1.7\nnot a real body")); err == nil {
		t.Fatal("expected parse error for truncated PDF")
	}
}
