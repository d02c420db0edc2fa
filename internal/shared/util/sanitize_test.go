package util

import "testing"

func TestSanitizeFileNameFlattensSeparators(t *testing.T) {
	got, err := SanitizeFileName("contracts/2026\\master.pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "contracts_2026_master.pdf" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestSanitizeFileNameStripsControlCharacters(t *testing.T) {
	got, err := SanitizeFileName("nda\x00\x1f.pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "nda.pdf" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestSanitizeFileNameRejectsTraversalAndEmpty(t *testing.T) {
	for _, name := range []string{"../../etc/passwd", "..", "   ", "", "\x01\x02"} {
		if _, err := SanitizeFileName(name); err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
}
