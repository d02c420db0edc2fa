package assembly

import (
	"strings"
	"testing"
	"time"
)

func TestSignedKeyFor(t *testing.T) {
	got := SignedKeyFor("documents/user-1/doc.pdf")
	want := "documents/user-1/doc.pdf.signed.pdf"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestImageScaleClampsToOne(t *testing.T) {
	if got := ImageScale(400, 200); got != 1 {
		t.Fatalf("upscaling must clamp to 1, got %f", got)
	}
}

func TestImageScaleShrinksWideImages(t *testing.T) {
	got := ImageScale(150, 600)
	if got != 0.25 {
		t.Fatalf("expected 0.25, got %f", got)
	}
}

func TestImageScaleDefaultsOnBadInput(t *testing.T) {
	if got := ImageScale(0, 600); got != 1 {
		t.Fatalf("zero target width must default to 1, got %f", got)
	}
	if got := ImageScale(150, 0); got != 1 {
		t.Fatalf("zero natural width must default to 1, got %f", got)
	}
}

func TestFallbackTextNamesSignerAndDate(t *testing.T) {
	at := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	got := FallbackText("Ana Diaz", at)
	if !strings.Contains(got, "Ana Diaz") {
		t.Fatalf("missing signer name: %s", got)
	}
	if !strings.Contains(got, "2026-03-15") {
		t.Fatalf("missing date: %s", got)
	}
}

func TestImageDescEncodesPlacement(t *testing.T) {
	got := imageDesc(72.5, 140, 0.25)
	if !strings.Contains(got, "off:72.5 140.0") {
		t.Fatalf("missing offset: %s", got)
	}
	if !strings.Contains(got, "scalefactor:0.25 abs") {
		t.Fatalf("missing scale factor: %s", got)
	}
	if !strings.Contains(got, "pos:bl") {
		t.Fatalf("missing anchor: %s", got)
	}
}

func TestTextDescUsesFixedFont(t *testing.T) {
	got := textDesc(10, 20)
	if !strings.Contains(got, "font:Helvetica") {
		t.Fatalf("missing font: %s", got)
	}
	if !strings.Contains(got, "off:10.0 20.0") {
		t.Fatalf("missing offset: %s", got)
	}
}
