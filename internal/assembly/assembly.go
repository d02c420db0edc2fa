package assembly

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/telemetry"
)

// Placed is one signature to stamp onto the final document. X and Y
// are PDF points from the page's bottom-left corner; Width is the
// rendered signature width in points.
type Placed struct {
	Page       int
	X          float64
	Y          float64
	Width      float64
	Height     float64
	ImageKey   string
	SignerName string
	SignedAt   time.Time
}

// Input names the original file and the signatures to stamp.
type Input struct {
	OriginalKey string
	Signatures  []Placed
}

// Assembler produces the signed rendition of a document.
type Assembler interface {
	AssembleSigned(ctx context.Context, in Input) (signedKey string, err error)
}

// PDFAssembler stamps signatures onto the original PDF with pdfcpu
// and stores the result next to the original.
type PDFAssembler struct {
	Store object.ObjectStore
}

var _ Assembler = (*PDFAssembler)(nil)

// AssembleSigned renders every signature onto its page and saves the
// signed copy. The original object is left untouched.
func (a *PDFAssembler) AssembleSigned(ctx context.Context, in Input) (string, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveAssemblyDurationMs(float64(time.Since(start)) / float64(time.Millisecond))
	}()

	original, err := a.readObject(ctx, in.OriginalKey)
	if err != nil {
		return "", fmt.Errorf("assemble %s: read original: %w", in.OriginalKey, err)
	}

	marks := make(map[int][]*model.Watermark)
	for _, sig := range in.Signatures {
		wm, err := a.watermarkFor(ctx, sig)
		if err != nil {
			return "", fmt.Errorf("assemble %s: signature for %s: %w", in.OriginalKey, sig.SignerName, err)
		}
		marks[sig.Page] = append(marks[sig.Page], wm)
	}

	var out bytes.Buffer
	if err := api.AddWatermarksMap(bytes.NewReader(original), &out, marks, nil); err != nil {
		return "", fmt.Errorf("assemble %s: stamp: %w", in.OriginalKey, err)
	}

	signedKey := SignedKeyFor(in.OriginalKey)
	if _, err := a.Store.SaveWithKey(ctx, signedKey, "application/pdf", bytes.NewReader(out.Bytes())); err != nil {
		return "", fmt.Errorf("assemble %s: save signed copy: %w", in.OriginalKey, err)
	}
	return signedKey, nil
}

// watermarkFor builds the stamp for one signature. Signatures without
// a usable image fall back to a text stamp so assembly never fails on
// a bad upload.
func (a *PDFAssembler) watermarkFor(ctx context.Context, sig Placed) (*model.Watermark, error) {
	if sig.ImageKey != "" {
		wm, err := a.imageWatermark(ctx, sig)
		if err == nil {
			return wm, nil
		}
		telemetry.Warn("assembly.image_fallback", map[string]any{
			"image_key": sig.ImageKey,
			"error":     err.Error(),
		})
	}
	return api.TextWatermark(FallbackText(sig.SignerName, sig.SignedAt), textDesc(sig.X, sig.Y), true, false, types.POINTS)
}

func (a *PDFAssembler) imageWatermark(ctx context.Context, sig Placed) (*model.Watermark, error) {
	data, err := a.readObject(ctx, sig.ImageKey)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode signature image: %w", err)
	}
	scale := ImageScale(sig.Width, cfg.Width)
	return api.ImageWatermarkForReader(bytes.NewReader(data), imageDesc(sig.X, sig.Y, scale), true, false, types.POINTS)
}

func (a *PDFAssembler) readObject(ctx context.Context, key string) ([]byte, error) {
	body, err := a.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// SignedKeyFor derives the storage key of the signed rendition.
func SignedKeyFor(originalKey string) string {
	return originalKey + ".signed.pdf"
}

// ImageScale converts a target width in points into a pdfcpu scale
// factor against the image's natural width. Images render at one
// point per pixel, and pdfcpu caps the factor at 1.
func ImageScale(targetWidth float64, naturalWidth int) float64 {
	if targetWidth <= 0 || naturalWidth <= 0 {
		return 1
	}
	scale := targetWidth / float64(naturalWidth)
	if scale > 1 {
		return 1
	}
	return scale
}

// FallbackText is the stamp used when a signature has no image.
func FallbackText(signerName string, signedAt time.Time) string {
	return fmt.Sprintf("Signed by %s on %s", signerName, signedAt.UTC().Format("2006-01-02"))
}

func imageDesc(x, y, scale float64) string {
	return fmt.Sprintf("pos:bl, off:%.1f %.1f, scalefactor:%.2f abs, rot:0", x, y, scale)
}

func textDesc(x, y float64) string {
	return fmt.Sprintf("font:Helvetica, points:12, pos:bl, off:%.1f %.1f, scalefactor:1 abs, rot:0", x, y)
}
