package main

// Stamp a signature image onto a PDF without running the server:
//   go run ./cmd/assembledemo -pdf contract.pdf -image signature.png

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"esign-backend/internal/assembly"
	"esign-backend/internal/shared/storage/object"
	localstore "esign-backend/internal/shared/storage/object/local"
)

func main() {
	pdfPath := flag.String("pdf", "", "path to the original PDF")
	imagePath := flag.String("image", "", "path to the signature image (png or jpeg)")
	outPath := flag.String("out", "./out/signed.pdf", "output path for the signed PDF")
	page := flag.Int("page", 1, "page to stamp")
	x := flag.Float64("x", 72, "x position in PDF points from the bottom-left corner")
	y := flag.Float64("y", 72, "y position in PDF points from the bottom-left corner")
	width := flag.Float64("width", 180, "rendered signature width in points")
	signer := flag.String("signer", "Demo Signer", "signer name for the caption")
	flag.Parse()

	if *pdfPath == "" || *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: assembledemo -pdf <file> -image <file> [-out <file>]")
		os.Exit(2)
	}

	if err := run(*pdfPath, *imagePath, *outPath, *page, *x, *y, *width, *signer); err != nil {
		fmt.Fprintf(os.Stderr, "assemble failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

func run(pdfPath, imagePath, outPath string, page int, x, y, width float64, signer string) error {
	dir, err := os.MkdirTemp("", "assembledemo")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	store := localstore.New(dir)
	ctx := context.Background()

	if err := copyIn(ctx, store, "original.pdf", "application/pdf", pdfPath); err != nil {
		return err
	}
	if err := copyIn(ctx, store, "signature.png", "image/png", imagePath); err != nil {
		return err
	}

	assembler := &assembly.PDFAssembler{Store: store}
	signedKey, err := assembler.AssembleSigned(ctx, assembly.Input{
		OriginalKey: "original.pdf",
		Signatures: []assembly.Placed{{
			Page:       page,
			X:          x,
			Y:          y,
			Width:      width,
			ImageKey:   "signature.png",
			SignerName: signer,
			SignedAt:   time.Now(),
		}},
	})
	if err != nil {
		return err
	}

	return copyOut(ctx, store, signedKey, outPath)
}

func copyIn(ctx context.Context, store object.ObjectStore, key, contentType, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = store.SaveWithKey(ctx, key, contentType, f)
	return err
}

func copyOut(ctx context.Context, store object.ObjectStore, key, outPath string) error {
	src, err := store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
