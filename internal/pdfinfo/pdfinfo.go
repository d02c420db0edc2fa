package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF means the payload does not carry a PDF header.
	ErrNotPDF = errors.New("data is not a PDF")
	// ErrEmpty means the payload has no bytes at all.
	ErrEmpty = errors.New("empty file data")
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the payload starts with the PDF header. The
// header may be preceded by a UTF-8 BOM, which some generators emit.
func IsPDF(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return bytes.HasPrefix(data, pdfMagic)
}

// PageCount parses the payload as a PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmpty
	}
	if !IsPDF(data) {
		return 0, ErrNotPDF
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	pages := reader.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("parse pdf: no pages")
	}
	return pages, nil
}
