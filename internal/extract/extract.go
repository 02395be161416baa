// Package extract pulls the text layer out of uploaded PDFs so text-only
// models can read them.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// ErrNoTextLayer is returned for PDFs that only contain scanned images.
var ErrNoTextLayer = errors.New("pdf has no text layer")

// ErrNotPDF is returned when the payload is not a PDF.
var ErrNotPDF = errors.New("payload is not a pdf")

// IsPDF sniffs data and falls back to the declared MIME type.
func IsPDF(data []byte, declared string) bool {
	if len(data) > 0 && mimetype.Detect(data).Is(mimePDF) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(strings.Split(declared, ";")[0]), mimePDF)
}

// PDFText returns the plain text of a PDF, capped at maxChars when positive.
func PDFText(ctx context.Context, data []byte, maxChars int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !IsPDF(data, "") {
		return "", ErrNotPDF
	}
	text, err := readPDF(data)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoTextLayer
	}
	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return text, nil
}

func readPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
