package object

import (
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is how many leading bytes are inspected to detect a MIME type.
const SniffLen = 3072

// Sniff reads up to SniffLen bytes from r and detects the content type.
// Callers replay head in front of r when writing the object.
func Sniff(r io.Reader) (head []byte, mimeType string, err error) {
	buf := make([]byte, SniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", err
	}
	head = buf[:n]
	mt := mimetype.Detect(head)
	return head, normalizeMime(mt.String()), nil
}

func normalizeMime(s string) string {
	base, _, _ := strings.Cut(s, ";")
	return base
}
