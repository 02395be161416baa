package object

import (
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"

	"onboarding-backend/internal/shared/util"
)

// NewKey returns a fresh storage key of the form "<owner hash>/<uuid>_<name>".
// The employee id never appears in the key.
func NewKey(ownerID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashOwnerKey(ownerID), uuid.NewString()+"_"+name), nil
}

// CountingReader counts bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
