// Package fileid derives content digests used to recognize files that were already ingested.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

const prefix = "sha256:"

// Digest returns a stable identifier for the given bytes.
// Identical content always yields the same digest, whatever the file name.
func Digest(content []byte) string {
	hash := sha256.Sum256(content)
	return prefix + hex.EncodeToString(hash[:])
}

// FileDigest streams the file at path through the hash without loading it whole.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}
