// Package storage reads and writes page files under the vault root.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// PageExt is the extension of page files. Other files are ignored.
const PageExt = ".md"

// FileMeta describes one page file.
type FileMeta struct {
	Path      string // vault-relative, slash separated
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for page file operations. Paths are relative to
// the vault root.
type Provider interface {
	List(dir string) ([]FileMeta, error)
	Read(path string) ([]byte, error)
	// Write replaces the file atomically. Identical content is not rewritten.
	Write(path string, content []byte) error
	// Delete removes the file and any directories left empty by it.
	Delete(path string) error
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
