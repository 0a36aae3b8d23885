// Package storage defines the bundle directory file-system abstraction.
package storage

import "github.com/starford/saga/internal/models"

// Provider is the interface for bundle file operations.
type Provider interface {
	// List returns metadata for every .yaml/.yml file under dir (relative to root).
	List(dir string) ([]models.BundleFile, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}

// IsBundle reports whether name has a bundle file extension.
func IsBundle(name string) bool {
	return hasSuffixFold(name, ".yaml") || hasSuffixFold(name, ".yml")
}
