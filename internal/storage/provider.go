// Package storage defines the export tree file-system abstraction.
package storage

import "github.com/starford/noteport/internal/models"

// Provider is the interface for file operations under one export root.
// All paths are relative to that root and use forward slashes.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Abs resolves a relative path against the root, rejecting escapes.
	Abs(path string) (string, error)
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Walk returns metadata for every regular file under dir.
	Walk(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Delete removes the file at path.
	Delete(path string) error
}
