// Package storage defines the journal file-system abstraction.
//
// The document tree is the single owner of record; everything the index
// holds is reconstructible by re-reading files through this interface.
package storage

import "github.com/starford/skald/internal/models"

// Provider is the interface for journal file operations.
type Provider interface {
	// List returns path and modification time for every .md file under dir
	// (relative to the journal root; "" lists the whole tree).
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Exists reports whether a file exists at path.
	Exists(path string) bool
}
