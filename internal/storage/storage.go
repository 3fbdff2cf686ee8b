// Package storage defines the Storage interface and common types for the
// backends that hold batch artifacts: the uploaded CSV sheets and the rendered
// credential PDFs. Artifacts are always streamed through the API (the batch
// PDF endpoint is staff-gated and slug-scoped), never served by signed URL,
// so the interface is a small put/get/delete/exists set.
//
// New backends are added by implementing the Storage interface and registering
// with the factory via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The router imports each backend with a blank import to trigger init(), so
// adding a backend requires no factory changes.
package storage

import (
	"context"
	"io"
)

// Storage stores and retrieves batch artifacts by path. Paths are
// forward-slash keys of the form "batches/<org-id>/<batch-id>/<file>"; the
// organization segment keeps tenants apart even at the object-store level.
type Storage interface {
	// Upload stores a file and returns the storage result with path and checksum.
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download retrieves a file and returns a reader the caller must close.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a file. Deleting an absent path is not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if a file exists at the specified path.
	Exists(ctx context.Context, path string) (bool, error)
}

// UploadResult contains information about an uploaded file.
type UploadResult struct {
	// Path is the storage path where the file was stored
	Path string

	// Size is the file size in bytes
	Size int64

	// Checksum is the SHA256 hash of the file contents
	Checksum string
}
