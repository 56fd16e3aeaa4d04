// Package blob abstracts receipt-image storage behind a small capability
// interface so the data layer and tests stay independent of S3.
package blob

import (
	"context"
	"io"
	"path"
)

// Store is the object-storage capability used for receipt images.
type Store interface {
	// Upload writes the object under key with the given content type.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	// PresignGet exchanges a key for a time-limited download URL.
	PresignGet(ctx context.Context, key string) (string, error)
	// Delete removes the object. Callers treat failures as best-effort.
	Delete(ctx context.Context, key string) error
}

// Key builds the object key "<folder>/<id><ext>" where ext is taken from the
// uploaded filename.
func Key(folder, id, filename string) string {
	return folder + "/" + id + path.Ext(filename)
}
