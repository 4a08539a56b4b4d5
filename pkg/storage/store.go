// Package storage uploads generated certificate PDFs to an object store.
package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrObjectExists is returned by Put when the target path is already taken.
// Stores never overwrite.
var ErrObjectExists = errors.New("object already exists")

// ObjectStore is the contract shared by every backend.
type ObjectStore interface {
	// Put writes data under path and returns its public URL.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// Delete removes path. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
