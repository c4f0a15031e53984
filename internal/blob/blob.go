// Package blob abstracts the hosted file storage used for product images:
// bytes go in under a namespaced path, a publicly fetchable URL comes out.
package blob

import "context"

type Store interface {
	// Put stores data under path and returns the public URL it will be
	// served from.
	Put(ctx context.Context, path string, data []byte) (string, error)
}
