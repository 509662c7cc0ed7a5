//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"context"
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

// BasicClient stages files in a bucket under a fixed key prefix.
type BasicClient interface {
	Lister
	BufferPutter
	Deleter
	// URL returns the s3:// URL of key including the client prefix.
	URL(key string) string
}

type Lister interface {
	List(ctx context.Context, key string) (keys []string, err error)
}

// BufferPutter can be used to put a file to S3 since File implements Read and Seek.
type BufferPutter interface {
	BufferPut(ctx context.Context, key string, buf io.ReadSeeker) (err error)
}

type Deleter interface {
	Delete(ctx context.Context, key string) error
}
