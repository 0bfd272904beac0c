// Package storage holds the blob store backends for claim images.
package storage

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
)

// ErrObjectNotFound is returned when a key has no object
var ErrObjectNotFound = goerr.New("object not found")

var (
	_ interfaces.BlobStore = &Memory{}
	_ interfaces.BlobStore = &GCS{}
	_ interfaces.BlobStore = &S3{}
)

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
