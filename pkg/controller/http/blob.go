package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
)

// BlobOpener reads objects kept by an in-process blob store
type BlobOpener interface {
	Open(key string) ([]byte, string, error)
}

// blobHandler serves uploaded images for the memory blob store
func blobHandler(blobs BlobOpener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" || strings.Contains(key, "..") {
			handleError(w, r, goerr.Wrap(usecase.ErrInvalidInput, "invalid object key", goerr.V("key", key)))
			return
		}

		data, contentType, err := blobs.Open(key)
		if err != nil {
			handleError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
