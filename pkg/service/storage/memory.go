package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// Memory keeps objects in process and serves them below baseURL
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

// NewMemory creates an in-process blob store. baseURL is the prefix of returned
// public URLs, e.g. http://localhost:8080/blobs
func NewMemory(baseURL string) *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		baseURL: baseURL,
	}
}

func (m *Memory) Put(ctx context.Context, key, contentType string, data io.Reader, size int64) (string, error) {
	limit := size
	if limit <= 0 {
		limit = 1 << 30
	}
	buf, err := safe.ReadAll(data, limit)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read object", goerr.V("key", key))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: buf, contentType: contentType}
	return joinURL(m.baseURL, key), nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, _, err := m.Open(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Open returns the object bytes and content type for serving over HTTP
func (m *Memory) Open(key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", goerr.Wrap(ErrObjectNotFound, "object not found", goerr.V("key", key))
	}
	return obj.data, obj.contentType, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return goerr.Wrap(ErrObjectNotFound, "object not found", goerr.V("key", key))
	}
	delete(m.objects, key)
	return nil
}
