// Package storage keeps uploaded invoice PDFs, in Cloud Storage or in memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned for an unknown object.
var ErrNotExist = errors.New("object does not exist")

// Documents stores document bytes under object keys.
type Documents interface {
	// Put writes r under key and returns the object URI.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Get reads the whole object.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// ObjectName builds a unique key for an uploaded file,
// e.g. "invoices/2024/06/01/<uuid>-bill.pdf".
func ObjectName(now time.Time, filename string) string {
	return fmt.Sprintf("invoices/%s/%s-%s", now.Format("2006/01/02"), uuid.New().String(), CleanFilename(filename))
}

// CleanFilename strips any directory and query part from a client filename.
func CleanFilename(name string) string {
	if idx := strings.Index(name, "?"); idx > 0 {
		name = name[:idx]
	}
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}

// ParseURI splits "gs://bucket/path/to/file.pdf" into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Memory is an in-process Documents implementation.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("Put: reading %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("Get %s: %w", key, ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
