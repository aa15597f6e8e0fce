package blob

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
)

const memoryScheme = "mem://"

// Memory is a map-backed Store for dev and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailDeletes makes every Delete fail, to exercise retry paths.
	FailDeletes bool
	// FailPuts makes Put fail for filenames listed here.
	FailPuts map[string]bool
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

var errInjected = errors.New("blob: injected failure")

// Put stores the upload in memory.
func (m *Memory) Put(ctx context.Context, folder string, u Upload) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	fail := m.FailPuts[u.Filename]
	m.mu.Unlock()
	if fail {
		return Object{}, errInjected
	}
	data, err := io.ReadAll(u.Body)
	if err != nil {
		return Object{}, err
	}
	key := NewKey(folder, u.Filename)
	url := memoryScheme + key

	m.mu.Lock()
	m.objects[url] = data
	m.mu.Unlock()
	return Object{URL: url, Key: key, ContentType: u.ContentType, Size: int64(len(data))}, nil
}

// Delete drops the object.
func (m *Memory) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, memoryScheme) {
		return ErrForeign
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeletes {
		return errInjected
	}
	delete(m.objects, url)
	return nil
}

// Has reports whether url is stored.
func (m *Memory) Has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[url]
	return ok
}

// URLs lists stored URLs in sorted order.
func (m *Memory) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for u := range m.objects {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Bytes returns a copy of the stored content, or nil.
func (m *Memory) Bytes(url string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[url]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}
