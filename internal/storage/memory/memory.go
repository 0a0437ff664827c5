package memory

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Bucket is an in-memory object store, used for dry runs.
type Bucket struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewBucket() *Bucket { return &Bucket{objects: map[string][]byte{}} }

func (b *Bucket) Put(ctx context.Context, key string, body io.ReadSeeker, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

// Get returns a stored object.
func (b *Bucket) Get(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[key]
	return data, ok
}

// Keys lists stored keys in order.
func (b *Bucket) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size is the total number of stored bytes.
func (b *Bucket) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var n int64
	for _, v := range b.objects {
		n += int64(len(v))
	}
	return n
}
