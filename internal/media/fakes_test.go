package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/storage"
	goredis "github.com/redis/go-redis/v9"
)

type fakeStore struct {
	mu        sync.Mutex
	bucket    string
	exists    bool
	existsErr error
	failKeys  map[string]error
	failAll   error
	deleteErr error
	objects   map[string][]byte
	types     map[string]string
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bucket:   "products",
		exists:   true,
		failKeys: map[string]error{},
		objects:  map[string][]byte{},
		types:    map[string]string{},
	}
}

func (f *fakeStore) Bucket() string { return f.bucket }

func (f *fakeStore) BucketExists(context.Context) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) Upload(_ context.Context, key, contentType string, body io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if err, ok := f.failKeys[key]; ok {
		return err
	}
	if _, ok := f.objects[key]; ok {
		return storage.ErrObjectExists
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.example/%s/%s", f.bucket, key)
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) UploadProgressKey(id string) string { return "progress:" + id }

func (f *fakeRedis) StorageProbeKey() string { return "probe" }

var errBoom = errors.New("boom")

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000")
