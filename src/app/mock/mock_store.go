// Package mock holds the in-memory object store used across the test suites.
package mock

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is an in-memory object store. Listings behave like S3: recursive
// listings return full keys, non-recursive ones collapse nested keys into
// trailing-slash prefix markers.
type Store struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte

	ListCalls    int
	GetCalls     int
	PutCalls     int
	PresignCalls int

	FailList    bool
	FailGet     bool
	FailPut     bool
	FailPresign bool
}

func New(bucket string) *Store {
	return &Store{bucket: bucket, objects: make(map[string][]byte)}
}

// Seed inserts an object without counting as a Put.
func (s *Store) Seed(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

// Keys returns all stored keys, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) List(_ context.Context, prefix string, recursive bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListCalls++
	if s.FailList {
		return nil, fmt.Errorf("list failed")
	}

	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for key := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry := key
		if !recursive {
			rest := strings.TrimPrefix(key, prefix)
			if i := strings.Index(rest, "/"); i >= 0 {
				entry = prefix + rest[:i+1]
			}
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		keys = append(keys, entry)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.GetCalls++
	if s.FailGet {
		return nil, fmt.Errorf("get failed")
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PutCalls++
	if s.FailPut {
		return fmt.Errorf("put failed")
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("no such key: %s", key)
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) Copy(_ context.Context, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("no such key: %s", srcKey)
	}
	s.objects[dstKey] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

// PresignGet returns a unique URL per call so caching layers on top are
// observable.
func (s *Store) PresignGet(_ context.Context, key string, expires time.Duration, _ url.Values) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PresignCalls++
	if s.FailPresign {
		return "", fmt.Errorf("presign failed")
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s?sig=%d&expires=%d",
		s.bucket, key, s.PresignCalls, int(expires.Seconds())), nil
}

func (s *Store) PresignPost(_ context.Context, key string, expires time.Duration) (string, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PresignCalls++
	if s.FailPresign {
		return "", nil, fmt.Errorf("presign failed")
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/", s.bucket),
		map[string]string{"key": key, "x-amz-expires": fmt.Sprint(int(expires.Seconds()))}, nil
}
