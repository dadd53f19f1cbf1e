package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const uploadWorkers = 5

// UploadItem is one file submitted by the browser, content as a data URL or
// raw base64.
type UploadItem struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// PresignedUpload is the browser-side upload ticket issued instead of a
// direct write.
type PresignedUpload struct {
	Filename string            `json:"filename"`
	Key      string            `json:"key"`
	URL      string            `json:"url"`
	Fields   map[string]string `json:"fields"`
}

// UploadResult collects per-file outcomes; one bad file never aborts its
// siblings.
type UploadResult struct {
	Uploaded  []string          `json:"uploaded"`
	Presigned []PresignedUpload `json:"presigned,omitempty"`
	Failures  []string          `json:"failures,omitempty"`
}

// MetadataWriter is the slice of the metadata store the upload path needs.
type MetadataWriter interface {
	Insert(ctx context.Context, filePath string, tags []string) error
}

// DecodeUploadContent strips an optional data-URL header and decodes the
// base64 payload.
func DecodeUploadContent(content string) ([]byte, error) {
	if i := strings.IndexByte(content, ','); i >= 0 {
		content = content[i+1:]
	}
	return base64.StdEncoding.DecodeString(content)
}

// ParseTags splits a comma separated tag string, trimming blanks.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ParsePaths splits a comma separated path list, trimming blanks.
func ParsePaths(raw string) []string {
	return ParseTags(raw)
}

// UploadFiles stores every item under folder through a bounded worker pool.
// Direct uploads write the object then record its metadata; presigned mode
// issues POST policies instead of writing. Returns a status line, a tag
// summary and the per-file results.
func (s *StorageCache) UploadFiles(ctx context.Context, store ObjectStore, meta MetadataWriter,
	items []UploadItem, folder string, tags []string, usePresigned bool, presignExpiry time.Duration) (string, string, UploadResult) {

	var (
		mu     sync.Mutex
		result UploadResult
		wg     sync.WaitGroup
	)
	jobs := make(chan UploadItem)

	worker := func() {
		defer wg.Done()
		for item := range jobs {
			key := JoinKey(folder, item.Filename)

			if usePresigned {
				postURL, fields, err := store.PresignPost(ctx, key, presignExpiry)
				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", item.Filename, err))
				} else {
					result.Presigned = append(result.Presigned, PresignedUpload{
						Filename: item.Filename, Key: key, URL: postURL, Fields: fields,
					})
				}
				mu.Unlock()
				continue
			}

			content, err := DecodeUploadContent(item.Content)
			if err == nil {
				err = store.Put(ctx, key, content, "")
			}
			if err == nil && meta != nil {
				err = meta.Insert(ctx, S3URI(store.Bucket(), key), tags)
			}
			mu.Lock()
			if err != nil {
				result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", item.Filename, err))
			} else {
				result.Uploaded = append(result.Uploaded, key)
			}
			mu.Unlock()
		}
	}

	for i := 0; i < uploadWorkers; i++ {
		wg.Add(1)
		go worker()
	}
	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	sort.Strings(result.Uploaded)
	s.Invalidate(store.Bucket(), folder)

	processed := len(result.Uploaded) + len(result.Presigned)
	status := fmt.Sprintf("Processed %d file(s) in %s bucket.", processed, store.Bucket())
	tagsStatus := "No tags applied."
	if len(tags) > 0 {
		tagsStatus = fmt.Sprintf("Tags applied: %s", strings.Join(tags, ", "))
	}
	return status, tagsStatus, result
}
