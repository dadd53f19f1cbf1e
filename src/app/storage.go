package app

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	listTTL         = 5 * time.Minute
	thumbTTL        = 5 * time.Minute
	presignedWindow = 15 * time.Minute
	presignedSafety = time.Minute

	// ThumbnailPrefix mirrors the original key space: thumbnails/<key>.
	ThumbnailPrefix = "thumbnails/"
)

// FileOption is one selectable file entry: label relative to the listed
// folder, value the full object key.
type FileOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StorageCache fronts an ObjectStore with short-lived caches for listings,
// presigned URLs, thumbnail existence and GPS lookups. All read paths
// degrade to empty results on storage errors.
type StorageCache struct {
	folders   *TTLCache[[]string]
	lists     *TTLCache[[]string]
	presigned *TTLCache[string]
	thumbs    *TTLCache[bool]
	gpsMemo   *TTLCache[[]GPSCoordinate]
	now       func() time.Time
}

func NewStorageCache() *StorageCache {
	return &StorageCache{
		folders:   NewTTLCache[[]string](listTTL),
		lists:     NewTTLCache[[]string](listTTL),
		presigned: NewTTLCache[string](presignedWindow),
		thumbs:    NewTTLCache[bool](thumbTTL),
		gpsMemo:   NewTTLCache[[]GPSCoordinate](listTTL),
		now:       time.Now,
	}
}

// NormalizeFolder collapses the empty-ish folder spellings to one form so
// "", "/" and "foo/" cache and invalidate identically.
func NormalizeFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

func folderPrefix(folder string) string {
	folder = NormalizeFolder(folder)
	if folder == "" {
		return ""
	}
	return folder + "/"
}

// FolderOf returns the folder part of a key, "" for top-level keys.
func FolderOf(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i]
	}
	return ""
}

// JoinKey builds an object key from a folder and a file name.
func JoinKey(folder, name string) string {
	return folderPrefix(folder) + name
}

// ThumbnailKey maps an original key to its mirrored thumbnail key.
func ThumbnailKey(key string) string {
	return ThumbnailPrefix + key
}

func listSlot(bucket, folder string) string {
	return bucket + "|" + NormalizeFolder(folder)
}

// ListFolders returns the bucket's top-level folders with the root folder
// "" always first. Results are cached per bucket; storage errors yield an
// empty slice.
func (s *StorageCache) ListFolders(ctx context.Context, store ObjectStore) []string {
	bucket := store.Bucket()
	if bucket == "" {
		log.Warn().Msg("no bucket configured, skipping folder listing")
		return []string{}
	}
	if cached, ok := s.folders.Get(bucket); ok {
		return cached
	}

	keys, err := store.List(ctx, "", false)
	if err != nil {
		log.Error().Err(err).Str("bucket", bucket).Msg("could not list folders")
		return []string{}
	}
	folders := []string{""}
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			folders = append(folders, strings.TrimSuffix(key, "/"))
		}
	}
	s.folders.Put(bucket, folders)
	return folders
}

func (s *StorageCache) listKeys(ctx context.Context, store ObjectStore, folder string) ([]string, error) {
	slot := listSlot(store.Bucket(), folder)
	if cached, ok := s.lists.Get(slot); ok {
		return cached, nil
	}

	keys, err := store.List(ctx, folderPrefix(folder), true)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue // folder markers are not files
		}
		files = append(files, key)
	}
	s.lists.Put(slot, files)
	return files, nil
}

// ListFiles returns the files under a folder as options. When recursive is
// false, keys in nested subfolders are filtered out of the cached listing.
func (s *StorageCache) ListFiles(ctx context.Context, store ObjectStore, folder string, recursive bool) []FileOption {
	keys, err := s.listKeys(ctx, store, folder)
	if err != nil {
		log.Error().Err(err).Str("bucket", store.Bucket()).Str("folder", folder).Msg("could not list files")
		return []FileOption{}
	}

	prefix := folderPrefix(folder)
	options := make([]FileOption, 0, len(keys))
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		if !recursive && strings.Contains(rest, "/") {
			continue
		}
		options = append(options, FileOption{Label: rest, Value: key})
	}
	return options
}

// ListAllKeys returns the raw recursive key listing under a folder.
func (s *StorageCache) ListAllKeys(ctx context.Context, store ObjectStore, folder string) []string {
	keys, err := s.listKeys(ctx, store, folder)
	if err != nil {
		log.Error().Err(err).Str("bucket", store.Bucket()).Str("folder", folder).Msg("could not list keys")
		return []string{}
	}
	return keys
}

// Invalidate drops the folder listing for the bucket and the file listing
// for one folder, so the next read observes mutations.
func (s *StorageCache) Invalidate(bucket, folder string) {
	s.folders.Evict(bucket)
	s.lists.Evict(listSlot(bucket, folder))
}

// PresignedURL returns a time-limited GET URL for a key, cached well inside
// the signature lifetime. Content disposition is inline when the mime type
// is known, attachment otherwise. Returns "" when signing fails.
func (s *StorageCache) PresignedURL(ctx context.Context, store ObjectStore, key string, expiration time.Duration) string {
	slot := fmt.Sprintf("%s/%s/%d", store.Bucket(), key, int(expiration.Seconds()))
	if cached, ok := s.presigned.Get(slot); ok {
		return cached
	}

	reqParams := make(url.Values)
	if mimeType := mime.TypeByExtension(path.Ext(key)); mimeType != "" {
		reqParams.Set("response-content-disposition", "inline")
		reqParams.Set("response-content-type", mimeType)
	} else {
		reqParams.Set("response-content-disposition", "attachment")
	}

	presignedURL, err := store.PresignGet(ctx, key, expiration, reqParams)
	if err != nil {
		log.Error().Err(err).Str("bucket", store.Bucket()).Str("key", key).Msg("could not presign url")
		return ""
	}

	// Cached copies must die before the signature does.
	window := presignedWindow
	if safe := expiration - presignedSafety; safe < window {
		window = safe
	}
	s.presigned.PutUntil(slot, presignedURL, s.now().Add(window))
	return presignedURL
}

// ThumbnailExists probes storage for a thumbnail key. Only positive results
// are cached: a thumbnail may appear at any moment and must be picked up.
func (s *StorageCache) ThumbnailExists(ctx context.Context, store ObjectStore, thumbKey string) bool {
	slot := store.Bucket() + "|" + thumbKey
	if _, ok := s.thumbs.Get(slot); ok {
		return true
	}
	found, err := store.Exists(ctx, thumbKey)
	if err != nil || !found {
		return false
	}
	s.thumbs.Put(slot, true)
	return true
}

// SaveFile writes content under folder/filename and returns the public URL
// of the stored object. The folder listing is invalidated on success.
func (s *StorageCache) SaveFile(ctx context.Context, store ObjectStore, content []byte, filename, folder string) (string, error) {
	key := JoinKey(folder, filename)
	if err := store.Put(ctx, key, content, ""); err != nil {
		return "", err
	}
	s.Invalidate(store.Bucket(), folder)
	return PublicURL(store.Bucket(), key), nil
}

// DeleteFile removes an object and, for images, its mirrored thumbnail.
func (s *StorageCache) DeleteFile(ctx context.Context, store ObjectStore, key string) error {
	if err := store.Remove(ctx, key); err != nil {
		return err
	}
	if IsImage(key) {
		thumbKey := ThumbnailKey(key)
		if found, _ := store.Exists(ctx, thumbKey); found {
			if err := store.Remove(ctx, thumbKey); err != nil {
				log.Warn().Err(err).Str("key", thumbKey).Msg("could not remove thumbnail")
			}
		}
		s.thumbs.Evict(store.Bucket() + "|" + thumbKey)
	}
	s.Invalidate(store.Bucket(), FolderOf(key))
	return nil
}

// MoveFile copies an object to its new key, deletes the old one and keeps
// the thumbnail pair in sync. Both folder listings are invalidated.
func (s *StorageCache) MoveFile(ctx context.Context, store ObjectStore, oldKey, newKey string) error {
	if err := store.Copy(ctx, oldKey, newKey); err != nil {
		return err
	}
	if err := store.Remove(ctx, oldKey); err != nil {
		return err
	}

	if IsImage(oldKey) {
		oldThumb := ThumbnailKey(oldKey)
		if found, _ := store.Exists(ctx, oldThumb); found {
			if err := store.Copy(ctx, oldThumb, ThumbnailKey(newKey)); err != nil {
				log.Warn().Err(err).Str("key", oldThumb).Msg("could not move thumbnail")
			} else if err := store.Remove(ctx, oldThumb); err != nil {
				log.Warn().Err(err).Str("key", oldThumb).Msg("could not remove old thumbnail")
			}
		}
		s.thumbs.Evict(store.Bucket() + "|" + oldThumb)
	}

	s.Invalidate(store.Bucket(), FolderOf(oldKey))
	s.Invalidate(store.Bucket(), FolderOf(newKey))
	return nil
}

// KeyFromPublicURL extracts the object key from a persisted public URL.
func KeyFromPublicURL(filePath string) (string, bool) {
	if !strings.HasPrefix(filePath, "https://") {
		return "", false
	}
	parts := strings.SplitN(filePath, "/", 4)
	if len(parts) < 4 || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}
