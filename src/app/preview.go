package app

import (
	"context"
	"time"
)

const previewURLTTL = time.Hour

// TagLookup is the slice of the metadata store the preview path needs.
type TagLookup interface {
	TagsForKey(ctx context.Context, key string) ([]string, bool)
}

// PreviewOptions toggles the affordances a page exposes around a preview.
type PreviewOptions struct {
	ShowDownload bool
	ShowDelete   bool
	AllowRename  bool
}

// PreviewDescriptor tells a client how to render one file.
type PreviewDescriptor struct {
	Key         string   `json:"key"`
	Kind        string   `json:"kind"`
	EmbedURL    string   `json:"embed_url,omitempty"`
	Text        string   `json:"text,omitempty"`
	Message     string   `json:"message,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
	CanDelete   bool     `json:"can_delete"`
	CanRename   bool     `json:"can_rename"`
	Folder      string   `json:"folder,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// RenderPreview builds the descriptor for one key. Images embed their
// thumbnail when one exists, but the download URL always points at the
// original object.
func (s *StorageCache) RenderPreview(ctx context.Context, store ObjectStore, tags TagLookup, key string, opts PreviewOptions) PreviewDescriptor {
	kind := Classify(key)
	descriptor := PreviewDescriptor{Key: key, Kind: kind.String()}

	switch kind {
	case KindImage:
		embedKey := key
		if thumbKey := ThumbnailKey(key); s.ThumbnailExists(ctx, store, thumbKey) {
			embedKey = thumbKey
		}
		descriptor.EmbedURL = s.PresignedURL(ctx, store, embedKey, previewURLTTL)
	case KindPDF, KindVideo, KindAudio:
		descriptor.EmbedURL = s.PresignedURL(ctx, store, key, previewURLTTL)
	case KindText:
		data, err := store.Get(ctx, key)
		if err != nil {
			descriptor.Message = "Could not read file contents."
		} else {
			descriptor.Text = string(data)
		}
	default:
		descriptor.Message = "Preview not available for this file type."
	}
	if descriptor.Kind != "text" && descriptor.Message == "" && descriptor.EmbedURL == "" {
		descriptor.Message = "Preview not available."
	}

	if opts.ShowDownload {
		descriptor.DownloadURL = s.PresignedURL(ctx, store, key, previewURLTTL)
	}
	descriptor.CanDelete = opts.ShowDelete
	if opts.AllowRename {
		descriptor.CanRename = true
		descriptor.Folder = FolderOf(key)
	}
	if tags != nil {
		if found, ok := tags.TagsForKey(ctx, key); ok {
			descriptor.Tags = found
		}
	}
	return descriptor
}
