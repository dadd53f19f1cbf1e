package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	app "dashlab/src/app"
)

type (
	GalleryHandler struct {
		registry ClientProvider
		cache    *app.StorageCache
	}

	GalleryItem struct {
		Key  string `json:"key"`
		Kind string `json:"kind"`
		URL  string `json:"url"`
	}

	GalleryDeleteBody struct {
		Bucket string `json:"bucket"`
		Key    string `json:"key"`
	}
)

const galleryURLTTL = time.Hour

func NewGalleryHandler(registry ClientProvider, cache *app.StorageCache) *GalleryHandler {
	return &GalleryHandler{registry: registry, cache: cache}
}

func (g *GalleryHandler) store(c *gin.Context, bucket string) app.ObjectStore {
	store, err := g.registry.Client(bucket)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not create storage client for bucket %s", bucket)})
		return nil
	}
	return store
}

// GetFiles lists the media of one kind ("image" by default) with presigned
// view URLs. Images embed their thumbnails when available.
func (g *GalleryHandler) GetFiles(c *gin.Context) {
	store := g.store(c, c.Query(bucketQueryParam))
	if store == nil {
		return
	}
	kind := c.Query("type")
	if kind == "" {
		kind = "image"
	}

	ctx := c.Request.Context()
	keys := g.cache.ListAllKeys(ctx, store, c.Query(folderQueryParam))
	items := make([]GalleryItem, 0)
	for _, key := range app.FilterByKind(keys, kind) {
		viewKey := key
		if kind == "image" {
			if thumbKey := app.ThumbnailKey(key); g.cache.ThumbnailExists(ctx, store, thumbKey) {
				viewKey = thumbKey
			}
		}
		presignedURL := g.cache.PresignedURL(ctx, store, viewKey, galleryURLTTL)
		if presignedURL == "" {
			continue
		}
		items = append(items, GalleryItem{Key: key, Kind: kind, URL: presignedURL})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": items})
}

// GetMap returns the geotagged images of a folder with coordinates and
// fresh thumbnail URLs.
func (g *GalleryHandler) GetMap(c *gin.Context) {
	store := g.store(c, c.Query(bucketQueryParam))
	if store == nil {
		return
	}
	ctx := c.Request.Context()
	keys := g.cache.ListAllKeys(ctx, store, c.Query(folderQueryParam))
	images := g.cache.ImagesWithGPS(ctx, store, app.FilterByKind(keys, "image"))
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": images})
}

func (g *GalleryHandler) DeleteFile(c *gin.Context) {
	var body GalleryDeleteBody
	if err := c.BindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "can not parse delete body"})
		return
	}
	if body.Key == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no key in body"})
		return
	}
	store := g.store(c, body.Bucket)
	if store == nil {
		return
	}
	if err := g.cache.DeleteFile(c.Request.Context(), store, body.Key); err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": "can not delete file: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": fmt.Sprintf("Deleted %s.", body.Key)})
}
