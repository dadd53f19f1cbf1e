package server

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	app "dashlab/src/app"
	cfg "dashlab/src/configuration"
)

type (
	FilesHandler struct {
		registry      ClientProvider
		cache         *app.StorageCache
		metadata      MetadataRepository
		defaultBucket string
		presignExpiry time.Duration
	}

	UploadBody struct {
		Bucket       string           `json:"bucket"`
		Folder       string           `json:"folder"`
		NewFolder    string           `json:"new_folder"`
		Tags         string           `json:"tags"`
		UsePresigned bool             `json:"use_presigned"`
		Files        []app.UploadItem `json:"files"`
	}

	MoveBody struct {
		Bucket       string `json:"bucket"`
		Key          string `json:"key"`
		TargetFolder string `json:"target_folder"`
		NewFolder    string `json:"new_folder"`
		NewName      string `json:"new_name"`
		Tags         string `json:"tags"`
	}

	DeleteBody struct {
		Bucket string `json:"bucket"`
		Paths  string `json:"paths"`
	}
)

const (
	bucketQueryParam = "bucket"
	folderQueryParam = "folder"
	keyQueryParam    = "key"
)

func NewFilesHandler(config *cfg.Properties, registry ClientProvider, cache *app.StorageCache, metadata MetadataRepository) *FilesHandler {
	return &FilesHandler{
		registry:      registry,
		cache:         cache,
		metadata:      metadata,
		defaultBucket: config.S3.DefaultBucket,
		presignExpiry: config.S3.PresignExpiry,
	}
}

// store resolves the bucket named in the request, falling back to the
// default bucket. Replies 500 and returns nil when no client can be built.
func (f *FilesHandler) store(c *gin.Context, bucket string) app.ObjectStore {
	if bucket == "" {
		bucket = f.defaultBucket
	}
	store, err := f.registry.Client(bucket)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not create storage client for bucket %s", bucket)})
		return nil
	}
	return store
}

func (f *FilesHandler) GetBuckets(c *gin.Context) {
	buckets := app.Buckets()
	if claims := currentClaims(c); claims != nil {
		buckets = claims.AllowedBuckets(buckets)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{
		"buckets": buckets,
		"default": f.defaultBucket,
	}})
}

func (f *FilesHandler) GetFolders(c *gin.Context) {
	store := f.store(c, c.Query(bucketQueryParam))
	if store == nil {
		return
	}
	folders := f.cache.ListFolders(c.Request.Context(), store)

	options := make([]app.FileOption, 0, len(folders))
	for _, folder := range folders {
		label := folder
		if label == "" {
			label = "(root)"
		}
		options = append(options, app.FileOption{Label: label, Value: folder})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": options})
}

func (f *FilesHandler) GetFiles(c *gin.Context) {
	store := f.store(c, c.Query(bucketQueryParam))
	if store == nil {
		return
	}
	recursive := c.Query("recursive") == "true"
	files := f.cache.ListFiles(c.Request.Context(), store, c.Query(folderQueryParam), recursive)
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": files})
}

func (f *FilesHandler) GetPreview(c *gin.Context) {
	key, ok := c.GetQuery(keyQueryParam)
	if !ok || key == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no key in query"})
		return
	}
	store := f.store(c, c.Query(bucketQueryParam))
	if store == nil {
		return
	}
	descriptor := f.cache.RenderPreview(c.Request.Context(), store, f.metadata, key, app.PreviewOptions{
		ShowDownload: true,
		ShowDelete:   true,
		AllowRename:  true,
	})
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": descriptor})
}

func (f *FilesHandler) Upload(c *gin.Context) {
	var body UploadBody
	if err := c.BindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "can not parse upload body"})
		return
	}
	if len(body.Files) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Please select files to upload."})
		return
	}
	store := f.store(c, body.Bucket)
	if store == nil {
		return
	}

	folder := strings.TrimSpace(body.NewFolder)
	if folder == "" {
		folder = body.Folder
	}
	if claims := currentClaims(c); claims != nil {
		allowed := app.AllowedFolders(claims.Username(), f.cache.ListFolders(c.Request.Context(), store))
		if !folderAllowed(folder, allowed) {
			c.JSON(http.StatusOK, gin.H{"status": "error",
				"message": fmt.Sprintf("Folder %s is not available for upload.", folder)})
			return
		}
	}

	tags := app.ParseTags(body.Tags)
	status, tagsStatus, result := f.cache.UploadFiles(c.Request.Context(), store, f.metadata,
		body.Files, folder, tags, body.UsePresigned, f.presignExpiry)
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     status,
		"tags_status": tagsStatus,
		"uploaded":    result.Uploaded,
		"presigned":   result.Presigned,
		"failures":    result.Failures,
	})
}

// Move renames or relocates one object, then rewrites its metadata record.
// The storage move and the metadata update are two separate writes: a
// missing record is reported distinctly, not rolled back.
func (f *FilesHandler) Move(c *gin.Context) {
	var body MoveBody
	if err := c.BindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "can not parse move body"})
		return
	}
	if body.Key == "" {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "No file selected to update."})
		return
	}
	if !f.metadata.Available() {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Database connection not available."})
		return
	}
	store := f.store(c, body.Bucket)
	if store == nil {
		return
	}

	targetFolder := strings.TrimSpace(body.NewFolder)
	if targetFolder == "" {
		targetFolder = body.TargetFolder
	}
	filename := path.Base(body.Key)
	if name := strings.TrimSpace(body.NewName); name != "" {
		filename = name + path.Ext(body.Key)
	}

	newKey := body.Key
	currentFolder := app.FolderOf(body.Key)
	if app.NormalizeFolder(targetFolder) != currentFolder || filename != path.Base(body.Key) {
		newKey = app.JoinKey(targetFolder, filename)
		if err := f.cache.MoveFile(c.Request.Context(), store, body.Key, newKey); err != nil {
			c.IndentedJSON(http.StatusInternalServerError,
				gin.H{"status": "error", "message": "Error moving file: " + err.Error()})
			return
		}
	}

	oldPath := app.PublicURL(store.Bucket(), body.Key)
	newPath := app.PublicURL(store.Bucket(), newKey)
	matched, err := f.metadata.Update(c.Request.Context(), oldPath, newPath, app.ParseTags(body.Tags))
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"status": "error", "message": "Error updating metadata: " + err.Error()})
		return
	}
	if !matched {
		c.JSON(http.StatusOK, gin.H{"status": "success", "key": newKey,
			"message": "File metadata not found in database."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "key": newKey,
		"message": "File metadata and location updated successfully."})
}

// Delete removes the objects behind a comma separated list of public URLs,
// then drops their metadata records in one call.
func (f *FilesHandler) Delete(c *gin.Context) {
	var body DeleteBody
	if err := c.BindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "can not parse delete body"})
		return
	}
	paths := app.ParsePaths(body.Paths)
	if len(paths) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "Please enter file paths to delete."})
		return
	}
	store := f.store(c, body.Bucket)
	if store == nil {
		return
	}

	deleted := 0
	for _, filePath := range paths {
		key, ok := app.KeyFromPublicURL(filePath)
		if !ok {
			log.Warn().Str("path", filePath).Msg("skipping non-URL delete path")
			continue
		}
		if err := f.cache.DeleteFile(c.Request.Context(), store, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("could not delete file")
			continue
		}
		deleted++
	}
	if deleted == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "No valid paths provided for deletion."})
		return
	}
	if err := f.metadata.DeleteMany(c.Request.Context(), paths); err != nil {
		log.Error().Err(err).Msg("could not delete metadata records")
	}
	c.JSON(http.StatusOK, gin.H{"status": "success",
		"message": fmt.Sprintf("Deleted %d file(s).", deleted)})
}

func (f *FilesHandler) GetMetadata(c *gin.Context) {
	records := f.metadata.FindAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": records})
}

func folderAllowed(folder string, allowed []string) bool {
	normalized := app.NormalizeFolder(folder) + "/"
	for _, entry := range allowed {
		if normalized == entry || strings.HasPrefix(normalized, entry) {
			return true
		}
	}
	return false
}
