package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	app "dashlab/src/app"
	cfg "dashlab/src/configuration"
	db "dashlab/src/repository"
)

// ClientProvider hands out per-bucket object stores.
type ClientProvider interface {
	Client(bucket string) (app.ObjectStore, error)
}

// MetadataRepository is the metadata surface the handlers depend on.
type MetadataRepository interface {
	Available() bool
	Insert(ctx context.Context, filePath string, tags []string) error
	FindAll(ctx context.Context) []db.FileMetadataRecord
	TagsForKey(ctx context.Context, key string) ([]string, bool)
	Update(ctx context.Context, oldPath, newPath string, tags []string) (bool, error)
	DeleteMany(ctx context.Context, paths []string) error
}

func RunServer(config *cfg.Properties) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(RequestID())

	registry := app.NewClientRegistry(config.S3)
	cache := app.NewStorageCache()
	metadata := db.NewMetadataStore(context.Background(), config.Mongo)
	if !metadata.Available() {
		log.Warn().Msg("file metadata features disabled")
	}

	authHandler := NewAuthHandler(config)
	filesHandler := NewFilesHandler(config, registry, cache, metadata)
	galleryHandler := NewGalleryHandler(registry, cache)
	slidesHandler := NewSlidesHandler(config.Slides)
	externalHandler := NewExternalHandler(config, registry)

	pprof.Register(router)
	router.Use(authHandler.RequireLogin())

	// Public routes, matched by the gate's allow-list.
	router.GET("/health", authHandler.GetHealth)
	router.GET("/", authHandler.Home)
	router.GET("/login", authHandler.Login)
	router.GET("/callback", authHandler.Callback)
	router.GET("/logout", authHandler.Logout)

	router.GET("/account", authHandler.Account)

	router.GET("/file-explorer/buckets", filesHandler.GetBuckets)
	router.GET("/file-explorer/folders", filesHandler.GetFolders)
	router.GET("/file-explorer/files", filesHandler.GetFiles)
	router.GET("/file-explorer/preview", filesHandler.GetPreview)
	router.GET("/file-explorer/metadata", filesHandler.GetMetadata)
	router.POST("/file-explorer/upload", filesHandler.Upload)
	router.POST("/file-explorer/move", filesHandler.Move)
	router.POST("/file-explorer/delete", filesHandler.Delete)

	router.GET("/gallery/files", galleryHandler.GetFiles)
	router.GET("/gallery/map", galleryHandler.GetMap)
	router.DELETE("/gallery/files", galleryHandler.DeleteFile)

	router.GET("/slides-gallery", slidesHandler.GetSlides)

	router.GET("/splitbox/split", externalHandler.SplitSources)
	router.GET("/splitbox/analyze", externalHandler.Analyze)
	router.GET("/splitbox/analyses", externalHandler.ListAnalyses)

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	router.Run(fmt.Sprintf(":%s", config.Server.Port))
}

// RequestID tags every request with an id for log correlation, honoring the
// one sent by the client.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Set("request_id", id)
		c.Next()
	}
}
