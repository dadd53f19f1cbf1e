package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	app "dashlab/src/app"
	cfg "dashlab/src/configuration"
)

type (
	// ExternalHandler proxies the SplitBox audio service. Every call is a
	// single attempt bounded by the configured timeout; the service may
	// take minutes on long tracks.
	ExternalHandler struct {
		splitHost     string
		timeout       time.Duration
		registry      ClientProvider
		defaultBucket string
	}

	// splitSourcesResponse covers both response shapes the service has
	// shipped: {"files": [...]} and {"outputs": [...]}.
	splitSourcesResponse struct {
		Files   []string `json:"files"`
		Outputs []string `json:"outputs"`
	}

	analyzeResponse struct {
		PlotFile string `json:"plot_file"`
	}
)

func NewExternalHandler(config *cfg.Properties, registry ClientProvider) *ExternalHandler {
	return &ExternalHandler{
		splitHost:     config.SplitBox.Host,
		timeout:       config.SplitBox.Timeout,
		registry:      registry,
		defaultBucket: config.S3.DefaultBucket,
	}
}

// SplitSources asks the service to split one stored track into stems and
// returns the produced file paths.
func (e *ExternalHandler) SplitSources(c *gin.Context) {
	key, ok := c.GetQuery(keyQueryParam)
	if !ok || key == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no key in query"})
		return
	}
	bucket := c.Query(bucketQueryParam)
	if bucket == "" {
		bucket = e.defaultBucket
	}

	endpoint := fmt.Sprintf("%s/split_sources?path=%s", e.splitHost, url.QueryEscape(app.S3URI(bucket, key)))
	body := e.fetch(c, endpoint)
	if body == nil {
		return
	}

	var parsed splitSourcesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": "can not parse split response: " + err.Error()})
		return
	}
	files := parsed.Files
	if len(files) == 0 {
		files = parsed.Outputs
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "files": files})
}

// Analyze requests an analysis run for a stored file and returns the plot
// artifact path.
func (e *ExternalHandler) Analyze(c *gin.Context) {
	path, ok := c.GetQuery("path")
	if !ok || path == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no path in query"})
		return
	}

	endpoint := fmt.Sprintf("%s/analyze?path=%s", e.splitHost, url.QueryEscape(path))
	if outputPath := c.Query("output_path"); outputPath != "" {
		endpoint += "&output_path=" + url.QueryEscape(outputPath)
	}
	body := e.fetch(c, endpoint)
	if body == nil {
		return
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": "can not parse analyze response: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "plot_file": parsed.PlotFile})
}

// ListAnalyses returns the visualization artifacts already produced for an
// input file, so the client can skip a fresh run.
func (e *ExternalHandler) ListAnalyses(c *gin.Context) {
	key, ok := c.GetQuery(keyQueryParam)
	if !ok || key == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "no key in query"})
		return
	}
	bucket := c.Query(bucketQueryParam)
	if bucket == "" {
		bucket = e.defaultBucket
	}
	store, err := e.registry.Client(bucket)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": "can not create storage client"})
		return
	}

	username := ""
	if claims := currentClaims(c); claims != nil {
		username = claims.Username()
	}
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{
		"files":  app.ListVizFiles(ctx, store, key, username),
		"exists": app.VizExists(ctx, store, key, username),
	}})
}

// fetch runs one bounded upstream GET. Timeouts surface as visible errors
// instead of silent retries. Returns nil after replying on failure.
func (e *ExternalHandler) fetch(c *gin.Context, endpoint string) []byte {
	ctx, cancel := context.WithTimeout(c.Request.Context(), e.timeout)
	defer cancel()

	result := make(chan []byte)
	errors := make(chan error)
	requestPipe := RequestPipeline{
		transport: &http.Transport{
			MaxIdleConns:       10,
			IdleConnTimeout:    e.timeout,
			DisableCompression: true,
		},
	}
	go requestPipe.Execute(http.MethodGet, endpoint, result, errors)

	select {
	case response := <-result:
		return response
	case err := <-errors:
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "response error", "error": err.Error()})
	case <-ctx.Done():
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "timeout", "error": fmt.Sprintf("timeout from server: %s", e.splitHost)})
	}
	return nil
}
