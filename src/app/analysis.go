package app

import (
	"context"
	"path"
	"strings"
)

func stem(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// AnalysisPrefix is the outputs folder where a user's analysis artifacts
// for one input file land. Keys under the user's own inputs keep their
// relative subfolder path with only the extension stripped; anything else
// falls back to the basename.
func AnalysisPrefix(fileKey, username string) string {
	rel := path.Base(fileKey)
	if userInputs := username + "/inputs/"; strings.HasPrefix(fileKey, userInputs) {
		rel = strings.TrimPrefix(fileKey, userInputs)
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return username + "/outputs/" + rel + "/analysis/"
}

// VizFileKey is the expected visualization artifact for one input file.
func VizFileKey(fileKey, username string) string {
	return AnalysisPrefix(fileKey, username) + stem(fileKey) + "_viz.json"
}

// VizExists probes for the visualization artifact of an input file.
func VizExists(ctx context.Context, store ObjectStore, fileKey, username string) bool {
	found, err := store.Exists(ctx, VizFileKey(fileKey, username))
	return err == nil && found
}

// ListVizFiles returns every visualization artifact already produced for an
// input file.
func ListVizFiles(ctx context.Context, store ObjectStore, fileKey, username string) []string {
	keys, err := store.List(ctx, AnalysisPrefix(fileKey, username), true)
	if err != nil {
		return []string{}
	}
	files := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "_viz.json") {
			files = append(files, key)
		}
	}
	return files
}
