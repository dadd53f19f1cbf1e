package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisPrefix(t *testing.T) {
	t.Run("OwnInputKeepsRelativePath", func(t *testing.T) {
		assert.Equal(t, "alice/outputs/track/analysis/",
			AnalysisPrefix("alice/inputs/track.mp3", "alice"))
	})

	t.Run("NestedInputKeepsSubfolders", func(t *testing.T) {
		assert.Equal(t, "pierre/outputs/recorded/New_file/analysis/",
			AnalysisPrefix("pierre/inputs/recorded/New_file.webm", "pierre"))
	})

	t.Run("ForeignKeyUsesBasename", func(t *testing.T) {
		assert.Equal(t, "alice/outputs/track/analysis/",
			AnalysisPrefix("shared/music/track.mp3", "alice"))
	})
}

func TestVizFileKey(t *testing.T) {
	assert.Equal(t, "alice/outputs/track/analysis/track_viz.json",
		VizFileKey("alice/inputs/track.mp3", "alice"))
	assert.Equal(t, "pierre/outputs/recorded/New_file/analysis/New_file_viz.json",
		VizFileKey("pierre/inputs/recorded/New_file.webm", "pierre"))
}

func TestVizLookups(t *testing.T) {
	ctx := context.Background()
	store := seedStore(
		"alice/outputs/track/analysis/track_viz.json",
		"alice/outputs/track/analysis/stems.wav",
	)

	t.Run("VizExists", func(t *testing.T) {
		assert.True(t, VizExists(ctx, store, "alice/inputs/track.mp3", "alice"))
		assert.False(t, VizExists(ctx, store, "alice/inputs/other.mp3", "alice"))
	})

	t.Run("ListVizFiles", func(t *testing.T) {
		files := ListVizFiles(ctx, store, "alice/inputs/track.mp3", "alice")
		assert.Equal(t, []string{"alice/outputs/track/analysis/track_viz.json"}, files)
	})
}
