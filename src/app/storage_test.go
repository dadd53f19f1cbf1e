package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashlab/src/app/mock"
)

func seedStore(keys ...string) *mock.Store {
	store := mock.New("dashlab-bucket")
	for _, key := range keys {
		store.Seed(key, []byte("data"))
	}
	return store
}

func TestListFolders(t *testing.T) {
	ctx := context.Background()

	t.Run("RootAlwaysFirst", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("alpha/a.txt", "beta/b.txt", "top.txt")

		folders := cache.ListFolders(ctx, store)
		assert.Equal(t, []string{"", "alpha", "beta"}, folders)
	})

	t.Run("CachedUntilInvalidated", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("alpha/a.txt")

		cache.ListFolders(ctx, store)
		store.Seed("gamma/c.txt", []byte("data"))
		assert.Equal(t, []string{"", "alpha"}, cache.ListFolders(ctx, store))

		cache.Invalidate(store.Bucket(), "")
		assert.Equal(t, []string{"", "alpha", "gamma"}, cache.ListFolders(ctx, store))
	})

	t.Run("ErrorYieldsEmpty", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("alpha/a.txt")
		store.FailList = true

		assert.Empty(t, cache.ListFolders(ctx, store))
	})

	t.Run("EmptyBucketName", func(t *testing.T) {
		cache := NewStorageCache()
		assert.Empty(t, cache.ListFolders(ctx, mock.New("")))
	})
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("NonRecursiveSkipsNested", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt", "docs/sub/b.txt", "other/c.txt")

		files := cache.ListFiles(ctx, store, "docs", false)
		require.Len(t, files, 1)
		assert.Equal(t, FileOption{Label: "a.txt", Value: "docs/a.txt"}, files[0])
	})

	t.Run("RecursiveKeepsNested", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt", "docs/sub/b.txt")

		files := cache.ListFiles(ctx, store, "docs", true)
		require.Len(t, files, 2)
		assert.Equal(t, "sub/b.txt", files[1].Label)
		assert.Equal(t, "docs/sub/b.txt", files[1].Value)
	})

	t.Run("FolderSpellingsShareSlot", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")

		cache.ListFiles(ctx, store, "docs", false)
		calls := store.ListCalls
		cache.ListFiles(ctx, store, "docs/", false)
		cache.ListFiles(ctx, store, " docs ", false)
		assert.Equal(t, calls, store.ListCalls)
	})

	t.Run("SecondListingServedFromCache", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")

		cache.ListFiles(ctx, store, "docs", false)
		cache.ListFiles(ctx, store, "docs", false)
		assert.Equal(t, 1, store.ListCalls)
	})

	t.Run("ErrorYieldsEmpty", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")
		store.FailList = true

		assert.Empty(t, cache.ListFiles(ctx, store, "docs", false))
	})
}

func TestPresignedURL(t *testing.T) {
	ctx := context.Background()

	t.Run("IdempotentWithinWindow", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")

		first := cache.PresignedURL(ctx, store, "docs/a.txt", time.Hour)
		second := cache.PresignedURL(ctx, store, "docs/a.txt", time.Hour)
		assert.NotEmpty(t, first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, store.PresignCalls)
	})

	t.Run("RegeneratedAfterWindow", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")

		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		clock := func() time.Time { return now }
		cache.now = clock
		cache.presigned.setClock(clock)

		first := cache.PresignedURL(ctx, store, "docs/a.txt", time.Hour)
		now = base.Add(16 * time.Minute)
		second := cache.PresignedURL(ctx, store, "docs/a.txt", time.Hour)
		assert.NotEqual(t, first, second)
		assert.Equal(t, 2, store.PresignCalls)
	})

	t.Run("ShortExpiryShrinksWindow", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")

		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		clock := func() time.Time { return now }
		cache.now = clock
		cache.presigned.setClock(clock)

		cache.PresignedURL(ctx, store, "docs/a.txt", 2*time.Minute)
		now = base.Add(90 * time.Second)
		cache.PresignedURL(ctx, store, "docs/a.txt", 2*time.Minute)
		assert.Equal(t, 2, store.PresignCalls)
	})

	t.Run("FailureReturnsEmpty", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt")
		store.FailPresign = true

		assert.Empty(t, cache.PresignedURL(ctx, store, "docs/a.txt", time.Hour))
	})
}

func TestThumbnailExists(t *testing.T) {
	ctx := context.Background()
	cache := NewStorageCache()
	store := seedStore("thumbnails/photos/a.jpg")

	assert.True(t, cache.ThumbnailExists(ctx, store, "thumbnails/photos/a.jpg"))
	assert.False(t, cache.ThumbnailExists(ctx, store, "thumbnails/photos/b.jpg"))
}

func TestSaveFile(t *testing.T) {
	ctx := context.Background()
	cache := NewStorageCache()
	store := seedStore()

	cache.ListFiles(ctx, store, "docs", false)
	publicURL, err := cache.SaveFile(ctx, store, []byte("hello"), "a.txt", "docs")
	require.NoError(t, err)
	assert.Equal(t, "https://dashlab-bucket.s3.amazonaws.com/docs/a.txt", publicURL)

	files := cache.ListFiles(ctx, store, "docs", false)
	require.Len(t, files, 1)
	assert.Equal(t, "docs/a.txt", files[0].Value)
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("RemovesThumbnailPair", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("photos/a.jpg", "thumbnails/photos/a.jpg")

		require.NoError(t, cache.DeleteFile(ctx, store, "photos/a.jpg"))
		assert.Empty(t, store.Keys())
	})

	t.Run("ListingObservesDeletion", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("docs/a.txt", "docs/b.txt")

		cache.ListFiles(ctx, store, "docs", false)
		require.NoError(t, cache.DeleteFile(ctx, store, "docs/a.txt"))
		files := cache.ListFiles(ctx, store, "docs", false)
		require.Len(t, files, 1)
		assert.Equal(t, "docs/b.txt", files[0].Value)
	})
}

func TestMoveFile(t *testing.T) {
	ctx := context.Background()

	t.Run("MovesObjectAndThumbnail", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("alpha/a.jpg", "thumbnails/alpha/a.jpg")

		require.NoError(t, cache.MoveFile(ctx, store, "alpha/a.jpg", "beta/a.jpg"))
		assert.Equal(t, []string{"beta/a.jpg", "thumbnails/beta/a.jpg"}, store.Keys())
	})

	t.Run("InvalidatesBothFolders", func(t *testing.T) {
		cache := NewStorageCache()
		store := seedStore("alpha/a.txt", "beta/b.txt")

		cache.ListFiles(ctx, store, "alpha", false)
		cache.ListFiles(ctx, store, "beta", false)
		require.NoError(t, cache.MoveFile(ctx, store, "alpha/a.txt", "beta/a.txt"))

		assert.Empty(t, cache.ListFiles(ctx, store, "alpha", false))
		assert.Len(t, cache.ListFiles(ctx, store, "beta", false), 2)
	})
}

func TestKeyFromPublicURL(t *testing.T) {
	t.Run("ValidURL", func(t *testing.T) {
		key, ok := KeyFromPublicURL("https://dashlab-bucket.s3.amazonaws.com/docs/sub/a.txt")
		assert.True(t, ok)
		assert.Equal(t, "docs/sub/a.txt", key)
	})

	t.Run("RejectsNonHTTPS", func(t *testing.T) {
		_, ok := KeyFromPublicURL("s3://dashlab-bucket/docs/a.txt")
		assert.False(t, ok)
	})

	t.Run("RejectsBareHost", func(t *testing.T) {
		_, ok := KeyFromPublicURL("https://dashlab-bucket.s3.amazonaws.com/")
		assert.False(t, ok)
	})
}

func TestFolderHelpers(t *testing.T) {
	assert.Equal(t, "docs", FolderOf("docs/a.txt"))
	assert.Equal(t, "docs/sub", FolderOf("docs/sub/a.txt"))
	assert.Equal(t, "", FolderOf("a.txt"))

	assert.Equal(t, "docs/a.txt", JoinKey("docs", "a.txt"))
	assert.Equal(t, "docs/a.txt", JoinKey("docs/", "a.txt"))
	assert.Equal(t, "a.txt", JoinKey("", "a.txt"))
}
