package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	cfg "dashlab/src/configuration"
)

func TestDegradedMetadataStore(t *testing.T) {
	ctx := context.Background()
	store := &MetadataStore{}

	t.Run("NotAvailable", func(t *testing.T) {
		assert.False(t, store.Available())
		var nilStore *MetadataStore
		assert.False(t, nilStore.Available())
	})

	t.Run("WritesAreNoOps", func(t *testing.T) {
		assert.NoError(t, store.Insert(ctx, "s3://bucket/a.txt", []string{"tag"}))
		assert.NoError(t, store.DeleteMany(ctx, []string{"https://bucket.s3.amazonaws.com/a.txt"}))
	})

	t.Run("ReadsAreEmpty", func(t *testing.T) {
		assert.Empty(t, store.FindAll(ctx))

		tags, found := store.TagsForKey(ctx, "a.txt")
		assert.False(t, found)
		assert.Nil(t, tags)
	})

	t.Run("UpdateReportsNoMatch", func(t *testing.T) {
		matched, err := store.Update(ctx, "old", "new", nil)
		assert.NoError(t, err)
		assert.False(t, matched)
	})
}

func TestNewMetadataStoreUnreachable(t *testing.T) {
	store := NewMetadataStore(context.Background(), cfg.MongoProperties{
		URI:         "mongodb://127.0.0.1:1/dashlab?connectTimeoutMS=100&serverSelectionTimeoutMS=100",
		Database:    "dashlab",
		Collection:  "file_metadata",
		PingTimeout: 500 * time.Millisecond,
	})
	assert.NotNil(t, store)
	assert.False(t, store.Available())
}
