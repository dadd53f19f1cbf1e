package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	cfg "dashlab/src/configuration"
)

// FileMetadataRecord is the stored shape of one file's metadata.
type FileMetadataRecord struct {
	FilePath  string    `bson:"file_path" json:"file_path"`
	Tags      []string  `bson:"tags" json:"tags"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// MetadataStore wraps the file_metadata collection. A store that failed its
// connection probe is degraded: reads return empty results and writes are
// logged no-ops, so file operations keep working without the database.
type MetadataStore struct {
	coll *mongo.Collection
}

// NewMetadataStore connects with a bounded ping. A failed probe is not
// fatal; the returned store runs degraded.
func NewMetadataStore(ctx context.Context, props cfg.MongoProperties) *MetadataStore {
	ctx, cancel := context.WithTimeout(ctx, props.PingTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(props.URI))
	if err == nil {
		err = client.Ping(ctx, readpref.Primary())
	}
	if err != nil {
		log.Warn().Err(err).Msg("metadata store unreachable, running degraded")
		return &MetadataStore{}
	}
	return &MetadataStore{coll: client.Database(props.Database).Collection(props.Collection)}
}

func (m *MetadataStore) Available() bool {
	return m != nil && m.coll != nil
}

// Insert records a stored file's path and tags with the current timestamp.
func (m *MetadataStore) Insert(ctx context.Context, filePath string, tags []string) error {
	if !m.Available() {
		log.Info().Str("file_path", filePath).Msg("skipping metadata insert: no database connection")
		return nil
	}
	if tags == nil {
		tags = []string{}
	}
	_, err := m.coll.InsertOne(ctx, FileMetadataRecord{
		FilePath:  filePath,
		Tags:      tags,
		Timestamp: time.Now().UTC(),
	})
	return err
}

// FindAll returns every metadata record, without the Mongo object ids.
func (m *MetadataStore) FindAll(ctx context.Context) []FileMetadataRecord {
	records := make([]FileMetadataRecord, 0)
	if !m.Available() {
		return records
	}
	cursor, err := m.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		log.Error().Err(err).Msg("could not query metadata records")
		return records
	}
	if err := cursor.All(ctx, &records); err != nil {
		log.Error().Err(err).Msg("could not decode metadata records")
		return []FileMetadataRecord{}
	}
	return records
}

// TagsForKey finds the record whose stored path ends with the object key.
func (m *MetadataStore) TagsForKey(ctx context.Context, key string) ([]string, bool) {
	if !m.Available() {
		return nil, false
	}
	filter := bson.M{"file_path": bson.M{"$regex": regexp.QuoteMeta(key) + "$"}}
	var record FileMetadataRecord
	if err := m.coll.FindOne(ctx, filter).Decode(&record); err != nil {
		return nil, false
	}
	return record.Tags, true
}

// Update rewrites a record's path, tags and timestamp, keyed by the old
// path. The bool reports whether any record matched.
func (m *MetadataStore) Update(ctx context.Context, oldPath, newPath string, tags []string) (bool, error) {
	if !m.Available() {
		return false, nil
	}
	if tags == nil {
		tags = []string{}
	}
	result, err := m.coll.UpdateOne(ctx,
		bson.M{"file_path": oldPath},
		bson.M{"$set": bson.M{
			"file_path": newPath,
			"tags":      tags,
			"timestamp": time.Now().UTC(),
		}})
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// DeleteMany removes the records for the given stored paths.
func (m *MetadataStore) DeleteMany(ctx context.Context, paths []string) error {
	if !m.Available() {
		log.Info().Msg("skipping metadata delete: no database connection")
		return nil
	}
	_, err := m.coll.DeleteMany(ctx, bson.M{"file_path": bson.M{"$in": paths}})
	return err
}
