package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	cfg "dashlab/src/configuration"
)

const (
	defaultRegion      = "us-east-1"
	defaultContentType = "application/octet-stream"
)

// bucketRegions maps every serving bucket to the region its client must be
// constructed with. Unknown buckets fall back to defaultRegion.
var bucketRegions = map[string]string{
	"splitbox-bucket":      "us-east-1",
	"dashlab-bucket":       "us-east-1",
	"personal-files":       "us-east-1",
	"family-gallery":       "eu-west-3",
	"splitbox-contributor": "eu-west-3",
}

func BucketRegion(bucket string) string {
	if region, ok := bucketRegions[bucket]; ok {
		return region
	}
	return defaultRegion
}

// Buckets returns the full configured bucket set, sorted.
func Buckets() []string {
	names := make([]string, 0, len(bucketRegions))
	for name := range bucketRegions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PublicURL builds the virtual-hosted URL an object is reachable at. These
// are the paths persisted in the metadata store.
func PublicURL(bucket, key string) string {
	region := BucketRegion(bucket)
	if region == defaultRegion {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// S3URI builds the s3:// form used when talking to backend services.
func S3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// ObjectStore is the storage capability surface the rest of the app depends
// on. Listings include common-prefix markers with a trailing slash when not
// recursive.
type ObjectStore interface {
	Bucket() string
	List(ctx context.Context, prefix string, recursive bool) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string, expires time.Duration, reqParams url.Values) (string, error)
	PresignPost(ctx context.Context, key string, expires time.Duration) (string, map[string]string, error)
}

type MinioS3Client struct {
	endpoint string
	bucket   string
	region   string
	client   *minio.Client
}

// NewMinioS3Client creates a client bound to a single bucket, with the
// endpoint derived from the bucket's region unless overridden.
func NewMinioS3Client(props cfg.S3Properties, bucket string) (*MinioS3Client, error) {
	region := BucketRegion(bucket)
	endpoint := props.Endpoint
	if endpoint == "" {
		if region == defaultRegion {
			endpoint = "s3.amazonaws.com"
		} else {
			endpoint = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(props.AccessKey, props.SecretKey, ""),
		Secure: props.UseSSL,
		Region: region,
	})
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Str("bucket", bucket).Msg("can not create storage client")
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &MinioS3Client{
		endpoint: endpoint,
		bucket:   bucket,
		region:   region,
		client:   minioClient,
	}, nil
}

func (s3 *MinioS3Client) Bucket() string {
	return s3.bucket
}

func (s3 *MinioS3Client) List(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make([]string, 0)
	objectCh := s3.client.ListObjects(ctx, s3.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	for object := range objectCh {
		if object.Err != nil {
			log.Error().Err(object.Err).Str("bucket", s3.bucket).Str("prefix", prefix).Msg("list objects failed")
			return keys, object.Err
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

func (s3 *MinioS3Client) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s3.client.GetObject(ctx, s3.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s3 *MinioS3Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s3.client.PutObject(ctx, s3.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s3 *MinioS3Client) Remove(ctx context.Context, key string) error {
	if err := s3.client.RemoveObject(ctx, s3.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Error().Err(err).Str("bucket", s3.bucket).Str("key", key).Msg("remove object failed")
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s3 *MinioS3Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s3.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s3.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s3.bucket, Object: srcKey})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", srcKey, dstKey, err)
	}
	return nil
}

func (s3 *MinioS3Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s3.client.StatObject(ctx, s3.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func (s3 *MinioS3Client) PresignGet(ctx context.Context, key string, expires time.Duration, reqParams url.Values) (string, error) {
	presignedURL, err := s3.client.PresignedGetObject(ctx, s3.bucket, key, expires, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return presignedURL.String(), nil
}

func (s3 *MinioS3Client) PresignPost(ctx context.Context, key string, expires time.Duration) (string, map[string]string, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(s3.bucket); err != nil {
		return "", nil, err
	}
	if err := policy.SetKey(key); err != nil {
		return "", nil, err
	}
	if err := policy.SetExpires(time.Now().UTC().Add(expires)); err != nil {
		return "", nil, err
	}
	postURL, formData, err := s3.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return "", nil, fmt.Errorf("presign post %s: %w", key, err)
	}
	return postURL.String(), formData, nil
}

// ClientRegistry hands out one ObjectStore per bucket, constructed lazily
// and reused for the process lifetime.
type ClientRegistry struct {
	props   cfg.S3Properties
	mu      sync.Mutex
	clients map[string]ObjectStore
}

func NewClientRegistry(props cfg.S3Properties) *ClientRegistry {
	return &ClientRegistry{
		props:   props,
		clients: make(map[string]ObjectStore),
	}
}

func (r *ClientRegistry) Client(bucket string) (ObjectStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[bucket]; ok {
		return client, nil
	}
	client, err := NewMinioS3Client(r.props, bucket)
	if err != nil {
		return nil, err
	}
	r.clients[bucket] = client
	return client, nil
}
