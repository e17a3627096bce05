package transport

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/internal/core"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

// s3Client is an interface that defines the methods for interacting with S3-compatible storage.
// It is used to abstract the MinIO client to expose limited functionalities, which also allows for mocking in tests.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)

	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo

	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)

	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)

	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// minioClientWrapper is a wrapper around the MinIO client to implement the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (m *minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.client.BucketExists(ctx, bucketName)
}

func (m *minioClientWrapper) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return m.client.ListObjects(ctx, bucketName, opts)
}

func (m *minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (m *minioClientWrapper) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	return m.client.CopyObject(ctx, dst, src)
}

func (m *minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.client.RemoveObject(ctx, bucketName, objectName, opts)
}

// s3Transport treats an object prefix of a bucket as the drop directory.
type s3Transport struct {
	id           string
	client       s3Client
	bucketConfig config.BucketConfig
}

func (s *s3Transport) Type() string {
	return TypeS3
}

// Connect confirms the bucket is reachable. The MinIO client is stateless, so the session
// shares it and closing the session is a no-op.
func (s *s3Transport) Connect(ctx context.Context) (core.Session, error) {
	exists, err := s.client.BucketExists(ctx, s.bucketConfig.Bucket)
	if err != nil {
		return nil, core.NewError(core.KindConnection, "bucket exists", s.bucketConfig.Bucket, err)
	}
	if !exists {
		return nil, core.NewError(core.KindConnection, "bucket exists", s.bucketConfig.Bucket,
			fmt.Errorf("bucket %q does not exist", s.bucketConfig.Bucket))
	}

	logx.As().Trace().
		Str("pipeline", s.id).
		Str("bucket", s.bucketConfig.Bucket).
		Msg("Bucket existence confirmed")

	return &s3Session{
		info:   fmt.Sprintf("s3://%s/%s", s.bucketConfig.Bucket, s.bucketConfig.Prefix),
		client: s.client,
		bucket: s.bucketConfig.Bucket,
	}, nil
}

// NewS3 creates a transport over an S3 compatible bucket.
func NewS3(id string, bucketConfig config.BucketConfig) (core.Transport, error) {
	if err := config.ValidateBucketConfig(bucketConfig); err != nil {
		logx.As().Error().
			Str("source_type", TypeS3).
			Err(err).
			Msg("Invalid bucket configuration")
		return nil, err
	}

	client, err := minio.New(bucketConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(bucketConfig.AccessKey, bucketConfig.SecretKey, ""),
		Secure: bucketConfig.UseSSL,
		Region: bucketConfig.Region,
	})
	if err != nil {
		logx.As().Error().
			Str("source_type", TypeS3).
			Err(err).
			Msg("Failed to create MinIO client")
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	logx.As().Trace().
		Str("source_type", TypeS3).
		Str("endpoint", bucketConfig.Endpoint).
		Msg("MinIO client created successfully")

	return &s3Transport{
		id:           id,
		client:       &minioClientWrapper{client: client},
		bucketConfig: bucketConfig,
	}, nil
}

type s3Session struct {
	info   string
	client s3Client
	bucket string
}

func (s *s3Session) Info() string {
	return s.info
}

func objectKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// List returns the objects directly under dir. Common prefixes are reported as directories.
func (s *s3Session) List(ctx context.Context, dir string) ([]core.Entry, error) {
	prefix := objectKey(dir)
	if prefix != "" {
		prefix += "/"
	}

	var entries []core.Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		name := strings.TrimPrefix(obj.Key, prefix)
		isDir := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" {
			continue
		}

		entries = append(entries, core.Entry{
			Name:    name,
			Path:    strings.TrimSuffix(obj.Key, "/"),
			Size:    obj.Size,
			ModTime: obj.LastModified,
			IsDir:   isDir,
		})
	}

	return entries, nil
}

func (s *s3Session) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	return s.client.GetObject(ctx, s.bucket, objectKey(p), minio.GetObjectOptions{})
}

// Rename copies src to dst and removes src. If the removal fails the object exists twice
// and the source copy is picked up again by the next cycle.
func (s *s3Session) Rename(ctx context.Context, src string, dst string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: objectKey(dst)},
		minio.CopySrcOptions{Bucket: s.bucket, Object: objectKey(src)})
	if err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(src), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove source object: %w", err)
	}

	return nil
}

// MakeDir is a no-op; prefixes exist as soon as an object is written under them.
func (s *s3Session) MakeDir(ctx context.Context, dir string) error {
	return nil
}

func (s *s3Session) Close() error {
	return nil
}
