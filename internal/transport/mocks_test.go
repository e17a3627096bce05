package transport

import (
	"context"
	"io"

	"github.com/jlaffaye/ftp"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"golang.beyond.io/tdi-ingest/internal/core"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) Info() string {
	return "mock://session"
}

func (m *mockSession) List(ctx context.Context, dir string) ([]core.Entry, error) {
	args := m.Called(ctx, dir)
	entries, _ := args.Get(0).([]core.Entry)
	return entries, args.Error(1)
}

func (m *mockSession) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	args := m.Called(ctx, p)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockSession) Rename(ctx context.Context, src string, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *mockSession) MakeDir(ctx context.Context, dir string) error {
	return m.Called(ctx, dir).Error(0)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}

type mockFTPConn struct {
	mock.Mock
}

func (m *mockFTPConn) Login(user string, password string) error {
	return m.Called(user, password).Error(0)
}

func (m *mockFTPConn) List(p string) ([]*ftp.Entry, error) {
	args := m.Called(p)
	entries, _ := args.Get(0).([]*ftp.Entry)
	return entries, args.Error(1)
}

func (m *mockFTPConn) Retr(p string) (io.ReadCloser, error) {
	args := m.Called(p)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockFTPConn) Rename(from string, to string) error {
	return m.Called(from, to).Error(0)
}

func (m *mockFTPConn) MakeDir(p string) error {
	return m.Called(p).Error(0)
}

func (m *mockFTPConn) Quit() error {
	return m.Called().Error(0)
}

// mockS3Client is a mock implementation of the s3Client interface.
type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *mockS3Client) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *mockS3Client) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockS3Client) CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, dst, src)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockS3Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

// failingReader fails every read.
type failingReader struct {
	err error
}

func (f failingReader) Read([]byte) (int, error) {
	return 0, f.err
}
