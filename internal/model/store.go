package model

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// Store abstracts where artifact documents are read from
type Store interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// LocalStore reads artifact documents from a local directory
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store over the given directory
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// ReadFile reads a single artifact document
func (s *LocalStore) ReadFile(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// GCSStore reads artifact documents from a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCSStore creates a store over the given bucket and object prefix. It
// lists the prefix up front so a missing or empty artifact location fails
// loudly at startup instead of on the first read.
func NewGCSStore(ctx context.Context, client *storage.Client, bucket, prefix string, logger *zap.Logger) (*GCSStore, error) {
	s := &GCSStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}

	names, err := s.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact objects: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no artifact objects under gs://%s/%s", bucket, prefix)
	}

	logger.Info("Artifact bucket reachable",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix),
		zap.Int("objects", len(names)),
	)

	return s, nil
}

// ReadFile reads a single artifact object
func (s *GCSStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(name))

	reader, err := obj.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, fmt.Errorf("object %s not found: %w", s.objectName(name), err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.objectName(name), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.objectName(name), err)
	}

	s.logger.Debug("Artifact object read",
		zap.String("object", s.objectName(name)),
		zap.Int("size", len(data)),
	)

	return data, nil
}

func (s *GCSStore) list(ctx context.Context) ([]string, error) {
	query := &storage.Query{Prefix: s.prefix}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}

func (s *GCSStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
