package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sir_venger/flatstore/internal/models"
)

const (
	minioFilesPrefix = "files/"
	minioTmpPrefix   = "tmp/"
	// потоковая загрузка без известного размера буферизует по одной части
	minioPartSize = 16 << 20
)

// MinIOConfig параметры подключения к S3-совместимому хранилищу.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// MinIO хранит файлы объектами files/<name> в одном бакете.
// Незавершённые записи лежат под tmp/<id> и публикуются серверным копированием.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO подключается к хранилищу и создаёт бакет при необходимости.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIO{client: client, bucket: cfg.Bucket}, nil
}

// Stage загружает поток во временный объект.
func (m *MinIO) Stage(ctx context.Context, r io.Reader) (models.Staged, error) {
	id := uuid.NewString()
	h := sha256.New()

	info, err := m.client.PutObject(ctx, m.bucket, minioTmpPrefix+id, io.TeeReader(r, h), -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    minioPartSize,
	})
	if err != nil {
		_ = m.client.RemoveObject(context.WithoutCancel(ctx), m.bucket, minioTmpPrefix+id, minio.RemoveObjectOptions{})
		return models.Staged{}, err
	}

	return models.Staged{
		ID:     id,
		Size:   info.Size,
		Sha256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Commit копирует временный объект в целевой и удаляет временный.
func (m *MinIO) Commit(ctx context.Context, st models.Staged, name string) error {
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: minioFilesPrefix + name},
		minio.CopySrcOptions{Bucket: m.bucket, Object: minioTmpPrefix + st.ID},
	)
	if err != nil {
		return err
	}

	// Объект уже опубликован; хвост в tmp/ подберёт GC.
	_ = m.client.RemoveObject(ctx, m.bucket, minioTmpPrefix+st.ID, minio.RemoveObjectOptions{})
	return nil
}

// Discard удаляет временный объект.
func (m *MinIO) Discard(ctx context.Context, st models.Staged) error {
	return m.client.RemoveObject(ctx, m.bucket, minioTmpPrefix+st.ID, minio.RemoveObjectOptions{})
}

// Open открывает объект на чтение.
func (m *MinIO) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, minioFilesPrefix+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, mapMinIOError(err)
	}

	// GetObject ленивый, реальный запрос уходит на Stat.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, mapMinIOError(err)
	}

	return obj, info.Size, nil
}

// Scan перечисляет объекты под files/.
func (m *MinIO) Scan(ctx context.Context) (map[string]int64, error) {
	sizes := map[string]int64{}
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: minioFilesPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, minioFilesPrefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		sizes[name] = obj.Size
	}

	return sizes, nil
}

// Ping проверяет доступность бакета.
func (m *MinIO) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}

	return nil
}

// Sweep удаляет временные объекты старше ttl.
func (m *MinIO) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	now := time.Now()
	removed := 0
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: minioTmpPrefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, obj.Err
		}
		if now.Sub(obj.LastModified) < ttl {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err == nil {
			removed++
		}
	}

	return removed, nil
}

func mapMinIOError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return models.ErrNotFound
	}

	return err
}
