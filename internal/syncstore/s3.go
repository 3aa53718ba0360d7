package syncstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncproto"
)

// Object metadata keys. S3 lowercases user metadata names.
const (
	metaUpdatedAt = "server-updated-at"
	metaSize      = "size-bytes"
)

// S3Store keeps each backup as one object; metadata travels in the object's
// user metadata so HeadObject answers GetMeta.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger

	writeMu sync.Mutex
}

// OpenS3Store builds a client from cfg and checks the bucket is reachable.
// A custom endpoint switches to path-style addressing for S3-compatible
// services.
func OpenS3Store(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	s := &S3Store{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix, logger: logger}
	if err := s.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	logger.Info("S3 sync store opened", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	return s, nil
}

func (s *S3Store) key(id string) string {
	return s.prefix + id + ".json"
}

func (s *S3Store) GetMeta(ctx context.Context, id string) (syncproto.Meta, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return syncproto.Meta{}, nil
	}
	if err != nil {
		return syncproto.Meta{}, fmt.Errorf("s3 head object: %w", err)
	}
	meta := syncproto.Meta{Exists: true, ServerUpdatedAtISO: out.Metadata[metaUpdatedAt]}
	if n, err := strconv.ParseInt(out.Metadata[metaSize], 10, 64); err == nil {
		meta.SizeBytes = n
	} else if out.ContentLength != nil {
		meta.SizeBytes = *out.ContentLength
	}
	return meta, nil
}

func (s *S3Store) GetBackup(ctx context.Context, id string) (syncproto.Backup, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return syncproto.Backup{}, false, nil
	}
	if err != nil {
		return syncproto.Backup{}, false, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, syncproto.MaxBackupBytes+1))
	if err != nil {
		return syncproto.Backup{}, false, fmt.Errorf("s3 read object: %w", err)
	}
	return syncproto.Backup{ServerUpdatedAtISO: out.Metadata[metaUpdatedAt], BackupJSON: string(body)}, true, nil
}

func (s *S3Store) PutBackup(ctx context.Context, rec Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(rec.ID)),
		Body:          strings.NewReader(rec.BackupJSON),
		ContentLength: aws.Int64(int64(len(rec.BackupJSON))),
		ContentType:   aws.String("application/json"),
		Metadata: map[string]string{
			metaUpdatedAt: rec.ServerUpdatedAtISO,
			metaSize:      strconv.FormatInt(rec.SizeBytes, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Store) Close() error { return nil }

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
