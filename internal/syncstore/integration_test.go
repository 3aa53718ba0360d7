//go:build integration

package syncstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
)

// These run against live services: go test -tags integration ./internal/syncstore
// with SPM_TEST_DATABASE_URL, SPM_TEST_REDIS_ADDR or SPM_TEST_S3_BUCKET set.

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("SPM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SPM_TEST_DATABASE_URL not set")
	}
	cfg := &config.Config{DatabaseURL: url, DBPoolMinConns: 1, DBPoolMaxConns: 4}
	s, err := OpenPostgresStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	testStoreContract(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SPM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SPM_TEST_REDIS_ADDR not set")
	}
	cfg := &config.Config{RedisAddr: addr, RedisDB: 14, RedisPrefix: "spm:test:"}
	s, err := OpenRedisStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	testStoreContract(t, s)
}

func TestS3Store(t *testing.T) {
	bucket := os.Getenv("SPM_TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("SPM_TEST_S3_BUCKET not set")
	}
	cfg := &config.Config{
		S3Bucket:    bucket,
		S3Region:    os.Getenv("SPM_TEST_S3_REGION"),
		S3Endpoint:  os.Getenv("SPM_TEST_S3_ENDPOINT"),
		S3AccessKey: os.Getenv("SPM_TEST_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("SPM_TEST_S3_SECRET_KEY"),
		S3Prefix:    "spm-test/",
	}
	s, err := OpenS3Store(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	testStoreContract(t, s)
}
