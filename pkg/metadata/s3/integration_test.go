//go:build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/wormfs/pkg/metadata"
	metadatatesting "github.com/marmos91/wormfs/pkg/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupLocalstack creates a client against Localstack (or any S3-compatible
// endpoint in LOCALSTACK_ENDPOINT) and a bucket that is emptied and removed
// when the test ends.
func setupLocalstack(t *testing.T, bucket string) *s3.Client {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err, "is Localstack running on %s?", endpoint)

	t.Cleanup(func() {
		list, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		if list != nil {
			for _, obj := range list.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})

	return client
}

// TestS3MetadataStore_Integration runs the store suite against a real
// S3-compatible service.
//
// Run with: go test -tags=integration ./pkg/metadata/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3MetadataStore_Integration(t *testing.T) {
	bucket := "wormfs-metadata-test"
	client := setupLocalstack(t, bucket)

	counter := 0
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			counter++
			store, err := NewS3MetadataStore(context.Background(), S3MetadataStoreConfig{
				Client:    client,
				Bucket:    bucket,
				KeyPrefix: fmt.Sprintf("test-%d/", counter),
			})
			require.NoError(t, err)
			return store
		},
	}

	suite.Run(t)
}

// TestS3MetadataStore_CtimeSurvivesReopen checks that the change time is
// read back from object metadata by a fresh store instance.
func TestS3MetadataStore_CtimeSurvivesReopen(t *testing.T) {
	bucket := "wormfs-ctime-test"
	client := setupLocalstack(t, bucket)
	ctx := context.Background()
	ctime := time.Now().Add(-72 * time.Hour).Truncate(time.Second)

	store, err := NewS3MetadataStore(ctx, S3MetadataStoreConfig{Client: client, Bucket: bucket})
	require.NoError(t, err)
	_, err = store.CreateFile(ctx, "/archive", "/sealed.bin", &metadata.FileAttr{
		Mode: 0444, UID: 1000, GID: 1000, Ctime: ctime, Mtime: ctime,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewS3MetadataStore(ctx, S3MetadataStoreConfig{Client: client, Bucket: bucket})
	require.NoError(t, err)
	defer reopened.Close()

	attr, err := reopened.GetAttr(ctx, "/archive", "/sealed.bin")
	require.NoError(t, err)
	assert.True(t, attr.Ctime.Equal(ctime), "ctime %v, want %v", attr.Ctime, ctime)
	assert.Equal(t, uint32(0444), attr.Mode)
}
