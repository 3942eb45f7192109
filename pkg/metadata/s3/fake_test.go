package s3

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeObject struct {
	size     int64
	metadata map[string]string
	modified time.Time
}

// fakeClient is an in-memory Client with the HEAD/PUT/COPY/DELETE semantics
// the store relies on.
type fakeClient struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	bucketErr error
	headErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string]fakeObject)}
}

func (f *fakeClient) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.headErr != nil {
		return nil, f.headErr
	}
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	meta := make(map[string]string, len(obj.metadata))
	for k, v := range obj.metadata {
		meta[k] = v
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(obj.size),
		LastModified:  aws.Time(obj.modified),
		Metadata:      meta,
	}, nil
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(params.Key)
	if aws.ToString(params.IfNoneMatch) == "*" {
		if _, exists := f.objects[key]; exists {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}

	var size int64
	if params.Body != nil {
		data, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}
		size = int64(len(data))
	}

	f.objects[key] = fakeObject{size: size, metadata: params.Metadata, modified: time.Now()}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) CopyObject(ctx context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(params.Key)
	obj, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if params.MetadataDirective == types.MetadataDirectiveReplace {
		obj.metadata = params.Metadata
	}
	obj.modified = time.Now()
	f.objects[key] = obj
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}
