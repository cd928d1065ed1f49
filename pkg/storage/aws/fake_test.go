package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data         []byte
	contentType  string
	cacheControl string
	acl          types.ObjectCannedACL
}

// fakeS3 is an in-memory stand-in for the S3 API holding a single bucket
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]fakeObject

	listFn          func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	deleteErrors    map[string]string
	createBucketErr error
	uploadPartErr   error

	deleteInputs  []*s3.DeleteObjectsInput
	createdBucket *s3.CreateBucketInput
	multipart     *s3.CreateMultipartUploadInput
	parts         map[int32][]byte
	completed     *s3.CompleteMultipartUploadInput
	aborted       []string
}

var _ S3API = (*fakeS3)(nil)

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{
		bucket:  bucket,
		objects: make(map[string]fakeObject),
		parts:   make(map[int32][]byte),
	}
}

func (f *fakeS3) seed(keys ...string) {
	for _, k := range keys {
		f.objects[k] = fakeObject{data: []byte(k)}
	}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[awssdk.ToString(params.Key)] = fakeObject{
		data:         data,
		contentType:  awssdk.ToString(params.ContentType),
		cacheControl: awssdk.ToString(params.CacheControl),
		acl:          params.ACL,
	}
	return &s3.PutObjectOutput{ETag: awssdk.String(`"put"`)}, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multipart = params
	return &s3.CreateMultipartUploadOutput{UploadId: awssdk.String("up-1")}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if f.uploadPartErr != nil {
		return nil, f.uploadPartErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := awssdk.ToInt32(params.PartNumber)
	f.parts[n] = data
	return &s3.UploadPartOutput{ETag: awssdk.String(fmt.Sprintf(`"part-%d"`, n))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = params

	var buf bytes.Buffer
	for _, p := range params.MultipartUpload.Parts {
		buf.Write(f.parts[awssdk.ToInt32(p.PartNumber)])
	}
	f.objects[awssdk.ToString(params.Key)] = fakeObject{data: buf.Bytes()}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, awssdk.ToString(params.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

// ListObjectsV2 returns everything in one page unless listFn scripts the responses
func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listFn != nil {
		return f.listFn(params)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := awssdk.ToString(params.Prefix)
	delimiter := awssdk.ToString(params.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: awssdk.Bool(false)}
	seen := make(map[string]bool)
	for _, k := range keys {
		if delimiter != "" {
			if i := strings.Index(k[len(prefix):], delimiter); i >= 0 {
				cp := k[:len(prefix)+i+len(delimiter)]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: awssdk.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{
			Key:  awssdk.String(k),
			Size: awssdk.Int64(int64(len(f.objects[k].data))),
		})
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if awssdk.ToString(params.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{BucketRegion: awssdk.String("nyc3")}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[awssdk.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: awssdk.Int64(int64(len(obj.data))),
		ContentType:   awssdk.String(obj.contentType),
		CacheControl:  awssdk.String(obj.cacheControl),
		ETag:          awssdk.String(`"etag"`),
		LastModified:  awssdk.Time(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[awssdk.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, awssdk.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteInputs = append(f.deleteInputs, params)

	out := &s3.DeleteObjectsOutput{}
	for _, id := range params.Delete.Objects {
		key := awssdk.ToString(id.Key)
		if code, ok := f.deleteErrors[key]; ok {
			out.Errors = append(out.Errors, types.Error{
				Key:     awssdk.String(key),
				Code:    awssdk.String(code),
				Message: awssdk.String("denied"),
			})
			continue
		}
		delete(f.objects, key)
	}
	return out, nil
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return &s3.ListBucketsOutput{
		Buckets: []types.Bucket{{
			Name:         awssdk.String(f.bucket),
			CreationDate: awssdk.Time(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		}},
	}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createdBucket = params
	if f.createBucketErr != nil {
		return nil, f.createBucketErr
	}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	return &s3.GetBucketVersioningOutput{Status: types.BucketVersioningStatusEnabled}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &v4.PresignedHTTPRequest{
		URL:    fmt.Sprintf("https://%s.example.com/%s?X-Amz-Expires=%d", awssdk.ToString(params.Bucket), awssdk.ToString(params.Key), int(opts.Expires.Seconds())),
		Method: "GET",
	}, nil
}
