package filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBucket struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Key)] = data
	m.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key := range m.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://attendance/imports/may.csv", "attendance", "imports/may.csv", true},
		{"s3://attendance", "attendance", "", true},
		{"s3://", "", "", false},
		{"/tmp/may.csv", "", "", false},
	}
	for _, tt := range tests {
		bucket, key, ok := ParseS3URL(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.bucket, bucket, tt.in)
		assert.Equal(t, tt.key, key, tt.in)
	}
}

func TestWriteReadList(t *testing.T) {
	bucket := newMemoryBucket()
	fs := NewS3FileSystem(bucket)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "b", "exports/2024-05.xlsx", strings.NewReader("xlsx"), XLSXContentType))
	require.NoError(t, fs.WriteFile(ctx, "b", "imports/may.csv", strings.NewReader("csv"), ""))
	assert.Equal(t, XLSXContentType, bucket.contentTypes["exports/2024-05.xlsx"])

	var buf bytes.Buffer
	require.NoError(t, fs.ReadFile(ctx, "b", "imports/may.csv", &buf))
	assert.Equal(t, "csv", buf.String())

	keys, err := fs.ListFiles(ctx, "b", "imports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"imports/may.csv"}, keys)

	assert.Error(t, fs.ReadFile(ctx, "b", "missing.csv", &buf))
}
