package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	objects map[string][]byte
	putErr  error
	lastKey string
	lastCT  string
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*in.Key] = data
	f.lastKey = *in.Key
	if in.ContentType != nil {
		f.lastCT = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3StorePutGet(t *testing.T) {
	fake := &fakeObjectAPI{}
	store := &S3Store{client: fake, bucket: "custody"}

	ref, err := store.Put(context.Background(), "deadbeef", []byte("payload"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "evidence/deadbeef", ref)
	assert.Equal(t, "image/jpeg", fake.lastCT)

	data, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestS3StorePutError(t *testing.T) {
	fake := &fakeObjectAPI{putErr: errors.New("connection refused")}
	store := &S3Store{client: fake, bucket: "custody"}

	_, err := store.Put(context.Background(), "deadbeef", []byte("payload"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestS3StoreGetMissing(t *testing.T) {
	fake := &fakeObjectAPI{}
	store := &S3Store{client: fake, bucket: "custody"}

	_, err := store.Get(context.Background(), "evidence/nothing")
	require.Error(t, err)
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	require.Error(t, err)
}
