package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/markport/internal/config"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

func TestNewEmptyTypeDisablesArchive(t *testing.T) {
	store, err := New(config.ArchiveConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = New(config.ArchiveConfig{Type: "ftp"})
	require.Error(t, err)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := New(config.ArchiveConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	require.NoError(t, store.Save(ctx, "job-1.upload", bytes.NewReader([]byte("url,title\n")), 10))
	rc, err := store.Open(ctx, "job-1.upload")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "url,title\n", string(data))

	require.NoError(t, store.Delete(ctx, "job-1.upload"))
	require.NoError(t, store.Delete(ctx, "job-1.upload"))
	_, err = store.Open(ctx, "job-1.upload")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.Error(t, store.Save(ctx, "../escape", bytes.NewReader(nil), 0))
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreUsesPrefix(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	store := newS3Store(fake, "uploads", "/imports/")

	require.NoError(t, store.Save(ctx, "job-1.upload", bytes.NewReader([]byte("data")), 4))
	assert.Contains(t, fake.objects, "uploads/imports/job-1.upload")

	rc, err := store.Open(ctx, "job-1.upload")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(data))

	require.NoError(t, store.Delete(ctx, "job-1.upload"))
	assert.Empty(t, fake.objects)
}
