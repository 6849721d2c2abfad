package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardsimms/SpeasyTTS/internal/config"
)

type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestLocal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	loc, err := store.Put(ctx, "episodes/2026/10/episode_x.mp3", []byte("ID3data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "episodes", "2026", "10", "episode_x.mp3"), loc)
	assert.NoFileExists(t, loc+".tmp")

	ok, err := store.Exists(ctx, "episodes/2026/10/episode_x.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Get(ctx, "episodes/2026/10/episode_x.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3data"), data)

	require.NoError(t, store.Delete(ctx, "episodes/2026/10/episode_x.mp3"))
	require.NoError(t, store.Delete(ctx, "episodes/2026/10/episode_x.mp3"))

	_, err = store.Get(ctx, "episodes/2026/10/episode_x.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.mp3", []byte("x"))
	assert.Error(t, err)
	_, err = store.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3(fake, "podcasts")

	loc, err := store.Put(ctx, "episodes/a.mp3", []byte("ID3audio"))
	require.NoError(t, err)
	assert.Equal(t, "s3://podcasts/episodes/a.mp3", loc)
	assert.Equal(t, ContentTypeMP3, fake.contentTypes["episodes/a.mp3"])

	data, err := store.Get(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), data)

	ok, err := store.Exists(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "episodes/a.mp3"))
	ok, err = store.Exists(ctx, "episodes/a.mp3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "episodes/a.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestS3Store_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("network down")
	store := NewS3(fake, "podcasts")

	_, err := store.Put(context.Background(), "a.mp3", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.False(t, errors.Is(err, os.ErrNotExist))
}

func TestNew_SelectsDriver(t *testing.T) {
	ctx := context.Background()

	local, err := New(ctx, config.StorageConfig{Driver: config.StorageLocal}, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, local)

	remote, err := New(ctx, config.StorageConfig{
		Driver:    config.StorageS3,
		Bucket:    "podcasts",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
	}, "")
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, remote)

	_, err = New(ctx, config.StorageConfig{Driver: config.StorageS3}, "")
	assert.Error(t, err)

	_, err = New(ctx, config.StorageConfig{Driver: "ftp"}, "")
	assert.Error(t, err)
}
