package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:          "petshop-media",
		Region:          "sa-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		Prefix:          "/whatsapp/",
	}
}

func TestNewS3MediaStore_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3MediaStore(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := testConfig("")
		cfg.Bucket = ""
		_, err := NewS3MediaStore(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half a key pair returns error", func(t *testing.T) {
		cfg := testConfig("")
		cfg.SecretAccessKey = ""
		_, err := NewS3MediaStore(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		store, err := NewS3MediaStore(ctx, testConfig("localhost:9000"), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "petshop-media", store.Bucket())
		assert.Equal(t, "whatsapp", store.prefix)
		assert.Equal(t, time.Hour, store.presignExpiration)
	})
}

func TestMediaKey(t *testing.T) {
	tenantID := uuid.MustParse("6f1c7d4e-3a55-4e4b-9a51-2f0f6c1d9a10")

	assert.Equal(t, "whatsapp/6f1c7d4e-3a55-4e4b-9a51-2f0f6c1d9a10/wamid_123.jpg",
		MediaKey("whatsapp", tenantID, "wamid/123", "image/jpeg"))
	assert.Equal(t, "6f1c7d4e-3a55-4e4b-9a51-2f0f6c1d9a10/abc.ogg",
		MediaKey("", tenantID, "abc", "audio/ogg; codecs=opus"))
	assert.Equal(t, "6f1c7d4e-3a55-4e4b-9a51-2f0f6c1d9a10/abc",
		MediaKey("", tenantID, "abc", "application/x-unknown"))
}

func TestS3MediaStore_KeyRequired(t *testing.T) {
	store, err := NewS3MediaStore(context.Background(), testConfig("http://localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	require.ErrorContains(t, store.Put(ctx, "", []byte("x"), "text/plain"), "storage key is required")
	_, _, err = store.Get(ctx, "")
	require.ErrorContains(t, err, "storage key is required")
	_, err = store.Exists(ctx, "")
	require.ErrorContains(t, err, "storage key is required")
	require.ErrorContains(t, store.Delete(ctx, ""), "storage key is required")
}

func TestS3MediaStore_PresignGet(t *testing.T) {
	store, err := NewS3MediaStore(context.Background(), testConfig("http://localhost:9000"))
	require.NoError(t, err)

	url, expiresAt, err := store.PresignGet(context.Background(), "whatsapp/t/m.jpg", 0)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/petshop-media/whatsapp/t/m.jpg?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)
}

func TestS3MediaStore_PutAgainstFakeEndpoint(t *testing.T) {
	var (
		mu          sync.Mutex
		gotMethod   string
		gotPath     string
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotMethod, gotPath, contentType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3MediaStore(context.Background(), testConfig(srv.URL), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	err = store.Put(context.Background(), "whatsapp/t/m.jpg", []byte("jpeg bytes"), "image/jpeg")

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/petshop-media/whatsapp/t/m.jpg", gotPath)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestMemoryMediaStore(t *testing.T) {
	store := NewMemoryMediaStore("media")
	ctx := context.Background()
	key := store.MediaKey(uuid.New(), "m1", "image/png")

	require.NoError(t, store.Put(ctx, key, []byte("png"), "image/png"))
	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, ct, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, "image/png", ct)
	assert.True(t, strings.HasSuffix(key, "/m1.png"))

	require.NoError(t, store.Delete(ctx, key))
	assert.Equal(t, 0, store.Len())
}
