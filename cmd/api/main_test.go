package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/georgemunganga/printa-storefront/internal/config"
	"github.com/georgemunganga/printa-storefront/internal/logger"
	"github.com/georgemunganga/printa-storefront/internal/money"
	"github.com/georgemunganga/printa-storefront/internal/modules/catalog"
	"github.com/georgemunganga/printa-storefront/internal/modules/shop"
	"github.com/georgemunganga/printa-storefront/internal/modules/storage"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	b, err := openBackend(ctx, config.Config{StorageDriver: config.StorageMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryBackend{}, b)

	path := filepath.Join(t.TempDir(), "nested", "store.json")
	b, err = openBackend(ctx, config.Config{StorageDriver: config.StorageFile, StorageFilePath: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, path, b.(*storage.FileBackend).Path())

	_, err = openBackend(ctx, config.Config{StorageDriver: "s3"}, nil)
	assert.Error(t, err)
}

func TestOpenCatalog(t *testing.T) {
	repo, err := openCatalog(config.Config{CatalogDriver: config.CatalogStatic}, nil)
	require.NoError(t, err)
	products, err := repo.List(context.Background(), catalog.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, products, len(catalog.Seed))

	_, err = openCatalog(config.Config{CatalogDriver: config.CatalogStatic, CatalogFile: filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	adapter := storage.NewAdapter(storage.NewMemoryBackend(), nil)
	defer adapter.Close(context.Background())

	products := catalog.NewService(catalog.NewStaticRepository(catalog.Seed))
	router := newRouter(logger.Nop(), "shop_session", products, shop.NewRegistry(adapter, nil, nil), money.MustFormatter("en-IN", "INR"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "health checks do not open sessions")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products/p-lumen-lamp", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"p-lumen-lamp"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, "shop_session", rec.Result().Cookies()[0].Name)
}

// syncBuffer records whether the logger was flushed.
type syncBuffer struct {
	bytes.Buffer
	synced bool
}

func (b *syncBuffer) Sync() error {
	b.synced = true
	return nil
}

func TestFinish_FlushesLogsBeforeExit(t *testing.T) {
	buf := &syncBuffer{}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), buf, zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	assert.Equal(t, 1, finish(log, errors.New("listen tcp :8080: address already in use")))
	assert.True(t, buf.synced)
	assert.Contains(t, buf.String(), "address already in use")

	buf.synced = false
	assert.Equal(t, 0, finish(log, nil))
	assert.True(t, buf.synced)
}
