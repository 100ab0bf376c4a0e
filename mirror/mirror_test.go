package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sunerpy/indexproxy/config"
	"github.com/sunerpy/indexproxy/fetch"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestRecord{}))
	return db
}

func TestFacade_ListAndHealth(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<rss><channel></channel></rss>`))
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	db := testDB(t)
	cfgs := []config.OriginConfig{
		{ID: "up", URL: up.URL, CacheDir: t.TempDir(), CacheSize: 1 << 20, MinInterval: time.Millisecond},
		{ID: "down", URL: down.URL, CacheDir: t.TempDir(), CacheSize: 1 << 20, MinInterval: time.Millisecond, MaxRetries: 0},
	}

	f, err := New(cfgs, func(id string) (*ledger.Tracker, error) {
		return ledger.New(db, nil), nil
	}, nil)
	require.NoError(t, err)

	items, _, err := f.List(context.Background(), "up", fetch.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = f.List(context.Background(), "down", fetch.ListQuery{})
	require.Error(t, err)

	_, _, err = f.List(context.Background(), "missing", fetch.ListQuery{})
	require.ErrorIs(t, err, ErrUnknownOrigin)

	health := f.Health(context.Background())
	require.Len(t, health, 2)
	byID := map[string]OriginStatus{}
	for _, h := range health {
		byID[h.ID] = h
	}
	assert.True(t, byID["up"].Healthy)
	assert.False(t, byID["down"].Healthy)
}
