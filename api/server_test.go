package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sunerpy/indexproxy/cache"
	"github.com/sunerpy/indexproxy/config"
	"github.com/sunerpy/indexproxy/fetch"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/mirror"
	"github.com/sunerpy/indexproxy/ratelimit"
	"github.com/sunerpy/indexproxy/store"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
  <channel>
    <item>
      <title>Item</title>
      <link>https://h/download/42.torrent</link>
      <guid isPermaLink="true">https://h/view/42</guid>
      <pubDate>Sat, 29 Mar 2025 06:51:19 -0000</pubDate>
      <nyaa:seeders>1</nyaa:seeders>
      <nyaa:leechers>0</nyaa:leechers>
      <nyaa:downloads>1</nyaa:downloads>
      <nyaa:categoryId>0_0</nyaa:categoryId>
      <nyaa:size>1 MiB</nyaa:size>
      <nyaa:comments>0</nyaa:comments>
      <nyaa:trusted>No</nyaa:trusted>
      <nyaa:remake>No</nyaa:remake>
    </item>
  </channel>
</rss>`

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestRecord{}, &models.ListItem{}))
	return db
}

func newIndexerServer(t *testing.T, originURL string) *Server {
	t.Helper()
	db := testDB(t)
	c, err := cache.New(t.TempDir(), 1<<20, nil)
	require.NoError(t, err)
	lim := ratelimit.New(100, time.Second)
	tr := ledger.New(db, nil)

	cfg := config.OriginConfig{ID: "t", URL: originURL}
	cfg.ApplyDefaults()
	co := fetch.New(cfg, c, lim, tr, nil)

	itemStore, err := store.New(db)
	require.NoError(t, err)
	return NewIndexer(co, itemStore, tr, nil)
}

func TestServer_ListViewDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(sampleFeed))
		case r.URL.Path == "/download/42.torrent":
			w.Header().Set("Content-Type", "application/x-bittorrent")
			_, _ = w.Write([]byte("torrent-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := newIndexerServer(t, srv.URL)
	mux := s.Mux()

	body, _ := json.Marshal(listRequest{})
	req := httptest.NewRequest(http.MethodPost, "/list", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Torrents, 1)
	assert.Equal(t, int64(42), listResp.Torrents[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/download/42", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-bittorrent", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="42"`)
	assert.Equal(t, "torrent-bytes", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/download/not-a-number", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Mirror_UnknownOrigin(t *testing.T) {
	db := testDB(t)
	f, err := mirror.New(nil, func(id string) (*ledger.Tracker, error) {
		return ledger.New(db, nil), nil
	}, nil)
	require.NoError(t, err)

	s := NewMirror(f, nil)
	mux := s.Mux()

	body, _ := json.Marshal(listRequest{})
	req := httptest.NewRequest(http.MethodPost, "/mirror/missing/list", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
