package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunerpy/indexproxy/cache"
	"github.com/sunerpy/indexproxy/config"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/ratelimit"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
  <channel>
    <item>
      <title>Some Show - 01</title>
      <link>https://h/download/1953465.torrent</link>
      <guid isPermaLink="true">https://h/view/1953465</guid>
      <pubDate>Sat, 29 Mar 2025 06:51:19 -0000</pubDate>
      <nyaa:seeders>59</nyaa:seeders>
      <nyaa:leechers>2</nyaa:leechers>
      <nyaa:downloads>120</nyaa:downloads>
      <nyaa:categoryId>1_2</nyaa:categoryId>
      <nyaa:size>205.9 MiB</nyaa:size>
      <nyaa:comments>3</nyaa:comments>
      <nyaa:trusted>No</nyaa:trusted>
      <nyaa:remake>No</nyaa:remake>
    </item>
  </channel>
</rss>`

func newTestCoordinator(t *testing.T, originURL string) (*Coordinator, *gorm.DB) {
	t.Helper()
	c, err := cache.New(t.TempDir(), 1<<20, nil)
	require.NoError(t, err)
	lim := ratelimit.New(100, time.Second)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestRecord{}))
	tr := ledger.New(db, nil)

	cfg := config.OriginConfig{
		ID:  "test",
		URL: originURL,
	}
	cfg.ApplyDefaults()
	cfg.MinInterval = time.Millisecond
	return New(cfg, c, lim, tr, nil), db
}

func TestCoordinator_List_FeedHappyPath(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	co, _ := newTestCoordinator(t, srv.URL)
	items, cached, err := co.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1953465), items[0].ID)
	assert.Equal(t, uint64(215_901_798), items[0].Size)

	// second call should be served from cache, not hit the origin again.
	_, cached, err = co.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, hits)
}

func TestCoordinator_List_RetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	co, db := newTestCoordinator(t, srv.URL)
	co.cfg.MaxRetries = 2
	co.cfg.MinInterval = 50 * time.Millisecond
	items, cached, err := co.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, items, 1)
	assert.Equal(t, 3, calls)

	var records []struct {
		Success bool
		Elapsed float64
	}
	require.NoError(t, db.Table("requests").Select("success, elapsed").Order("id").Find(&records).Error)
	require.Len(t, records, 3)
	failures := 0
	successes := 0
	var failureElapsed, successElapsed float64
	for _, r := range records {
		if r.Success {
			successes++
			successElapsed = r.Elapsed
		} else {
			failures++
			failureElapsed += r.Elapsed
		}
	}
	assert.Equal(t, 2, failures)
	assert.Equal(t, 1, successes)

	// the success record's elapsed time spans the whole retry sequence:
	// both prior failures' own latencies plus the two backoff sleeps
	// between them, not just the final round trip.
	minExpected := failureElapsed + 2*(co.cfg.MinInterval+time.Second).Seconds()
	assert.Greater(t, successElapsed, minExpected)
}

func TestCoordinator_List_ExhaustsRetriesAndFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	co, _ := newTestCoordinator(t, srv.URL)
	co.cfg.MaxRetries = 1
	_, _, err := co.List(context.Background(), ListQuery{})
	require.Error(t, err)
}
