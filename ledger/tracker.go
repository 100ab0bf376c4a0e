// Package ledger implements the durable, append-only request-tracker table
// the fetch coordinator writes to on every list/view/download outcome.
// Insertion failures are logged but never propagated, matching the rest of
// the core's "observability must not break the request path" stance.
package ledger

import (
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sunerpy/indexproxy/models"
)

// Tracker appends RequestRecord rows. Each operation opens its own
// connection/transaction; no long-lived transaction is held, so concurrent
// writers are serialized by the storage engine rather than by Tracker
// itself.
type Tracker struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{db: db, log: log}
}

// TrackCached appends a cache-hit record: success=true, cache_hit=true,
// elapsed=0, with query encoded into the recorded path.
func (t *Tracker) TrackCached(mirrorID, rawURL string, query url.Values) {
	t.insert(mirrorID, encodeQuery(rawURL, query), true, true, 0)
}

// Track appends a non-cached outcome record.
func (t *Tracker) Track(mirrorID, rawURL string, query url.Values, success bool, elapsed time.Duration) {
	t.insert(mirrorID, encodeQuery(rawURL, query), success, false, elapsed.Seconds())
}

func (t *Tracker) insert(mirrorID, path string, success, cacheHit bool, elapsedSeconds float64) {
	record := models.RequestRecord{
		MirrorID: mirrorID,
		Time:     time.Now().UTC(),
		Path:     path,
		Success:  success,
		CacheHit: cacheHit,
		Elapsed:  elapsedSeconds,
	}
	if err := t.db.Create(&record).Error; err != nil {
		t.log.Warn("ledger: insert failed", zap.Error(err), zap.String("path", path))
	}
}

// Get returns the most recent records for mirrorID, newest-first, capped
// at limit (default 250 when limit <= 0).
func (t *Tracker) Get(mirrorID string, limit int) ([]models.RequestRecord, error) {
	if limit <= 0 {
		limit = 250
	}
	q := t.db.Order("time DESC").Limit(limit)
	if mirrorID != "" {
		q = q.Where("mirror_id = ?", mirrorID)
	}
	var records []models.RequestRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// encodeQuery folds query into rawURL using a stable form-URL-encoded
// representation; a failing parse collapses to the bare URL.
func encodeQuery(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = query.Encode()
	return u.String()
}
