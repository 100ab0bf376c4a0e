package models

import "time"

// RequestRecord is one row of the request-tracker ledger: the durable,
// append-only log of fetch outcomes used for per-origin health reporting.
type RequestRecord struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	MirrorID string    `gorm:"index;size:64" json:"mirror_id,omitempty"`
	Time     time.Time `gorm:"index" json:"timestamp"`
	Path     string    `json:"path"`
	Success  bool      `json:"success"`
	CacheHit bool      `json:"cache_hit"`
	Elapsed  float64   `json:"elapsed_seconds"`
}

func (RequestRecord) TableName() string {
	return "requests"
}
