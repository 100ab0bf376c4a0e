// Package store implements the relational item store: a single `items`
// table with upsert semantics and paged/filtered/sorted retrieval,
// gorm-backed.
package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sunerpy/indexproxy/models"
)

// Filter selects a retrieval-time row predicate beyond category/since.
type Filter int

const (
	FilterNone Filter = iota
	FilterNoRemake
	FilterTrusted
)

// Sort picks the column Query orders by.
type Sort string

const (
	SortDate      Sort = "date"
	SortSeeders   Sort = "seeders"
	SortLeechers  Sort = "leechers"
	SortDownloads Sort = "downloads"
	SortSize      Sort = "size"
)

// Order is the retrieval sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// sortColumn maps the wire-level Sort enum to items' actual gorm column
// names, since the "date" sort key orders by ListItem.PubDate, stored in
// the "pub_date" column.
var sortColumn = map[Sort]string{
	SortDate:      "pub_date",
	SortSeeders:   "seeders",
	SortLeechers:  "leechers",
	SortDownloads: "downloads",
	SortSize:      "size",
}

// Query is the retrieval request shape.
type Query struct {
	Offset   int
	Count    int
	Since    int64 // epoch seconds; 0 means unset
	Category models.Category
	Filter   Filter
	Sort     Sort
	Order    Order
}

// normalize applies the defaulting/alignment rules: count defaults to 75
// and is clamped to at least 1; offset is aligned down to a multiple of
// count; unrecognized sort/order fall back to date/desc.
func (q Query) normalize() Query {
	if q.Count <= 0 {
		q.Count = 75
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Offset = (q.Offset / q.Count) * q.Count
	if _, ok := sortColumn[q.Sort]; !ok {
		q.Sort = SortDate
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		q.Order = OrderDesc
	}
	return q
}

// ItemStore wraps a gorm.DB scoped to the items table. Each operation runs
// its own query; no long-lived transaction is held.
type ItemStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*ItemStore, error) {
	if err := db.AutoMigrate(&models.ListItem{}); err != nil {
		return nil, fmt.Errorf("store: automigrate items: %w", err)
	}
	return &ItemStore{db: db}, nil
}

// Upsert inserts item, or overwrites every column on a primary-key
// conflict: no merge of older non-null fields.
func (s *ItemStore) Upsert(item *models.ListItem) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(item).Error
}

// UpsertAll upserts a batch of items one at a time. Gorm's clause.OnConflict
// applies per-row, so a batch insert still gets the same overwrite
// semantics for rows that already exist.
func (s *ItemStore) UpsertAll(items []models.ListItem) error {
	for i := range items {
		if err := s.Upsert(&items[i]); err != nil {
			return fmt.Errorf("store: upsert id=%d: %w", items[i].ID, err)
		}
	}
	return nil
}

func (q Query) apply(db *gorm.DB) *gorm.DB {
	if q.Since > 0 {
		db = db.Where("pub_date > ?", time.Unix(q.Since, 0).UTC())
	}
	if q.Category != "" && q.Category != models.CategoryAll {
		db = db.Where("category = ?", q.Category)
	}
	switch q.Filter {
	case FilterNoRemake:
		db = db.Where("remake = ?", false)
	case FilterTrusted:
		db = db.Where("trusted = ?", true)
	}
	return db
}

// Query returns the aligned offset, the page size, and the matching rows
// for the given filter/sort/paging request.
func (s *ItemStore) Query(q Query) (offset int, count int, items []models.ListItem, err error) {
	q = q.normalize()
	db := q.apply(s.db.Model(&models.ListItem{}))
	order := fmt.Sprintf("%s %s", sortColumn[q.Sort], q.Order)
	if err := db.Order(order).Offset(q.Offset).Limit(q.Count).Find(&items).Error; err != nil {
		return 0, 0, nil, fmt.Errorf("store: query: %w", err)
	}
	return q.Offset, q.Count, items, nil
}

// Count returns the total number of rows matching q's filter, ignoring
// paging.
func (s *ItemStore) Count(q Query) (int64, error) {
	var total int64
	db := q.apply(s.db.Model(&models.ListItem{}))
	if err := db.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return total, nil
}
