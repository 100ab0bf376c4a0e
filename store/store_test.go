package store

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sunerpy/indexproxy/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func item(id int64, seeders int64, remake, trusted bool, ts time.Time) models.ListItem {
	return models.ListItem{
		ID:       id,
		GUID:     "https://h/view/" + string(rune('0'+id)),
		Title:    "item",
		PubDate:  ts,
		Seeders:  seeders,
		Category: models.CategoryAnimeEnglish,
		Remake:   remake,
		Trusted:  trusted,
	}
}

func TestItemStore_UpsertOverwritesAllColumns(t *testing.T) {
	s, err := New(setupTestDB(t))
	require.NoError(t, err)

	first := item(1, 10, false, false, time.Now())
	require.NoError(t, s.Upsert(&first))

	second := item(1, 99, true, true, time.Now())
	second.Title = "updated"
	require.NoError(t, s.Upsert(&second))

	_, _, got, err := s.Query(Query{Count: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(99), got[0].Seeders)
	assert.True(t, got[0].Remake)
	assert.True(t, got[0].Trusted)
	assert.Equal(t, "updated", got[0].Title)
}

func TestItemStore_Query_FilterAndSort(t *testing.T) {
	s, err := New(setupTestDB(t))
	require.NoError(t, err)

	now := time.Now()
	a := item(1, 5, true, false, now)
	b := item(2, 50, false, true, now.Add(time.Second))
	c := item(3, 20, false, false, now.Add(2*time.Second))
	require.NoError(t, s.Upsert(&a))
	require.NoError(t, s.Upsert(&b))
	require.NoError(t, s.Upsert(&c))

	_, _, got, err := s.Query(Query{Count: 10, Filter: FilterNoRemake, Sort: SortSeeders, Order: OrderDesc})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	_, _, got, err = s.Query(Query{Count: 10, Filter: FilterTrusted})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestItemStore_Query_PagingAlignsOffset(t *testing.T) {
	s, err := New(setupTestDB(t))
	require.NoError(t, err)
	now := time.Now()
	for i := int64(1); i <= 5; i++ {
		it := item(i, i, false, false, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Upsert(&it))
	}

	offset, count, got, err := s.Query(Query{Offset: 7, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, offset) // aligned down to a multiple of count
	assert.Equal(t, 2, count)
	assert.Len(t, got, 0) // only 5 rows exist, offset 6 is past them

	total, err := s.Count(Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestItemStore_Query_Since(t *testing.T) {
	s, err := New(setupTestDB(t))
	require.NoError(t, err)
	now := time.Now()
	old := item(1, 1, false, false, now.Add(-time.Hour))
	recent := item(2, 1, false, false, now)
	require.NoError(t, s.Upsert(&old))
	require.NoError(t, s.Upsert(&recent))

	_, _, got, err := s.Query(Query{Count: 10, Since: now.Add(-time.Minute).Unix()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}
