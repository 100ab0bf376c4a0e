package feedparser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
  <channel>
    <title>Sample feed</title>
    <item>
      <title>Some Show - 01 [1080p]</title>
      <link>https://h/download/1953465.torrent</link>
      <guid isPermaLink="true">https://h/view/1953465</guid>
      <pubDate>Sat, 29 Mar 2025 06:51:19 -0000</pubDate>
      <nyaa:seeders>59</nyaa:seeders>
      <nyaa:leechers>2</nyaa:leechers>
      <nyaa:downloads>120</nyaa:downloads>
      <nyaa:infoHash>ABCD1234</nyaa:infoHash>
      <nyaa:categoryId>1_2</nyaa:categoryId>
      <nyaa:category>Anime - English-translated</nyaa:category>
      <nyaa:size>205.9 MiB</nyaa:size>
      <nyaa:comments>3</nyaa:comments>
      <nyaa:trusted>No</nyaa:trusted>
      <nyaa:remake>No</nyaa:remake>
      <description></description>
    </item>
  </channel>
</rss>`

func TestParse_HappyPath(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, int64(1953465), item.ID)
	assert.Equal(t, "1_2", item.Category.String())
	assert.Equal(t, uint64(215_901_798), item.Size)
	assert.False(t, item.Trusted)
	assert.False(t, item.Remake)
	assert.Equal(t, int64(59), item.Seeders)
	assert.Equal(t, time.Date(2025, 3, 29, 6, 51, 19, 0, time.UTC), item.PubDate)
}

func TestParse_BadGUIDAbortsItem(t *testing.T) {
	bad := strings.Replace(sampleFeed, "https://h/view/1953465", "https://h/view/not-a-number", 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
}

func TestParse_BadCategoryFails(t *testing.T) {
	bad := strings.Replace(sampleFeed, "<nyaa:categoryId>1_2</nyaa:categoryId>", "<nyaa:categoryId>99_99</nyaa:categoryId>", 1)
	_, err := Parse(strings.NewReader(bad))
	require.Error(t, err)
}

func TestParse_MalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader("<rss><channel><item>"))
	require.Error(t, err)
}
