// Package feedparser decodes the upstream's RSS-shaped feed into
// canonical ListItems, pulling the namespaced nyaa: extension fields
// (seeders, leechers, downloads, infoHash, categoryId, size, comments,
// trusted, remake) off each item's Extensions map.
package feedparser

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/normalize"
)

// Parse decodes r as the upstream feed document, returning one ListItem per
// <item>. A structural feed error aborts the whole document; the first
// per-item field error stops parsing and is returned to the caller with
// no items.
func Parse(r io.Reader) ([]models.ListItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParseXML, err)
	}

	items := make([]models.ListItem, 0, len(feed.Items))
	for _, raw := range feed.Items {
		item, err := convertItem(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func convertItem(raw *gofeed.Item) (models.ListItem, error) {
	id, err := idFromGUID(raw.GUID)
	if err != nil {
		return models.ListItem{}, err
	}

	pubDate, err := normalize.ParseRFC2822(raw.Published)
	if err != nil {
		return models.ListItem{}, err
	}

	size, err := normalize.ParseSize(nyaaField(raw, "size"))
	if err != nil {
		return models.ListItem{}, err
	}

	category, err := models.ParseCategory(nyaaField(raw, "categoryId"))
	if err != nil {
		return models.ListItem{}, err
	}

	trusted, err := normalize.ParseBool(nyaaField(raw, "trusted"))
	if err != nil {
		return models.ListItem{}, err
	}
	remake, err := normalize.ParseBool(nyaaField(raw, "remake"))
	if err != nil {
		return models.ListItem{}, err
	}

	seeders, err := parseIntField(nyaaField(raw, "seeders"))
	if err != nil {
		return models.ListItem{}, err
	}
	leechers, err := parseIntField(nyaaField(raw, "leechers"))
	if err != nil {
		return models.ListItem{}, err
	}
	downloads, err := parseIntField(nyaaField(raw, "downloads"))
	if err != nil {
		return models.ListItem{}, err
	}
	comments, err := parseIntField(nyaaField(raw, "comments"))
	if err != nil {
		return models.ListItem{}, err
	}

	return models.ListItem{
		ID:           id,
		GUID:         raw.GUID,
		Title:        raw.Title,
		Link:         raw.Link,
		PubDate:      pubDate,
		Seeders:      seeders,
		Leechers:     leechers,
		Downloads:    downloads,
		Category:     category,
		Size:         size,
		Comments:     comments,
		Trusted:      trusted,
		Remake:       remake,
		InfoHash:     nyaaField(raw, "infoHash"),
		Description:  raw.Description,
		DownloadLink: raw.Link,
	}, nil
}

// nyaaField reads the first value of the named nyaa: extension on item, or
// "" if the item carries none.
func nyaaField(item *gofeed.Item, name string) string {
	if item.Extensions == nil {
		return ""
	}
	exts, ok := item.Extensions["nyaa"]
	if !ok {
		return ""
	}
	vals, ok := exts[name]
	if !ok || len(vals) == 0 {
		return ""
	}
	return vals[0].Value
}

func idFromGUID(guid string) (int64, error) {
	tail := path.Base(strings.TrimRight(guid, "/"))
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: guid %q: %v", models.ErrParseInteger, guid, err)
	}
	return id, nil
}

func parseIntField(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", models.ErrParseNumber, s, err)
	}
	return n, nil
}
