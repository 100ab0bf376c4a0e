// Package htmlparser decodes the upstream's rendered HTML — both the
// listing pages and the per-torrent detail pages — into the same
// canonical models the feed parser produces, via goquery selectors.
package htmlparser

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/normalize"
)

// ParseList decodes a rendered listing page. baseURL is used to resolve
// item hrefs into absolute guids. Any missing or unparseable field fails
// the whole document.
func ParseList(r io.Reader, baseURL string) ([]models.ListItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParseString, err)
	}

	rows := doc.Find(".table > tbody:nth-child(2) > tr")
	items := make([]models.ListItem, 0, rows.Length())

	var parseErr error
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		item, err := parseListRow(row, baseURL)
		if err != nil {
			parseErr = err
			return false
		}
		items = append(items, item)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return items, nil
}

func parseListRow(row *goquery.Selection, baseURL string) (models.ListItem, error) {
	cells := row.Find("td")
	if cells.Length() != 8 {
		return models.ListItem{}, &models.HTMLUnexpectedElementError{Name: fmt.Sprintf("row with %d cells", cells.Length())}
	}
	cell := func(i int) *goquery.Selection { return cells.Eq(i) }

	catHref, ok := cell(0).Find("a").First().Attr("href")
	if !ok {
		return models.ListItem{}, &models.HTMLMissingAttributeError{Name: "category href"}
	}
	category, err := models.ParseCategory(queryTail(catHref))
	if err != nil {
		return models.ListItem{}, err
	}

	titleCell := cell(1)
	anchors := titleCell.Find("a")
	var comments int64
	var titleAnchor *goquery.Selection
	switch anchors.Length() {
	case 1:
		titleAnchor = anchors.Eq(0)
	case 2:
		commentsText := strings.TrimSpace(anchors.Eq(0).Text())
		n, err := strconv.ParseInt(commentsText, 10, 64)
		if err != nil {
			return models.ListItem{}, fmt.Errorf("%w: comments %q: %v", models.ErrParseInteger, commentsText, err)
		}
		comments = n
		titleAnchor = anchors.Eq(1)
	default:
		return models.ListItem{}, &models.HTMLUnexpectedElementError{Name: "title cell anchors"}
	}
	title := strings.TrimSpace(titleAnchor.Text())
	href, ok := titleAnchor.Attr("href")
	if !ok {
		return models.ListItem{}, &models.HTMLMissingAttributeError{Name: "title href"}
	}
	guid, err := absoluteGUID(baseURL, href)
	if err != nil {
		return models.ListItem{}, err
	}
	id, err := idFromPath(guid)
	if err != nil {
		return models.ListItem{}, err
	}

	dlAnchors := cell(2).Find("a")
	if dlAnchors.Length() != 2 {
		return models.ListItem{}, &models.HTMLUnexpectedElementError{Name: "download cell anchors"}
	}
	torrentHref, _ := dlAnchors.Eq(0).Attr("href")
	magnetHref, ok := dlAnchors.Eq(1).Attr("href")
	if !ok {
		return models.ListItem{}, &models.HTMLMissingAttributeError{Name: "magnet href"}
	}

	size, err := normalize.ParseSize(strings.TrimSpace(cell(3).Text()))
	if err != nil {
		return models.ListItem{}, err
	}

	ts, ok := cell(4).Attr("data-timestamp")
	if !ok {
		return models.ListItem{}, &models.HTMLMissingAttributeError{Name: "data-timestamp"}
	}
	pubDate, err := normalize.ParseUnixTimestamp(ts)
	if err != nil {
		return models.ListItem{}, err
	}

	seeders, err := parseCellInt(cell(5))
	if err != nil {
		return models.ListItem{}, err
	}
	leechers, err := parseCellInt(cell(6))
	if err != nil {
		return models.ListItem{}, err
	}
	downloads, err := parseCellInt(cell(7))
	if err != nil {
		return models.ListItem{}, err
	}

	class, _ := row.Attr("class")
	trusted := strings.Contains(class, "success")
	remake := strings.Contains(class, "danger")

	return models.ListItem{
		ID:           id,
		GUID:         guid,
		Title:        title,
		Link:         torrentHref,
		PubDate:      pubDate,
		Seeders:      seeders,
		Leechers:     leechers,
		Downloads:    downloads,
		Category:     category,
		Size:         size,
		Comments:     comments,
		Trusted:      trusted,
		Remake:       remake,
		DownloadLink: torrentHref,
		MagnetLink:   magnetHref,
	}, nil
}

func parseCellInt(cell *goquery.Selection) (int64, error) {
	text := strings.TrimSpace(cell.Text())
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", models.ErrParseInteger, text, err)
	}
	return n, nil
}

// queryTail returns the tail of a query string after the first "=", the
// way category hrefs of the form "/?c=1_2" encode the category code.
func queryTail(href string) string {
	i := strings.Index(href, "=")
	if i < 0 {
		return ""
	}
	return href[i+1:]
}

func absoluteGUID(baseURL, href string) (string, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: base url %q: %v", models.ErrParseString, baseURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: href %q: %v", models.ErrParseString, href, err)
	}
	return strings.TrimRight(base.ResolveReference(ref).String(), "/"), nil
}

func idFromPath(absoluteURL string) (int64, error) {
	u, err := url.Parse(absoluteURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", models.ErrParseString, absoluteURL, err)
	}
	tail := path.Base(u.Path)
	tail = strings.TrimSuffix(tail, ".torrent")
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", models.ErrParseInteger, tail, err)
	}
	return id, nil
}
