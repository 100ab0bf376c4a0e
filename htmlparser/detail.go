package htmlparser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/normalize"
)

const defaultAvatarURL = "/static/img/avatar/default.png"

// ParseDetail decodes a torrent detail page into a View. baseURL is used to
// build guid/download_link from the parsed numeric id.
func ParseDetail(r io.Reader, baseURL string) (models.View, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return models.View{}, fmt.Errorf("%w: %v", models.ErrParseString, err)
	}
	// Tabs and newlines make some selector text comparisons brittle; flatten
	// them to spaces before parsing.
	flattened := strings.NewReplacer("\t", " ", "\n", " ").Replace(string(raw))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(flattened))
	if err != nil {
		return models.View{}, fmt.Errorf("%w: %v", models.ErrParseString, err)
	}

	id, err := parseDetailID(doc)
	if err != nil {
		return models.View{}, err
	}

	title := strings.TrimSpace(doc.Find(".panel-title").First().Text())
	if title == "" {
		return models.View{}, &models.HTMLMissingElementError{Selector: ".panel-title"}
	}

	tsAttr, ok := doc.Find("[data-timestamp]").First().Attr("data-timestamp")
	if !ok {
		return models.View{}, &models.HTMLMissingAttributeError{Name: "data-timestamp"}
	}
	pubDate, err := normalize.ParseUnixTimestamp(tsAttr)
	if err != nil {
		return models.View{}, err
	}

	seeders, err := labelInt(doc, "seeders")
	if err != nil {
		return models.View{}, err
	}
	leechers, err := labelInt(doc, "leechers")
	if err != nil {
		return models.View{}, err
	}
	downloads, err := labelInt(doc, "downloads")
	if err != nil {
		return models.View{}, err
	}

	submitter, err := labelText(doc, "submitter")
	if err != nil {
		return models.View{}, err
	}
	infoHash, err := labelText(doc, "info hash")
	if err != nil {
		return models.View{}, err
	}
	infoLink, _ := labelText(doc, "information")

	category, err := parseDetailCategory(doc)
	if err != nil {
		return models.View{}, err
	}

	sizeText, err := labelText(doc, "file size")
	if err != nil {
		return models.View{}, err
	}
	size, err := normalize.ParseSize(sizeText)
	if err != nil {
		return models.View{}, err
	}

	magnet, ok := doc.Find("a[href^='magnet:']").First().Attr("href")
	if !ok {
		return models.View{}, &models.HTMLMissingElementError{Selector: "a[href^='magnet:']"}
	}

	descriptionMD, _ := doc.Find("#torrent-description").First().Html()

	files, err := parseFiles(doc)
	if err != nil {
		return models.View{}, err
	}
	comments, err := parseComments(doc)
	if err != nil {
		return models.View{}, err
	}

	trusted := doc.Find(".panel-success").Length() > 0
	remake := doc.Find(".panel-danger").Length() > 0

	base := strings.TrimRight(baseURL, "/")
	guid := fmt.Sprintf("%s/view/%d", base, id)
	downloadLink := fmt.Sprintf("%s/download/%d.torrent", base, id)

	return models.View{
		ID:            id,
		GUID:          guid,
		Title:         title,
		Link:          downloadLink,
		PubDate:       pubDate,
		Seeders:       seeders,
		Leechers:      leechers,
		Downloads:     downloads,
		Category:      category,
		Size:          size,
		Trusted:       trusted,
		Remake:        remake,
		InfoHash:      infoHash,
		InfoLink:      infoLink,
		DescriptionMD: strings.TrimSpace(descriptionMD),
		Submitter:     submitter,
		DownloadLink:  downloadLink,
		MagnetLink:    magnet,
		Files:         files,
		Comments:      comments,
	}, nil
}

func parseDetailID(doc *goquery.Document) (int64, error) {
	var href string
	var found bool
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, ok := a.Attr("href")
		if ok && strings.HasPrefix(h, "/download/") {
			href = h
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, &models.HTMLMissingElementError{Selector: "a[href^='/download/']"}
	}
	tail := strings.TrimPrefix(href, "/download/")
	tail = strings.TrimSuffix(tail, ".torrent")
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", models.ErrParseInteger, tail, err)
	}
	return id, nil
}

func parseDetailCategory(doc *goquery.Document) (models.Category, error) {
	var code string
	var found bool
	doc.Find(".col-md-5 a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if ok && strings.HasPrefix(href, "/?c=") {
			code = queryTail(href)
			found = true
		}
	})
	if !found {
		return "", &models.HTMLMissingElementError{Selector: ".col-md-5 a[href^='/?c=']"}
	}
	return models.ParseCategory(code)
}

// labelText scans each .row's immediate <div> children; a lowercased,
// trimmed div whose text contains the label means the next sibling
// div's text is the value.
func labelText(doc *goquery.Document, label string) (string, error) {
	label = strings.ToLower(label)
	var value string
	var found bool
	doc.Find(".row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		divs := row.ChildrenFiltered("div")
		divs.EachWithBreak(func(i int, div *goquery.Selection) bool {
			text := strings.ToLower(strings.TrimSpace(div.Text()))
			if strings.Contains(text, label) {
				next := div.Next()
				if next.Length() > 0 {
					value = strings.TrimSpace(next.Text())
					found = true
					return false
				}
			}
			return true
		})
		return !found
	})
	if !found {
		return "", fmt.Errorf("label not found: %s", label)
	}
	return value, nil
}

func labelInt(doc *goquery.Document, label string) (int64, error) {
	text, err := labelText(doc, label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: label %s: %q: %v", models.ErrParseInteger, label, text, err)
	}
	return n, nil
}

func parseFiles(doc *goquery.Document) ([]models.ViewFile, error) {
	var files []models.ViewFile
	items := doc.Find(".torrent-file-list li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("ul").Length() == 0
	})
	for i := 0; i < items.Length(); i++ {
		text := strings.TrimSpace(items.Eq(i).Text())
		parts := strings.SplitN(text, "(", 2)
		if len(parts) != 2 {
			return nil, &models.HTMLUnexpectedElementError{Name: "torrent-file-list entry"}
		}
		name := strings.TrimSpace(parts[0])
		sizeSegments := strings.Split(parts[1], "(")
		sizeText := strings.TrimSuffix(strings.TrimSpace(sizeSegments[len(sizeSegments)-1]), ")")
		size, err := normalize.ParseSize(sizeText)
		if err != nil {
			return nil, err
		}
		files = append(files, models.ViewFile{ID: i, Name: name, Size: size})
	}
	return files, nil
}

func parseComments(doc *goquery.Document) ([]models.ViewComment, error) {
	var comments []models.ViewComment
	panels := doc.Find(".comment-panel")
	var parseErr error
	panels.EachWithBreak(func(_ int, panel *goquery.Selection) bool {
		c, err := parseComment(panel)
		if err != nil {
			parseErr = err
			return false
		}
		comments = append(comments, c)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return comments, nil
}

func parseComment(panel *goquery.Selection) (models.ViewComment, error) {
	idAttr, ok := panel.Attr("id")
	if !ok {
		return models.ViewComment{}, &models.HTMLMissingAttributeError{Name: "id"}
	}
	idText := strings.TrimPrefix(idAttr, "com-")
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return models.ViewComment{}, fmt.Errorf("%w: comment id %q: %v", models.ErrParseInteger, idText, err)
	}

	user := "Anonymous"
	if a := panel.Find(".col-md-2 a").First(); a.Length() > 0 {
		user = strings.TrimSpace(a.Text())
	}

	timestamps := panel.Find("[data-timestamp]")
	if timestamps.Length() == 0 {
		return models.ViewComment{}, &models.HTMLMissingAttributeError{Name: "data-timestamp"}
	}
	dateAttr, _ := timestamps.Eq(0).Attr("data-timestamp")
	date, err := normalize.ParseUnixTimestamp(dateAttr)
	if err != nil {
		return models.ViewComment{}, err
	}

	var edited *time.Time
	if timestamps.Length() > 1 {
		editedAttr, _ := timestamps.Eq(1).Attr("data-timestamp")
		t, err := normalize.ParseUnixTimestamp(editedAttr)
		if err != nil {
			return models.ViewComment{}, err
		}
		edited = &t
	}

	content, _ := panel.Find(".comment-content").First().Html()

	avatar, _ := panel.Find(".avatar").First().Attr("src")
	if avatar == defaultAvatarURL {
		avatar = ""
	}

	return models.ViewComment{
		ID:         id,
		User:       user,
		Date:       date,
		EditedDate: edited,
		Content:    strings.TrimSpace(content),
		Avatar:     avatar,
	}, nil
}
