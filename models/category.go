package models

import "fmt"

// Category is a closed enumeration of upstream listing categories, encoded
// on the wire as "<major>_<minor>". 0_0 means "all" / unspecified.
type Category string

const (
	CategoryAll               Category = "0_0"
	CategoryAnime             Category = "1_0"
	CategoryAnimeAMV          Category = "1_1"
	CategoryAnimeEnglish      Category = "1_2"
	CategoryAnimeNonEnglish   Category = "1_3"
	CategoryAnimeRaw          Category = "1_4"
	CategoryAudio             Category = "2_0"
	CategoryAudioLossless     Category = "2_1"
	CategoryAudioLossy        Category = "2_2"
	CategoryLiterature        Category = "3_0"
	CategoryLiteratureEnglish Category = "3_1"
	CategoryLiteratureNonEng  Category = "3_2"
	CategoryLiteratureRaw     Category = "3_3"
	CategoryLiveAction        Category = "4_0"
	CategoryLiveActionEnglish Category = "4_1"
	CategoryLiveActionIdol    Category = "4_2"
	CategoryLiveActionNonEng  Category = "4_3"
	CategoryLiveActionRaw     Category = "4_4"
	CategoryPictures          Category = "5_0"
	CategoryPicturesGraphics  Category = "5_1"
	CategoryPicturesPhotos    Category = "5_2"
	CategorySoftware          Category = "6_0"
	CategorySoftwareApps      Category = "6_1"
	CategorySoftwareGames     Category = "6_2"
)

// categories is the complete set of valid codes; ParseCategory
// rejects anything not present here.
var categories = map[Category]struct{}{
	CategoryAll:               {},
	CategoryAnime:             {},
	CategoryAnimeAMV:          {},
	CategoryAnimeEnglish:      {},
	CategoryAnimeNonEnglish:   {},
	CategoryAnimeRaw:          {},
	CategoryAudio:             {},
	CategoryAudioLossless:     {},
	CategoryAudioLossy:        {},
	CategoryLiterature:        {},
	CategoryLiteratureEnglish: {},
	CategoryLiteratureNonEng:  {},
	CategoryLiteratureRaw:     {},
	CategoryLiveAction:        {},
	CategoryLiveActionEnglish: {},
	CategoryLiveActionIdol:    {},
	CategoryLiveActionNonEng:  {},
	CategoryLiveActionRaw:     {},
	CategoryPictures:          {},
	CategoryPicturesGraphics:  {},
	CategoryPicturesPhotos:    {},
	CategorySoftware:          {},
	CategorySoftwareApps:      {},
	CategorySoftwareGames:     {},
}

// ParseCategory validates s against the closed category set. Unknown codes
// fail rather than silently passing through.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrParseCategory, s)
	}
	return c, nil
}

func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the enumerated codes.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}
