package models

import "time"

// ListItem is a single torrent listing row, normalized from either the
// upstream XML feed or its rendered HTML listing pages.
type ListItem struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	GUID          string    `gorm:"uniqueIndex;size:512" json:"guid"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	PubDate       time.Time `gorm:"index" json:"pub_date"`
	Seeders       int64     `json:"seeders"`
	Leechers      int64     `json:"leechers"`
	Downloads     int64     `json:"downloads"`
	Category      Category  `gorm:"size:16;index" json:"category"`
	Size          uint64    `json:"size"`
	Comments      int64     `json:"comments"`
	Trusted       bool      `gorm:"index" json:"trusted"`
	Remake        bool      `gorm:"index" json:"remake"`
	InfoHash      string    `gorm:"size:64" json:"info_hash,omitempty"`
	Description   string    `json:"description,omitempty"`
	DownloadLink  string    `json:"download_link,omitempty"`
	MagnetLink    string    `json:"magnet_link,omitempty"`
}

// TableName pins the gorm table name instead of the pluralized default.
func (ListItem) TableName() string {
	return "items"
}

// ViewFile is one entry in a detail view's file listing.
type ViewFile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// ViewComment is one entry in a detail view's comment thread.
type ViewComment struct {
	ID         int64      `json:"id"`
	User       string     `json:"user"`
	Date       time.Time  `json:"date"`
	EditedDate *time.Time `json:"edited_date,omitempty"`
	Content    string     `json:"content"`
	Avatar     string     `json:"avatar,omitempty"`
}

// View is a detail record: a superset of ListItem without the comment
// count but with the full comment thread, file list and description body.
type View struct {
	ID              int64         `json:"id"`
	GUID            string        `json:"guid"`
	Title           string        `json:"title"`
	Link            string        `json:"link"`
	PubDate         time.Time     `json:"pub_date"`
	Seeders         int64         `json:"seeders"`
	Leechers        int64         `json:"leechers"`
	Downloads       int64         `json:"downloads"`
	Category        Category      `json:"category"`
	Size            uint64        `json:"size"`
	Trusted         bool          `json:"trusted"`
	Remake          bool          `json:"remake"`
	InfoHash        string        `json:"info_hash"`
	InfoLink        string        `json:"info_link,omitempty"`
	DescriptionMD   string        `json:"description_md"`
	Submitter       string        `json:"submitter"`
	DownloadLink    string        `json:"download_link,omitempty"`
	MagnetLink      string        `json:"magnet_link"`
	Files           []ViewFile    `json:"files"`
	Comments        []ViewComment `json:"comments"`
}
