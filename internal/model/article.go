package model

import (
	"time"

	"gorm.io/datatypes"
)

// Enclosure RSS附件(播客音频、图片等)
type Enclosure struct {
	URL    string `json:"url"`
	Type   string `json:"type,omitempty"`
	Length string `json:"length,omitempty"`
}

// Article 一条已入库的Feed条目。以内容哈希为身份标识,写入后不再修改,
// 只允许后续补充(AI摘要、已读/收藏标记)。
type Article struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	FeedID       uint           `gorm:"not null;uniqueIndex:idx_feed_hash" json:"feed_id"`
	Feed         Feed           `gorm:"foreignKey:FeedID" json:"feed,omitempty"`
	Hash         string         `gorm:"size:32;not null;uniqueIndex:idx_feed_hash" json:"hash"`
	Title        string         `gorm:"size:500" json:"title"`
	URL          string         `gorm:"size:500" json:"url"`
	Author       string         `gorm:"size:255" json:"author,omitempty"`
	PublishedAt  *time.Time     `json:"published_at,omitempty"`
	Content      string         `gorm:"type:text" json:"content,omitempty"`
	ContentText  string         `gorm:"type:text" json:"content_text,omitempty"`
	Summary      string         `gorm:"type:text" json:"summary,omitempty"`
	Categories   datatypes.JSON `json:"categories,omitempty"`
	Enclosures   datatypes.JSON `json:"enclosures,omitempty"`
	AISummary    string         `gorm:"type:text" json:"ai_summary,omitempty"`
	IsRead       bool           `gorm:"default:false" json:"is_read"`
	IsBookmarked bool           `gorm:"default:false" json:"is_bookmarked"`
	FetchedAt    time.Time      `json:"fetched_at"`
}
