package model

import (
	"time"

	"gorm.io/datatypes"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelSuccess LogLevel = "SUCCESS"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
)

type LogAction string

const (
	ActionFetch LogAction = "FETCH"
	ActionParse LogAction = "PARSE"
	ActionNew   LogAction = "NEW"
	ActionIndex LogAction = "INDEX"
	ActionDone  LogAction = "DONE"
)

// FetchLog 结构化的抓取日志,按Feed追加,只读历史
type FetchLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedID     uint      `gorm:"not null;index" json:"feed_id"`
	Level      LogLevel  `gorm:"size:10;not null" json:"level"`
	Action     LogAction `gorm:"size:10;not null" json:"action"`
	Subject    string    `gorm:"size:500" json:"subject"`
	DurationMs *int64    `json:"duration_ms,omitempty"`
	Message    string    `gorm:"size:1000" json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FetchStatus 每个Feed一行,每次抓取整行覆盖
type FetchStatus struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FeedID        uint      `gorm:"uniqueIndex;not null" json:"feed_id"`
	LastFetchAt   time.Time `json:"last_fetch_at"`
	Status        string    `gorm:"size:10" json:"status"` // success, error
	Error         string    `gorm:"size:1000" json:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	ArticlesFound int       `json:"articles_found"`
	ArticlesNew   int       `json:"articles_new"`
	NextFetchAt   time.Time `json:"next_fetch_at"`
}

// FeedIndex 每个Feed的滚动索引:最近N篇文章的摘要列表,最新在前
type FeedIndex struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	FeedID      uint           `gorm:"uniqueIndex;not null" json:"feed_id"`
	LastUpdated time.Time      `json:"last_updated"`
	TotalCount  int            `json:"total_count"`
	Articles    datatypes.JSON `json:"articles"`
}

// IndexEntry 索引中的单条文章摘要
type IndexEntry struct {
	Hash        string     `json:"hash"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Summary     string     `json:"summary,omitempty"`
}
