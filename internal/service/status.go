package service

import (
	"time"

	"rss-reader/internal/model"

	"gorm.io/gorm"
)

type StatusService struct {
	db *gorm.DB
}

type SystemStatus struct {
	// 文章统计
	TotalArticles      int64 `json:"total_articles"`
	UnreadArticles     int64 `json:"unread_articles"`
	BookmarkedArticles int64 `json:"bookmarked_articles"`

	// 订阅源统计
	TotalFeeds  int64 `json:"total_feeds"`
	ActiveFeeds int64 `json:"active_feeds"`
	ErrorFeeds  int64 `json:"error_feeds"`

	// 定时任务信息
	NextCheckTime time.Time `json:"next_check_time"`
}

func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db}
}

// GetSystemStatus 获取系统状态
func (s *StatusService) GetSystemStatus() (*SystemStatus, error) {
	status := &SystemStatus{}

	// 统计文章
	s.db.Model(&model.Article{}).Count(&status.TotalArticles)
	s.db.Model(&model.Article{}).Where("is_read = ?", false).Count(&status.UnreadArticles)
	s.db.Model(&model.Article{}).Where("is_bookmarked = ?", true).Count(&status.BookmarkedArticles)

	// 统计订阅源
	s.db.Model(&model.Feed{}).Count(&status.TotalFeeds)
	s.db.Model(&model.Feed{}).Where("active = ?", true).Count(&status.ActiveFeeds)
	s.db.Model(&model.FetchStatus{}).Where("status = ?", "error").Count(&status.ErrorFeeds)

	return status, nil
}
