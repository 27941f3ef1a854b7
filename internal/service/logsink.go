package service

import (
	"rss-reader/internal/model"

	"gorm.io/gorm"
)

// LogService 抓取日志与抓取状态的落库。日志按Feed追加,状态每Feed一行覆盖。
type LogService struct {
	db *gorm.DB
}

func NewLogService(db *gorm.DB) *LogService {
	return &LogService{db: db}
}

// Append 追加一条结构化日志
func (s *LogService) Append(feedID uint, level model.LogLevel, action model.LogAction, subject string, durationMs *int64, message string) error {
	entry := model.FetchLog{
		FeedID:     feedID,
		Level:      level,
		Action:     action,
		Subject:    subject,
		DurationMs: durationMs,
		Message:    message,
	}
	return s.db.Create(&entry).Error
}

// Recent 返回最近N条日志,新的在前
func (s *LogService) Recent(feedID uint, limit int) ([]model.FetchLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var logs []model.FetchLog
	err := s.db.Where("feed_id = ?", feedID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// UpdateStatus 覆盖写Feed的最近一次抓取状态。
// 用map赋值,零值字段(清空error、归零计数)也要覆盖。
func (s *LogService) UpdateStatus(feedID uint, status model.FetchStatus) error {
	return s.db.Where("feed_id = ?", feedID).
		Assign(map[string]interface{}{
			"last_fetch_at":  status.LastFetchAt,
			"status":         status.Status,
			"error":          status.Error,
			"duration_ms":    status.DurationMs,
			"articles_found": status.ArticlesFound,
			"articles_new":   status.ArticlesNew,
			"next_fetch_at":  status.NextFetchAt,
		}).
		FirstOrCreate(&model.FetchStatus{FeedID: feedID}).Error
}

// GetStatus 读取Feed的最近一次抓取状态
func (s *LogService) GetStatus(feedID uint) (*model.FetchStatus, error) {
	var status model.FetchStatus
	if err := s.db.Where("feed_id = ?", feedID).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// SuccessRate 按结构化日志统计近期抓取成功率:FETCH为一次尝试,DONE为一次成功
func (s *LogService) SuccessRate(feedID uint, window int) float64 {
	var logs []model.FetchLog
	s.db.Where("feed_id = ? AND action IN ?", feedID, []model.LogAction{model.ActionDone, model.ActionFetch}).
		Order("id DESC").
		Limit(window * 2).
		Find(&logs)

	// 每次尝试开头记一条INFO级FETCH;失败行也可能是FETCH但级别是ERROR,不能重复计
	var attempts, done int
	for _, l := range logs {
		switch {
		case l.Action == model.ActionFetch && l.Level == model.LevelInfo:
			attempts++
		case l.Action == model.ActionDone:
			done++
		}
	}

	if attempts == 0 {
		return 0
	}
	return float64(done) / float64(attempts)
}
