package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rss-reader/internal/model"

	"gorm.io/gorm"
)

// IndexService 维护每个Feed的滚动索引:最近maxEntries篇文章摘要,最新在前
type IndexService struct {
	db         *gorm.DB
	maxEntries int
}

func NewIndexService(db *gorm.DB, maxEntries int) *IndexService {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &IndexService{db: db, maxEntries: maxEntries}
}

// Get 读取Feed索引;不存在时返回空索引
func (s *IndexService) Get(feedID uint) (*model.FeedIndex, []model.IndexEntry, error) {
	var idx model.FeedIndex
	err := s.db.Where("feed_id = ?", feedID).First(&idx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.FeedIndex{FeedID: feedID}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var entries []model.IndexEntry
	if len(idx.Articles) > 0 {
		if err := json.Unmarshal(idx.Articles, &entries); err != nil {
			return nil, nil, fmt.Errorf("解析索引失败: %w", err)
		}
	}
	return &idx, entries, nil
}

// Prepend 把新文章插到索引最前面,截断到上限后落库
func (s *IndexService) Prepend(feedID uint, newEntries []model.IndexEntry) error {
	if len(newEntries) == 0 {
		return nil
	}

	idx, existing, err := s.Get(feedID)
	if err != nil {
		return err
	}

	entries := append(newEntries, existing...)
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	idx.Articles = data
	idx.TotalCount = len(entries)
	idx.LastUpdated = time.Now()

	return s.db.Where("feed_id = ?", feedID).
		Assign(model.FeedIndex{
			Articles:    idx.Articles,
			TotalCount:  idx.TotalCount,
			LastUpdated: idx.LastUpdated,
		}).
		FirstOrCreate(&model.FeedIndex{FeedID: feedID}).Error
}
