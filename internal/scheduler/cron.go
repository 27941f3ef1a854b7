package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"rss-reader/config"
	"rss-reader/internal/service"
)

// Scheduler 定时触发到期Feed的抓取。只负责触发,重试和间隔计算都在抓取侧。
type Scheduler struct {
	cron         *cron.Cron
	feed         *service.FeedService
	fetcher      *service.FetcherService
	config       config.CronConfig
	checkEntryID cron.EntryID
}

func NewScheduler(feed *service.FeedService, fetcher *service.FetcherService, cfg config.CronConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		feed:    feed,
		fetcher: fetcher,
		config:  cfg,
	}
}

func (s *Scheduler) Start() {
	// 到期Feed检查任务
	s.checkEntryID, _ = s.cron.AddFunc(s.config.CheckInterval, func() {
		s.FetchDueFeeds(context.Background())
	})

	s.cron.Start()
	log.Printf("[Cron] Scheduler started (check: %s)", s.config.CheckInterval)
}

// FetchDueFeeds 逐个抓取到期的Feed,顺序执行,避免同一Feed并发抓取
func (s *Scheduler) FetchDueFeeds(ctx context.Context) {
	feeds, err := s.feed.DueFeeds()
	if err != nil {
		log.Printf("[Cron] Query due feeds failed: %v", err)
		return
	}
	if len(feeds) == 0 {
		return
	}

	log.Printf("[Cron] Fetching %d due feeds...", len(feeds))
	for _, feed := range feeds {
		result := s.fetcher.Fetch(ctx, &feed)
		if !result.Success {
			log.Printf("[Cron] Fetch failed (%s): %s", feed.URL, result.Error)
		}
	}
}

// GetNextCheckTime 获取下次检查时间
func (s *Scheduler) GetNextCheckTime() time.Time {
	entry := s.cron.Entry(s.checkEntryID)
	return entry.Next
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
