package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rss-reader/config"
	"rss-reader/internal/hash"
	"rss-reader/internal/model"
	"rss-reader/internal/proxy"
)

// FetchResult 单次抓取的结果汇总
type FetchResult struct {
	Success         bool   `json:"success"`
	ArticlesFound   int    `json:"articles_found"`
	ArticlesNew     int    `json:"articles_new"`
	ArticlesUpdated int    `json:"articles_updated"`
	DurationMs      int64  `json:"duration_ms"`
	Error           string `json:"error,omitempty"`
}

// FetcherService 抓取单个Feed:下载 → 解析 → 按哈希去重入库 → 更新索引和状态。
// 同步执行,无内部重试;重试和调度是外部关心的事。
type FetcherService struct {
	db              *gorm.DB
	parser          *gofeed.Parser
	client          *http.Client
	logs            *LogService
	index           *IndexService
	defaultInterval int
}

func NewFetcherService(db *gorm.DB, logs *LogService, index *IndexService, resolver *proxy.Resolver, cfg config.FetchConfig) *FetcherService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{}
	if resolver != nil {
		// 代理在首次请求时才探测,之后复用
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			return resolver.Resolve(), nil
		}
	}

	interval := cfg.DefaultIntervalMinutes
	if interval <= 0 {
		interval = 60
	}

	return &FetcherService{
		db:              db,
		parser:          gofeed.NewParser(),
		client:          &http.Client{Timeout: timeout, Transport: transport},
		logs:            logs,
		index:           index,
		defaultInterval: interval,
	}
}

// Fetch 抓取单个Feed。任何失败都转成结果返回,不向上抛异常。
func (s *FetcherService) Fetch(ctx context.Context, feed *model.Feed) FetchResult {
	start := time.Now()
	s.appendLog(feed.ID, model.LevelInfo, model.ActionFetch, feed.URL, nil, "")

	body, err := s.download(ctx, feed.URL)
	if err != nil {
		return s.fail(feed, start, model.ActionFetch, err)
	}

	parsed, err := s.parser.ParseString(string(body))
	if err != nil {
		return s.fail(feed, start, model.ActionParse, fmt.Errorf("解析Feed失败: %w", err))
	}

	var found, added int
	var newEntries []model.IndexEntry

	for _, item := range parsed.Items {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		// 标题和链接都没有的条目直接跳过,不计入found
		if item.Title == "" && link == "" {
			continue
		}
		found++

		h := hash.ArticleHash(link, item.Title, item.Published)

		inserted, err := s.insertIfAbsent(feed, item, link, h)
		if err != nil {
			return s.fail(feed, start, model.ActionNew, fmt.Errorf("写入文章失败: %w", err))
		}
		if !inserted {
			continue // 已入库,无需重写
		}

		added++
		newEntries = append(newEntries, model.IndexEntry{
			Hash:        h,
			Title:       item.Title,
			URL:         link,
			Author:      itemAuthor(item),
			PublishedAt: item.PublishedParsed,
			Summary:     item.Description,
		})
		s.appendLog(feed.ID, model.LevelSuccess, model.ActionNew, item.Title, nil,
			fmt.Sprintf("hash=%s", h[:8]))
	}

	if added > 0 {
		if err := s.index.Prepend(feed.ID, newEntries); err != nil {
			return s.fail(feed, start, model.ActionIndex, fmt.Errorf("更新索引失败: %w", err))
		}
		s.appendLog(feed.ID, model.LevelSuccess, model.ActionIndex, feed.URL, nil,
			fmt.Sprintf("%d new entries", added))
	}

	durationMs := time.Since(start).Milliseconds()
	s.appendLog(feed.ID, model.LevelSuccess, model.ActionDone, feed.URL, &durationMs,
		fmt.Sprintf("found=%d new=%d", found, added))

	result := FetchResult{
		Success:       true,
		ArticlesFound: found,
		ArticlesNew:   added,
		DurationMs:    durationMs,
	}

	// 状态行写失败,本次抓取按失败上报:否则下游读到的计数就是错的。
	// 已写入的文章照常保留,计数照常返回。
	if err := s.updateStatus(feed, result); err != nil {
		statusErr := fmt.Errorf("写入抓取状态失败: %w", err)
		s.appendLog(feed.ID, model.LevelError, model.ActionDone, feed.URL, &durationMs, statusErr.Error())
		result.Success = false
		result.Error = statusErr.Error()
	}
	return result
}

// download 发起一次GET请求,非2xx状态码和超时都视为失败
func (s *FetcherService) download(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

// insertIfAbsent 按(feed_id, hash)幂等插入,已存在时不写不报错。
// 去重判断和写入是同一条语句,并发抓同一Feed也不会写重。
func (s *FetcherService) insertIfAbsent(feed *model.Feed, item *gofeed.Item, link, h string) (bool, error) {
	article := model.Article{
		FeedID:      feed.ID,
		Hash:        h,
		Title:       item.Title,
		URL:         link,
		Author:      itemAuthor(item),
		PublishedAt: item.PublishedParsed,
		Content:     item.Content,
		ContentText: item.Description,
		Summary:     item.Description,
		FetchedAt:   time.Now(),
	}

	if len(item.Categories) > 0 {
		if data, err := json.Marshal(item.Categories); err == nil {
			article.Categories = data
		}
	}
	if len(item.Enclosures) > 0 {
		encs := make([]model.Enclosure, 0, len(item.Enclosures))
		for _, e := range item.Enclosures {
			encs = append(encs, model.Enclosure{URL: e.URL, Type: e.Type, Length: e.Length})
		}
		if data, err := json.Marshal(encs); err == nil {
			article.Enclosures = data
		}
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "feed_id"}, {Name: "hash"}},
		DoNothing: true,
	}).Create(&article)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// fail 统一的失败出口:记日志、写状态、组装失败结果
func (s *FetcherService) fail(feed *model.Feed, start time.Time, action model.LogAction, err error) FetchResult {
	durationMs := time.Since(start).Milliseconds()
	s.appendLog(feed.ID, model.LevelError, action, feed.URL, &durationMs, err.Error())

	result := FetchResult{
		Success:    false,
		DurationMs: durationMs,
		Error:      err.Error(),
	}
	// 本次已经是失败结果,状态行写不进去只留痕,不再改结果
	if err := s.updateStatus(feed, result); err != nil {
		log.Printf("[Fetcher] Update status failed (%s): %v", feed.URL, err)
	}
	return result
}

// appendLog 日志落库失败不影响抓取流程,但要在进程日志里留痕
func (s *FetcherService) appendLog(feedID uint, level model.LogLevel, action model.LogAction, subject string, durationMs *int64, message string) {
	if err := s.logs.Append(feedID, level, action, subject, durationMs, message); err != nil {
		log.Printf("[Fetcher] Append log failed (feed %d): %v", feedID, err)
	}
}

// updateStatus 成功失败都要覆盖写状态行,并计算下次抓取时间
func (s *FetcherService) updateStatus(feed *model.Feed, result FetchResult) error {
	interval := feed.FetchIntervalMinutes
	if interval <= 0 {
		interval = s.defaultInterval
	}

	status := model.FetchStatus{
		LastFetchAt:   time.Now(),
		Status:        "success",
		Error:         result.Error,
		DurationMs:    result.DurationMs,
		ArticlesFound: result.ArticlesFound,
		ArticlesNew:   result.ArticlesNew,
		NextFetchAt:   time.Now().Add(time.Duration(interval) * time.Minute),
	}
	if !result.Success {
		status.Status = "error"
	}

	return s.logs.UpdateStatus(feed.ID, status)
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	return ""
}
