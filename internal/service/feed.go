package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gorm.io/gorm"
	"mvdan.cc/xurls/v2"

	"rss-reader/internal/hash"
	"rss-reader/internal/model"
)

// FeedService 订阅源的创建、校验与元数据补全
type FeedService struct {
	db     *gorm.DB
	parser *gofeed.Parser
	client *http.Client
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{
		db:     db,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Subscribe 订阅一个Feed:先拉一次确认可解析,再补全标题、站点、图标
func (s *FeedService) Subscribe(ctx context.Context, feedURL string, categoryID *uint) (*model.Feed, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("feed URL不能为空")
	}

	parsed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("无法解析Feed (%s): %w", feedURL, err)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = feedURL
	}

	feed := model.Feed{
		URLHash:     hash.URLHash(feedURL),
		URL:         feedURL,
		Title:       title,
		Description: parsed.Description,
		SiteURL:     parsed.Link,
		CategoryID:  categoryID,
		Active:      true,
	}

	if parsed.Link != "" {
		feed.FaviconURL = s.discoverFavicon(ctx, parsed.Link)
	}

	if err := s.db.Create(&feed).Error; err != nil {
		return nil, err
	}
	return &feed, nil
}

// Discover 从一段文本里提取https链接,逐个验证是否为可解析的Feed
func (s *FeedService) Discover(ctx context.Context, text string) []model.Feed {
	httpsRe, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return nil
	}

	var candidates []model.Feed
	seen := make(map[string]struct{})

	for _, u := range httpsRe.FindAllString(text, -1) {
		u = strings.TrimSpace(u)
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		parsed, err := s.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			continue // 不是Feed,跳过
		}

		title := strings.TrimSpace(parsed.Title)
		if title == "" {
			title = u
		}
		candidates = append(candidates, model.Feed{
			URLHash: hash.URLHash(u),
			URL:     u,
			Title:   title,
			SiteURL: parsed.Link,
		})
	}

	return candidates
}

// discoverFavicon 从站点首页找<link rel=icon>,找不到就猜/favicon.ico
func (s *FeedService) discoverFavicon(ctx context.Context, siteURL string) string {
	base, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return ""
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	var href string
	doc.Find(`link[rel="icon"], link[rel="shortcut icon"], link[rel="apple-touch-icon"]`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if v, ok := sel.Attr("href"); ok && v != "" {
				href = v
				return false
			}
			return true
		})

	if href == "" {
		return base.Scheme + "://" + base.Host + "/favicon.ico"
	}

	if u, err := url.Parse(href); err == nil {
		return base.ResolveReference(u).String()
	}
	return href
}

// DueFeeds 返回已到期(或从未抓取过)的启用Feed
func (s *FeedService) DueFeeds() ([]model.Feed, error) {
	var feeds []model.Feed
	err := s.db.Where("active = ?", true).
		Where("id NOT IN (?)",
			s.db.Model(&model.FetchStatus{}).
				Select("feed_id").
				Where("next_fetch_at > ?", time.Now()),
		).
		Find(&feeds).Error
	return feeds, err
}

// ActiveFeeds 返回所有启用的Feed
func (s *FeedService) ActiveFeeds() ([]model.Feed, error) {
	var feeds []model.Feed
	err := s.db.Where("active = ?", true).Find(&feeds).Error
	return feeds, err
}
