package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rss-reader/config"
	"rss-reader/internal/handler"
	"rss-reader/internal/hash"
	"rss-reader/internal/model"
	"rss-reader/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&model.Category{},
		&model.Feed{},
		&model.Article{},
		&model.FeedIndex{},
		&model.FetchStatus{},
		&model.FetchLog{},
		&model.Config{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logs := service.NewLogService(db)
	index := service.NewIndexService(db, 1000)
	fetcher := service.NewFetcherService(db, logs, index, nil, config.FetchConfig{
		TimeoutSeconds:         5,
		DefaultIntervalMinutes: 60,
	})

	r := gin.New()
	h := handler.NewHandler(db, fetcher, index, logs)
	h.RegisterRoutes(r)
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCategoryCRUD(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/categories", gin.H{"name": "技术", "sort_order": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("create category: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/categories", nil)
	var categories []model.Category
	if err := json.Unmarshal(w.Body.Bytes(), &categories); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "技术" {
		t.Fatalf("unexpected categories: %+v", categories)
	}
}

func TestFetchFeedEndpoint(t *testing.T) {
	r, db := newTestRouter(t)

	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>Hello</title><link>https://example.com/hello</link>
<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer srv.Close()

	feed := model.Feed{URLHash: hash.URLHash(srv.URL), URL: srv.URL, Title: "T", Active: true}
	if err := db.Create(&feed).Error; err != nil {
		t.Fatalf("create feed: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/feeds/%d/fetch", feed.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch: %d %s", w.Code, w.Body.String())
	}

	var result service.FetchResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.ArticlesNew != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// 文章出现在列表接口里
	w = doJSON(t, r, http.MethodGet, "/api/articles", nil)
	var page struct {
		Data  []model.Article `json:"data"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Data[0].Title != "Hello" {
		t.Fatalf("unexpected articles: %+v", page)
	}

	// 抓取状态接口有最新一次记录
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/feeds/%d/status", feed.ID), nil)
	var status model.FetchStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "success" || status.ArticlesNew != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestFetchFeedSurvivesClientDisconnect(t *testing.T) {
	r, db := newTestRouter(t)

	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>Hello</title><link>https://example.com/hello</link></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer srv.Close()

	feed := model.Feed{URLHash: hash.URLHash(srv.URL), URL: srv.URL, Title: "T", Active: true}
	db.Create(&feed)

	// 请求上下文已取消,模拟客户端断开:抓取仍应完整跑完
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/feeds/%d/fetch", feed.ID), nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected fetch to complete, got %d %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&model.Article{}).Where("feed_id = ?", feed.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 article despite disconnect, got %d", count)
	}
}

func TestFetchFeedNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/feeds/999/fetch", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestFetchFeedUpstreamFailure(t *testing.T) {
	r, db := newTestRouter(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	feed := model.Feed{URLHash: hash.URLHash(srv.URL), URL: srv.URL, Title: "T", Active: true}
	db.Create(&feed)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/feeds/%d/fetch", feed.ID), nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on upstream failure, got %d", w.Code)
	}

	var result service.FetchResult
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.Success || result.Error == "" {
		t.Fatalf("expected error result passed through verbatim: %+v", result)
	}
}

func TestMarkReadAndBookmark(t *testing.T) {
	r, db := newTestRouter(t)

	feed := model.Feed{URLHash: "abcdef123456", URL: "https://e.com/f", Title: "T", Active: true}
	db.Create(&feed)
	article := model.Article{
		FeedID:    feed.ID,
		Hash:      hash.ArticleHash("https://e.com/1", "One", ""),
		Title:     "One",
		URL:       "https://e.com/1",
		FetchedAt: time.Now(),
	}
	db.Create(&article)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/articles/%d/read", article.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("mark read: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/articles/%d/bookmark", article.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("bookmark: %d", w.Code)
	}

	var got model.Article
	db.First(&got, article.ID)
	if !got.IsRead || !got.IsBookmarked {
		t.Fatalf("expected read+bookmarked, got %+v", got)
	}

	// 取消已读
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/articles/%d/read", article.ID), gin.H{"read": false})
	if w.Code != http.StatusOK {
		t.Fatalf("unmark read: %d", w.Code)
	}
	db.First(&got, article.ID)
	if got.IsRead {
		t.Fatal("expected article unread again")
	}
}

func TestSaveAndGetConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/config", map[string]string{
		model.ConfigLLMModel: "gpt-4o-mini",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save config: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/config", nil)
	var cfg map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg[model.ConfigLLMModel] != "gpt-4o-mini" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
