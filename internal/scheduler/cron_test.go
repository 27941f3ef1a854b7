package scheduler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rss-reader/config"
	"rss-reader/internal/hash"
	"rss-reader/internal/model"
	"rss-reader/internal/scheduler"
	"rss-reader/internal/service"
)

func setup(t *testing.T) (*scheduler.Scheduler, *gorm.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&model.Feed{},
		&model.Article{},
		&model.FeedIndex{},
		&model.FetchStatus{},
		&model.FetchLog{},
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
	feedSvc := service.NewFeedService(db)

	return scheduler.NewScheduler(feedSvc, fetcher, config.CronConfig{CheckInterval: "* * * * *"}), db
}

func TestFetchDueFeeds(t *testing.T) {
	sched, db := setup(t)

	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>Hello</title><link>https://example.com/hello</link></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer srv.Close()

	// 没有状态行的启用Feed视为到期
	feed := model.Feed{URLHash: hash.URLHash(srv.URL), URL: srv.URL, Title: "T", Active: true}
	db.Create(&feed)

	// 停用的Feed不抓
	disabled := model.Feed{URLHash: "000000000000", URL: "https://e.com/off", Title: "Off", Active: false}
	db.Create(&disabled)

	sched.FetchDueFeeds(context.Background())

	var count int64
	db.Model(&model.Article{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 article after due fetch, got %d", count)
	}

	// 抓过之后next_fetch_at在未来,马上再查不再到期
	var before int64
	db.Model(&model.FetchLog{}).Where("action = ?", model.ActionFetch).Count(&before)

	sched.FetchDueFeeds(context.Background())

	var after int64
	db.Model(&model.FetchLog{}).Where("action = ?", model.ActionFetch).Count(&after)
	if after != before {
		t.Fatalf("expected no new fetch attempts, got %d -> %d", before, after)
	}
}
