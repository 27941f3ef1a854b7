package service_test

import (
	"testing"
	"time"

	"rss-reader/internal/model"
	"rss-reader/internal/service"
)

func TestLogAppendAndRecent(t *testing.T) {
	db := newTestDB(t)
	logs := service.NewLogService(db)

	for i := 0; i < 5; i++ {
		if err := logs.Append(1, model.LevelInfo, model.ActionFetch, "https://example.com/feed", nil, ""); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	logs.Append(2, model.LevelError, model.ActionFetch, "https://other.com/feed", nil, "boom")

	recent, err := logs.Recent(1, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
	for _, l := range recent {
		if l.FeedID != 1 {
			t.Fatalf("got log for wrong feed: %d", l.FeedID)
		}
	}
	// 新的在前
	if recent[0].ID < recent[1].ID {
		t.Fatal("expected newest-first ordering")
	}
}

func TestUpdateStatusOverwrites(t *testing.T) {
	db := newTestDB(t)
	logs := service.NewLogService(db)

	err := logs.UpdateStatus(7, model.FetchStatus{
		LastFetchAt: time.Now(),
		Status:      "error",
		Error:       "HTTP 502 Bad Gateway",
		NextFetchAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}

	// 第二次成功,必须整行覆盖:error字段要被清空
	err = logs.UpdateStatus(7, model.FetchStatus{
		LastFetchAt:   time.Now(),
		Status:        "success",
		ArticlesFound: 10,
		ArticlesNew:   3,
		NextFetchAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}

	status, err := logs.GetStatus(7)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Status != "success" {
		t.Fatalf("expected success, got %s", status.Status)
	}
	if status.Error != "" {
		t.Fatalf("expected error cleared, got %q", status.Error)
	}
	if status.ArticlesNew != 3 {
		t.Fatalf("expected articles_new=3, got %d", status.ArticlesNew)
	}

	// 每Feed只有一行
	var count int64
	db.Model(&model.FetchStatus{}).Where("feed_id = ?", 7).Count(&count)
	if count != 1 {
		t.Fatalf("expected single status row, got %d", count)
	}
}

func TestSuccessRate(t *testing.T) {
	db := newTestDB(t)
	logs := service.NewLogService(db)

	// 3次尝试,2次成功
	dur := int64(120)
	logs.Append(1, model.LevelInfo, model.ActionFetch, "u", nil, "")
	logs.Append(1, model.LevelSuccess, model.ActionDone, "u", &dur, "found=5 new=2")
	logs.Append(1, model.LevelInfo, model.ActionFetch, "u", nil, "")
	logs.Append(1, model.LevelError, model.ActionFetch, "u", nil, "timeout")
	logs.Append(1, model.LevelInfo, model.ActionFetch, "u", nil, "")
	logs.Append(1, model.LevelSuccess, model.ActionDone, "u", &dur, "found=5 new=0")

	rate := logs.SuccessRate(1, 20)
	// 3条INFO FETCH为尝试,2条DONE为成功;ERROR行不重复计
	if rate < 0.66 || rate > 0.67 {
		t.Fatalf("unexpected success rate: %f", rate)
	}
}
