package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rss-reader/config"
	"rss-reader/internal/handler"
	"rss-reader/internal/model"
	"rss-reader/internal/proxy"
	"rss-reader/internal/scheduler"
	"rss-reader/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化数据库
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect database:", err)
	}

	// 自动迁移
	db.AutoMigrate(
		&model.Category{},
		&model.Feed{},
		&model.Article{},
		&model.FeedIndex{},
		&model.FetchStatus{},
		&model.FetchLog{},
		&model.Config{},
	)

	// 初始化默认配置
	initDefaultConfig(db)

	// 初始化服务
	resolver := proxy.NewResolver(cfg.Fetch.ProxyURL)
	logSvc := service.NewLogService(db)
	indexSvc := service.NewIndexService(db, cfg.Fetch.IndexMaxEntries)
	fetcherSvc := service.NewFetcherService(db, logSvc, indexSvc, resolver, cfg.Fetch)
	feedSvc := service.NewFeedService(db)

	// 启动定时任务
	sched := scheduler.NewScheduler(feedSvc, fetcherSvc, cfg.Cron)
	sched.Start()
	defer sched.Stop()

	// 初始化Gin
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	// 注册路由
	h := handler.NewHandler(db, fetcherSvc, indexSvc, logSvc)
	h.SetScheduler(sched)
	h.RegisterRoutes(r)

	// 启动服务
	log.Println("Server starting on", cfg.GetServerAddress())
	r.Run(cfg.GetServerAddress())
}

func initDefaultConfig(db *gorm.DB) {
	defaults := map[string]string{
		model.ConfigLLMProvider: "openai",
		model.ConfigLLMApiURL:   "https://api.openai.com/v1",
		model.ConfigLLMModel:    "gpt-4o-mini",
		model.ConfigPromptSummary: `请用中文总结以下文章的核心内容,要求:
1. 控制在200字以内
2. 突出关键信息
3. 语言简洁易懂`,
		model.ConfigPromptTranslate: `你是一个翻译助手。请把以下文章标题和内容翻译成{lang},
保持原意,语言自然流畅,只返回译文。`,
	}

	for key, value := range defaults {
		db.Where("key = ?", key).FirstOrCreate(&model.Config{Key: key, Value: value})
	}
}
