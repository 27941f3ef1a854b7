package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rss-reader/internal/model"
	"rss-reader/internal/service"
)

type Handler struct {
	db        *gorm.DB
	feed      *service.FeedService
	fetcher   *service.FetcherService
	index     *service.IndexService
	logs      *service.LogService
	llm       *service.LLMService
	status    *service.StatusService
	scheduler interface {
		GetNextCheckTime() time.Time
	}
}

func NewHandler(db *gorm.DB, fetcher *service.FetcherService, index *service.IndexService, logs *service.LogService) *Handler {
	return &Handler{
		db:      db,
		feed:    service.NewFeedService(db),
		fetcher: fetcher,
		index:   index,
		logs:    logs,
		llm:     service.NewLLMService(db),
		status:  service.NewStatusService(db),
	}
}

// SetScheduler 设置调度器引用
func (h *Handler) SetScheduler(scheduler interface {
	GetNextCheckTime() time.Time
}) {
	h.scheduler = scheduler
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Categories
		api.GET("/categories", h.ListCategories)
		api.POST("/categories", h.CreateCategory)
		api.PUT("/categories/:id", h.UpdateCategory)
		api.DELETE("/categories/:id", h.DeleteCategory)

		// Feeds
		api.GET("/feeds", h.ListFeeds)
		api.POST("/feeds", h.CreateFeed)
		api.PUT("/feeds/:id", h.UpdateFeed)
		api.DELETE("/feeds/:id", h.DeleteFeed)
		api.POST("/feeds/discover", h.DiscoverFeeds)
		api.POST("/feeds/fetch-all", h.FetchAllFeeds)
		api.POST("/feeds/:id/fetch", h.FetchFeed)
		api.GET("/feeds/:id/status", h.GetFeedStatus)
		api.GET("/feeds/:id/logs", h.GetFeedLogs)
		api.GET("/feeds/:id/index", h.GetFeedIndex)

		// Articles
		api.GET("/articles", h.ListArticles)
		api.GET("/articles/:id", h.GetArticle)
		api.POST("/articles/:id/read", h.MarkRead)
		api.POST("/articles/:id/bookmark", h.ToggleBookmark)
		api.POST("/articles/read-all", h.MarkAllRead)
		api.POST("/articles/:id/summarize", h.SummarizeArticle)
		api.POST("/articles/:id/translate", h.TranslateArticle)

		// Config
		api.GET("/config", h.GetConfig)
		api.POST("/config", h.SaveConfig)

		// LLM
		api.GET("/llm/models", h.GetLLMModels)
		api.POST("/llm/test", h.TestLLMConnection)

		// Status
		api.GET("/status", h.GetStatus)
	}
}

// ===== Category相关 =====

func (h *Handler) ListCategories(c *gin.Context) {
	var categories []model.Category
	h.db.Order("sort_order, id").Find(&categories)
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var category model.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id := c.Param("id")
	var category model.Category
	if err := h.db.First(&category, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}

	var input struct {
		Name      *string `json:"name"`
		SortOrder *int    `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		category.Name = *input.Name
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}

	if err := h.db.Save(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")
	// 该分类下的Feed保留,归入未分类
	h.db.Model(&model.Feed{}).Where("category_id = ?", id).Update("category_id", nil)
	h.db.Delete(&model.Category{}, id)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ===== Feed相关 =====

func (h *Handler) ListFeeds(c *gin.Context) {
	var feeds []model.Feed
	h.db.Preload("Category").Find(&feeds)

	// 附带每个Feed的最近抓取状态和未读数
	type feedView struct {
		model.Feed
		UnreadCount int64              `json:"unread_count"`
		FetchStatus *model.FetchStatus `json:"fetch_status,omitempty"`
	}

	views := make([]feedView, 0, len(feeds))
	for _, feed := range feeds {
		v := feedView{Feed: feed}
		h.db.Model(&model.Article{}).
			Where("feed_id = ? AND is_read = ?", feed.ID, false).
			Count(&v.UnreadCount)
		if status, err := h.logs.GetStatus(feed.ID); err == nil {
			v.FetchStatus = status
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, views)
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var input struct {
		URL        string `json:"url" binding:"required"`
		CategoryID *uint  `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	feed, err := h.feed.Subscribe(c.Request.Context(), input.URL, input.CategoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, feed)
}

func (h *Handler) UpdateFeed(c *gin.Context) {
	id := c.Param("id")
	var feed model.Feed
	if err := h.db.First(&feed, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	var input struct {
		Title                *string `json:"title"`
		CategoryID           *uint   `json:"category_id"`
		Active               *bool   `json:"active"`
		FetchIntervalMinutes *int    `json:"fetch_interval_minutes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.FetchIntervalMinutes != nil {
		updates["fetch_interval_minutes"] = *input.FetchIntervalMinutes
	}

	if err := h.db.Model(&feed).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.db.First(&feed, id)
	c.JSON(http.StatusOK, feed)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	id := c.Param("id")

	// 级联删除该Feed的文章、日志、索引、状态
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feed_id = ?", id).Delete(&model.Article{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feed_id = ?", id).Delete(&model.FetchLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feed_id = ?", id).Delete(&model.FeedIndex{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feed_id = ?", id).Delete(&model.FetchStatus{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Feed{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) DiscoverFeeds(c *gin.Context) {
	var input struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidates := h.feed.Discover(c.Request.Context(), input.Text)
	c.JSON(http.StatusOK, gin.H{"feeds": candidates})
}

func (h *Handler) FetchFeed(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	var feed model.Feed
	if err := h.db.First(&feed, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}

	// 不透传请求上下文:抓取一旦发起就跑到结束或超时,客户端断开不中断
	result := h.fetcher.Fetch(context.Background(), &feed)
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) FetchAllFeeds(c *gin.Context) {
	feeds, err := h.feed.ActiveFeeds()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 后台逐个抓取,立即返回;各次抓取相互独立,互不协调
	go func() {
		for _, feed := range feeds {
			result := h.fetcher.Fetch(context.Background(), &feed)
			if !result.Success {
				log.Printf("[Fetcher] Fetch failed (%s): %s", feed.URL, result.Error)
			}
		}
	}()

	c.JSON(http.StatusOK, gin.H{"message": "fetching started", "feeds": len(feeds)})
}

func (h *Handler) GetFeedStatus(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	status, err := h.logs.GetStatus(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no fetch status yet"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetFeedLogs(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.logs.Recent(uint(id), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":         logs,
		"success_rate": h.logs.SuccessRate(uint(id), 20),
	})
}

func (h *Handler) GetFeedIndex(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	idx, entries, err := h.index.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"last_updated": idx.LastUpdated,
		"total_count":  idx.TotalCount,
		"articles":     entries,
	})
}

// ===== Article相关 =====

func (h *Handler) ListArticles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize := 20

	query := h.db.Model(&model.Article{}).Preload("Feed")

	if feedID := c.Query("feed_id"); feedID != "" {
		query = query.Where("feed_id = ?", feedID)
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("feed_id IN (?)",
			h.db.Model(&model.Feed{}).Select("id").Where("category_id = ?", categoryID))
	}
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}
	if c.Query("bookmarked") == "true" {
		query = query.Where("is_bookmarked = ?", true)
	}

	var total int64
	query.Count(&total)

	var articles []model.Article
	query.Order("published_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&articles)

	c.JSON(http.StatusOK, gin.H{
		"data":  articles,
		"total": total,
		"page":  page,
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	var article model.Article
	if err := h.db.Preload("Feed").First(&article, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *Handler) MarkRead(c *gin.Context) {
	var input struct {
		Read *bool `json:"read"`
	}
	read := true
	if err := c.ShouldBindJSON(&input); err == nil && input.Read != nil {
		read = *input.Read
	}

	result := h.db.Model(&model.Article{}).
		Where("id = ?", c.Param("id")).
		Update("is_read", read)
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_read": read})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	query := h.db.Model(&model.Article{}).Where("is_read = ?", false)
	if feedID := c.Query("feed_id"); feedID != "" {
		query = query.Where("feed_id = ?", feedID)
	}

	result := query.Update("is_read", true)
	c.JSON(http.StatusOK, gin.H{"marked": result.RowsAffected})
}

func (h *Handler) ToggleBookmark(c *gin.Context) {
	var article model.Article
	if err := h.db.First(&article, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	article.IsBookmarked = !article.IsBookmarked
	h.db.Model(&article).Update("is_bookmarked", article.IsBookmarked)
	c.JSON(http.StatusOK, gin.H{"is_bookmarked": article.IsBookmarked})
}

func (h *Handler) SummarizeArticle(c *gin.Context) {
	var article model.Article
	if err := h.db.First(&article, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	summary, err := h.llm.Summarize(c.Request.Context(), &article)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *Handler) TranslateArticle(c *gin.Context) {
	var article model.Article
	if err := h.db.First(&article, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}

	var input struct {
		Lang string `json:"lang"`
	}
	_ = c.ShouldBindJSON(&input)

	translated, err := h.llm.Translate(c.Request.Context(), &article, input.Lang)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"translation": translated})
}

// ===== Config相关 =====

func (h *Handler) GetConfig(c *gin.Context) {
	var configs []model.Config
	h.db.Find(&configs)

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) SaveConfig(c *gin.Context) {
	var input map[string]string
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for key, value := range input {
		h.db.Where("key = ?", key).Assign(model.Config{Value: value}).FirstOrCreate(&model.Config{Key: key})
	}

	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

// ===== LLM相关 =====

func (h *Handler) GetLLMModels(c *gin.Context) {
	models, err := h.llm.GetModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (h *Handler) TestLLMConnection(c *gin.Context) {
	response, err := h.llm.TestConnection(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "连接成功",
		"response": response,
	})
}

// ===== Status相关 =====

func (h *Handler) GetStatus(c *gin.Context) {
	status, err := h.status.GetSystemStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 添加定时任务信息
	if h.scheduler != nil {
		status.NextCheckTime = h.scheduler.GetNextCheckTime()
	}

	c.JSON(http.StatusOK, status)
}
