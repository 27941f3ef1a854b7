package model

import "time"

type Feed struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	URLHash              string    `gorm:"size:12;uniqueIndex;not null" json:"url_hash"`
	URL                  string    `gorm:"size:500;uniqueIndex;not null" json:"url"`
	Title                string    `gorm:"size:255;not null" json:"title"`
	Description          string    `gorm:"size:1000" json:"description"`
	SiteURL              string    `gorm:"size:500" json:"site_url"`
	FaviconURL           string    `gorm:"size:500" json:"favicon_url"`
	CategoryID           *uint     `json:"category_id,omitempty"`
	Category             *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Active               bool      `gorm:"default:true" json:"active"`
	FetchIntervalMinutes int       `gorm:"default:60" json:"fetch_interval_minutes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
