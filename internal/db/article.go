package db

import (
	"strings"
	"time"
)

// Article 定义了文章模型；作者关系保存在 articles_to_users 中。
type Article struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Summary    string    `gorm:"type:text;not null" json:"summary"`
	FilePath   string    `gorm:"size:512" json:"file_path,omitempty"`
	FileName   string    `gorm:"size:255" json:"file_name,omitempty"`
	FileWidth  int       `json:"file_width,omitempty"`
	FileHeight int       `json:"file_height,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasFile reports whether an attachment is stored for the article.
func (a Article) HasFile() bool {
	return strings.TrimSpace(a.FilePath) != ""
}

// IsImage reports whether the attachment was recognised as an image.
func (a Article) IsImage() bool {
	return a.HasFile() && a.FileWidth > 0 && a.FileHeight > 0
}

// Authorship links an article to the user who created it.
type Authorship struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	ArticleID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

// TableName 保持与原有 schema 一致的连接表名。
func (Authorship) TableName() string {
	return "articles_to_users"
}
