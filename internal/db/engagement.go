package db

import "time"

// Like 记录用户对文章的点赞；(user_id, article_id) 作为联合主键保证唯一。
type Like struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	ArticleID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (Like) TableName() string {
	return "likes"
}

// Comment is an append-only remark on an article.
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	ArticleID uint   `gorm:"not null;index"`
	UserID    uint   `gorm:"not null;index"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (Comment) TableName() string {
	return "comments"
}
