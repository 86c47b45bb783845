package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tinynews/internal/db"
	"gorm.io/gorm"
)

const (
	maxTitleRunes   = 255
	maxSummaryRunes = 10000
	defaultPerPage  = 10
	maxPerPage      = 50
)

// FileRemover deletes stored attachments that an edit replaced.
type FileRemover interface {
	Remove(urlPath string) error
}

// ArticleService wraps article and authorship database operations.
type ArticleService struct {
	db    *gorm.DB
	files FileRemover
}

// ArticleInput represents fields accepted when creating or updating an article.
// A nil Attachment leaves the stored file untouched on update.
type ArticleInput struct {
	Title      string
	Summary    string
	AuthorID   uint
	Attachment *Attachment
}

// FeedFilter describes pagination and an optional author restriction.
type FeedFilter struct {
	AuthorID uint
	Page     int
	PerPage  int
}

// ArticleCard is one feed row: article, author and derived counters.
type ArticleCard struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	FilePath       string    `json:"file_path,omitempty"`
	FileName       string    `json:"file_name,omitempty"`
	FileWidth      int       `json:"file_width,omitempty"`
	FileHeight     int       `json:"file_height,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	AuthorID       uint      `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	LikeCount      int64     `json:"like_count"`
	CommentCount   int64     `json:"comment_count"`
}

// IsImage reports whether the card's attachment is an image.
func (c ArticleCard) IsImage() bool {
	return c.FilePath != "" && c.FileWidth > 0 && c.FileHeight > 0
}

// FeedResult aggregates a page of the feed.
type FeedResult struct {
	Articles   []ArticleCard `json:"articles"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// ArticleDetail 汇总详情页需要的数据。
type ArticleDetail struct {
	Article   db.Article
	Author    db.User
	LikeCount int64
	Liked     bool
	CanEdit   bool
	Comments  []CommentView
}

// NewArticleService creates an ArticleService. files may be nil.
func NewArticleService(gdb *gorm.DB, files FileRemover) *ArticleService {
	return &ArticleService{db: gdb, files: files}
}

// Create persists the article and its authorship row in one transaction.
func (s *ArticleService) Create(ctx context.Context, input ArticleInput) (*db.Article, error) {
	title, summary, err := normalizeArticleInput(input)
	if err != nil {
		return nil, err
	}
	if input.AuthorID == 0 {
		return nil, validationError("author is required")
	}

	article := db.Article{Title: title, Summary: summary}
	applyAttachment(&article, input.Attachment)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var authors int64
		if err := tx.Model(&db.User{}).Where("id = ?", input.AuthorID).Count(&authors).Error; err != nil {
			return err
		}
		if authors == 0 {
			return ErrUserNotFound
		}

		if err := tx.Create(&article).Error; err != nil {
			return err
		}
		return tx.Create(&db.Authorship{UserID: input.AuthorID, ArticleID: article.ID}).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create article: %w", err)
	}

	return &article, nil
}

// Update applies title/summary changes and, when a new attachment is supplied,
// replaces the stored file. Only an author of the article may edit it.
func (s *ArticleService) Update(ctx context.Context, id, actorID uint, input ArticleInput) (*db.Article, error) {
	title, summary, err := normalizeArticleInput(input)
	if err != nil {
		return nil, err
	}

	var (
		article  db.Article
		replaced string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&article, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrArticleNotFound
			}
			return err
		}

		owned, err := isAuthor(tx, id, actorID)
		if err != nil {
			return err
		}
		if !owned {
			return ErrForbidden
		}

		updates := map[string]interface{}{
			"title":   title,
			"summary": summary,
		}
		if input.Attachment != nil {
			replaced = article.FilePath
			updates["file_path"] = input.Attachment.Path
			updates["file_name"] = input.Attachment.Name
			updates["file_width"] = input.Attachment.Width
			updates["file_height"] = input.Attachment.Height
		}

		if err := tx.Model(&db.Article{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&article, id).Error
	})
	if err != nil {
		if errors.Is(err, ErrArticleNotFound) || errors.Is(err, ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("update article: %w", err)
	}

	if replaced != "" && replaced != article.FilePath && s.files != nil {
		// 旧附件清理失败不影响本次更新
		_ = s.files.Remove(replaced)
	}

	return &article, nil
}

// Get fetches an article together with its author.
func (s *ArticleService) Get(ctx context.Context, id uint) (*db.Article, *db.User, error) {
	gdb := s.db.WithContext(ctx)

	var article db.Article
	if err := gdb.First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrArticleNotFound
		}
		return nil, nil, fmt.Errorf("get article: %w", err)
	}

	var author db.User
	if err := gdb.Model(&db.User{}).
		Joins("JOIN articles_to_users ON articles_to_users.user_id = users.id").
		Where("articles_to_users.article_id = ?", id).
		Order("articles_to_users.created_at asc, articles_to_users.user_id asc").
		First(&author).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("get article author: %w", err)
	}

	return &article, &author, nil
}

// Detail loads the article, author, like state for viewerID (0 = anonymous) and comments.
func (s *ArticleService) Detail(ctx context.Context, id, viewerID uint) (*ArticleDetail, error) {
	article, author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	gdb := s.db.WithContext(ctx)
	detail := &ArticleDetail{Article: *article, Author: *author}

	if detail.LikeCount, err = countLikes(gdb, id); err != nil {
		return nil, err
	}
	if detail.Liked, err = hasLiked(gdb, id, viewerID); err != nil {
		return nil, err
	}
	if viewerID != 0 {
		if detail.CanEdit, err = isAuthor(gdb, id, viewerID); err != nil {
			return nil, err
		}
	}
	if detail.Comments, err = listComments(gdb, id); err != nil {
		return nil, err
	}

	return detail, nil
}

// CanEdit reports whether userID may edit the article.
func (s *ArticleService) CanEdit(ctx context.Context, id, userID uint) (bool, error) {
	if err := ensureArticleExists(s.db.WithContext(ctx), id); err != nil {
		return false, err
	}
	return isAuthor(s.db.WithContext(ctx), id, userID)
}

// Feed lists articles newest first with author and counters.
func (s *ArticleService) Feed(ctx context.Context, filter FeedFilter) (*FeedResult, error) {
	result := &FeedResult{
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = defaultPerPage
	}
	if result.PerPage > maxPerPage {
		result.PerPage = maxPerPage
	}

	// 每篇文章只取最早的作者行，多作者时不重复出现
	feedQuery := func() *gorm.DB {
		query := s.db.WithContext(ctx).
			Table("articles").
			Joins(`JOIN articles_to_users ON articles_to_users.article_id = articles.id
				AND articles_to_users.user_id = (
					SELECT primary_author.user_id FROM articles_to_users primary_author
					WHERE primary_author.article_id = articles.id
					ORDER BY primary_author.created_at ASC, primary_author.user_id ASC LIMIT 1)`).
			Joins("JOIN users ON users.id = articles_to_users.user_id")
		if filter.AuthorID != 0 {
			query = query.Where(`EXISTS (SELECT 1 FROM articles_to_users co_author
				WHERE co_author.article_id = articles.id AND co_author.user_id = ?)`, filter.AuthorID)
		}
		return query
	}

	if err := feedQuery().Count(&result.Total).Error; err != nil {
		return nil, fmt.Errorf("count feed: %w", err)
	}

	cards := make([]ArticleCard, 0)
	offset := (result.Page - 1) * result.PerPage
	if err := feedQuery().
		Select(`articles.id, articles.title, articles.summary, articles.file_path, articles.file_name,
			articles.file_width, articles.file_height, articles.created_at,
			users.id AS author_id, users.username AS author_username,
			(SELECT COUNT(*) FROM likes WHERE likes.article_id = articles.id) AS like_count,
			(SELECT COUNT(*) FROM comments WHERE comments.article_id = articles.id) AS comment_count`).
		Order("articles.created_at desc, articles.id desc").
		Limit(result.PerPage).
		Offset(offset).
		Scan(&cards).Error; err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	result.Articles = cards
	return result, nil
}

func normalizeArticleInput(input ArticleInput) (string, string, error) {
	title := strings.TrimSpace(input.Title)
	summary := strings.TrimSpace(input.Summary)

	if title == "" || summary == "" {
		return "", "", validationError("title and summary are required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return "", "", validationError("title must be at most %d characters", maxTitleRunes)
	}
	if utf8.RuneCountInString(summary) > maxSummaryRunes {
		return "", "", validationError("summary must be at most %d characters", maxSummaryRunes)
	}
	return title, summary, nil
}

func applyAttachment(article *db.Article, attachment *Attachment) {
	if attachment == nil {
		return
	}
	article.FilePath = attachment.Path
	article.FileName = attachment.Name
	article.FileWidth = attachment.Width
	article.FileHeight = attachment.Height
}

func isAuthor(tx *gorm.DB, articleID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	if err := tx.Model(&db.Authorship{}).
		Where("article_id = ? AND user_id = ?", articleID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check authorship: %w", err)
	}
	return count > 0, nil
}
