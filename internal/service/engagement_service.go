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
	"gorm.io/gorm/clause"
)

const maxCommentRunes = 2000

// EngagementService wraps likes and comments.
type EngagementService struct {
	db *gorm.DB
}

// CommentView is a comment joined with its author's username.
type CommentView struct {
	ID        uint      `json:"id"`
	ArticleID uint      `json:"article_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEngagementService creates an EngagementService instance.
func NewEngagementService(gdb *gorm.DB) *EngagementService {
	return &EngagementService{db: gdb}
}

// ToggleLike flips the like state of (user, article) and returns the new state
// together with the article's like count.
//
// The flip runs in one transaction: a conditional delete, then an insert that
// tolerates a concurrent insert of the same row. The composite primary key on
// likes keeps at most one row per pair.
func (s *EngagementService) ToggleLike(ctx context.Context, articleID, userID uint) (bool, int64, error) {
	if userID == 0 {
		return false, 0, validationError("user is required")
	}

	var (
		liked bool
		count int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureArticleExists(tx, articleID); err != nil {
			return err
		}

		removed := tx.Where("user_id = ? AND article_id = ?", userID, articleID).Delete(&db.Like{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected == 0 {
			inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&db.Like{UserID: userID, ArticleID: articleID})
			if inserted.Error != nil {
				return inserted.Error
			}
			liked = inserted.RowsAffected > 0

			if !liked {
				// 另一个请求在 delete 与 insert 之间插入了同一行：本次切换即为取消
				if err := tx.Where("user_id = ? AND article_id = ?", userID, articleID).Delete(&db.Like{}).Error; err != nil {
					return err
				}
			}
		}

		var err error
		count, err = countLikes(tx, articleID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			return false, 0, err
		}
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}

	return liked, count, nil
}

// LikeCount returns the number of users who liked the article.
func (s *EngagementService) LikeCount(ctx context.Context, articleID uint) (int64, error) {
	return countLikes(s.db.WithContext(ctx), articleID)
}

// HasLiked reports whether the user liked the article. userID 0 means anonymous.
func (s *EngagementService) HasLiked(ctx context.Context, articleID, userID uint) (bool, error) {
	return hasLiked(s.db.WithContext(ctx), articleID, userID)
}

// AddComment appends a comment to the article.
func (s *EngagementService) AddComment(ctx context.Context, articleID, userID uint, content string) (*db.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if userID == 0 {
		return nil, validationError("user is required")
	}
	if trimmed == "" {
		return nil, validationError("comment content is required")
	}
	if utf8.RuneCountInString(trimmed) > maxCommentRunes {
		return nil, validationError("comment must be at most %d characters", maxCommentRunes)
	}

	comment := db.Comment{ArticleID: articleID, UserID: userID, Content: trimmed}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureArticleExists(tx, articleID); err != nil {
			return err
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &comment, nil
}

// Comments returns the article's comments oldest first.
func (s *EngagementService) Comments(ctx context.Context, articleID uint) ([]CommentView, error) {
	return listComments(s.db.WithContext(ctx), articleID)
}

func ensureArticleExists(tx *gorm.DB, articleID uint) error {
	var count int64
	if err := tx.Model(&db.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func countLikes(tx *gorm.DB, articleID uint) (int64, error) {
	var count int64
	if err := tx.Model(&db.Like{}).Where("article_id = ?", articleID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

func hasLiked(tx *gorm.DB, articleID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	if err := tx.Model(&db.Like{}).
		Where("article_id = ? AND user_id = ?", articleID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return count > 0, nil
}

func listComments(tx *gorm.DB, articleID uint) ([]CommentView, error) {
	comments := make([]CommentView, 0)
	if err := tx.Table("comments").
		Select("comments.id, comments.article_id, comments.user_id, users.username, comments.content, comments.created_at").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.article_id = ?", articleID).
		Order("comments.created_at asc, comments.id asc").
		Scan(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
