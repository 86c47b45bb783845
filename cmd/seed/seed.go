package main

import (
	"context"
	"fmt"

	"github.com/tinynews/internal/db"
	"github.com/tinynews/internal/service"
	"gorm.io/gorm"
)

const demoPassword = "password123"

type seedSummary struct {
	Users    int
	Articles int
}

var demoUsers = []service.RegisterInput{
	{FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Username: "alice", Password: demoPassword},
	{FirstName: "Bob", LastName: "Johnson", Email: "bob@example.com", Username: "bob", Password: demoPassword},
}

// demoArticles 按发布顺序排列，author 为 demoUsers 的下标
var demoArticles = []struct {
	title   string
	summary string
	author  int
}{
	{"AI Takes Over TinyNews", "A robot now runs our site.", 0},
	{"Tech Bubble 2.0?", "Experts worry the tech market may crash.", 1},
	{"Humans Still Needed", "Despite AI, humans still matter.", 0},
}

// seed 清空业务数据后写入演示用户与文章
func seed(ctx context.Context, gdb *gorm.DB) (seedSummary, error) {
	if err := reset(ctx, gdb); err != nil {
		return seedSummary{}, err
	}

	auth := service.NewAuthService(gdb)
	articles := service.NewArticleService(gdb, nil)

	users := make([]*db.User, 0, len(demoUsers))
	for _, input := range demoUsers {
		user, err := auth.Register(ctx, input)
		if err != nil {
			return seedSummary{}, fmt.Errorf("create user %s: %w", input.Username, err)
		}
		users = append(users, user)
	}

	for _, item := range demoArticles {
		if _, err := articles.Create(ctx, service.ArticleInput{
			Title:    item.title,
			Summary:  item.summary,
			AuthorID: users[item.author].ID,
		}); err != nil {
			return seedSummary{}, fmt.Errorf("create article %q: %w", item.title, err)
		}
	}

	return seedSummary{Users: len(users), Articles: len(demoArticles)}, nil
}

func reset(ctx context.Context, gdb *gorm.DB) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&db.Comment{}, &db.Like{}, &db.Authorship{}, &db.Article{}, &db.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return fmt.Errorf("reset %T: %w", model, err)
			}
		}
		return nil
	})
}
