package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tinynews/internal/db"
	"github.com/tinynews/internal/service"
)

func articleURL(id uint) string {
	return fmt.Sprintf("/article/%d", id)
}

// ShowHome renders the newest-first feed.
func (a *API) ShowHome(c *gin.Context) {
	feed, err := a.articles.Feed(c.Request.Context(), service.FeedFilter{Page: parsePageQuery(c)})
	if err != nil {
		a.logFailure(c, err, "load feed")
		a.renderError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}

	a.renderHTML(c, http.StatusOK, "home.html", gin.H{
		"title": "Home",
		"feed":  feed,
	})
}

// APIFeed returns the feed as JSON.
func (a *API) APIFeed(c *gin.Context) {
	feed, err := a.articles.Feed(c.Request.Context(), service.FeedFilter{Page: parsePageQuery(c)})
	if err != nil {
		a.logFailure(c, err, "load feed")
		respondError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// ShowNewArticle renders an empty article form.
func (a *API) ShowNewArticle(c *gin.Context) {
	a.renderArticleForm(c, http.StatusOK, nil, "", "", "")
}

// CreateArticle 保存文章及可选附件，成功后跳转详情页。
func (a *API) CreateArticle(c *gin.Context) {
	user := CurrentUser(c)

	attachment, err := a.attachmentFromForm(c)
	title, summary := c.PostForm("title"), c.PostForm("summary")
	if err != nil {
		a.articleFormFailure(c, nil, title, summary, err)
		return
	}

	article, err := a.articles.Create(c.Request.Context(), service.ArticleInput{
		Title:      title,
		Summary:    summary,
		AuthorID:   user.ID,
		Attachment: attachment,
	})
	if err != nil {
		a.discardAttachment(attachment)
		a.articleFormFailure(c, nil, title, summary, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(article.ID))
}

// ShowEditArticle renders the form prefilled for the article's author.
func (a *API) ShowEditArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Article not found")
		return
	}

	article, _, err := a.articles.Get(c.Request.Context(), id)
	if err != nil {
		a.articleLookupFailure(c, err)
		return
	}

	canEdit, err := a.articles.CanEdit(c.Request.Context(), id, CurrentUser(c).ID)
	if err != nil {
		a.articleLookupFailure(c, err)
		return
	}
	if !canEdit {
		a.renderError(c, http.StatusForbidden, "You can only edit your own articles")
		return
	}

	a.renderArticleForm(c, http.StatusOK, article, article.Title, article.Summary, "")
}

// UpdateArticle 更新文章；未上传新附件时保留原文件。
func (a *API) UpdateArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Article not found")
		return
	}

	attachment, err := a.attachmentFromForm(c)
	title, summary := c.PostForm("title"), c.PostForm("summary")
	if err != nil {
		a.articleFormFailure(c, &db.Article{ID: id}, title, summary, err)
		return
	}

	article, err := a.articles.Update(c.Request.Context(), id, CurrentUser(c).ID, service.ArticleInput{
		Title:      title,
		Summary:    summary,
		Attachment: attachment,
	})
	if err != nil {
		a.discardAttachment(attachment)
		if errors.Is(err, service.ErrArticleNotFound) || errors.Is(err, service.ErrForbidden) {
			a.articleLookupFailure(c, err)
			return
		}
		a.articleFormFailure(c, &db.Article{ID: id}, title, summary, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(article.ID))
}

// ShowArticle renders an article with likes and comments.
func (a *API) ShowArticle(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Article not found")
		return
	}
	a.renderArticleDetail(c, http.StatusOK, id, "", "")
}

// ToggleLike flips the current user's like and returns to the article.
func (a *API) ToggleLike(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Article not found")
		return
	}

	if _, _, err := a.engagement.ToggleLike(c.Request.Context(), id, CurrentUser(c).ID); err != nil {
		a.articleLookupFailure(c, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(id))
}

// APIToggleLike is the JSON twin of ToggleLike.
func (a *API) APIToggleLike(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusNotFound, "Article not found")
		return
	}

	liked, likes, err := a.engagement.ToggleLike(c.Request.Context(), id, CurrentUser(c).ID)
	if err != nil {
		if errors.Is(err, service.ErrArticleNotFound) {
			respondError(c, http.StatusNotFound, "Article not found")
			return
		}
		a.logFailure(c, err, "toggle like")
		respondError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": likes})
}

// AddComment 追加评论；校验失败时带着输入重新渲染详情页。
func (a *API) AddComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Article not found")
		return
	}

	content := c.PostForm("content")
	if _, err := a.engagement.AddComment(c.Request.Context(), id, CurrentUser(c).ID, content); err != nil {
		if errors.Is(err, service.ErrValidation) {
			a.renderArticleDetail(c, http.StatusBadRequest, id, service.ValidationMessage(err), content)
			return
		}
		a.articleLookupFailure(c, err)
		return
	}

	c.Redirect(http.StatusFound, articleURL(id)+"#comments")
}

func (a *API) renderArticleDetail(c *gin.Context, status int, id uint, commentError, commentDraft string) {
	var viewerID uint
	if user := CurrentUser(c); user != nil {
		viewerID = user.ID
	}

	detail, err := a.articles.Detail(c.Request.Context(), id, viewerID)
	if err != nil {
		a.articleLookupFailure(c, err)
		return
	}

	a.renderHTML(c, status, "article_detail.html", gin.H{
		"title":        detail.Article.Title,
		"detail":       detail,
		"commentError": commentError,
		"commentDraft": commentDraft,
	})
}

func (a *API) renderArticleForm(c *gin.Context, status int, article *db.Article, title, summary, formError string) {
	action, heading := "/new_article", "New article"
	if article != nil {
		action, heading = fmt.Sprintf("/edit_article/%d", article.ID), "Edit article"
	}

	a.renderHTML(c, status, "article_form.html", gin.H{
		"title":   heading,
		"action":  action,
		"article": article,
		"form":    gin.H{"title": title, "summary": summary},
		"error":   formError,
	})
}

func (a *API) articleFormFailure(c *gin.Context, article *db.Article, title, summary string, err error) {
	if errors.Is(err, service.ErrValidation) {
		a.renderArticleForm(c, http.StatusBadRequest, article, title, summary, service.ValidationMessage(err))
		return
	}
	a.logFailure(c, err, "save article")
	a.renderArticleForm(c, http.StatusInternalServerError, article, title, summary, msgSomethingWrong)
}

func (a *API) articleLookupFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound):
		a.renderError(c, http.StatusNotFound, "Article not found")
	case errors.Is(err, service.ErrForbidden):
		a.renderError(c, http.StatusForbidden, "You can only edit your own articles")
	default:
		a.logFailure(c, err, "article request")
		a.renderError(c, http.StatusInternalServerError, msgSomethingWrong)
	}
}

// discardAttachment 删除因保存失败而未被引用的新附件。
func (a *API) discardAttachment(attachment *service.Attachment) {
	if attachment == nil {
		return
	}
	if err := a.uploads.Remove(attachment.Path); err != nil {
		a.log.Warn().Err(err).Str("path", attachment.Path).Msg("discard upload")
	}
}
