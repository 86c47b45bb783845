package handler

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/tinynews/internal/db"
)

const (
	sessionKeyUserID       = "user_id"
	sessionKeyUsername     = "username"
	sessionKeyFirstName    = "first_name"
	sessionKeyLastName     = "last_name"
	sessionKeyEmail        = "email"
	sessionKeyBio          = "bio"
	sessionKeyProfilePhoto = "profile_photo"

	currentUserContextKey = "__current_user"
)

// SessionUser is the logged-in user as recorded in the session.
// The password hash never enters the session.
type SessionUser struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Bio          string `json:"bio"`
	ProfilePhoto string `json:"profile_photo"`
}

// LoadSession 从会话中恢复当前用户并放入请求上下文，匿名请求不设置。
func LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := sessionUser(sessions.Default(c)); user != nil {
			c.Set(currentUserContextKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the request's session user, or nil when anonymous.
func CurrentUser(c *gin.Context) *SessionUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*SessionUser)
	return user
}

// RequireUser 保护页面路由，未登录时重定向到登录页。
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAPIUser 保护 JSON 路由，未登录时返回 401。
func RequireAPIUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.String(http.StatusUnauthorized, "Not authenticated")
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionUser(session sessions.Session) *SessionUser {
	id, ok := session.Get(sessionKeyUserID).(uint)
	if !ok || id == 0 {
		return nil
	}
	str := func(key string) string {
		value, _ := session.Get(key).(string)
		return value
	}
	return &SessionUser{
		ID:           id,
		Username:     str(sessionKeyUsername),
		FirstName:    str(sessionKeyFirstName),
		LastName:     str(sessionKeyLastName),
		Email:        str(sessionKeyEmail),
		Bio:          str(sessionKeyBio),
		ProfilePhoto: str(sessionKeyProfilePhoto),
	}
}

func newSessionUser(user *db.User) *SessionUser {
	return &SessionUser{
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		Bio:          user.Bio,
		ProfilePhoto: user.ProfilePhoto,
	}
}

// startSession 先作废请求携带的旧会话，再以新的会话 ID 写入登录信息。
// 服务端存储按 Cookie 查找会话行，旧行删除后下一次 Save 会生成新 ID。
func (a *API) startSession(c *gin.Context, user *db.User) (*SessionUser, error) {
	current := newSessionUser(user)

	session := sessions.Default(c)
	if err := a.expireSession(session); err != nil {
		return nil, err
	}

	session.Options(a.sessionOptions)
	session.Set(sessionKeyUserID, current.ID)
	session.Set(sessionKeyUsername, current.Username)
	session.Set(sessionKeyFirstName, current.FirstName)
	session.Set(sessionKeyLastName, current.LastName)
	session.Set(sessionKeyEmail, current.Email)
	session.Set(sessionKeyBio, current.Bio)
	session.Set(sessionKeyProfilePhoto, current.ProfilePhoto)
	if err := session.Save(); err != nil {
		return nil, err
	}

	c.Set(currentUserContextKey, current)
	return current, nil
}

func (a *API) endSession(c *gin.Context) error {
	return a.expireSession(sessions.Default(c))
}

func (a *API) expireSession(session sessions.Session) error {
	expired := a.sessionOptions
	expired.MaxAge = -1

	session.Clear()
	session.Options(expired)
	return session.Save()
}
