package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tinynews/internal/db"
	"github.com/tinynews/internal/service"
)

const (
	msgMissingFields      = "All fields are required"
	msgAccountExists      = "Email or username already exists"
	msgInvalidCredentials = "Invalid username or password"
	msgSomethingWrong     = "Something went wrong. Please try again."
)

type registerRequest struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Username  string `form:"username" json:"username"`
	Password  string `form:"password" json:"password"`
	Bio       string `form:"bio" json:"bio"`
}

func (r registerRequest) toInput() service.RegisterInput {
	return service.RegisterInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Username:  r.Username,
		Password:  r.Password,
		Bio:       r.Bio,
	}
}

// formValues 用于表单回填，不包含密码。
func (r registerRequest) formValues() gin.H {
	return gin.H{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"email":      r.Email,
		"username":   r.Username,
		"bio":        r.Bio,
	}
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// bindLogin 解析请求体并校验凭据。无法解析的请求体按凭据错误处理，
// 与空用户名密码的结果一致。
func (a *API) bindLogin(c *gin.Context, req *loginRequest) (*db.User, error) {
	if err := c.ShouldBind(req); err != nil {
		return nil, service.ErrInvalidCredentials
	}
	return a.auth.Login(c.Request.Context(), req.Username, req.Password)
}

// registerFailure maps a registration error to a status and a user-facing message.
func registerFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, service.ValidationMessage(err)
	case errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, msgAccountExists
	default:
		return http.StatusInternalServerError, msgSomethingWrong
	}
}

// ShowRegister renders the registration form.
func (a *API) ShowRegister(c *gin.Context) {
	a.renderHTML(c, http.StatusOK, "register.html", gin.H{
		"title": "Register",
		"form":  gin.H{},
	})
}

// Register 处理注册表单，成功后跳转登录页。
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		a.renderHTML(c, http.StatusBadRequest, "register.html", gin.H{
			"title": "Register",
			"error": msgMissingFields,
			"form":  req.formValues(),
		})
		return
	}

	if _, err := a.auth.Register(c.Request.Context(), req.toInput()); err != nil {
		status, message := registerFailure(err)
		if status == http.StatusInternalServerError {
			a.logFailure(c, err, "register user")
		}
		a.renderHTML(c, status, "register.html", gin.H{
			"title": "Register",
			"error": message,
			"form":  req.formValues(),
		})
		return
	}

	c.Redirect(http.StatusFound, "/login?registered=1")
}

// APIRegister is the JSON twin of Register.
func (a *API) APIRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgMissingFields)
		return
	}

	if _, err := a.auth.Register(c.Request.Context(), req.toInput()); err != nil {
		status, message := registerFailure(err)
		if status == http.StatusInternalServerError {
			a.logFailure(c, err, "register user")
		}
		respondError(c, status, message)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Success"})
}

// ShowLogin renders the login form, or sends a logged-in user to the feed.
func (a *API) ShowLogin(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/home")
		return
	}

	data := gin.H{"title": "Login"}
	if c.Query("registered") != "" {
		data["success"] = "Registration successful! You can now log in."
	}
	a.renderHTML(c, http.StatusOK, "login.html", data)
}

// Login 校验账号密码并建立会话。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	user, err := a.bindLogin(c, &req)
	if err != nil {
		status, message := http.StatusUnauthorized, "Incorrect username or password."
		if !errors.Is(err, service.ErrInvalidCredentials) {
			a.logFailure(c, err, "login")
			status, message = http.StatusInternalServerError, msgSomethingWrong
		}
		a.renderHTML(c, status, "login.html", gin.H{
			"title":    "Login",
			"error":    message,
			"username": req.Username,
		})
		return
	}

	if _, err := a.startSession(c, user); err != nil {
		a.logFailure(c, err, "save session")
		a.renderHTML(c, http.StatusInternalServerError, "login.html", gin.H{
			"title": "Login",
			"error": msgSomethingWrong,
		})
		return
	}

	c.Redirect(http.StatusFound, "/home")
}

// APILogin is the JSON twin of Login.
func (a *API) APILogin(c *gin.Context) {
	var req loginRequest
	user, err := a.bindLogin(c, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		a.logFailure(c, err, "login")
		respondError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}

	current, err := a.startSession(c, user)
	if err != nil {
		a.logFailure(c, err, "save session")
		respondError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Success", "user": current})
}

// Logout 销毁会话并返回登录页。
func (a *API) Logout(c *gin.Context) {
	if err := a.endSession(c); err != nil {
		a.logFailure(c, err, "clear session")
	}
	c.Redirect(http.StatusFound, "/login")
}

// ShowProfile renders the current user with the articles they wrote.
func (a *API) ShowProfile(c *gin.Context) {
	current := CurrentUser(c)

	user, err := a.auth.GetUser(c.Request.Context(), current.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// 账号已不存在，会话随之作废
			_ = a.endSession(c)
			c.Redirect(http.StatusFound, "/login")
			return
		}
		a.logFailure(c, err, "load profile")
		a.renderError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}

	feed, err := a.articles.Feed(c.Request.Context(), service.FeedFilter{
		AuthorID: user.ID,
		Page:     parsePageQuery(c),
	})
	if err != nil {
		a.logFailure(c, err, "load profile articles")
		a.renderError(c, http.StatusInternalServerError, msgSomethingWrong)
		return
	}

	a.renderHTML(c, http.StatusOK, "profile.html", gin.H{
		"title":   user.Username,
		"profile": user,
		"feed":    feed,
	})
}

// APIProfile returns the session user.
func (a *API) APIProfile(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentUser(c))
}

// Welcome is a static JSON greeting.
func (a *API) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Welcome!"})
}
