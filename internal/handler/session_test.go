package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tinynews/internal/db"
)

var testSessionOptions = sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true}

func newSessionEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	api := NewAPI(nil, nil, testSessionOptions, zerolog.Nop())

	store := cookie.NewStore([]byte("session-test-secret"))
	store.Options(testSessionOptions)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", store))
	r.Use(LoadSession())

	r.GET("/login-as", func(c *gin.Context) {
		user := &db.User{ID: 7, Username: "alice", FirstName: "Alice", LastName: "Liddell", Email: "alice@example.com", Password: "hash"}
		if _, err := api.startSession(c, user); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/logout", func(c *gin.Context) {
		if err := api.endSession(c); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/page", RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})
	r.GET("/api/me", RequireAPIUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, CurrentUser(c))
	})
	return r
}

func serve(r http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// responseCookies 保留每个名字最后一次写入的 Cookie，和浏览器的处理一致。
func responseCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	index := map[string]int{}
	for _, c := range w.Result().Cookies() {
		if i, ok := index[c.Name]; ok {
			out[i] = c
			continue
		}
		index[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

func TestRequireUserRedirectsAnonymous(t *testing.T) {
	r := newSessionEngine()

	w := serve(r, "/page", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestRequireAPIUserRejectsAnonymous(t *testing.T) {
	r := newSessionEngine()

	w := serve(r, "/api/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Body.String() != "Not authenticated" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	r := newSessionEngine()

	login := serve(r, "/login-as", nil)
	if login.Code != http.StatusNoContent {
		t.Fatalf("login failed: %d %s", login.Code, login.Body.String())
	}
	cookies := responseCookies(login)

	w := serve(r, "/page", cookies)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("expected session user alice, got %d %q", w.Code, w.Body.String())
	}

	w = serve(r, "/api/me", cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); !contains(body, `"email":"alice@example.com"`) || contains(body, "hash") {
		t.Fatalf("unexpected session payload %s", body)
	}

	logout := serve(r, "/logout", cookies)
	if logout.Code != http.StatusNoContent {
		t.Fatalf("logout failed: %d", logout.Code)
	}
	w = serve(r, "/api/me", responseCookies(logout))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestCurrentUserAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if CurrentUser(c) != nil {
		t.Fatalf("expected nil user for a fresh context")
	}
}

func TestReloginLeavesOneLiveCookie(t *testing.T) {
	r := newSessionEngine()

	first := responseCookies(serve(r, "/login-as", nil))
	second := responseCookies(serve(r, "/login-as", first))
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one session cookie per login, got %d and %d", len(first), len(second))
	}
	if second[0].MaxAge <= 0 || second[0].Value == "" {
		t.Fatalf("expected a live session cookie after re-login, got %+v", second[0])
	}

	w := serve(r, "/page", second)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("expected session user alice, got %d %q", w.Code, w.Body.String())
	}
}
