package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tinynews/internal/config"
	"github.com/tinynews/internal/db/dbtest"
)

const baseURL = "http://tinynews.test"

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) *http.Response {
	for _, cookie := range c.jar.Cookies(req.URL) {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	c.jar.SetCookies(req.URL, resp.Cookies())
	return resp
}

func (c *localClient) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	return c.send(t, httptest.NewRequest(http.MethodGet, baseURL+path, nil))
}

func (c *localClient) postJSON(t *testing.T, path string, payload any) (*http.Response, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.send(t, req)
}

func (c *localClient) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, baseURL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(t, req)
}

func (c *localClient) postMultipart(t *testing.T, path string, fields map[string]string, filename string, content []byte) (*http.Response, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, baseURL+path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(t, req)
}

func (c *localClient) send(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp := c.Do(req)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(raw)
}

func testConfig(t *testing.T, store string) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		Env: config.EnvDevelopment,
		Session: config.SessionConfig{
			Secret: "router-test-session-secret",
			Store:  store,
			Name:   "tinynews_session",
			MaxAge: time.Hour,
		},
		Upload: config.UploadConfig{
			Dir:      t.TempDir(),
			URLPath:  "/uploads",
			MaxBytes: 1 << 20,
		},
	}
}

func newTestEngine(t *testing.T, cfg config.AppConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := SetupRouter(cfg, dbtest.Open(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	return engine
}

func decodeJSON(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int, body string) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var johnDoe = map[string]string{
	"first_name": "Random",
	"last_name":  "John",
	"email":      "john@random.com",
	"username":   "JohnDoe",
	"password":   "DoeJohn",
}

func TestAPIAuthFlow(t *testing.T) {
	for _, store := range []string{config.SessionStoreDatabase, config.SessionStoreCookie} {
		t.Run(store, func(t *testing.T) {
			client := newLocalClient(newTestEngine(t, testConfig(t, store)))

			resp, body := client.postJSON(t, "/api/register", johnDoe)
			expectStatus(t, resp, http.StatusCreated, body)
			if got := decodeJSON(t, body)["message"]; got != "Success" {
				t.Fatalf("unexpected register message %v", got)
			}

			resp, body = client.postJSON(t, "/api/register", map[string]string{"username": "", "password": ""})
			expectStatus(t, resp, http.StatusBadRequest, body)
			if got := decodeJSON(t, body)["error"]; got != "All fields are required" {
				t.Fatalf("unexpected validation error %v", got)
			}

			resp, body = client.postJSON(t, "/api/register", johnDoe)
			expectStatus(t, resp, http.StatusBadRequest, body)
			if got := decodeJSON(t, body)["error"]; got != "Email or username already exists" {
				t.Fatalf("unexpected conflict error %v", got)
			}

			resp, body = client.get(t, "/api/profile")
			expectStatus(t, resp, http.StatusUnauthorized, body)
			if body != "Not authenticated" {
				t.Fatalf("unexpected unauthenticated body %q", body)
			}

			resp, body = client.postJSON(t, "/api/login", map[string]string{"username": "JohnDoe", "password": "wrong"})
			expectStatus(t, resp, http.StatusUnauthorized, body)
			if got := decodeJSON(t, body)["error"]; got != "Invalid username or password" {
				t.Fatalf("unexpected login error %v", got)
			}

			resp, body = client.postJSON(t, "/api/login", map[string]string{"username": "JohnDoe", "password": "DoeJohn"})
			expectStatus(t, resp, http.StatusOK, body)
			user, _ := decodeJSON(t, body)["user"].(map[string]any)
			if user["username"] != "JohnDoe" {
				t.Fatalf("unexpected login user %v", user)
			}
			if _, leaked := user["password"]; leaked {
				t.Fatalf("login response must not carry the password")
			}

			resp, body = client.get(t, "/api/profile")
			expectStatus(t, resp, http.StatusOK, body)
			profile := decodeJSON(t, body)
			if profile["username"] != "JohnDoe" || profile["email"] != "john@random.com" {
				t.Fatalf("unexpected profile %v", profile)
			}

			resp, _ = client.get(t, "/logout")
			expectRedirect(t, resp, "/login")

			resp, body = client.get(t, "/api/profile")
			expectStatus(t, resp, http.StatusUnauthorized, body)
		})
	}
}

func TestHTMLAuthFlow(t *testing.T) {
	client := newLocalClient(newTestEngine(t, testConfig(t, config.SessionStoreDatabase)))

	resp, _ := client.get(t, "/")
	expectRedirect(t, resp, "/register")

	resp, body := client.get(t, "/register")
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, `name="first_name"`) {
		t.Fatalf("register page missing form")
	}

	resp, body = client.postForm(t, "/register", url.Values{"username": {"JohnDoe"}})
	expectStatus(t, resp, http.StatusBadRequest, body)
	if !strings.Contains(body, "All fields are required") || !strings.Contains(body, `value="JohnDoe"`) {
		t.Fatalf("register error page should show the message and keep input: %s", body)
	}

	form := url.Values{}
	for key, value := range johnDoe {
		form.Set(key, value)
	}
	resp, _ = client.postForm(t, "/register", form)
	expectRedirect(t, resp, "/login?registered=1")

	resp, body = client.postForm(t, "/register", form)
	expectStatus(t, resp, http.StatusBadRequest, body)
	if !strings.Contains(body, "Email or username already exists") {
		t.Fatalf("expected duplicate message")
	}

	resp, _ = client.get(t, "/profile")
	expectRedirect(t, resp, "/login")

	resp, body = client.get(t, "/home")
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, `href="/login"`) {
		t.Fatalf("anonymous feed should offer the login link")
	}

	resp, body = client.postForm(t, "/login", url.Values{"username": {"JohnDoe"}, "password": {"nope"}})
	expectStatus(t, resp, http.StatusUnauthorized, body)
	if strings.Contains(body, "nope") {
		t.Fatalf("login page must not echo the password")
	}

	resp, _ = client.postForm(t, "/login", url.Values{"username": {"JohnDoe"}, "password": {"DoeJohn"}})
	expectRedirect(t, resp, "/home")

	resp, _ = client.get(t, "/login")
	expectRedirect(t, resp, "/home")

	resp, body = client.get(t, "/profile")
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, "Random John") {
		t.Fatalf("profile should show the user's name: %s", body)
	}

	resp, _ = client.get(t, "/logout")
	expectRedirect(t, resp, "/login")

	resp, _ = client.get(t, "/profile")
	expectRedirect(t, resp, "/login")
}

func TestArticleLifecycle(t *testing.T) {
	cfg := testConfig(t, config.SessionStoreDatabase)
	engine := newTestEngine(t, cfg)
	alice := newLocalClient(engine)
	bob := newLocalClient(engine)
	anonymous := newLocalClient(engine)

	for client, username := range map[*localClient]string{alice: "alice", bob: "bob"} {
		resp, body := client.postJSON(t, "/api/register", map[string]string{
			"first_name": "Test", "last_name": username, "email": username + "@example.com",
			"username": username, "password": "password123",
		})
		expectStatus(t, resp, http.StatusCreated, body)
		resp, body = client.postJSON(t, "/api/login", map[string]string{"username": username, "password": "password123"})
		expectStatus(t, resp, http.StatusOK, body)
	}

	resp, _ := anonymous.postMultipart(t, "/new_article", map[string]string{"title": "x", "summary": "y"}, "", nil)
	expectRedirect(t, resp, "/login")

	resp, body := alice.postMultipart(t, "/new_article", map[string]string{"title": "", "summary": "y"}, "", nil)
	expectStatus(t, resp, http.StatusBadRequest, body)

	resp, body = alice.postMultipart(t, "/new_article", map[string]string{
		"title":   "AI Takes Over TinyNews",
		"summary": "A robot now **runs** our site.<script>alert(1)</script>",
	}, "robot.png", pngBytes(t))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after create, got %d: %s", resp.StatusCode, body)
	}
	location := resp.Header.Get("Location")
	var articleID uint
	if _, err := fmt.Sscanf(location, "/article/%d", &articleID); err != nil {
		t.Fatalf("unexpected location %q", location)
	}

	resp, body = anonymous.get(t, location)
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, "AI Takes Over TinyNews") || !strings.Contains(body, "<strong>runs</strong>") {
		t.Fatalf("detail page missing rendered article: %s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("summary must be sanitized")
	}
	if !strings.Contains(body, `width="4" height="3"`) {
		t.Fatalf("detail page should carry image dimensions")
	}

	var feed struct {
		Articles []struct {
			ID           uint   `json:"id"`
			FilePath     string `json:"file_path"`
			LikeCount    int64  `json:"like_count"`
			CommentCount int64  `json:"comment_count"`
		} `json:"articles"`
		Total int64 `json:"total"`
	}
	resp, body = anonymous.get(t, "/api/articles")
	expectStatus(t, resp, http.StatusOK, body)
	if err := json.Unmarshal([]byte(body), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if feed.Total != 1 || feed.Articles[0].ID != articleID {
		t.Fatalf("unexpected feed %+v", feed)
	}

	resp, body = anonymous.get(t, feed.Articles[0].FilePath)
	expectStatus(t, resp, http.StatusOK, body)
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" || resp.Header.Get("Content-Disposition") != "" {
		t.Fatalf("images should be served inline with nosniff, got %v", resp.Header)
	}

	resp, _ = bob.postForm(t, fmt.Sprintf("/like/%d", articleID), nil)
	expectRedirect(t, resp, location)

	resp, body = bob.postJSON(t, fmt.Sprintf("/api/like/%d", articleID), nil)
	expectStatus(t, resp, http.StatusOK, body)
	liked := decodeJSON(t, body)
	if liked["liked"] != false || liked["likes"] != float64(0) {
		t.Fatalf("second toggle should unlike, got %v", liked)
	}

	resp, body = anonymous.postJSON(t, fmt.Sprintf("/api/like/%d", articleID), nil)
	expectStatus(t, resp, http.StatusUnauthorized, body)

	resp, body = bob.postJSON(t, "/api/like/9999", nil)
	expectStatus(t, resp, http.StatusNotFound, body)

	resp, _ = bob.postForm(t, fmt.Sprintf("/comment/%d", articleID), url.Values{"content": {"Humans still needed."}})
	expectRedirect(t, resp, location+"#comments")

	resp, body = bob.postForm(t, fmt.Sprintf("/comment/%d", articleID), url.Values{"content": {"   "}})
	expectStatus(t, resp, http.StatusBadRequest, body)

	resp, body = alice.get(t, location)
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, "Humans still needed.") || !strings.Contains(body, "/edit_article/") {
		t.Fatalf("author view should list comments and the edit link: %s", body)
	}

	resp, body = bob.get(t, fmt.Sprintf("/edit_article/%d", articleID))
	expectStatus(t, resp, http.StatusForbidden, body)

	resp, body = bob.postMultipart(t, fmt.Sprintf("/edit_article/%d", articleID), map[string]string{"title": "Stolen", "summary": "s"}, "", nil)
	expectStatus(t, resp, http.StatusForbidden, body)

	resp, body = alice.get(t, fmt.Sprintf("/edit_article/%d", articleID))
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, "robot.png") {
		t.Fatalf("edit form should show the current attachment")
	}

	resp, _ = alice.postMultipart(t, fmt.Sprintf("/edit_article/%d", articleID), map[string]string{
		"title": "AI Still Runs TinyNews", "summary": "Updated.",
	}, "", nil)
	expectRedirect(t, resp, location)

	resp, body = alice.get(t, "/home")
	expectStatus(t, resp, http.StatusOK, body)
	if !strings.Contains(body, "AI Still Runs TinyNews") || !strings.Contains(body, "1 comments") {
		t.Fatalf("feed should show the edited article with counters: %s", body)
	}
	if !strings.Contains(body, feed.Articles[0].FilePath) {
		t.Fatalf("edit without a new upload must keep the attachment")
	}

	resp, body = anonymous.get(t, "/article/9999")
	expectStatus(t, resp, http.StatusNotFound, body)

	resp, body = anonymous.get(t, "/article/abc")
	expectStatus(t, resp, http.StatusNotFound, body)
}

func TestUploadLimitRejectsLargeFiles(t *testing.T) {
	cfg := testConfig(t, config.SessionStoreCookie)
	cfg.Upload.MaxBytes = 16
	client := newLocalClient(newTestEngine(t, cfg))

	client.postJSON(t, "/api/register", johnDoe)
	resp, body := client.postJSON(t, "/api/login", map[string]string{"username": "JohnDoe", "password": "DoeJohn"})
	expectStatus(t, resp, http.StatusOK, body)

	resp, body = client.postMultipart(t, "/new_article", map[string]string{"title": "t", "summary": "s"}, "big.bin", bytes.Repeat([]byte("x"), 64))
	expectStatus(t, resp, http.StatusBadRequest, body)
	if !strings.Contains(body, "File exceeds upload limit") {
		t.Fatalf("expected upload limit message: %s", body)
	}
}

func TestSystemEndpoints(t *testing.T) {
	client := newLocalClient(newTestEngine(t, testConfig(t, config.SessionStoreCookie)))

	resp, body := client.get(t, "/welcome")
	expectStatus(t, resp, http.StatusOK, body)
	welcome := decodeJSON(t, body)
	if welcome["status"] != "success" || welcome["message"] != "Welcome!" {
		t.Fatalf("unexpected welcome payload %v", welcome)
	}

	resp, body = client.get(t, "/healthz")
	expectStatus(t, resp, http.StatusOK, body)
	if decodeJSON(t, body)["database"] != "up" {
		t.Fatalf("unexpected health payload %s", body)
	}
}

func TestCORSOnlyWhenConfigured(t *testing.T) {
	cfg := testConfig(t, config.SessionStoreCookie)
	cfg.CORSAllowedOrigins = []string{"http://frontend.test"}
	engine := newTestEngine(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, baseURL+"/api/login", nil)
	req.Header.Set("Origin", "http://frontend.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://frontend.test" {
		t.Fatalf("expected CORS header for allowed origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, baseURL+"/welcome", nil)
	req.Header.Set("Origin", "http://frontend.test")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("non-api routes should not carry CORS headers, got %q", got)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	cfg := testConfig(t, config.SessionStoreCookie)
	cfg.Env = config.EnvProduction
	client := newLocalClient(newTestEngine(t, cfg))

	client.postJSON(t, "/api/register", johnDoe)
	resp, body := client.postJSON(t, "/api/login", map[string]string{"username": "JohnDoe", "password": "DoeJohn"})
	expectStatus(t, resp, http.StatusOK, body)

	var session *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "tinynews_session" {
			session = cookie
		}
	}
	if session == nil {
		t.Fatalf("expected a session cookie")
	}
	if !session.HttpOnly || !session.Secure || session.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes %+v", session)
	}
}

func sessionCookieValue(t *testing.T, client *localClient) string {
	t.Helper()
	u, _ := url.Parse(baseURL)
	for _, cookie := range client.jar.Cookies(u) {
		if cookie.Name == "tinynews_session" {
			return cookie.Value
		}
	}
	t.Fatalf("expected a session cookie in the jar")
	return ""
}

func TestLoginDiscardsPlantedSession(t *testing.T) {
	for _, store := range []string{config.SessionStoreDatabase, config.SessionStoreCookie} {
		t.Run(store, func(t *testing.T) {
			engine := newTestEngine(t, testConfig(t, store))
			mallory := newLocalClient(engine)
			victim := newLocalClient(engine)

			resp, body := mallory.postJSON(t, "/api/register", map[string]string{
				"first_name": "Mal", "last_name": "Lory", "email": "mallory@example.com",
				"username": "mallory", "password": "password123",
			})
			expectStatus(t, resp, http.StatusCreated, body)
			resp, body = mallory.postJSON(t, "/api/login", map[string]string{"username": "mallory", "password": "password123"})
			expectStatus(t, resp, http.StatusOK, body)

			u, _ := url.Parse(baseURL)
			victim.jar.SetCookies(u, mallory.jar.Cookies(u))
			planted := sessionCookieValue(t, victim)

			resp, body = victim.postJSON(t, "/api/register", johnDoe)
			expectStatus(t, resp, http.StatusCreated, body)
			resp, body = victim.postJSON(t, "/api/login", map[string]string{"username": "JohnDoe", "password": "DoeJohn"})
			expectStatus(t, resp, http.StatusOK, body)
			if sessionCookieValue(t, victim) == planted {
				t.Fatalf("login must replace the session cookie it was given")
			}

			resp, body = victim.get(t, "/api/profile")
			expectStatus(t, resp, http.StatusOK, body)
			if decodeJSON(t, body)["username"] != "JohnDoe" {
				t.Fatalf("victim should be logged in as JohnDoe: %s", body)
			}

			resp, body = mallory.get(t, "/api/profile")
			if resp.StatusCode == http.StatusOK && decodeJSON(t, body)["username"] == "JohnDoe" {
				t.Fatalf("planted session cookie must not grant the victim's account")
			}
			if store == config.SessionStoreDatabase {
				expectStatus(t, resp, http.StatusUnauthorized, body)
			}
		})
	}
}

func TestUploadsServedWithSafeHeaders(t *testing.T) {
	client := newLocalClient(newTestEngine(t, testConfig(t, config.SessionStoreCookie)))

	client.postJSON(t, "/api/register", johnDoe)
	resp, body := client.postJSON(t, "/api/login", map[string]string{"username": "JohnDoe", "password": "DoeJohn"})
	expectStatus(t, resp, http.StatusOK, body)

	resp, body = client.postMultipart(t, "/new_article", map[string]string{"title": "Page", "summary": "s"},
		"evil.html", []byte("<script>alert(document.cookie)</script>"))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after create, got %d: %s", resp.StatusCode, body)
	}

	var feed struct {
		Articles []struct {
			FilePath string `json:"file_path"`
		} `json:"articles"`
	}
	resp, body = client.get(t, "/api/articles")
	expectStatus(t, resp, http.StatusOK, body)
	if err := json.Unmarshal([]byte(body), &feed); err != nil || len(feed.Articles) != 1 {
		t.Fatalf("unexpected feed %s", body)
	}
	filePath := feed.Articles[0].FilePath
	if !strings.HasSuffix(filePath, ".html") {
		t.Fatalf("expected the stored html upload, got %q", filePath)
	}

	resp, body = client.get(t, filePath)
	expectStatus(t, resp, http.StatusOK, body)
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(got, "attachment") {
		t.Fatalf("non-image uploads must be downloaded, got %q", got)
	}
	if got := resp.Header.Get("Content-Security-Policy"); !strings.Contains(got, "sandbox") {
		t.Fatalf("expected a sandboxing CSP, got %q", got)
	}

	resp, body = client.get(t, "/uploads/missing.png")
	expectStatus(t, resp, http.StatusNotFound, body)
}

func TestMalformedBodiesHandled(t *testing.T) {
	client := newLocalClient(newTestEngine(t, testConfig(t, config.SessionStoreCookie)))

	sendRaw := func(path, payload string) (*http.Response, string) {
		req := httptest.NewRequest(http.MethodPost, baseURL+path, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		return client.send(t, req)
	}

	resp, body := sendRaw("/register", "{")
	expectStatus(t, resp, http.StatusBadRequest, body)
	if !strings.Contains(body, "All fields are required") {
		t.Fatalf("register should report missing fields: %s", body)
	}

	resp, body = sendRaw("/api/register", "{")
	expectStatus(t, resp, http.StatusBadRequest, body)
	if got := decodeJSON(t, body)["error"]; got != "All fields are required" {
		t.Fatalf("unexpected api register error %v", got)
	}

	resp, body = sendRaw("/login", "{")
	expectStatus(t, resp, http.StatusUnauthorized, body)
	if !strings.Contains(body, "Incorrect username or password.") {
		t.Fatalf("login should report bad credentials: %s", body)
	}

	resp, body = sendRaw("/api/login", "{")
	expectStatus(t, resp, http.StatusUnauthorized, body)
	if got := decodeJSON(t, body)["error"]; got != "Invalid username or password" {
		t.Fatalf("unexpected api login error %v", got)
	}
}
