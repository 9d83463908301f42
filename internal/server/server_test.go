package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/storage"
	"yatube/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	s   *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Env:              "test",
		Port:             "0",
		JWTSecret:        testSecret,
		SessionTTLHours:  24,
		PageSize:         10,
		PageCacheTTL:     20 * time.Second,
		MediaBackend:     "local",
		MediaRoot:        t.TempDir(),
		MediaURL:         "/media/",
		MediaMaxUploadMB: 5,
	}
	s := NewServerWithDeps(cfg, db, rdb, storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL))
	s.userService = s.userService.WithCost(bcrypt.MinCost)
	return &testEnv{s: s, app: s.App(), db: db, mr: mr}
}

func (e *testEnv) session(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := e.s.generateToken(u.ID, u.Username)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) (*http.Response, string) {
	t.Helper()
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func (e *testEnv) get(t *testing.T, path, token string) (*http.Response, string) {
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, token string) (*http.Response, string) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, token)
}

func sessionFrom(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	return ""
}

func TestIndex_CachedUntilTTLExpires(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "leo")
	testutil.CreatePost(t, e.db, author, nil, "first post", time.Now().Add(-time.Hour))

	resp, body := e.get(t, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, body, "first post")

	testutil.CreatePost(t, e.db, author, nil, "second post", time.Now())

	resp, body = e.get(t, "/", "")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.NotContains(t, body, "second post")

	e.mr.FastForward(21 * time.Second)

	resp, body = e.get(t, "/", "")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, body, "second post")
}

func TestIndex_RendersWithoutViewer(t *testing.T) {
	e := newTestEnv(t)
	u := testutil.CreateUser(t, e.db, "reader")

	_, body := e.get(t, "/", e.session(t, u))
	assert.NotContains(t, body, "/profile/reader/")
	assert.Contains(t, body, "/auth/login/")
}

func TestIndex_Pagination(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "writer")
	clock := testutil.Clock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	for i := 0; i < 12; i++ {
		testutil.CreatePost(t, e.db, author, nil, "post-"+string(rune('a'+i)), clock())
	}

	_, body := e.get(t, "/?page=2", "")
	assert.Contains(t, body, "post-a")
	assert.Contains(t, body, "post-b")
	assert.NotContains(t, body, "post-c")

	_, body = e.get(t, "/?page=99", "")
	assert.Contains(t, body, "post-a")
	assert.NotContains(t, body, "post-l")

	_, body = e.get(t, "/?page=abc", "")
	assert.Contains(t, body, "post-l")
}

func TestGroupPosts(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "writer")
	cats := testutil.CreateGroup(t, e.db, "cats")
	testutil.CreatePost(t, e.db, author, cats, "meow", time.Now())
	testutil.CreatePost(t, e.db, author, nil, "ungrouped", time.Now())

	resp, body := e.get(t, "/group/cats/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Group cats")
	assert.Contains(t, body, "meow")
	assert.NotContains(t, body, "ungrouped")

	resp, body = e.get(t, "/group/dogs/", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Страница не найдена")
}

func TestUnknownPath_NotFoundPage(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.get(t, "/no/such/page/", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "/no/such/page/")
}

func TestAuthRequired_RedirectsToLogin(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/create/", "/follow/", "/posts/1/edit/"} {
		resp, _ := e.get(t, path, "")
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/auth/login/?next="+url.QueryEscape(path), resp.Header.Get("Location"))
	}
}

func TestAuthRequired_RejectsForgedToken(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.get(t, "/create/", "not-a-jwt")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/login/"))
}

func TestAuthRequired_DeletedUserSessionIsAnonymous(t *testing.T) {
	e := newTestEnv(t)
	gone := testutil.CreateUser(t, e.db, "gone")
	testutil.CreateUser(t, e.db, "leo")
	token := e.session(t, gone)
	require.NoError(t, e.db.Delete(&models.User{}, gone.ID).Error)

	resp, _ := e.postForm(t, "/profile/leo/follow/", url.Values{}, token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next="+url.QueryEscape("/profile/leo/follow/"), resp.Header.Get("Location"))
	assert.Equal(t, "", sessionFrom(resp))

	var follows int64
	require.NoError(t, e.db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Zero(t, follows)

	resp, _ = e.get(t, "/create/", token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "leo")
	viewer := testutil.CreateUser(t, e.db, "fan")
	testutil.CreatePost(t, e.db, author, nil, "war and peace", time.Now())

	resp, body := e.get(t, "/profile/leo/", e.session(t, viewer))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "war and peace")
	assert.Contains(t, body, "Всего постов: 1")
	assert.Contains(t, body, "/profile/leo/follow/")

	resp, _ = e.get(t, "/profile/nobody/", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePost(t *testing.T) {
	e := newTestEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	g := testutil.CreateGroup(t, e.db, "diary")
	token := e.session(t, u)

	resp, body := e.get(t, "/create/", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Group diary")

	resp, _ = e.postForm(t, "/create/", url.Values{"text": {"  hello world  "}, "group": {itoa(g.ID)}}, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/alice/", resp.Header.Get("Location"))

	var post models.Post
	require.NoError(t, e.db.First(&post).Error)
	assert.Equal(t, "hello world", post.Text)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, g.ID, *post.GroupID)
	assert.Equal(t, u.ID, post.AuthorID)
}

func TestCreatePost_ValidationRerendersForm(t *testing.T) {
	e := newTestEnv(t)
	u := testutil.CreateUser(t, e.db, "alice")
	token := e.session(t, u)

	resp, body := e.postForm(t, "/create/", url.Values{"text": {"   "}, "group": {"999"}}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Select a valid choice")

	var count int64
	e.db.Model(&models.Post{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreatePost_WithImage(t *testing.T) {
	e := newTestEnv(t)
	u := testutil.CreateUser(t, e.db, "painter")
	token := e.session(t, u)

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, x%30, color.RGBA{R: 200, A: 255})
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("text", "with a picture"))
	part, err := w.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/create/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, _ := e.do(t, req, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var post models.Post
	require.NoError(t, e.db.First(&post).Error)
	assert.True(t, strings.HasPrefix(post.Image, "posts/"))

	resp, _ = e.get(t, "/media/"+post.Image, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.get(t, "/media/"+storage.ThumbKey(post.Image), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEditPost(t *testing.T) {
	e := newTestEnv(t)
	owner := testutil.CreateUser(t, e.db, "owner")
	other := testutil.CreateUser(t, e.db, "other")
	published := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	post := testutil.CreatePost(t, e.db, owner, nil, "original", published)
	path := "/posts/" + itoa(post.ID) + "/edit/"

	resp, _ := e.get(t, path, e.session(t, other))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = e.postForm(t, path, url.Values{"text": {"hijacked"}}, e.session(t, other))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var stored models.Post
	require.NoError(t, e.db.First(&stored, post.ID).Error)
	assert.Equal(t, "original", stored.Text)

	ownerToken := e.session(t, owner)
	resp, body := e.get(t, path, ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "original")

	resp, _ = e.postForm(t, path, url.Values{"text": {"edited"}}, ownerToken)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/posts/"+itoa(post.ID)+"/", resp.Header.Get("Location"))

	require.NoError(t, e.db.First(&stored, post.ID).Error)
	assert.Equal(t, "edited", stored.Text)
	assert.True(t, stored.PubDate.Equal(published))

	resp, _ = e.get(t, "/posts/9999/edit/", ownerToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComments(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	reader := testutil.CreateUser(t, e.db, "reader")
	post := testutil.CreatePost(t, e.db, author, nil, "discuss me", time.Now())
	token := e.session(t, reader)
	detail := "/posts/" + itoa(post.ID) + "/"

	resp, _ := e.postForm(t, detail+"comment/", url.Values{"text": {"nice"}}, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, detail, resp.Header.Get("Location"))

	resp, _ = e.postForm(t, detail, url.Values{"text": {"again"}}, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, body := e.get(t, detail, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "nice")
	assert.Contains(t, body, "again")
	assert.Less(t, strings.Index(body, "nice"), strings.Index(body, "again"))

	resp, _ = e.postForm(t, detail+"comment/", url.Values{"text": {" "}}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.postForm(t, "/posts/9999/comment/", url.Values{"text": {"lost"}}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.postForm(t, detail+"comment/", url.Values{"text": {"anon"}}, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/login/"))

	var count int64
	e.db.Model(&models.Comment{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestFollowFlow(t *testing.T) {
	e := newTestEnv(t)
	author := testutil.CreateUser(t, e.db, "author")
	fan := testutil.CreateUser(t, e.db, "fan")
	testutil.CreatePost(t, e.db, author, nil, "for my followers", time.Now())
	token := e.session(t, fan)

	_, body := e.get(t, "/follow/", token)
	assert.NotContains(t, body, "for my followers")

	resp, _ := e.postForm(t, "/profile/author/follow/", nil, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/author/", resp.Header.Get("Location"))

	// A second follow is a no-op.
	resp, _ = e.get(t, "/profile/author/follow/", token)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var edges int64
	e.db.Model(&models.Follow{}).Count(&edges)
	assert.Equal(t, int64(1), edges)

	_, body = e.get(t, "/follow/", token)
	assert.Contains(t, body, "for my followers")

	_, body = e.get(t, "/profile/author/", token)
	assert.Contains(t, body, "/profile/author/unfollow/")

	resp, _ = e.postForm(t, "/profile/author/unfollow/", nil, token)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	_, body = e.get(t, "/follow/", token)
	assert.NotContains(t, body, "for my followers")

	resp, _ = e.get(t, "/profile/ghost/follow/", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFollow_SelfIsIgnored(t *testing.T) {
	e := newTestEnv(t)
	u := testutil.CreateUser(t, e.db, "narcissus")

	resp, _ := e.postForm(t, "/profile/narcissus/follow/", nil, e.session(t, u))
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	var edges int64
	e.db.Model(&models.Follow{}).Count(&edges)
	assert.Zero(t, edges)
}

func TestSignup(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.postForm(t, "/auth/signup/", url.Values{
		"username": {"newbie"}, "email": {"NewBie@Example.com"},
		"password1": {"s3cret-pass"}, "password2": {"different"},
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "newbie")

	resp, _ = e.postForm(t, "/auth/signup/", url.Values{
		"username": {"newbie"}, "email": {"NewBie@Example.com"}, "first_name": {"New"},
		"password1": {"s3cret-pass"}, "password2": {"s3cret-pass"},
	}, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.NotEmpty(t, sessionFrom(resp))

	var u models.User
	require.NoError(t, e.db.Where("username = ?", "newbie").First(&u).Error)
	assert.Equal(t, "newbie@example.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.Password)
}

func TestLoginLogout(t *testing.T) {
	e := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.db.Create(&models.User{Username: "kate", Email: "kate@example.com", Password: string(hash)}).Error)

	resp, body := e.postForm(t, "/auth/login/", url.Values{"username": {"kate"}, "password": {"wrong"}}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "correct username and password")

	resp, _ = e.postForm(t, "/auth/login/", url.Values{
		"username": {"kate"}, "password": {"correct-horse"}, "next": {"/follow/"},
	}, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get("Location"))
	token := sessionFrom(resp)
	require.NotEmpty(t, token)

	resp, _ = e.get(t, "/create/", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.get(t, "/auth/logout/", token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = e.get(t, "/create/", token)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/login/"))
}

func TestLogin_ExternalNextFallsBackToIndex(t *testing.T) {
	e := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.db.Create(&models.User{Username: "kate", Email: "kate@example.com", Password: string(hash)}).Error)

	resp, _ := e.postForm(t, "/auth/login/", url.Values{
		"username": {"kate"}, "password": {"correct-horse"}, "next": {"//evil.example.com/"},
	}, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                  "/",
		"/follow/":          "/follow/",
		"//evil.com":        "/",
		"/\\evil.com":       "/",
		"https://evil.com/": "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestStaticPagesAndProbes(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/about/author/", "/about/tech/", "/health/live", "/health/ready", "/auth/login/", "/auth/signup/"} {
		resp, _ := e.get(t, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestInternalError_RendersErrorPage(t *testing.T) {
	e := newTestEnv(t)
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp, body := e.get(t, "/group/cats/", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Ошибка сервера")

	resp, _ = e.get(t, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
