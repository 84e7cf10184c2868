package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/booklog/backend/internal/config"
	"github.com/booklog/backend/internal/database"
	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/server"
	"github.com/booklog/backend/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testDB     *sql.DB
	testServer *httptest.Server
	testLogger *zap.Logger
)

// TestMain sets up and tears down the test environment
func TestMain(m *testing.M) {
	var err error
	testLogger, err = zap.NewDevelopment()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.LoadTestConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load test config: %v", err))
	}
	if cfg.Database.DBName == "" {
		fmt.Println("TEST_DB_* not set, skipping integration tests")
		os.Exit(0)
	}
	cfg.Server.LoginRateLimit = 50

	testDB, err = database.Connect(cfg.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}
	if err := database.RunMigrations(testDB, "../../migrations"); err != nil {
		panic(fmt.Sprintf("Failed to run migrations: %v", err))
	}

	testServer = httptest.NewServer(server.NewRouter(server.Options{
		Config:   cfg,
		DB:       testDB,
		Store:    session.NewMemoryStore(),
		Registry: prometheus.NewRegistry(),
		Logger:   testLogger,
	}))

	code := m.Run()

	testServer.Close()
	testDB.Close()
	os.Exit(code)
}

// cleanupTestData empties every table, children first
func cleanupTestData(t *testing.T) {
	t.Helper()
	for _, table := range []string{"borrows", "posts", "followers", "books", "users"} {
		_, err := testDB.Exec("DELETE FROM " + table)
		require.NoError(t, err, "Failed to clear %s", table)
	}
}

// browser is an HTTP client that keeps cookies and does not follow redirects
type browser struct {
	t      *testing.T
	client *http.Client
}

func newBrowser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	resp, err := b.client.Get(testServer.URL + path)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	resp, err := b.client.PostForm(testServer.URL+path, form)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// view fetches a page and decodes its data into "data", returning the flash messages
func (b *browser) view(path string, data any) []string {
	b.t.Helper()
	resp := b.get(path)
	require.Equal(b.t, http.StatusOK, resp.StatusCode, path)

	var body struct {
		Messages []string        `json:"messages"`
		Data     json.RawMessage `json:"data"`
	}
	require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&body))
	if data != nil {
		require.NoError(b.t, json.Unmarshal(body.Data, data))
	}
	return body.Messages
}

func (b *browser) register(username string) {
	b.t.Helper()
	resp := b.post("/register", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password":  {"password-" + username},
		"password2": {"password-" + username},
	})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.t, "/login", resp.Header.Get("Location"))
	assert.Equal(b.t, []string{"Congratulations, you are now a registered user!"}, b.view("/login", nil))
}

func (b *browser) login(username string) {
	b.t.Helper()
	resp := b.post("/login", url.Values{"username": {username}, "password": {"password-" + username}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.t, "/home", resp.Header.Get("Location"))
}

func postID(t *testing.T, body string) int {
	t.Helper()
	var id int
	require.NoError(t, testDB.QueryRow("SELECT id FROM posts WHERE body = ?", body).Scan(&id))
	return id
}

func userID(t *testing.T, username string) int {
	t.Helper()
	var id int
	require.NoError(t, testDB.QueryRow("SELECT id FROM users WHERE username = ?", username).Scan(&id))
	return id
}

func bodies(page models.PostPage) []string {
	out := make([]string, 0, len(page.Items))
	for _, p := range page.Items {
		out = append(out, p.Body)
	}
	return out
}

func TestIntegration_FeedAndFollow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cleanupTestData(t)
	defer cleanupTestData(t)

	alice, bob := newBrowser(t), newBrowser(t)
	alice.register("alice")
	bob.register("bob")
	alice.login("alice")
	bob.login("bob")

	resp := alice.post("/home", url.Values{"post": {"hello from alice"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp = bob.post("/home", url.Values{"post": {"hello from bob"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var home models.HomeResponse
	messages := alice.view("/home", &home)
	assert.Equal(t, []string{"Your post is now live!"}, messages)
	assert.Equal(t, []string{"hello from alice"}, bodies(home.Posts))

	resp = alice.post("/follow/bob", url.Values{})
	assert.Equal(t, "/user/bob", resp.Header.Get("Location"))

	alice.view("/home", &home)
	assert.Equal(t, []string{"hello from bob", "hello from alice"}, bodies(home.Posts))

	bob.view("/home", &home)
	assert.Equal(t, []string{"hello from bob"}, bodies(home.Posts))

	var profile models.ProfileResponse
	alice.view("/user/bob", &profile)
	assert.True(t, profile.IsFollowing)
	assert.Equal(t, 1, profile.FollowersCount)

	t.Run("posts are checked against their author", func(t *testing.T) {
		id := postID(t, "hello from alice")
		resp := bob.post("/delete_posts/"+strconv.Itoa(id), url.Values{})
		assert.Equal(t, "/home", resp.Header.Get("Location"))
		assert.Equal(t, []string{"You do not have permission to do that."}, bob.view("/home", nil))
		postID(t, "hello from alice")
	})

	t.Run("too long post", func(t *testing.T) {
		resp := alice.post("/home", url.Values{"post": {strings.Repeat("x", 141)}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestIntegration_LibraryAndAdmin(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cleanupTestData(t)
	defer cleanupTestData(t)

	admin, alice := newBrowser(t), newBrowser(t)
	admin.register("root")
	alice.register("alice")
	_, err := testDB.Exec("UPDATE users SET is_admin = TRUE WHERE username = 'root'")
	require.NoError(t, err)
	admin.login("root")
	alice.login("alice")

	resp := alice.post("/borrow", url.Values{"book": {"Dune"}})
	assert.Equal(t, "/booklist", resp.Header.Get("Location"))

	var list models.BooklistResponse
	alice.view("/booklist", &list)
	require.Len(t, list.Borrows, 1)
	assert.Equal(t, "alice", list.Borrows[0].Username)

	t.Run("regular users cannot add books", func(t *testing.T) {
		resp := alice.post("/registerbook", url.Values{"book": {"Dune"}, "author": {"Herbert"}, "type": {"novel"}, "availability": {"yes"}})
		assert.Equal(t, "/home", resp.Header.Get("Location"))
	})

	book := url.Values{"book": {"Dune"}, "author": {"Herbert"}, "type": {"novel"}, "availability": {"yes"}}
	resp = admin.post("/registerbook", book)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
	resp = admin.post("/registerbook", book)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	alice.post("/home", url.Values{"post": {"soon gone"}})

	var dashboard models.DashboardResponse
	admin.view("/admin", &dashboard)
	assert.Len(t, dashboard.Users, 2)
	assert.Len(t, dashboard.Books, 1)

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		resp := admin.post("/delete_user/"+strconv.Itoa(userID(t, "root")), url.Values{})
		assert.Equal(t, "/admin", resp.Header.Get("Location"))
		assert.Equal(t, []string{"You cannot delete yourself!"}, admin.view("/admin", nil))
	})

	resp = admin.post("/delete_user/"+strconv.Itoa(userID(t, "alice")), url.Values{})
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	var remaining int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM posts").Scan(&remaining))
	assert.Zero(t, remaining)
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM borrows").Scan(&remaining))
	assert.Zero(t, remaining)

	resp = alice.get("/home")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fhome", resp.Header.Get("Location"))
}

func TestIntegration_LogoutRevokesSession(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cleanupTestData(t)
	defer cleanupTestData(t)

	alice := newBrowser(t)
	alice.register("alice")
	alice.login("alice")

	u, err := url.Parse(testServer.URL)
	require.NoError(t, err)
	var stolen *http.Cookie
	for _, c := range alice.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			stolen = c
		}
	}
	require.NotNil(t, stolen)

	resp := alice.get("/logout")
	assert.Equal(t, "/home", resp.Header.Get("Location"))

	req, err := http.NewRequest(http.MethodGet, testServer.URL+"/home", nil)
	require.NoError(t, err)
	req.AddCookie(stolen)
	replay, err := newBrowser(t).client.Do(req)
	require.NoError(t, err)
	defer replay.Body.Close()

	assert.Equal(t, http.StatusSeeOther, replay.StatusCode)
	assert.True(t, strings.HasPrefix(replay.Header.Get("Location"), "/login"))
}
