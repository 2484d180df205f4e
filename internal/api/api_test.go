package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lms.com/internal/auth"
	"lms.com/internal/config"
	"lms.com/internal/engine"
	"lms.com/internal/infra"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AppName:    "LMS test",
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			LoginRate:  100,
			LoginBurst: 100,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	db, err := infra.NewDatabaseClient(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	eng := engine.NewEngine(cfg, db, nil, infra.NewWsManager(), nil)
	require.NoError(t, eng.Start())
	t.Cleanup(eng.Stop)

	enforcer, err := auth.NewMemoryEnforcer()
	require.NoError(t, err)
	return NewServer(cfg, eng, enforcer)
}

type response struct {
	Status int
	Body   map[string]interface{}
	List   []interface{}
}

func do(t *testing.T, app *fiber.App, method, path, token string, body interface{}) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, app, req, token)
}

func send(t *testing.T, app *fiber.App, req *http.Request, token string) response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{Status: resp.StatusCode}
	if len(raw) > 0 && raw[0] == '[' {
		require.NoError(t, json.Unmarshal(raw, &out.List))
	} else if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

func registerStudent(t *testing.T, app *fiber.App, username, studentNo string) string {
	t.Helper()
	res := do(t, app, http.MethodPost, "/auth/register/student", "", fiber.Map{
		"Username":  username,
		"Email":     username + "@example.com",
		"Password":  "password123",
		"Password2": "password123",
		"StudentNo": studentNo,
		"Grade":     "10",
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	assert.Equal(t, "/student/dashboard", res.Body["Redirect"])
	return res.Body["Token"].(string)
}

func registerAdmin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	res := do(t, app, http.MethodPost, "/auth/register/admin", "", fiber.Map{
		"Username":  username,
		"Email":     username + "@example.com",
		"Password":  "password123",
		"Password2": "password123",
		"StaffRole": "Librarian",
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	assert.Equal(t, "/admin/dashboard", res.Body["Redirect"])
	return res.Body["Token"].(string)
}

func createBook(t *testing.T, app *fiber.App, adminToken, title string, copies int) uint {
	t.Helper()
	cat := do(t, app, http.MethodPost, "/api/categories", adminToken, fiber.Map{"Name": "General"})
	require.Equal(t, http.StatusCreated, cat.Status, cat.Body)

	book := do(t, app, http.MethodPost, "/api/books", adminToken, fiber.Map{
		"Title":           title,
		"Author":          "Someone",
		"CategoryID":      cat.Body["ID"],
		"AvailableCopies": copies,
	})
	require.Equal(t, http.StatusCreated, book.Status, book.Body)
	return uint(book.Body["ID"].(float64))
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, testConfig())
	res := do(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "ok", res.Body["Status"])
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	app := newTestApp(t, testConfig())
	token := registerStudent(t, app, "alice", "S-1")

	me := do(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Status)
	assert.Equal(t, "alice", me.Body["Username"])
	assert.Equal(t, "student", me.Body["Role"])
	assert.NotContains(t, me.Body, "Password")

	login := do(t, app, http.MethodPost, "/auth/login", "", fiber.Map{"Username": "alice", "Password": "password123"})
	require.Equal(t, http.StatusOK, login.Status)
	assert.Equal(t, "/student/dashboard", login.Body["Redirect"])
	assert.NotEmpty(t, login.Body["Token"])

	bad := do(t, app, http.MethodPost, "/auth/login", "", fiber.Map{"Username": "alice", "Password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, bad.Status)
	assert.Equal(t, "Invalid username or password", bad.Body["Error"])

	logout := do(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, logout.Status)
}

func TestAuth_ValidationErrors(t *testing.T) {
	app := newTestApp(t, testConfig())
	res := do(t, app, http.MethodPost, "/auth/register/student", "", fiber.Map{
		"Username":  "bob",
		"Email":     "bob@example.com",
		"Password":  "password123",
		"Password2": "different123",
		"Grade":     "10",
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.Status)
	fields, ok := res.Body["Fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "Password2")
	assert.Contains(t, fields, "StudentNo")
}

func TestCreateBook_ValidationErrors(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := registerAdmin(t, app, "librarian")

	res := do(t, app, http.MethodPost, "/api/books", admin, fiber.Map{
		"Title":           "",
		"Author":          "Someone",
		"AvailableCopies": -2,
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.Status)
	fields, ok := res.Body["Fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "Title")
	assert.Contains(t, fields, "CategoryID")
	assert.Contains(t, fields, "AvailableCopies")

	cat := do(t, app, http.MethodPost, "/api/categories", admin, fiber.Map{"Name": ""})
	require.Equal(t, http.StatusUnprocessableEntity, cat.Status)
	assert.Contains(t, cat.Body["Fields"], "Name")
}

func TestAuth_LoginRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.LoginRate = 0.001
	cfg.Server.LoginBurst = 1
	app := newTestApp(t, cfg)

	first := do(t, app, http.MethodPost, "/auth/login", "", fiber.Map{"Username": "x", "Password": "y"})
	assert.Equal(t, http.StatusUnauthorized, first.Status)
	second := do(t, app, http.MethodPost, "/auth/login", "", fiber.Map{"Username": "x", "Password": "y"})
	assert.Equal(t, http.StatusTooManyRequests, second.Status)
}

func TestAuthorization(t *testing.T) {
	app := newTestApp(t, testConfig())
	student := registerStudent(t, app, "alice", "S-1")

	assert.Equal(t, http.StatusUnauthorized, do(t, app, http.MethodGet, "/api/books", "", nil).Status)
	assert.Equal(t, http.StatusUnauthorized, do(t, app, http.MethodGet, "/api/books", "garbage", nil).Status)

	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/books", student, nil).Status)
	for _, path := range []string{"/api/requests/pending", "/api/students", "/api/admin/dashboard"} {
		assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodGet, path, student, nil).Status, path)
	}
	res := do(t, app, http.MethodPost, "/api/books", student, fiber.Map{"Title": "x"})
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestRequestWorkflow(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := registerAdmin(t, app, "librarian")
	student := registerStudent(t, app, "alice", "S-1")
	bookID := createBook(t, app, admin, "Dune", 3)
	requestPath := fmt.Sprintf("/api/books/%d/requests", bookID)

	created := do(t, app, http.MethodPost, requestPath, student, nil)
	require.Equal(t, http.StatusCreated, created.Status, created.Body)
	assert.Equal(t, "Book request submitted successfully.", created.Body["Message"])

	dup := do(t, app, http.MethodPost, requestPath, student, nil)
	assert.Equal(t, http.StatusConflict, dup.Status)
	assert.Equal(t, "You have already requested this book.", dup.Body["Error"])

	pending := do(t, app, http.MethodGet, "/api/requests/pending", admin, nil)
	require.Equal(t, http.StatusOK, pending.Status)
	data := pending.Body["Data"].([]interface{})
	require.Len(t, data, 1)
	requestID := uint(data[0].(map[string]interface{})["ID"].(float64))

	approvePath := fmt.Sprintf("/api/requests/%d/approve", requestID)
	approved := do(t, app, http.MethodPost, approvePath, admin, nil)
	require.Equal(t, http.StatusOK, approved.Status)
	assert.Equal(t, true, approved.Body["IsApproved"])
	again := do(t, app, http.MethodPost, approvePath, admin, nil)
	assert.Equal(t, http.StatusOK, again.Status)

	book := do(t, app, http.MethodGet, fmt.Sprintf("/api/books/%d", bookID), student, nil)
	require.Equal(t, http.StatusOK, book.Status)
	assert.Equal(t, float64(3), book.Body["AvailableCopies"])

	mine := do(t, app, http.MethodGet, "/api/me/approved-books", student, nil)
	require.Equal(t, http.StatusOK, mine.Status)
	assert.Len(t, mine.List, 1)

	dash := do(t, app, http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, dash.Status)
	assert.Equal(t, float64(0), dash.Body["PendingCount"])
}

func TestRequestUnavailableBook(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := registerAdmin(t, app, "librarian")
	student := registerStudent(t, app, "alice", "S-1")
	bookID := createBook(t, app, admin, "Emma", 0)

	res := do(t, app, http.MethodPost, fmt.Sprintf("/api/books/%d/requests", bookID), student, nil)
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, "This book is not available for request.", res.Body["Error"])

	notFound := do(t, app, http.MethodPost, "/api/books/999/requests", student, nil)
	assert.Equal(t, http.StatusNotFound, notFound.Status)
}

func TestInventoryEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := registerAdmin(t, app, "librarian")
	bookID := createBook(t, app, admin, "Dune", 1)
	copiesPath := fmt.Sprintf("/api/books/%d/copies", bookID)

	dec := do(t, app, http.MethodPost, copiesPath, admin, fiber.Map{"Action": "decrement"})
	require.Equal(t, http.StatusOK, dec.Status)
	assert.Equal(t, float64(0), dec.Body["AvailableCopies"])
	assert.Equal(t, false, dec.Body["Available"])

	again := do(t, app, http.MethodPost, copiesPath, admin, fiber.Map{"Action": "decrement"})
	assert.Equal(t, http.StatusConflict, again.Status)

	bad := do(t, app, http.MethodPost, copiesPath, admin, fiber.Map{"Action": "triple"})
	assert.Equal(t, http.StatusBadRequest, bad.Status)

	inc := do(t, app, http.MethodPost, copiesPath, admin, fiber.Map{"Action": "increment"})
	require.Equal(t, http.StatusOK, inc.Status)
	assert.Equal(t, true, inc.Body["Available"])

	toggled := do(t, app, http.MethodPost, fmt.Sprintf("/api/books/%d/availability", bookID), admin, nil)
	require.Equal(t, http.StatusOK, toggled.Status)
	assert.Equal(t, false, toggled.Body["Available"])

	list := do(t, app, http.MethodGet, "/api/books?available=false", admin, nil)
	require.Equal(t, http.StatusOK, list.Status)
	assert.Len(t, list.Body["Data"], 1)

	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodGet, "/api/books?available=maybe", admin, nil).Status)
	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodGet, "/api/books/abc", admin, nil).Status)

	deleted := do(t, app, http.MethodDelete, fmt.Sprintf("/api/books/%d", bookID), admin, nil)
	assert.Equal(t, http.StatusOK, deleted.Status)
	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodGet, fmt.Sprintf("/api/books/%d", bookID), admin, nil).Status)
}

func TestAvailableBooksEndpoint(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := registerAdmin(t, app, "librarian")
	student := registerStudent(t, app, "alice", "S-1")
	createBook(t, app, admin, "Dune", 2)
	createBook(t, app, admin, "Emma", 0)

	res := do(t, app, http.MethodGet, "/api/books/available", student, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, res.List, 1)
	assert.Equal(t, "Dune", res.List[0].(map[string]interface{})["Title"])

	// non-strict routing: trailing slashes reach the same handlers and policies
	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/books/available/", student, nil).Status)
	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/api/categories/", student, nil).Status)
}

func TestSearchEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := registerAdmin(t, app, "librarian")
	student := registerStudent(t, app, "alice", "S-1")
	createBook(t, app, admin, "Dune", 1)

	found := do(t, app, http.MethodGet, "/api/search/books?query=DUNE", student, nil)
	require.Equal(t, http.StatusOK, found.Status)
	assert.Len(t, found.Body["Books"], 1)

	empty := do(t, app, http.MethodGet, "/api/search/books?query=", student, nil)
	require.Equal(t, http.StatusOK, empty.Status)
	assert.Equal(t, []interface{}{}, empty.Body["Books"])

	students := do(t, app, http.MethodGet, "/api/students/search?query=ali", admin, nil)
	require.Equal(t, http.StatusOK, students.Status)
	assert.Len(t, students.Body["Students"], 1)
}

func TestProfileEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig())
	student := registerStudent(t, app, "alice", "S-1")

	got := do(t, app, http.MethodGet, "/api/me/profile", student, nil)
	require.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, "", got.Body["Bio"])

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("Bio", "Loves science fiction."))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPut, "/api/me/profile", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	updated := send(t, app, req, student)
	require.Equal(t, http.StatusOK, updated.Status, updated.Body)
	profile := updated.Body["Profile"].(map[string]interface{})
	assert.Equal(t, "Loves science fiction.", profile["Bio"])
}
