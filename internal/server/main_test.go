package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"forum/internal/cache"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:           "5000",
		Env:            "test",
		DBDriver:       config.DriverSQLite,
		JWTSecret:      "test-secret-key-12345678901234567890",
		JWTIssuer:      "forum",
		AllowedOrigins: "*",
		BodyLimitMB:    10,
		AuthRateLimit:  10,
		WriteRateLimit: 60,
		UploadBackend:  config.UploadBackendLocal,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestServer(t *testing.T, rdb *redis.Client) (*Server, *fiber.App) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return newTestServerWithDeps(t, testConfig(), rdb, store)
}

func newTestServerWithDeps(t *testing.T, cfg *config.Config, rdb *redis.Client, store storage.FileStorage) (*Server, *fiber.App) {
	t.Helper()
	cache.SetClient(nil)

	s, err := NewServerWithDeps(cfg, setupTestDB(t), rdb, store)
	require.NoError(t, err)
	return s, s.NewApp()
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func jsonRequest(method, path string, body any, token string) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type upload struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, path, content string, files []upload, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", content))
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func registerAndLogin(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": password}
	resp := doRequest(t, app, jsonRequest(http.MethodPost, "/register", creds, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, jsonRequest(http.MethodPost, "/login", creds, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.NotEmpty(t, body["token"])
	return body["token"]
}
