package api

import (
	"bitwise74/campus-finder/config"
	"bitwise74/campus-finder/middleware"
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/security"
	"bitwise74/campus-finder/store"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent int
}

func (m *fakeMailer) SendVerification(context.Context, string, string, string) error {
	return m.send()
}

func (m *fakeMailer) SendPasswordReset(context.Context, string, string, string, string) error {
	return m.send()
}

func (m *fakeMailer) send() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp down")
	}
	m.sent++
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.objects[key] = b
	f.mu.Unlock()

	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

type testAPI struct {
	*API
	mailer *fakeMailer
	store  *store.GormStore
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{LogLevel: "info", Env: "development"},
		Host: config.HostConfig{
			Port:        8080,
			Domain:      "localhost",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		JWT: config.JWTConfig{Secret: "test-secret", TTL: time.Hour},
		Security: config.SecurityConfig{
			RateLimit:      1000,
			RateBurst:      1000,
			OTPMaxAttempts: 5,
			OTPWindow:      15 * time.Minute,
		},
		Storage: config.StorageConfig{MaxImageSize: 1 << 20},
		Cleanup: config.CleanupConfig{Interval: time.Minute},
	}
}

func newTestAPI(t *testing.T, cfg *config.Config, objects *fakeObjects) *testAPI {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Item{}))

	s := store.NewGormStore(db)
	t.Cleanup(func() { s.Close(context.Background()) })

	argon := security.New()
	argon.Memory = 8 * 1024
	argon.Iterations = 1

	m := &fakeMailer{}
	d := Deps{Config: cfg, Store: s, Mailer: m, Argon: argon}
	if objects != nil {
		d.Objects = objects
	}

	a, err := NewRouter(d)
	require.NoError(t, err)

	return &testAPI{API: a, mailer: m, store: s}
}

func (a *testAPI) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			return ck
		}
	}

	return nil
}

func registerBodyFor(name, email string) gin.H {
	return gin.H{
		"name":            name,
		"email":           email,
		"password":        "Secr3tPass",
		"confirmPassword": "Secr3tPass",
		"contactNumber":   "03001234567",
	}
}

// signup registers and verifies an account and returns its session cookie
func (a *testAPI) signup(t *testing.T, name, email string) *http.Cookie {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/auth/register", registerBodyFor(name, email), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code := decode(t, w)["verificationCode"].(string)

	w = a.do(t, http.MethodPost, "/api/auth/verify", gin.H{"email": email, "code": code}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ck := sessionCookie(w)
	require.NotNil(t, ck)
	return ck
}
