package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"taskmanager/internal/model"
	"taskmanager/internal/pkg/metrics"
	"taskmanager/internal/pkg/password"
	"taskmanager/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var sessionIDPattern = regexp.MustCompile(`^\d{6}$`)

type testEnv struct {
	db      *gorm.DB
	handler *Handler
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Task{}, &model.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(session.NewGormStore(db), session.NewGormUserFinder(db), "test-secret", 0)
	h := NewHandler(db, sessions, nil, logger)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.DELETE("/auth/sign-out", func(c *gin.Context) {
		c.Set("sessionID", c.GetHeader("sessionId"))
		h.SignOut(c)
	})

	return &testEnv{db: db, handler: h, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestRegister_CreatesUserAndSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"name":     "Neil",
		"email":    "neil@mail.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		User struct {
			ID    uint   `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
		Session session.Pair `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.User.Email != "neil@mail.com" || resp.User.Name != "Neil" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
	if !sessionIDPattern.MatchString(resp.Session.ID) {
		t.Fatalf("session id %q is not six digits", resp.Session.ID)
	}
	if len(resp.Session.Hash) != 64 {
		t.Fatalf("session hash %q is not a sha256 hex digest", resp.Session.Hash)
	}

	// 响应体里不得出现密码或其摘要
	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Fatalf("response leaks password field: %s", w.Body.String())
	}

	var user model.User
	if err := env.db.Where("email = ?", "neil@mail.com").First(&user).Error; err != nil {
		t.Fatalf("user row missing: %v", err)
	}
	if user.Password == "password123" {
		t.Fatalf("password stored in plain text")
	}
	if !password.Verify("password123", user.Password) {
		t.Fatalf("stored digest does not verify")
	}

	var count int64
	if err := env.db.Model(&model.Session{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 session row, got %d", count)
	}
}

func TestRegister_UppercaseEmailNormalised(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"name":     "Neil",
		"email":    "Neil@Mail.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var user model.User
	if err := env.db.Where("email = ?", "neil@mail.com").First(&user).Error; err != nil {
		t.Fatalf("expected lowercased email row: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	body := gin.H{"name": "Neil", "email": "neil@mail.com", "password": "password123"}
	if w := env.do(t, http.MethodPost, "/auth/register", body); w.Code != http.StatusCreated {
		t.Fatalf("first register: %d", w.Code)
	}
	w := env.do(t, http.MethodPost, "/auth/register", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"empty name", gin.H{"name": "  ", "email": "neil@mail.com", "password": "password123"}},
		{"name too long", gin.H{"name": strings.Repeat("x", 31), "email": "neil@mail.com", "password": "password123"}},
		{"bad email", gin.H{"name": "Neil", "email": "not-an-email", "password": "password123"}},
		{"email too short", gin.H{"name": "Neil", "email": "a@b.co", "password": "password123"}},
		{"short password", gin.H{"name": "Neil", "email": "neil@mail.com", "password": "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/auth/register", tc.body)
			if w.Code != http.StatusNotAcceptable {
				t.Fatalf("expected 406, got %d", w.Code)
			}
		})
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "nobody@mail.com",
		"password": "password123",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", w.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"name": "Neil", "email": "neil@mail.com", "password": "password123",
	}); w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}

	var before int64
	env.db.Model(&model.Session{}).Count(&before)

	w := env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "neil@mail.com",
		"password": "wrongpassword",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", w.Code)
	}

	// 登录失败不能多出会话
	var after int64
	env.db.Model(&model.Session{}).Count(&after)
	if after != before {
		t.Fatalf("failed login created a session: before=%d after=%d", before, after)
	}
}

func TestLogin_IssuesFreshSession(t *testing.T) {
	env := newTestEnv(t)

	reg := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"name": "Neil", "email": "neil@mail.com", "password": "password123",
	})
	if reg.Code != http.StatusCreated {
		t.Fatalf("register: %d", reg.Code)
	}

	w := env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "neil@mail.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Session session.Pair `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var sess model.Session
	if err := env.db.Where("session_id = ?", resp.Session.ID).First(&sess).Error; err != nil {
		t.Fatalf("issued session not persisted: %v", err)
	}
	if sess.SessionHash != resp.Session.Hash {
		t.Fatalf("persisted hash mismatch")
	}

	var count int64
	env.db.Model(&model.Session{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected register + login to leave 2 sessions, got %d", count)
	}
}

func TestSignOut_DeletesSessionRow(t *testing.T) {
	env := newTestEnv(t)

	reg := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"name": "Neil", "email": "neil@mail.com", "password": "password123",
	})
	var resp struct {
		Session session.Pair `json:"session"`
	}
	if err := json.Unmarshal(reg.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/auth/sign-out", nil)
	req.Header.Set("sessionId", resp.Session.ID)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var count int64
	env.db.Model(&model.Session{}).Where("session_id = ?", resp.Session.ID).Count(&count)
	if count != 0 {
		t.Fatalf("session row should be deleted, got %d", count)
	}
}

func TestValidEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"neil@mail.com", true},
		{"first.last@mail.com", true},
		{"a@bc.com", false}, // 格式合法但低于最短长度
		{"user01@mail.io", true},
		{"no-at-sign.com", false},
		{"user@mail.toolong", false},
		{"user@mail", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidEmail(tc.email); got != tc.want {
			t.Fatalf("ValidEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}
