// Package auth 提供注册、登录与登出接口。
//
// 登录态不是 JWT 而是一对会话凭证（sessionId + sessionHash），
// 由 session.Manager 签发并落库，登出即删除记录。
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"taskmanager/internal/model"
	"taskmanager/internal/pkg/dateutil"
	"taskmanager/internal/pkg/notify"
	"taskmanager/internal/pkg/password"
	"taskmanager/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// emailPattern 允许小写字母、数字和点组成的本地部分，
// 域名为纯字母加 2 到 3 位后缀。大写邮箱在校验前先统一转小写。
var emailPattern = regexp.MustCompile(`[a-z0-9.]+@[a-z]+\.[a-z]{2,3}$`)

const (
	maxNameLength     = 30
	minEmailLength    = 10
	minPasswordLength = 8
)

// Handler 提供注册与登录接口。
type Handler struct {
	db       *gorm.DB
	sessions *session.Manager
	mailer   notify.Notifier
	logger   *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(db *gorm.DB, sessions *session.Manager, mailer notify.Notifier, logger *slog.Logger) *Handler {
	return &Handler{
		db:       db,
		sessions: sessions,
		mailer:   mailer,
		logger:   logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userPayload 是对外的用户视图，永远不带密码摘要。
type userPayload struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	AccountCreated string `json:"accountCreated"`
	TaskOrder      []uint `json:"taskOrder"`
}

// authResponse 注册 / 登录成功时的响应体。
type authResponse struct {
	User    userPayload  `json:"user"`
	Session session.Pair `json:"session"`
}

// NewUserPayload 把用户模型转成响应视图。
func NewUserPayload(u *model.User) userPayload {
	order := u.TaskOrder
	if order == nil {
		order = []uint{}
	}
	return userPayload{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		AccountCreated: dateutil.AccountCreationDate(u.CreatedAt),
		TaskOrder:      order,
	}
}

// Register 创建新用户并直接签发一个会话。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLength {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-name", "error": "name must be between 1 and 30 characters"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !ValidEmail(email) {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-email", "error": "please enter a valid email"})
		return
	}

	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-password", "error": "password must be at least 8 characters"})
		return
	}

	digest, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "something went wrong"})
		return
	}

	user := model.User{
		Name:      name,
		Email:     email,
		Password:  digest,
		TaskOrder: []uint{},
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"kind": "duplicate-email", "error": "an account with this email already exists"})
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "create user failed"})
		return
	}

	pair, err := h.sessions.Issue(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue session failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "create session failed"})
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendWelcome(c.Request.Context(), &user); err != nil {
			h.logger.Warn("send welcome email failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	}

	h.logger.Info("user registered", slog.String("email", email))
	c.JSON(http.StatusCreated, authResponse{User: NewUserPayload(&user), Session: pair})
}

// Login 校验邮箱密码并签发新会话。
//
// 未注册的邮箱返回 404，密码不对返回 401，两种失败的文案不同，
// 这是产品侧的取舍而非疏忽。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	var user model.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"kind": "not-found", "error": "no account with this email exists"})
			return
		}
		h.logger.Error("query user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "query user failed"})
		return
	}

	if !password.Verify(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"kind": "unauthorized", "error": "incorrect password"})
		return
	}

	pair, err := h.sessions.Issue(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue session failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "create session failed"})
		return
	}

	h.logger.Info("user logged in", slog.String("email", email))
	c.JSON(http.StatusOK, authResponse{User: NewUserPayload(&user), Session: pair})
}

// SignOut 吊销当前会话。幂等，重复登出同样返回成功。
func (h *Handler) SignOut(c *gin.Context) {
	sessionID := c.GetString("sessionID")
	if err := h.sessions.RevokeOne(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("revoke session failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "sign out failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// ValidEmail 判断邮箱是否满足格式与最短长度要求。
func ValidEmail(email string) bool {
	return len(email) >= minEmailLength && emailPattern.MatchString(email)
}
