package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskmanager/internal/api/auth"
	"taskmanager/internal/model"
	"taskmanager/internal/pkg/password"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type updateNameRequest struct {
	Name string `json:"name"`
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateTaskOrderRequest struct {
	Tasks []uint `json:"tasks"`
}

// handleGetMe 返回当前会话属主的资料。
func (s *Server) handleGetMe(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "something went wrong"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": auth.NewUserPayload(user)})
}

// handleUpdateName 修改昵称。
func (s *Server) handleUpdateName(c *gin.Context) {
	user := currentUser(c)
	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 30 {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-name", "error": "name must be between 1 and 30 characters"})
		return
	}

	if err := s.db.WithContext(c.Request.Context()).Model(user).Update("name", name).Error; err != nil {
		s.logger.Error("update name failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "update name failed"})
		return
	}

	user.Name = name
	c.JSON(http.StatusOK, gin.H{"user": auth.NewUserPayload(user)})
}

// handleUpdateEmail 修改邮箱，新邮箱同样要过格式校验和唯一约束。
func (s *Server) handleUpdateEmail(c *gin.Context) {
	user := currentUser(c)
	var req updateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !auth.ValidEmail(email) {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-email", "error": "please enter a valid email"})
		return
	}

	if err := s.db.WithContext(c.Request.Context()).Model(user).Update("email", email).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"kind": "duplicate-email", "error": "an account with this email already exists"})
			return
		}
		s.logger.Error("update email failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "update email failed"})
		return
	}

	user.Email = email
	c.JSON(http.StatusOK, gin.H{"user": auth.NewUserPayload(user)})
}

// handleUpdatePassword 修改密码。先核对旧密码，再重新做 bcrypt。
func (s *Server) handleUpdatePassword(c *gin.Context) {
	user := currentUser(c)
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	if !password.Verify(req.OldPassword, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"kind": "unauthorized", "error": "incorrect password"})
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-password", "error": "password must be at least 8 characters"})
		return
	}

	digest, err := password.Hash(req.NewPassword)
	if err != nil {
		s.logger.Error("hash password failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "something went wrong"})
		return
	}

	if err := s.db.WithContext(c.Request.Context()).Model(user).Update("password", digest).Error; err != nil {
		s.logger.Error("update password failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "update password failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": auth.NewUserPayload(user)})
}

// handleUpdateTaskOrder 保存客户端传来的任务显示顺序。
//
// 顺序数组按原样存储，不校验每个 ID 是否真实存在，
// 读取侧对不认识的 ID 直接忽略。
func (s *Server) handleUpdateTaskOrder(c *gin.Context) {
	user := currentUser(c)
	var req updateTaskOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	order := req.Tasks
	if order == nil {
		order = []uint{}
	}

	if err := s.db.WithContext(c.Request.Context()).Model(user).Update("task_order", order).Error; err != nil {
		s.logger.Error("update task order failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "update task order failed"})
		return
	}

	user.TaskOrder = order
	c.JSON(http.StatusOK, gin.H{"user": auth.NewUserPayload(user)})
}

// handleDeleteAccount 删除账号。
//
// 任务、会话和用户记录在一个事务里一起删，任何一步失败整体回滚，
// 不会留下没有属主的任务或还能登录的孤儿会话。
func (s *Server) handleDeleteAccount(c *gin.Context) {
	user := currentUser(c)

	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, user.ID).Error
	})
	if err != nil {
		s.logger.Error("delete account failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "delete account failed"})
		return
	}

	if s.mailer != nil {
		if err := s.mailer.SendGoodbye(c.Request.Context(), user); err != nil {
			s.logger.Warn("send goodbye email failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		}
	}

	s.logger.Info("account deleted", slog.String("email", user.Email))
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}
