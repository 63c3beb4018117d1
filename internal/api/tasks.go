package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"taskmanager/internal/model"
	"taskmanager/internal/pkg/dateutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxTaskTextLength = 150

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Text    string `json:"text"`
	DateDue string `json:"dateDue"`
	TimeDue string `json:"timeDue"`
}

type updateTaskRequest struct {
	Text      *string `json:"text"`
	DateDue   *string `json:"dateDue"`
	TimeDue   *string `json:"timeDue"`
	Completed *bool   `json:"completed"`
}

type taskResponse struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	DateDue   string `json:"dateDue,omitempty"`
	TimeDue   string `json:"timeDue,omitempty"`
	Completed bool   `json:"completed"`
	Created   string `json:"created"`
}

func newTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:        t.ID,
		Text:      t.Text,
		DateDue:   t.DateDue,
		TimeDue:   t.TimeDue,
		Completed: t.Completed,
		Created:   dateutil.FormattedDateTime(t.CreatedAt),
	}
}

// handleCreateTask 创建任务并把 ID 追加到用户的显示顺序末尾。
func (s *Server) handleCreateTask(c *gin.Context) {
	user := currentUser(c)
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" || len(text) > maxTaskTextLength {
		c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-task", "error": "task text must be between 1 and 150 characters"})
		return
	}

	task := model.Task{
		UserID:  user.ID,
		Text:    text,
		DateDue: strings.TrimSpace(req.DateDue),
		TimeDue: strings.TrimSpace(req.TimeDue),
	}

	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		order := append(user.TaskOrder, task.ID)
		return tx.Model(user).Update("task_order", order).Error
	})
	if err != nil {
		s.logger.Error("create task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "create task failed"})
		return
	}

	user.TaskOrder = append(user.TaskOrder, task.ID)
	c.JSON(http.StatusCreated, gin.H{"task": newTaskResponse(&task)})
}

// handleListTasks 返回当前用户的全部任务。
//
// 存了顺序的任务排在前面并按顺序数组排列，顺序数组里没有的
// 任务按创建时间跟在后面。
func (s *Server) handleListTasks(c *gin.Context) {
	user := currentUser(c)

	var tasks []model.Task
	if err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		s.logger.Error("list tasks failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "list tasks failed"})
		return
	}

	byID := make(map[uint]*model.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	ordered := make([]taskResponse, 0, len(tasks))
	seen := make(map[uint]bool, len(tasks))
	for _, id := range user.TaskOrder {
		if t, ok := byID[id]; ok && !seen[id] {
			ordered = append(ordered, newTaskResponse(t))
			seen[id] = true
		}
	}
	for i := range tasks {
		if !seen[tasks[i].ID] {
			ordered = append(ordered, newTaskResponse(&tasks[i]))
		}
	}

	c.JSON(http.StatusOK, gin.H{"tasks": ordered})
}

// handleGetTask 返回单个任务，属主不匹配按不存在处理。
func (s *Server) handleGetTask(c *gin.Context) {
	user := currentUser(c)
	task, ok := s.findOwnedTask(c, user.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": newTaskResponse(task)})
}

// handleUpdateTask 部分更新任务字段。
func (s *Server) handleUpdateTask(c *gin.Context) {
	user := currentUser(c)
	task, ok := s.findOwnedTask(c, user.ID)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" || len(text) > maxTaskTextLength {
			c.JSON(http.StatusNotAcceptable, gin.H{"kind": "invalid-task", "error": "task text must be between 1 and 150 characters"})
			return
		}
		updates["text"] = text
	}
	if req.DateDue != nil {
		updates["date_due"] = strings.TrimSpace(*req.DateDue)
	}
	if req.TimeDue != nil {
		updates["time_due"] = strings.TrimSpace(*req.TimeDue)
	}
	if req.Completed != nil {
		updates["completed"] = *req.Completed
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(c.Request.Context()).Model(task).Updates(updates).Error; err != nil {
			s.logger.Error("update task failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "update task failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"task": newTaskResponse(task)})
}

// handleDeleteTask 删除任务并把 ID 从显示顺序里摘掉。
func (s *Server) handleDeleteTask(c *gin.Context) {
	user := currentUser(c)
	task, ok := s.findOwnedTask(c, user.ID)
	if !ok {
		return
	}

	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Task{}, task.ID).Error; err != nil {
			return err
		}
		order := make([]uint, 0, len(user.TaskOrder))
		for _, id := range user.TaskOrder {
			if id != task.ID {
				order = append(order, id)
			}
		}
		if err := tx.Model(user).Update("task_order", order).Error; err != nil {
			return err
		}
		user.TaskOrder = order
		return nil
	})
	if err != nil {
		s.logger.Error("delete task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "delete task failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// findOwnedTask 按路径参数取任务并校验属主。
//
// 任务不存在和属主不匹配返回一样的 404，不向其他用户暴露任务是否存在。
func (s *Server) findOwnedTask(c *gin.Context, userID uint) (*model.Task, bool) {
	idParam := c.Param("id")
	taskID, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad-request", "error": "invalid task id"})
		return nil, false
	}

	var task model.Task
	if err := s.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"kind": "not-found", "error": "task not found"})
			return nil, false
		}
		s.logger.Error("query task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "query task failed"})
		return nil, false
	}
	return &task, true
}
