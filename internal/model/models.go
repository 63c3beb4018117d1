package model

import (
	"time"
)

// Task 表示用户任务清单里的一条任务。
//
// DateDue / TimeDue 是前端传入的显示用字符串（dd/MM/yyyy 与 hh:mm），
// 不参与排序；列表顺序由 User.TaskOrder 决定。
type Task struct {
	ID        uint      `gorm:"primaryKey"` // 任务唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID    uint   `gorm:"not null;index"`             // 所属用户 ID
	Text      string `gorm:"type:varchar(150);not null"` // 任务内容（1-150 字符）
	DateDue   string `gorm:"type:varchar(16)"`           // 截止日期（可选）
	TimeDue   string `gorm:"type:varchar(16)"`           // 截止时间（可选）
	Completed bool   `gorm:"default:false"`              // 是否已完成
}

// Session 表示一条已签发的会话记录。
//
// SessionID 是下发给客户端的 6 位数字标识，SessionHash 是用服务端密钥
// 对 SessionID 做 HMAC-SHA256 得到的十六进制摘要。两者在存储层都有
// 唯一约束：并发签发撞号时由数据库兜底拒绝第二次插入。
type Session struct {
	SessionID   string    `gorm:"primaryKey;type:varchar(8)"`            // 会话标识（6 位数字）
	SessionHash string    `gorm:"type:varchar(64);uniqueIndex;not null"` // 密钥派生摘要
	UserID      uint      `gorm:"not null;index"`                        // 所属用户 ID
	CreatedAt   time.Time // 签发时间
}
