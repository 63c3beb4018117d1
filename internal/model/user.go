package model

import "time"

// User 表示系统用户。
//
// Password 存 bcrypt 哈希，任何时候都不能出现在 API 响应里。
// TaskOrder 保存任务 ID 的显示顺序，由用户自行排序（不是按时间推导的）。
type User struct {
	ID        uint      `gorm:"primaryKey"`                             // 用户 ID
	Name      string    `gorm:"type:varchar(30);not null"`              // 昵称（1-30 字符）
	Email     string    `gorm:"type:varchar(191);uniqueIndex;not null"` // 邮箱（唯一）
	Password  string    `gorm:"not null" json:"-"`                      // bcrypt 哈希
	TaskOrder []uint    `gorm:"serializer:json"`                        // 任务显示顺序
	CreatedAt time.Time // 创建时间

	Tasks []Task `gorm:"foreignKey:UserID"`
}
