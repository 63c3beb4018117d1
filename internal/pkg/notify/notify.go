package notify

import (
	"context"

	"taskmanager/internal/model"
)

// Notifier 定义账号生命周期通知接口。
type Notifier interface {
	// SendWelcome 在注册成功后给新用户发欢迎邮件。
	SendWelcome(ctx context.Context, user *model.User) error
	// SendGoodbye 在账号删除后发送告别邮件。
	SendGoodbye(ctx context.Context, user *model.User) error
}
