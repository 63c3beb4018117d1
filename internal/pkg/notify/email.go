package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskmanager/internal/config"
	"taskmanager/internal/model"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
//
// SMTP 未配置时所有发送静默跳过，注册 / 删号流程不因此失败。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendWelcome 发送欢迎邮件。
func (n *EmailNotifier) SendWelcome(ctx context.Context, user *model.User) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to Task Manager, %s!</h2>
    <p>Your account is ready. Sign in and start organising your tasks.</p>
    <p style="font-size: 12px; color: #6b7280;">If you didn't create this account, you can ignore this email.</p>
  </div>
</body>
</html>`, user.Name)

	return n.send(user.Email, "Welcome to Task Manager", body)
}

// SendGoodbye 发送删号告别邮件。
func (n *EmailNotifier) SendGoodbye(ctx context.Context, user *model.User) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Goodbye, %s</h2>
    <p>Your Task Manager account and all its tasks have been deleted.</p>
    <p style="font-size: 12px; color: #6b7280;">We're sorry to see you go.</p>
  </div>
</body>
</html>`, user.Name)

	return n.send(user.Email, "Your Task Manager account has been deleted", body)
}

func (n *EmailNotifier) send(toEmail, subject, htmlBody string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip notification")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email notification sent", slog.String("to", toEmail), slog.String("subject", subject))
	return nil
}
