package service

import (
	"fmt"
	"strings"

	"github.com/xuongmay/garment-plm/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailService sends notification mail. Every send runs on its own
// goroutine: delivery failures are logged and never propagate to the
// triggering request. With no SMTP credentials configured the service
// degrades to a logging no-op.
type EmailService struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   *zap.Logger
}

func NewEmailService(cfg config.SMTPConfig, logger *zap.Logger) *EmailService {
	svc := &EmailService{
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger,
	}
	if cfg.Host != "" && cfg.User != "" {
		svc.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return svc
}

func (s *EmailService) send(to, subject, htmlBody string) {
	if s.dialer == nil {
		s.logger.Debug("smtp not configured, skipping email",
			zap.String("to", to), zap.String("subject", subject))
		return
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	go func() {
		if err := s.dialer.DialAndSend(m); err != nil {
			s.logger.Warn("send email failed",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}

// SendWelcome notifies a freshly created account of its credentials.
func (s *EmailService) SendWelcome(name, email, username, rawPassword string) {
	body := fmt.Sprintf(
		`<p>Xin chào %s,</p>
<p>Tài khoản của bạn đã được tạo trên hệ thống Quản Lý Xưởng May.</p>
<p>Tên đăng nhập: <b>%s</b><br>Mật khẩu: <b>%s</b></p>
<p>Vui lòng đổi mật khẩu sau khi đăng nhập lần đầu.</p>`,
		name, username, rawPassword)
	s.send(email, "Chào mừng đến với Quản Lý Xưởng May", body)
}

// SendProfileUpdated lists the account fields an admin changed.
func (s *EmailService) SendProfileUpdated(name, email string, changes []string) {
	body := fmt.Sprintf(
		`<p>Xin chào %s,</p>
<p>Thông tin tài khoản của bạn vừa được cập nhật:</p>
<ul><li>%s</li></ul>`,
		name, strings.Join(changes, "</li><li>"))
	s.send(email, "Tài khoản của bạn đã được cập nhật", body)
}

// SendAccountDeleted notifies a removed account.
func (s *EmailService) SendAccountDeleted(name, email string) {
	body := fmt.Sprintf(
		`<p>Xin chào %s,</p>
<p>Tài khoản của bạn trên hệ thống Quản Lý Xưởng May đã bị xóa.</p>`,
		name)
	s.send(email, "Tài khoản của bạn đã bị xóa", body)
}

// SendOTP delivers a password-reset code. The code expires after ten
// minutes and is valid once.
func (s *EmailService) SendOTP(name, email, code string) {
	body := fmt.Sprintf(
		`<p>Xin chào %s,</p>
<p>Mã xác nhận đặt lại mật khẩu của bạn là: <b style="font-size:18px">%s</b></p>
<p>Mã có hiệu lực trong 10 phút và chỉ dùng được một lần.</p>`,
		name, code)
	s.send(email, "Mã xác nhận đặt lại mật khẩu", body)
}
