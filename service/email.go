package service

import (
	"errors"
	"fmt"

	"envelope/config"

	"gopkg.in/gomail.v2"
)

// ErrEmailDisabled 邮件服务未启用
var ErrEmailDisabled = errors.New("邮件服务未启用，请配置 ENVELOPE_EMAIL_ENABLED=true")

// Mailer 发送业务邮件
type Mailer interface {
	Enabled() bool
	SendInvitationEmail(toEmail, inviterName, planName, role, inviteLink string) error
	SendPasswordResetCode(toEmail, name, code string, ttlMinutes int) error
}

// EmailService 基于 SMTP 的邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled 是否已启用
func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

// SendInvitationEmail 发送计划邀请邮件
func (s *EmailService) SendInvitationEmail(toEmail, inviterName, planName, role, inviteLink string) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}

	subject := fmt.Sprintf("【信封预算】%s 邀请您加入「%s」", inviterName, planName)
	body := s.generateInvitationEmailBody(inviterName, planName, role, inviteLink)

	return s.sendEmail(toEmail, subject, body)
}

// generateInvitationEmailBody 生成邀请邮件内容
func (s *EmailService) generateInvitationEmailBody(inviterName, planName, role, inviteLink string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .btn { display: inline-block; background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white !important; text-decoration: none; padding: 14px 40px; border-radius: 8px; font-weight: 600; margin: 20px 0; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
        .link { word-break: break-all; color: #2563eb; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>✉️ 信封预算</h1>
        </div>
        <div class="content">
            <p>您好！</p>
            <p><strong>%s</strong> 邀请您以 <strong>%s</strong> 身份加入预算计划「%s」。</p>
            <p style="text-align: center;">
                <a href="%s" class="btn">接受邀请</a>
            </p>
            <div class="warning">
                <p>⚠️ 邀请链接仅能使用一次，过期后需重新邀请。</p>
                <p>⚠️ 请使用收到此邮件的邮箱登录后接受邀请。</p>
            </div>
            <p>如果按钮无法点击，请复制以下链接到浏览器打开：</p>
            <p class="link">%s</p>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`, inviterName, roleLabel(role), planName, inviteLink, inviteLink)
}

// SendPasswordResetCode 发送密码重置验证码
func (s *EmailService) SendPasswordResetCode(toEmail, name, code string, ttlMinutes int) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}

	subject := "【信封预算】密码重置验证码"
	body := s.generateResetCodeEmailBody(name, code, ttlMinutes)

	return s.sendEmail(toEmail, subject, body)
}

// generateResetCodeEmailBody 生成密码重置验证码邮件内容
func (s *EmailService) generateResetCodeEmailBody(name, code string, ttlMinutes int) string {
	if name == "" {
		name = "用户"
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #2563eb, #1d4ed8); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .code-box { background: linear-gradient(135deg, #eff6ff, #dbeafe); border: 2px dashed #2563eb; border-radius: 12px; padding: 30px; text-align: center; margin: 30px 0; }
        .code { font-size: 36px; font-weight: bold; color: #1d4ed8; letter-spacing: 8px; font-family: 'Courier New', monospace; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>✉️ 信封预算</h1>
        </div>
        <div class="content">
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>我们收到了您的密码重置请求，请使用以下验证码重置您的密码：</p>
            <div class="code-box">
                <span class="code">%s</span>
            </div>
            <div class="warning">
                <p>⚠️ 此验证码有效期为 <strong>%d 分钟</strong>，请尽快完成密码重置。</p>
                <p>⚠️ 如果您没有请求重置密码，请忽略此邮件。</p>
            </div>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`, name, code, ttlMinutes)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}

func roleLabel(role string) string {
	switch role {
	case "OWNER":
		return "所有者"
	case "EDITOR":
		return "编辑者"
	case "VIEWER":
		return "查看者"
	}
	return role
}
