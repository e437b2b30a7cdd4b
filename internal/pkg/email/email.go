package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/artify/artify_go_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendGenerationCompleted 发送生成完成通知
func (s *Service) SendGenerationCompleted(to, name, imageName, imageURL string) error {
	subject := "您的吉卜力风格图片已生成 - Artify"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">生成完成！</h2>
        <p>您好，%s！</p>
        <p>您的作品「%s」已经生成完毕，点击下方按钮查看：</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">查看图片</a>
        </div>
        <p>也可以随时在个人中心查看全部作品。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, name, imageName, imageURL)

	return s.sendHTML(to, subject, body)
}

// SendGenerationFailed 发送生成失败通知
func (s *Service) SendGenerationFailed(to, name, imageName string) error {
	subject := "图片生成失败 - Artify"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #dc2626;">很抱歉，生成失败了</h2>
        <p>您好，%s，</p>
        <p>您的作品「%s」在生成过程中出现问题，本次消耗的额度已自动退还。</p>
        <p>您可以稍后重新提交，如果问题持续出现请联系客服。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, name, imageName)

	return s.sendHTML(to, subject, body)
}

// SendSubscriptionConfirmation 发送订阅开通确认
func (s *Service) SendSubscriptionConfirmation(to, name, planName string, imagesLimit int) error {
	subject := "订阅开通成功 - Artify"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">订阅开通成功！</h2>
        <p>您好，%s！</p>
        <p>您的「%s」已生效，可生成 %d 张吉卜力风格图片。</p>
        <p>现在就去上传照片，开始创作吧！</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, name, planName, imagesLimit)

	return s.sendHTML(to, subject, body)
}

// SendPasswordReset 发送密码重置邮件
func (s *Service) SendPasswordReset(to, resetLink string) error {
	subject := "密码重置 - Artify"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">密码重置</h2>
        <p>您好，</p>
        <p>您正在请求重置密码，请点击下方按钮完成重置：</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">重置密码</a>
        </div>
        <p>或者复制以下链接到浏览器：</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">%s</p>
        <p>链接有效期为 30 分钟。</p>
        <p>如果您没有请求重置密码，请忽略此邮件。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, resetLink, resetLink)

	return s.sendHTML(to, subject, body)
}

// SendNewTicketNotification 通知管理员有新工单
func (s *Service) SendNewTicketNotification(subject, message, userEmail, userName string, ticketID int64) error {
	mailSubject := fmt.Sprintf("新工单 #%d - %s", ticketID, subject)
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">收到新工单</h2>
        <p>用户：%s（%s）</p>
        <p>主题：%s</p>
        <p style="background-color: #f3f4f6; padding: 10px;">%s</p>
    </div>
</body>
</html>
`, userName, userEmail, subject, message)

	return s.sendHTML(s.cfg.AdminEmail, mailSubject, body)
}

// SendTicketReplyNotification 通知用户工单有新回复
func (s *Service) SendTicketReplyNotification(to, name, subject, reply string, ticketID int64) error {
	mailSubject := fmt.Sprintf("工单 #%d 有新回复 - Artify", ticketID)
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">您的工单有新回复</h2>
        <p>您好，%s，</p>
        <p>工单「%s」收到新回复：</p>
        <p style="background-color: #f3f4f6; padding: 10px;">%s</p>
        <p>请登录个人中心查看详情。</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, name, subject, reply)

	return s.sendHTML(to, mailSubject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	headers := make(map[string]string)
	headers["From"] = s.cfg.From
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
