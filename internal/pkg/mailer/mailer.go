package mailer

import (
	"fmt"
	"net/smtp"

	"flowmarket/internal/pkg/config"
)

// Mailer 邮件发送接口
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer 基于 SMTP 的实现
type SMTPMailer struct {
	host string
	port string
	from string
}

func NewSMTPMailer() *SMTPMailer {
	cfg := config.GlobalConfig.SMTP
	return &SMTPMailer{
		host: cfg.Host,
		port: cfg.Port,
		from: cfg.From,
	}
}

// Send 发送 HTML 邮件
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	return smtp.SendMail(addr, nil, m.from, []string{to}, []byte(msg))
}
