package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docport/docport/internal/config"
)

type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

type smtpSender struct {
	cfg config.MailConfig
}

// NewEmailSender returns an SMTP sender, or a logging sender when mail is not
// configured so development setups still surface codes and links.
func NewEmailSender(cfg config.MailConfig) EmailSender {
	if cfg.Host == "" {
		return &consoleSender{}
	}
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	from := strings.TrimSpace(s.cfg.From)
	if from == "" {
		from = s.cfg.Username
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + htmlBody)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

type consoleSender struct{}

func (s *consoleSender) Send(to, subject, htmlBody string) error {
	logutil.GetLogger(context.Background()).Info("mail not configured, dumping email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", htmlBody),
	)
	return nil
}
