package notify

import (
	"errors"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/ashevtsov/jobsieve/internal/job"
)

// SMTPConfig describes the outgoing mail account for digests.
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Recipient  string `mapstructure:"recipient"`
	SenderName string `mapstructure:"sender_name"`
}

// SMTPNotifier sends the HTML digest as a single email.
type SMTPNotifier struct {
	cfg    SMTPConfig
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, logger *zap.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.User == "" || cfg.Password == "" {
		return nil, errors.New("smtp user and password are required")
	}
	if cfg.Recipient == "" {
		return nil, errors.New("smtp recipient is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "jobsieve"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail, logger: logger}, nil
}

func (n *SMTPNotifier) Notify(jobs []*job.Posting) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	subject := fmt.Sprintf("%d job match(es)", len(jobs))
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"utf-8\"\r\n\r\n%s",
		n.cfg.SenderName, n.cfg.User, n.cfg.Recipient, subject, BuildDigest(jobs))

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.User, []string{n.cfg.Recipient}, []byte(msg)); err != nil {
		return 0, fmt.Errorf("send digest: %w", err)
	}

	n.logger.Info("digest sent",
		zap.String("recipient", n.cfg.Recipient),
		zap.Int("jobs", len(jobs)),
	)
	return len(jobs), nil
}
