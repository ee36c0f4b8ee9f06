package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
)

var ErrNoRecipient = errors.New("user has no deliverable email address")

// SMTPConfig holds the outgoing mail settings. From falls back to User.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails each issued code to the user's address.
type EmailNotifier struct {
	cfg      SMTPConfig
	logger   logging.Logger
	sendMail sendMailFunc
}

func NewEmailNotifier(cfg SMTPConfig, logger logging.Logger) *EmailNotifier {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &EmailNotifier{
		cfg:      cfg,
		logger:   logger.With("module", "notify"),
		sendMail: smtp.SendMail,
	}
}

func (n *EmailNotifier) SendCode(ctx context.Context, user *models.User, code string) error {
	to := strings.TrimSpace(user.Email)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}

	addr := n.cfg.Host + ":" + n.cfg.Port
	if err := n.sendMail(addr, auth, n.cfg.From, []string{to}, n.message(to, user.DeviceID, code)); err != nil {
		n.logger.Error(ctx, "mail delivery failed", "device_id", user.DeviceID, "error", err)
		return fmt.Errorf("smtp: %w", err)
	}

	n.logger.Info(ctx, "code mailed", "device_id", user.DeviceID)
	return nil
}

func (n *EmailNotifier) message(to, deviceID, code string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your sign-in code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Your sign-in code for device %s is %s.\r\n", deviceID, code)
	b.WriteString("If you did not request it, ignore this message.\r\n")
	return []byte(b.String())
}
