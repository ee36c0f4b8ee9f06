// Package notify delivers one-time codes to their owners. EmailNotifier
// mails the code over SMTP; LogNotifier only records that a code went out
// and is used when no mail server is configured.
package notify

import (
	"context"

	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
)

// Notifier hands a freshly issued code to the out-of-band channel.
type Notifier interface {
	SendCode(ctx context.Context, user *models.User, code string) error
}

// LogNotifier writes a log line per issued code. The code itself is logged
// only when echo is enabled, which is meant for local development.
type LogNotifier struct {
	logger logging.Logger
	echo   bool
}

func NewLogNotifier(logger logging.Logger, echo bool) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify"), echo: echo}
}

func (n *LogNotifier) SendCode(ctx context.Context, user *models.User, code string) error {
	if n.echo {
		n.logger.Warn(ctx, "code issued (dev echo)", "device_id", user.DeviceID, "code", code)
		return nil
	}
	n.logger.Info(ctx, "code issued", "device_id", user.DeviceID, "code_len", len(code))
	return nil
}
