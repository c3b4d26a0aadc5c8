// Package mail отправляет письма-подтверждения заказа через SendGrid.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

var (
	// ErrAPIKeyMissing — не задан ключ SendGrid.
	ErrAPIKeyMissing = errors.New("sendgrid api key is empty")
	// ErrRecipientMissing — у подтверждения нет email покупателя.
	ErrRecipientMissing = errors.New("recipient email is empty")
	// ErrRejected — SendGrid отклонил письмо (4xx кроме 429), повтор не поможет.
	ErrRejected = errors.New("sendgrid rejected message")
)

// Sender — часть *sendgrid.Client, которая нужна notifier.
type Sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// Config — параметры отправителя.
type Config struct {
	APIKey       string
	FromEmail    string
	FromName     string
	AppURL       string
	SupportEmail string
}

// SendGridNotifier реализует domain.Notifier письмом покупателю.
type SendGridNotifier struct {
	sender Sender
	cfg    Config
	logger *log.Entry
}

// NewSendGridNotifier создаёт notifier с клиентом SendGrid по cfg.APIKey.
func NewSendGridNotifier(cfg Config, logger *log.Entry) (*SendGridNotifier, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	return NewSendGridNotifierWithSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger), nil
}

// NewSendGridNotifierWithSender позволяет подменить клиента (тесты).
func NewSendGridNotifierWithSender(sender Sender, cfg Config, logger *log.Entry) *SendGridNotifier {
	if logger == nil {
		logger = log.WithField("component", "sendgrid-notifier")
	}
	if cfg.FromName == "" {
		cfg.FromName = "Audiophile"
	}
	if cfg.SupportEmail == "" {
		cfg.SupportEmail = cfg.FromEmail
	}
	return &SendGridNotifier{sender: sender, cfg: cfg, logger: logger}
}

// Notify отправляет письмо-подтверждение на c.CustomerEmail.
func (n *SendGridNotifier) Notify(ctx context.Context, c domain.Confirmation) error {
	if c.CustomerEmail == "" {
		return &domain.NotificationError{OrderID: c.OrderID, Err: ErrRecipientMissing}
	}

	msg, err := Render(c, n.cfg.AppURL, n.cfg.SupportEmail)
	if err != nil {
		return &domain.NotificationError{OrderID: c.OrderID, Err: err}
	}

	email := sgmail.NewSingleEmail(
		sgmail.NewEmail(n.cfg.FromName, n.cfg.FromEmail),
		msg.Subject,
		sgmail.NewEmail(c.CustomerName, c.CustomerEmail),
		msg.Text,
		msg.HTML,
	)

	resp, err := n.sender.SendWithContext(ctx, email)
	if err != nil {
		return &domain.NotificationError{OrderID: c.OrderID, Err: fmt.Errorf("sendgrid send: %w", err)}
	}
	if resp.StatusCode >= 400 {
		n.logger.WithFields(log.Fields{
			"order_id": c.OrderID,
			"status":   resp.StatusCode,
			"body":     resp.Body,
		}).Warn("sendgrid rejected message")
		err := fmt.Errorf("sendgrid send failed: status=%d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			err = fmt.Errorf("%w: status=%d", ErrRejected, resp.StatusCode)
		}
		return &domain.NotificationError{OrderID: c.OrderID, Err: err}
	}

	n.logger.WithFields(log.Fields{
		"order_id": c.OrderID,
		"status":   resp.StatusCode,
	}).Info("confirmation email sent")
	return nil
}

var _ domain.Notifier = (*SendGridNotifier)(nil)
