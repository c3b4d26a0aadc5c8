// Package notify содержит простые реализации domain.Notifier.
package notify

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// LogNotifier только пишет подтверждение в лог (локальная разработка).
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "log-notifier")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, c domain.Confirmation) error {
	n.logger.WithFields(log.Fields{
		"order_id":    c.OrderID,
		"customer":    c.CustomerName,
		"email":       c.CustomerEmail,
		"items":       len(c.Items),
		"grand_total": c.GrandTotal.String(),
	}).Info("order confirmation")
	return nil
}

// Multi рассылает подтверждение всем notifier по очереди.
// Ошибки не прерывают рассылку и объединяются через errors.Join.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, c domain.Confirmation) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = Multi(nil)
)
