package kafka

import (
	"context"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// OrderPlacedNotifier публикует order.placed для каждого подтверждённого заказа.
type OrderPlacedNotifier struct {
	producer *Producer
	topic    string
}

// NewOrderPlacedNotifier создаёт notifier; пустой topic означает TopicOrderEvents.
func NewOrderPlacedNotifier(producer *Producer, topic string) *OrderPlacedNotifier {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderPlacedNotifier{producer: producer, topic: topic}
}

func (n *OrderPlacedNotifier) Notify(ctx context.Context, c domain.Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := NewOrderPlacedEvent(c, n.producer.now().UTC())
	return n.producer.PublishEvent(n.topic, c.OrderID, EventTypeOrderPlaced, event)
}

var _ domain.Notifier = (*OrderPlacedNotifier)(nil)
