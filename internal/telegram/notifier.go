package telegram

import (
	"context"
	"fmt"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/event"
	"github.com/victornm/quizbot/internal/telemetry"
)

type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

type NotifierConfig struct {
	EventBus *event.Bus
	Sender   Sender
}

// Notifier delivers replies published on the event bus.
type Notifier struct {
	sender Sender
}

func NewNotifier(c NotifierConfig) *Notifier {
	n := &Notifier{sender: c.Sender}

	c.EventBus.Subscribe(domain.EventNameReplyReady, func(ctx context.Context, e event.Event) error {
		return n.Deliver(ctx, e.(domain.EventReplyReady))
	})

	return n
}

// Deliver sends the segments in order and stops at the first failure, so a chat never sees a
// later message without the earlier ones.
func (n *Notifier) Deliver(ctx context.Context, e domain.EventReplyReady) error {
	for i, s := range e.Segments {
		err := n.sender.SendMessage(ctx, e.ChatID, s)
		telemetry.ObserveDelivery(err)
		if err != nil {
			return fmt.Errorf("telegram: deliver segment %d/%d to chat %s: %w", i+1, len(e.Segments), e.ChatID, err)
		}
	}

	return nil
}
