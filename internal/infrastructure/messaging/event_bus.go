package messaging

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
)

const topicPrefix = "events."

var marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

// NewEventBus はイベント名ごとのトピック（events.<Name>）に配信する EventBus を作成する
func NewEventBus(pub message.Publisher, logger watermill.LoggerAdapter) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return topicPrefix + params.EventName, nil
		},
		Marshaler: marshaler,
		Logger:    logger,
	})
}

// EventPublisher は cqrs.EventBus を event.Publisher として使うためのアダプタ
type EventPublisher struct {
	bus *cqrs.EventBus
}

var _ event.Publisher = (*EventPublisher)(nil)

// NewEventPublisher は新しい EventPublisher を作成する
func NewEventPublisher(bus *cqrs.EventBus) *EventPublisher {
	return &EventPublisher{bus: bus}
}

func (p *EventPublisher) Publish(ctx context.Context, ev any) error {
	if event.Name(ev) == "Unknown" {
		return fmt.Errorf("%w: %T", event.ErrUnknownEvent, ev)
	}
	if err := p.bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("イベント配信に失敗 (%s): %w", event.Name(ev), err)
	}
	return nil
}
