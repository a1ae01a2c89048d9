package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
)

// eventEmitter はドメインイベントを配信する
// 配信の失敗はログとメトリクスに残すだけで呼び出し元には返さない
type eventEmitter struct {
	publisher event.Publisher
	metrics   *metrics.Metrics
}

func newEventEmitter(p event.Publisher, m *metrics.Metrics) eventEmitter {
	if p == nil {
		p = event.NopPublisher{}
	}
	return eventEmitter{publisher: p, metrics: m}
}

func (e eventEmitter) emit(ctx context.Context, ev any) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		name := event.Name(ev)
		e.metrics.EventPublishFailed(name)
		logger.FromContext(ctx).Error("イベント配信に失敗",
			zap.String("event", name),
			zap.Error(err),
		)
	}
}
