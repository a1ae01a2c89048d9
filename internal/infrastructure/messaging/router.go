package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
)

// NewRouter はイベントハンドラを登録した watermill ルーターを作成する
func NewRouter(transport *Transport, wlogger watermill.LoggerAdapter, handlers ...cqrs.EventHandler) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, wlogger)
	if err != nil {
		return nil, fmt.Errorf("ルーターの作成に失敗: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		tracingMiddleware,
		loggingMiddleware,
	)

	processor, err := cqrs.NewEventProcessorWithConfig(router, cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return topicPrefix + params.EventName, nil
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return transport.NewSubscriber(params.HandlerName)
		},
		Marshaler: marshaler,
		Logger:    wlogger,
	})
	if err != nil {
		return nil, fmt.Errorf("イベントプロセッサの作成に失敗: %w", err)
	}

	if err := processor.AddHandlers(handlers...); err != nil {
		return nil, fmt.Errorf("イベントハンドラの登録に失敗: %w", err)
	}
	return router, nil
}

func loggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		log := logger.FromContext(msg.Context()).With(
			zap.String("message_id", msg.UUID),
			zap.String("handler", message.HandlerNameFromCtx(msg.Context())),
		)
		log.Debug("メッセージ処理開始")

		msgs, err := next(msg)
		if err != nil {
			log.Error("メッセージ処理に失敗", zap.Error(err))
		}
		return msgs, err
	}
}

// Refunder は返金処理を実行する
type Refunder interface {
	ProcessRefund(ctx context.Context, compensationID string) (*payment.Compensation, error)
}

// RefundHandler は RefundScheduled を受けて返金を1回だけ試みるハンドラ
// 失敗は返金記録に残し、メッセージは再配信しない（再試行はオペレーターが行う）
func RefundHandler(refunder Refunder) cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"refunds.OnRefundScheduled",
		func(ctx context.Context, e *event.RefundScheduled) error {
			c, err := refunder.ProcessRefund(ctx, e.CompensationID)
			if err != nil {
				logger.FromContext(ctx).Error("返金処理に失敗",
					zap.String("compensation_id", e.CompensationID),
					zap.String("intent_ref", e.IntentRef),
					zap.Error(err),
				)
				return nil
			}
			logger.FromContext(ctx).Info("返金処理完了",
				zap.String("compensation_id", c.ID),
				zap.String("status", string(c.Status)),
			)
			return nil
		},
	)
}
