package messaging

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const consumerGroupPrefix = "venuego."

// Transport はイベント配信のバックエンド
type Transport struct {
	Publisher message.Publisher
	// NewSubscriber はハンドラ名ごとの購読者を作る
	NewSubscriber func(handlerName string) (message.Subscriber, error)
}

// NewRedisTransport は Redis Streams を使う Transport を作成する
// ハンドラごとにコンシューマグループを分ける
func NewRedisTransport(rdb redis.UniversalClient, logger watermill.LoggerAdapter) (*Transport, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("Redis Streams パブリッシャーの作成に失敗: %w", err)
	}

	return &Transport{
		Publisher: PublisherDecorator{Publisher: pub},
		NewSubscriber: func(handlerName string) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: consumerGroupPrefix + handlerName,
			}, logger)
		},
	}, nil
}

// NewGoChannelTransport はプロセス内で完結する Transport を作成する
// メモリバックエンドやテストで使う
func NewGoChannelTransport(logger watermill.LoggerAdapter) *Transport {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)

	return &Transport{
		Publisher: PublisherDecorator{Publisher: ch},
		NewSubscriber: func(string) (message.Subscriber, error) {
			return ch, nil
		},
	}
}
