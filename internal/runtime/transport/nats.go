package transport

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
)

const natsConnectTimeout = 5 * time.Second

var NATSPublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return wmnats.NewPublisher(cfg, logger)
}

func natsPublisher(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return NATSPublisherFactory(
		wmnats.PublisherConfig{
			URL: cfg.GetNATSURL(),
			NatsOptions: []nats.Option{
				nats.Name("pipeflow-output"),
				nats.Timeout(natsConnectTimeout),
			},
			Marshaler: &wmnats.NATSMarshaler{},
		},
		logger,
	)
}
