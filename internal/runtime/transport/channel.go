package transport

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// GoChannelFactory is swapped in tests to reach the subscriber side.
var GoChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) message.Publisher {
	return gochannel.NewGoChannel(cfg, logger)
}

func channelPublisher(_ Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	// Rows flushed before anyone subscribes are kept so late readers still
	// see complete tables.
	return GoChannelFactory(gochannel.Config{Persistent: true}, logger), nil
}
