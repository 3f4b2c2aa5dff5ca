package transport

import (
	net_http "net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
)

var HTTPPublisherFactory = func(cfg http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(cfg, logger)
}

func httpPublisher(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	base := strings.TrimSuffix(cfg.GetHTTPPublisherURL(), "/") + "/"
	return HTTPPublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*net_http.Request, error) {
				return http.DefaultMarshalMessageFunc(base+topic, msg)
			},
		},
		logger,
	)
}
