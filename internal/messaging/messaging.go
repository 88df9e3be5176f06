package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/config"
	"github.com/spec-kit/service-shop/internal/events"
)

// Publisher is an events.Publisher that owns a transport connection.
type Publisher interface {
	events.Publisher
	Close() error
}

// New selects the bus transport named by cfg.Driver. The memory driver hands
// events to dispatcher, where in-process notification handlers subscribe.
func New(ctx context.Context, cfg config.BusConfig, dispatcher events.Dispatcher, logger *zap.Logger) (Publisher, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver != "" && driver != "memory" && strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("BUS_URL is required for bus driver %q", driver)
	}

	switch driver {
	case "", "memory":
		return memoryPublisher{dispatcher: dispatcher}, nil
	case "amqp":
		return NewAMQPPublisher(cfg.URL, cfg.Exchange, logger)
	case "nats":
		return NewNATSPublisher(cfg.URL, cfg.Topic, logger)
	case "kafka":
		return NewKafkaPublisher(cfg.URL, cfg.Topic, logger), nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
	}
}

func encode(event events.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("could not marshal event %s: %w", event.Type, err)
	}
	return body, nil
}

type memoryPublisher struct {
	dispatcher events.Dispatcher
}

func (p memoryPublisher) Publish(ctx context.Context, event events.Event) error {
	if p.dispatcher == nil {
		return nil
	}
	return p.dispatcher.Publish(ctx, event)
}

func (memoryPublisher) Close() error { return nil }
