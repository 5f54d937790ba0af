package messaging

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Publish sends a typed event to its topic.
type Publish[T any] func(event *T) error

// NewPublishFunc binds an event type to a topic on the given publisher.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		return publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
	}
}

// PublisherGroup owns the transport-level publisher so the container can
// shut it down once, no matter how many typed publish functions were
// derived from it.
type PublisherGroup struct {
	publisher message.Publisher
	logger    *zap.Logger
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher, logger *zap.Logger) *PublisherGroup {
	return &PublisherGroup{
		publisher: publisher,
		logger:    logger,
	}
}

// Publisher returns the underlying message publisher for deriving typed
// publish functions.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	g.logger.Info("closing event publisher")

	return g.publisher.Close()
}
