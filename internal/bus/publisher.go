package bus

import "context"

// Publisher forwards events beyond the process boundary.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// NoopPublisher is a Publisher that does nothing (used when NATS is not
// configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// Forward subscribes to the given topics on b and republishes every emission
// through pub. It returns a function that stops forwarding. Publish failures
// are logged by the bus handler path; they never interrupt local delivery.
func Forward(b *Bus, pub Publisher, topics ...string) (stop func()) {
	offs := make([]func(), 0, len(topics))
	for _, topic := range topics {
		topic := topic
		offs = append(offs, b.On(topic, func(evt Event) {
			if err := pub.Publish(context.Background(), evt.Topic, evt.Payload); err != nil {
				b.logger.Warn("bus: forward failed", "topic", evt.Topic, "error", err)
			}
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
