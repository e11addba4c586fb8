package mqtt

// Publisher is the broker connection owned by a single simulated bus.
// Implementations are not required to be safe for concurrent use.
type Publisher interface {
	// Connect opens the broker session.
	Connect() error

	// Publish sends payload on topic. Delivery is fire-and-forget, an error
	// only reports that the message could not be handed to the broker.
	Publish(topic string, payload []byte) error

	// Disconnect releases the broker session. It is safe to call on a
	// publisher that never connected.
	Disconnect()
}

// PublisherFactory builds a dedicated publisher for the given driver.
type PublisherFactory func(driverID string) (Publisher, error)
