package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/bussim/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// Message is a payload recorded by MockPublisher.
type Message struct {
	Topic   string
	Payload []byte
}

// MockPublisher is an in-memory publisher used in tests.
type MockPublisher struct {
	// ConnectErr is returned by Connect when set.
	ConnectErr error
	// FailAfter makes Publish fail once that many messages were recorded.
	// Zero or negative disables the failure.
	FailAfter int

	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	messages    []Message
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Connect marks the publisher connected or returns ConnectErr.
func (m *MockPublisher) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.ConnectErr != nil {
		return fmt.Errorf("%w: %v", coremqtt.ErrConnect, m.ConnectErr)
	}
	m.connected = true
	return nil
}

// Publish records the message.
func (m *MockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("%w: %w", coremqtt.ErrPublish, coremqtt.ErrNotConnected)
	}
	if m.FailAfter > 0 && len(m.messages) >= m.FailAfter {
		return fmt.Errorf("%w: %s: simulated failure", coremqtt.ErrPublish, topic)
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.messages = append(m.messages, Message{Topic: topic, Payload: cp})
	return nil
}

// Disconnect marks the publisher disconnected.
func (m *MockPublisher) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
}

// Messages returns a copy of the recorded messages in publish order.
func (m *MockPublisher) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Connected reports whether the publisher is currently connected.
func (m *MockPublisher) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Connects returns how many times Connect was called.
func (m *MockPublisher) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// Disconnects returns how many times Disconnect was called.
func (m *MockPublisher) Disconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnects
}

// MockFactory hands out one MockPublisher per driver and keeps them for inspection.
type MockFactory struct {
	// Configure, when set, is applied to every new publisher.
	Configure func(driverID string, p *MockPublisher)

	mu         sync.Mutex
	publishers map[string]*MockPublisher
}

// NewMockFactory creates an empty MockFactory.
func NewMockFactory() *MockFactory {
	return &MockFactory{publishers: make(map[string]*MockPublisher)}
}

// New implements coremqtt.PublisherFactory.
func (f *MockFactory) New(driverID string) (coremqtt.Publisher, error) {
	p := NewMockPublisher()
	if f.Configure != nil {
		f.Configure(driverID, p)
	}
	f.mu.Lock()
	f.publishers[driverID] = p
	f.mu.Unlock()
	return p, nil
}

// Publisher returns the publisher created for driverID, if any.
func (f *MockFactory) Publisher(driverID string) (*MockPublisher, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.publishers[driverID]
	return p, ok
}

// Len returns the number of publishers created.
func (f *MockFactory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.publishers)
}
