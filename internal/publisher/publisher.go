// Package publisher relays committed ledger events to downstream consumers.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/loangraph/microlend/internal/config"
)

const SubjectPrefix = "microlend."

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

func Subject(topic string) string {
	return SubjectPrefix + topic
}

// Stub records what it would have published. Used locally and in tests.
type Stub struct {
	mu       sync.Mutex
	messages []Message
}

type Message struct {
	Subject string
	Payload []byte
}

func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) Publish(_ context.Context, topic string, payload []byte) error {
	if topic == "" {
		return fmt.Errorf("missing topic")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Subject: Subject(topic), Payload: append([]byte(nil), payload...)})
	return nil
}

func (s *Stub) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Stub) Close() error { return nil }

func NewFromConfig(cfg config.Config) (Publisher, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.PublisherMode))
	if mode == "" || mode == "stub" {
		return NewStub(), nil
	}
	if mode != "nats" {
		return nil, fmt.Errorf("invalid PUBLISHER_MODE: %s", cfg.PublisherMode)
	}
	return NewNATS(cfg.NATSURL)
}
