package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// EventSink is where the runner reports progress.
type EventSink interface {
	PublishEvent(event Event) error
}

// PublisherManager distributes events to a set of watermill Publishers,
// each registered for a topic. Every outgoing message carries a sequence
// number in the order Publish handled it.
type PublisherManager struct {
	Publishers     map[string][]message.Publisher
	sequenceNumber uint64
	mutex          sync.Mutex
}

var _ EventSink = &PublisherManager{}

func NewPublisherManager() *PublisherManager {
	return &PublisherManager{
		Publishers: make(map[string][]message.Publisher),
	}
}

func (s *PublisherManager) SubscribePublisher(topic string, pub message.Publisher) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Publishers[topic] = append(s.Publishers[topic], pub)
}

// Publish serializes payload to JSON and sends it on every registered topic.
// A publisher failing is logged and does not stop delivery to the others.
func (s *PublisherManager) Publish(payload interface{}) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	seq := fmt.Sprintf("%d", s.sequenceNumber)
	s.sequenceNumber++

	for topic, pubs := range s.Publishers {
		for _, pub := range pubs {
			msg := message.NewMessage(watermill.NewUUID(), b)
			msg.Metadata.Set("sequence_number", seq)
			if err := pub.Publish(topic, msg); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("failed to publish")
			}
		}
	}

	return nil
}

func (s *PublisherManager) PublishEvent(event Event) error {
	return s.Publish(event)
}

// NullSink drops every event.
type NullSink struct{}

var _ EventSink = NullSink{}

func (NullSink) PublishEvent(Event) error {
	return nil
}
