package messages

import "github.com/airenas/meetscribe/internal/pkg/cmdapp"

// Publisher publish a transcription id to some topic
type Publisher interface {
	Publish(id string, topic string) error
}

// NoopPublisher only logs events, used when no broker is configured
type NoopPublisher struct{}

// Publish logs the event
func (NoopPublisher) Publish(id string, topic string) error {
	cmdapp.Log.Debugf("Event %s(%s)", topic, id)
	return nil
}
