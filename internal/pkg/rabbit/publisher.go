package rabbit

import (
	"sync"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

//Publisher publish events to rabbit mq broker
type Publisher struct {
	ChannelProvider *ChannelProvider
	prefix          string

	m        sync.Mutex
	declared map[string]bool
}

//NewPublisher initializes rabbit publisher, exchange names are prefix + topic
func NewPublisher(provider *ChannelProvider, prefix string) *Publisher {
	return &Publisher{ChannelProvider: provider, prefix: prefix, declared: map[string]bool{}}
}

//Publish publish the message
func (sender *Publisher) Publish(id string, topic string) error {
	exchange := sender.exchange(topic)
	cmdapp.Log.Infof("Publishing event %s(%s)", exchange, id)

	err := sender.ChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		if err := sender.declare(ch, exchange); err != nil {
			return err
		}
		return ch.Publish(
			exchange,
			"",
			false, // mandatory
			false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        []byte(id),
			})
	})
	if err != nil {
		sender.reset()
		return errors.Wrap(err, "Can't publish event")
	}
	return nil
}

func (sender *Publisher) exchange(topic string) string {
	if sender.prefix == "" {
		return topic
	}
	return sender.prefix + "." + topic
}

func (sender *Publisher) declare(ch *amqp.Channel, exchange string) error {
	sender.m.Lock()
	defer sender.m.Unlock()
	if sender.declared[exchange] {
		return nil
	}
	if err := DeclareExchange(ch, exchange); err != nil {
		return errors.Wrapf(err, "Can't declare %s", exchange)
	}
	sender.declared[exchange] = true
	return nil
}

func (sender *Publisher) reset() {
	sender.m.Lock()
	defer sender.m.Unlock()
	sender.declared = map[string]bool{}
}
