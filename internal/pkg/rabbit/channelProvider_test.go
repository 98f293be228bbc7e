package rabbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokerURL(t *testing.T) {
	u, err := brokerURL("rabbit:5672", "", "")
	assert.Nil(t, err)
	assert.Equal(t, "amqp://rabbit:5672", u)
	u, err = brokerURL("rabbit:5672", "u", "p")
	assert.Nil(t, err)
	assert.Equal(t, "amqp://u:p@rabbit:5672", u)
}

func TestBrokerURL_Fail(t *testing.T) {
	_, err := brokerURL("", "", "")
	assert.NotNil(t, err)
	_, err = brokerURL("rabbit:5672", "u", "")
	assert.NotNil(t, err)
}

func TestNewChannelProvider(t *testing.T) {
	pr, err := NewChannelProvider("rabbit:5672", "u", "p")
	assert.Nil(t, err)
	assert.Equal(t, "amqp://u:p@rabbit:5672", pr.url)
	pr.Close()
}

func TestExchange(t *testing.T) {
	p := NewPublisher(nil, "")
	assert.Equal(t, "completed", p.exchange("completed"))
	p = NewPublisher(nil, "transcription")
	assert.Equal(t, "transcription.completed", p.exchange("completed"))
}
