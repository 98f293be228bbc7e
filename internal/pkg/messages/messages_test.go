package messages

import (
	"testing"

	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/stretchr/testify/assert"
)

func TestTopicFor(t *testing.T) {
	assert.Equal(t, TopicProcessing, TopicFor(status.Processing))
	assert.Equal(t, TopicCompleted, TopicFor(status.Completed))
	assert.Equal(t, TopicFailed, TopicFor(status.Failed))
	assert.Equal(t, "", TopicFor(status.Pending))
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.Nil(t, p.Publish("id", TopicCompleted))
}
