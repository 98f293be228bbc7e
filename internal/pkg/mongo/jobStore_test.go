package mongo

import (
	"context"
	"testing"

	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/stretchr/testify/assert"
)

func TestNewSessionProvider_Fails(t *testing.T) {
	sp, err := NewSessionProvider("")
	assert.NotNil(t, err)
	assert.Nil(t, sp)
}

func TestNewJobStore_Fails(t *testing.T) {
	js, err := NewJobStore(nil)
	assert.NotNil(t, err)
	assert.Nil(t, js)
}

func TestUpdate_ValidatesBeforeDial(t *testing.T) {
	sp, _ := NewSessionProvider("mongodb://localhost:1")
	js, _ := NewJobStore(sp)

	err := js.Update(context.Background(), "1", status.Completed,
		map[string]interface{}{persistence.FStatus: "pending"})

	assert.NotNil(t, err)
	assert.False(t, persistence.IsStoreUnavailable(err))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "olia", sanitize(" $olia "))
	assert.Equal(t, "id-1", sanitize("id-1"))
}
