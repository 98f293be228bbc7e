package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	for _, st := range []Status{Pending, Processing, Completed, Failed} {
		r, err := From(Name(st))
		assert.Nil(t, err)
		assert.Equal(t, st, r)
	}
}

func TestFrom_Fail(t *testing.T) {
	_, err := From("olia")
	assert.NotNil(t, err)
	_, err = From("")
	assert.NotNil(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "pending", Name(Pending))
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Status(100).String())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(Pending))
	assert.False(t, IsTerminal(Processing))
	assert.True(t, IsTerminal(Completed))
	assert.True(t, IsTerminal(Failed))
}

func TestCanChange(t *testing.T) {
	assert.True(t, CanChange(Pending, Processing))
	assert.True(t, CanChange(Processing, Completed))
	assert.True(t, CanChange(Processing, Failed))
	assert.True(t, CanChange(Processing, Pending))

	assert.False(t, CanChange(Pending, Completed))
	assert.False(t, CanChange(Pending, Failed))
	assert.False(t, CanChange(Pending, Pending))
	assert.False(t, CanChange(Processing, Processing))
	for _, to := range []Status{Pending, Processing, Completed, Failed} {
		assert.False(t, CanChange(Completed, to))
		assert.False(t, CanChange(Failed, to))
	}
}
