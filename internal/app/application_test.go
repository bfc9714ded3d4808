package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestApplicationClose(t *testing.T) {
	var order []string
	application := &Application{}
	application.OnClose(recordingCloser{name: "redis", order: &order})
	application.OnClose(recordingCloser{name: "broken", order: &order, err: errors.New("already closed")})

	application.Close()
	assert.Equal(t, []string{"broken", "redis"}, order)

	application.Close()
	assert.Len(t, order, 2, "closers run once")
}
