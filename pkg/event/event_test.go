package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/faultline/pkg/event"
)

func TestFireRunsAllListenersAndJoinsErrors(t *testing.T) {
	d := event.NewDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Listen("order.placed", func(_ context.Context, p any) error {
		calls = append(calls, "first:"+p.(string))
		return boom
	})
	d.Listen("order.placed", func(_ context.Context, p any) error {
		calls = append(calls, "second:"+p.(string))
		return nil
	})

	err := d.Fire(context.Background(), "order.placed", "1001")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:1001", "second:1001"}, calls)
	assert.True(t, d.Has("order.placed"))
}

func TestFireWithoutListeners(t *testing.T) {
	d := event.NewDispatcher()
	assert.NoError(t, d.Fire(context.Background(), "nothing", nil))
	assert.False(t, d.Has("nothing"))
}
