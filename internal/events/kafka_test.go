package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w}

	ev := AccountEvent{
		Type:       TypeAccountRegistered,
		AccountID:  7,
		Username:   "alice",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), TopicAccountEvents, "7", ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, TopicAccountEvents, msg.Topic)
	assert.Equal(t, "7", string(msg.Key))

	var got AccountEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev, got)
}

func TestProducer_PublishWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{writer: &recordingWriter{err: boom}}

	err := p.Publish(context.Background(), TopicAccountEvents, "1", AccountEvent{Type: TypeAccountLoggedIn})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestProducer_PublishUnmarshalable(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w}

	err := p.Publish(context.Background(), TopicAccountEvents, "1", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	require.Error(t, err)

	p, err := NewProducer([]string{"localhost:9092"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestNop(t *testing.T) {
	var pub Publisher = Nop{}
	assert.NoError(t, pub.Publish(context.Background(), TopicAccountEvents, "k", nil))
}
