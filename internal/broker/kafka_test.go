package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeReader hands out msgs in order, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	fetches   int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetches < len(r.msgs) {
		msg := r.msgs[r.fetches]
		r.fetches++
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func newTestConsumer(t *testing.T, reader messageReader) *Consumer {
	c := newConsumer(reader, "payment-events")
	c.logger = zaptest.NewLogger(t)
	c.retryBackoff = time.Millisecond
	c.maxBackoff = 4 * time.Millisecond
	return c
}

func TestStartConsuming_RetriesFailedMessageBeforeFetchingNext(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	c := newTestConsumer(t, reader)

	var mu sync.Mutex
	var handled []int64
	failures := 3
	handler := func(_ context.Context, msg kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, msg.Offset)
		if msg.Offset == 1 && failures > 0 {
			failures--
			return errors.New("store down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.StartConsuming(ctx, handler) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []int64{1, 2}, reader.commits())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 1, 1, 1, 2}, handled)
}

func TestStartConsuming_StopsRetryingOnCancel(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	c := newTestConsumer(t, reader)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := make(chan struct{}, 100)
	handler := func(context.Context, kafka.Message) error {
		select {
		case attempts <- struct{}{}:
		default:
		}
		return errors.New("store down")
	}

	done := make(chan error, 1)
	go func() { done <- c.StartConsuming(ctx, handler) }()

	<-attempts
	<-attempts
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Empty(t, reader.commits())
	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, 1, reader.fetches, "second message must not be fetched while the first is failing")
}
