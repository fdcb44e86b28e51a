package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []Message
	err   error
	block chan struct{}
}

func (r *recordingNotifier) Send(ctx context.Context, msg Message) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingNotifier) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

func TestDispatcherDelivers(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n, 2, time.Second)

	d.Dispatch(Message{To: "a@example.com"})
	d.Dispatch(Message{To: "b@example.com"})

	require.NoError(t, d.Close(context.Background()))
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"},
		[]string{n.messages()[0].To, n.messages()[1].To})
}

func TestDispatcherDoesNotBlockCaller(t *testing.T) {
	n := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(n, 1, 5*time.Second)

	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Dispatch(Message{To: "stuck@example.com"})
	}
	assert.Less(t, time.Since(start), time.Second)

	close(n.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, n.messages(), 5)
}

func TestDispatcherSwallowsErrors(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	d := NewDispatcher(n, 1, time.Second)

	d.Dispatch(Message{To: "a@example.com"})
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, n.messages(), 1)
}

func TestDispatcherTimesOutStuckSend(t *testing.T) {
	n := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(n, 1, 50*time.Millisecond)

	d.Dispatch(Message{To: "a@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Empty(t, n.messages())
}

func TestDispatcherCloseHonoursDeadline(t *testing.T) {
	n := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(n, 1, time.Minute)
	d.Dispatch(Message{To: "a@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(n.block)
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n, 1, time.Second)
	require.NoError(t, d.Close(context.Background()))

	d.Dispatch(Message{To: "late@example.com"})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, n.messages())
}

type slowNotifier struct {
	delay time.Duration
	recordingNotifier
}

func (s *slowNotifier) Send(ctx context.Context, msg Message) error {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.recordingNotifier.Send(ctx, msg)
}

func TestDispatcherQueueWaitDoesNotEatSendTimeout(t *testing.T) {
	n := &slowNotifier{delay: 40 * time.Millisecond}
	d := NewDispatcher(n, 1, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		d.Dispatch(Message{To: "queued@example.com"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Len(t, n.messages(), 5, "every queued message is delivered")
}
