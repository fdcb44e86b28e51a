package mailer

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Dispatcher sends messages in the background. Callers never wait on the
// SMTP server and never see a delivery error.
type Dispatcher struct {
	notifier Notifier
	sem      *semaphore.Weighted
	timeout  time.Duration

	// base is cancelled only when Close gives up waiting
	base    context.Context
	abandon context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher runs at most maxInFlight sends at once, each bounded by timeout.
func NewDispatcher(n Notifier, maxInFlight int64, timeout time.Duration) *Dispatcher {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	base, abandon := context.WithCancel(context.Background())
	return &Dispatcher{
		notifier: n,
		sem:      semaphore.NewWeighted(maxInFlight),
		timeout:  timeout,
		base:     base,
		abandon:  abandon,
	}
}

// Dispatch queues msg and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("[MAIL] action=drop to=%s reason=dispatcher closed", msg.To)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.send(msg)
}

func (d *Dispatcher) send(msg Message) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[MAIL] action=send to=%s panic=%v", msg.To, r)
		}
	}()

	// waiting for a slot does not count against the send timeout
	if err := d.sem.Acquire(d.base, 1); err != nil {
		log.Printf("[MAIL] action=drop to=%s err=%v", msg.To, err)
		return
	}
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	defer cancel()

	if err := d.notifier.Send(ctx, msg); err != nil {
		log.Printf("[MAIL] action=send to=%s subject=%q err=%v", msg.To, msg.Subject, err)
		return
	}
	log.Printf("[MAIL] action=send to=%s subject=%q status=sent", msg.To, msg.Subject)
}

// Close stops accepting messages and waits for in-flight sends or ctx, whichever ends first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.abandon()
		return nil
	case <-ctx.Done():
		d.abandon()
		return ctx.Err()
	}
}
