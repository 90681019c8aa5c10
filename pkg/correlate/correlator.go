package correlate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const defaultCapacity = 100

var (
	// ErrClosed reports that the correlator loop has shut down.
	ErrClosed = errors.New("correlator is closed")
	// ErrTimeout reports that Await gave up before a matching reply
	// arrived; callers fall back to MostRecentAfter.
	ErrTimeout = errors.New("timed out waiting for reply")
)

// Pending request states. A request leaves statePending exactly once.
const (
	statePending int32 = iota
	stateResolved
	stateTimedOut
)

// PendingRequest tracks one in-flight command awaiting its reply.
type PendingRequest struct {
	ID        string
	Key       string
	CreatedAt time.Time

	sentSeq  atomic.Int64
	state    atomic.Int32
	resolved chan struct{}
	reply    Reply
}

// MarkSent records the outbound sequence identifier once the command has
// actually gone out. Registration is allowed to precede the send.
func (p *PendingRequest) MarkSent(seq int64) {
	p.sentSeq.Store(seq)
}

// SentSeq returns the recorded outbound sequence identifier, zero when
// the command has not been sent yet.
func (p *PendingRequest) SentSeq() int64 {
	return p.sentSeq.Load()
}

// resolve transitions the request out of pending and signals the waiter.
// Returns false when the request already left the pending state.
func (p *PendingRequest) resolve(reply Reply) bool {
	// Only the correlator loop calls resolve, so the write below has a
	// single writer; the channel close publishes it to the waiter.
	p.reply = reply
	if !p.state.CompareAndSwap(statePending, stateResolved) {
		return false
	}
	close(p.resolved)
	return true
}

// Correlator matches outbound commands to inbound replies. All mutable
// state (the awaiting-set map and the ring buffer) is owned by a single
// loop goroutine; callers hand closures into the loop over a channel, so
// no two operations ever run concurrently against that state.
type Correlator struct {
	ops  chan func()
	done chan struct{}

	closeOnce sync.Once
	log       *slog.Logger

	// Loop-owned; never touched outside submitted closures.
	pending map[string][]*PendingRequest
	recent  *ringBuffer
}

// New builds a correlator with the given ring-buffer capacity. Run must
// be called before any other operation will make progress.
func New(capacity int, log *slog.Logger) *Correlator {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if log == nil {
		log = slog.Default()
	}

	return &Correlator{
		ops:     make(chan func()),
		done:    make(chan struct{}),
		log:     log.With("component", "correlate"),
		pending: make(map[string][]*PendingRequest),
		recent:  newRingBuffer(capacity),
	}
}

// Run executes the correlator loop until the context is canceled or
// Close is called. Exactly one Run per correlator.
func (c *Correlator) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return nil
		case <-c.done:
			return nil
		case fn := <-c.ops:
			fn()
		}
	}
}

// Close shuts the loop down. Blocked Await calls return ErrClosed.
func (c *Correlator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// submit hands one closure into the loop and waits for it to finish.
// This is the only cross-goroutine synchronization point.
func (c *Correlator) submit(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	default:
	}

	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	case c.ops <- wrapped:
	}

	select {
	case <-ran:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Register creates a pending request under key. Concurrent registrations
// under the same key are independent; an ingested reply satisfies only
// the earliest-created one still pending.
func (c *Correlator) Register(ctx context.Context, key string) (*PendingRequest, error) {
	request := &PendingRequest{
		ID:        uuid.NewString(),
		Key:       key,
		CreatedAt: time.Now().UTC(),
		resolved:  make(chan struct{}),
	}

	err := c.submit(ctx, func() {
		c.pending[key] = append(c.pending[key], request)
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug("Registered pending request", "key", key, "request_id", request.ID)
	return request, nil
}

// Unregister removes a request from the awaiting set regardless of its
// terminal state. Safe to call more than once.
func (c *Correlator) Unregister(ctx context.Context, request *PendingRequest) error {
	if request == nil {
		return nil
	}

	return c.submit(ctx, func() {
		waiters := c.pending[request.Key]
		for i, waiter := range waiters {
			if waiter == request {
				c.pending[request.Key] = append(waiters[:i], waiters[i+1:]...)
				break
			}
		}
		if len(c.pending[request.Key]) == 0 {
			delete(c.pending, request.Key)
		}
	})
}

// Ingest records an inbound reply: it always lands in the ring buffer,
// and when its record carries a correlation value with waiters, the
// oldest still-pending request for that key is resolved. At most one
// request is resolved per ingested reply.
func (c *Correlator) Ingest(ctx context.Context, reply Reply) error {
	return c.submit(ctx, func() {
		c.recent.Insert(reply)

		value := reply.Record.CorrelationValue()
		if value == "" {
			return
		}

		waiters := c.pending[value]
		for i, waiter := range waiters {
			if !waiter.resolve(reply) {
				// Already resolved or timed out; leave it for Unregister.
				continue
			}
			c.pending[value] = append(waiters[:i], waiters[i+1:]...)
			if len(c.pending[value]) == 0 {
				delete(c.pending, value)
			}
			c.log.Debug("Resolved pending request", "key", value, "request_id", waiter.ID, "seq", reply.Seq)
			return
		}
	})
}

// Await blocks the calling goroutine until the request resolves or the
// timeout elapses. The loop keeps processing other replies throughout.
// On ErrTimeout the caller is expected to try MostRecentAfter with the
// request's sent sequence.
func (c *Correlator) Await(ctx context.Context, request *PendingRequest, timeout time.Duration) (Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-request.resolved:
		return request.reply, nil
	case <-timer.C:
		if request.state.CompareAndSwap(statePending, stateTimedOut) {
			return Reply{}, ErrTimeout
		}
		if request.state.Load() == stateResolved {
			// Resolution won the race against the timer; the close
			// that publishes the reply follows immediately.
			<-request.resolved
			return request.reply, nil
		}
		return Reply{}, ErrTimeout
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-c.done:
		return Reply{}, ErrClosed
	}
}

// MostRecentAfter returns the buffered reply with the highest sequence
// identifier strictly greater than seq. Best effort: under concurrent
// load two callers may observe the same reply.
func (c *Correlator) MostRecentAfter(ctx context.Context, seq int64) (Reply, bool, error) {
	var (
		reply Reply
		found bool
	)
	err := c.submit(ctx, func() {
		reply, found = c.recent.MostRecentAfter(seq)
	})
	return reply, found, err
}

// LatestWhere returns the highest-sequence buffered reply satisfying
// pred, for best-effort diagnostic and recency queries.
func (c *Correlator) LatestWhere(ctx context.Context, pred func(Reply) bool) (Reply, bool, error) {
	var (
		reply Reply
		found bool
	)
	err := c.submit(ctx, func() {
		reply, found = c.recent.LatestWhere(pred)
	})
	return reply, found, err
}

// Stats is an eventually consistent snapshot for status endpoints.
type Stats struct {
	PendingRequests int `json:"pending_requests"`
	BufferedReplies int `json:"buffered_replies"`
}

// Snapshot reports current pending and buffer counts.
func (c *Correlator) Snapshot(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.submit(ctx, func() {
		for _, waiters := range c.pending {
			stats.PendingRequests += len(waiters)
		}
		stats.BufferedReplies = c.recent.Len()
	})
	return stats, err
}
