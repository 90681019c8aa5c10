package correlate

import (
	"context"
	"errors"
	"testing"
	"time"

	"ucrelay/pkg/extract"
)

func startCorrelator(t *testing.T, capacity int) *Correlator {
	t.Helper()

	c := New(capacity, nil)
	go func() { _ = c.Run(context.Background()) }()
	t.Cleanup(c.Close)
	return c
}

func topupReply(seq int64, uid string) Reply {
	return Reply{
		Seq:  seq,
		At:   time.Now().UTC(),
		Text: "topup",
		Record: &extract.Record{
			Topup: &extract.TopupResult{
				Status: extract.TopupSuccess,
				User:   &extract.TopupUser{Name: "Robayet", UID: uid},
			},
		},
	}
}

func plainReply(seq int64) Reply {
	return Reply{Seq: seq, At: time.Now().UTC(), Text: "unrelated"}
}

func TestIngestResolvesOldestRegistration(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	first, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := c.Ingest(ctx, topupReply(10, "U1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	reply, err := c.Await(ctx, first, time.Second)
	if err != nil {
		t.Fatalf("await first: %v", err)
	}
	if reply.Seq != 10 {
		t.Fatalf("reply seq = %d, want 10", reply.Seq)
	}

	if _, err := c.Await(ctx, second, 50*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("await second = %v, want ErrTimeout", err)
	}
}

func TestIngestNoCrossKeyLeakage(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	other, err := c.Register(ctx, "U2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := c.Ingest(ctx, topupReply(11, "U1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if _, err := c.Await(ctx, other, 50*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("await = %v, want ErrTimeout", err)
	}
}

func TestAwaitTimeoutThenFallback(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	request, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	request.MarkSent(500)

	if err := c.Ingest(ctx, plainReply(501)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := c.Ingest(ctx, plainReply(503)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if _, err := c.Await(ctx, request, 50*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("await = %v, want ErrTimeout", err)
	}

	reply, found, err := c.MostRecentAfter(ctx, request.SentSeq())
	if err != nil || !found {
		t.Fatalf("MostRecentAfter = %v %v", found, err)
	}
	if reply.Seq != 503 {
		t.Fatalf("fallback seq = %d, want 503", reply.Seq)
	}
}

func TestAwaitTimeoutWithEmptyBuffer(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	request, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	request.MarkSent(500)

	if _, err := c.Await(ctx, request, 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("await = %v, want ErrTimeout", err)
	}
	if _, found, err := c.MostRecentAfter(ctx, 500); err != nil || found {
		t.Fatalf("expected no fallback reply, found=%v err=%v", found, err)
	}
}

func TestTimedOutRequestDoesNotStealResolution(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	stale, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.Await(ctx, stale, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("await = %v, want ErrTimeout", err)
	}

	fresh, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := c.Ingest(ctx, topupReply(20, "U1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	reply, err := c.Await(ctx, fresh, time.Second)
	if err != nil {
		t.Fatalf("await fresh: %v", err)
	}
	if reply.Seq != 20 {
		t.Fatalf("reply seq = %d, want 20", reply.Seq)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	request, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := c.Unregister(ctx, request); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := c.Unregister(ctx, request); err != nil {
		t.Fatalf("second unregister: %v", err)
	}
	if err := c.Unregister(ctx, nil); err != nil {
		t.Fatalf("nil unregister: %v", err)
	}

	stats, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.PendingRequests != 0 {
		t.Fatalf("pending = %d, want 0", stats.PendingRequests)
	}
}

func TestCommandReplyScenario(t *testing.T) {
	// Command sent with seq 500; replies 501 (unrelated), 502 (topup for
	// uid 42), 503 (unrelated). The caller registered under "42" must
	// resolve on 502, not 503.
	c := startCorrelator(t, 10)
	ctx := context.Background()

	request, err := c.Register(ctx, "42")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	request.MarkSent(500)

	done := make(chan Reply, 1)
	go func() {
		reply, err := c.Await(ctx, request, 2*time.Second)
		if err != nil {
			t.Errorf("await: %v", err)
		}
		done <- reply
	}()

	for _, reply := range []Reply{plainReply(501), topupReply(502, "42"), plainReply(503)} {
		if err := c.Ingest(ctx, reply); err != nil {
			t.Fatalf("ingest %d: %v", reply.Seq, err)
		}
	}

	select {
	case reply := <-done:
		if reply.Seq != 502 {
			t.Fatalf("resolved seq = %d, want 502", reply.Seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("await did not resolve")
	}
}

func TestAwaitDoesNotBlockIngestion(t *testing.T) {
	c := startCorrelator(t, 10)
	ctx := context.Background()

	request, err := c.Register(ctx, "U1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	blocked := make(chan struct{})
	go func() {
		_, _ = c.Await(ctx, request, 5*time.Second)
		close(blocked)
	}()

	// Other replies keep flowing while the waiter is parked.
	for seq := int64(1); seq <= 5; seq++ {
		if err := c.Ingest(ctx, plainReply(seq)); err != nil {
			t.Fatalf("ingest %d: %v", seq, err)
		}
	}

	if err := c.Ingest(ctx, topupReply(6, "U1")); err != nil {
		t.Fatalf("ingest resolving reply: %v", err)
	}

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("await did not resolve after matching ingest")
	}
}

func TestOperationsFailAfterClose(t *testing.T) {
	c := New(10, nil)
	go func() { _ = c.Run(context.Background()) }()
	c.Close()

	if _, err := c.Register(context.Background(), "U1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("register after close = %v, want ErrClosed", err)
	}
	if err := c.Ingest(context.Background(), plainReply(1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("ingest after close = %v, want ErrClosed", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c := New(10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on context cancel")
	}
}
