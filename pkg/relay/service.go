package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ucrelay/pkg/config"
	"ucrelay/pkg/correlate"
	"ucrelay/pkg/extract"
	"ucrelay/pkg/store"
	"ucrelay/pkg/transport"
)

// latestTopupWindow bounds the best-effort lookup of a recent topup when
// correlation produced nothing usable.
const latestTopupWindow = 30 * time.Second

// TopupStatus classifies the outcome of a correlated topup send.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// CommandResult reports a free-text send and whatever reply arrived
// within the polling window.
type CommandResult struct {
	SentSeq  int64
	Received bool
	Response string
	Record   *extract.Record
}

// TopupOutcome reports a correlated topup send. Status is pending when
// no attributable reply arrived before the deadline.
type TopupOutcome struct {
	Status    string
	Success   bool
	UID       string
	UsedCodes []string
	SentSeq   int64
}

// TransportState tracks whether the transport goroutine is running.
type TransportState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// Service wires the transport, correlator, and store into the relay's
// send operations.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	transport  transport.Transport
	correlator *correlate.Correlator
	store      store.Store

	mu          sync.RWMutex
	startedAt   time.Time
	lastReplyAt time.Time
	state       TransportState
}

// NewService validates collaborators and constructs the relay service.
func NewService(cfg *config.Config, tr transport.Transport, correlator *correlate.Correlator, st store.Store, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if tr == nil {
		return nil, errors.New("transport is required")
	}
	if correlator == nil {
		return nil, errors.New("correlator is required")
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:        cfg,
		log:        log.With("component", "relay"),
		transport:  tr,
		correlator: correlator,
		store:      st,
	}, nil
}

// Run starts the correlator loop and the transport, then blocks until
// the context is cancelled or the transport fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	go func() {
		if err := s.correlator.Run(ctx); err != nil {
			s.log.Error("Correlator loop stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	s.setState(TransportState{Running: true})

	go func() {
		err := s.transport.Run(ctx, s.handleReply)
		s.setState(TransportState{Running: false, Error: errorString(err)})
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("run %s transport: %w", s.transport.Name(), err)
		}
	}()

	s.log.Info("Relay started", "transport", s.transport.Name())

	select {
	case <-ctx.Done():
		s.correlator.Close()
		return nil
	case err := <-errCh:
		s.correlator.Close()
		return err
	}
}

// handleReply normalizes, extracts, correlates, and persists one
// counterpart reply. Persistence failures are logged, never fatal.
func (s *Service) handleReply(ctx context.Context, seq int64, at time.Time, raw string) {
	normalized := extract.Normalize(raw)
	record := extract.Parse(normalized)

	reply := correlate.Reply{
		Seq:    seq,
		At:     at,
		Raw:    raw,
		Text:   normalized,
		Record: record,
	}

	if err := s.correlator.Ingest(ctx, reply); err != nil {
		s.log.Error("Failed to ingest reply", "message_id", seq, "error", err)
		return
	}

	s.mu.Lock()
	s.lastReplyAt = at
	s.mu.Unlock()

	if err := s.store.SaveReply(ctx, store.NewDocument(seq, at, raw, record)); err != nil {
		s.log.Warn("Failed to persist reply", "message_id", seq, "error", err)
	}
}

// SendCommand delivers free-form text and polls for any reply that
// arrives after it. It reports the newest such reply, or Received=false
// when the window closes empty.
func (s *Service) SendCommand(ctx context.Context, command string) (CommandResult, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return CommandResult{}, errors.New("command is required")
	}

	seq, err := s.transport.Send(ctx, trimmed)
	if err != nil {
		return CommandResult{}, fmt.Errorf("send command: %w", err)
	}

	result := CommandResult{SentSeq: seq}

	deadline := time.NewTimer(s.cfg.Relay.ReplyTimeout())
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.Relay.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-deadline.C:
			return result, nil
		case <-ticker.C:
			reply, ok, err := s.correlator.MostRecentAfter(ctx, seq)
			if err != nil {
				return result, err
			}
			if !ok {
				continue
			}

			result.Received = true
			result.Response = reply.Text
			result.Record = reply.Record
			return result, nil
		}
	}
}

// SendTopup delivers a "<prefix> <uid> <amount>" command and waits for
// the reply whose extracted UID matches. When correlation times out it
// falls back first to any reply newer than the send, then to the most
// recent topup seen inside a short window.
func (s *Service) SendTopup(ctx context.Context, prefix, uid, amount string) (TopupOutcome, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return TopupOutcome{}, errors.New("uid is required")
	}

	request, err := s.correlator.Register(ctx, uid)
	if err != nil {
		return TopupOutcome{}, fmt.Errorf("register pending request: %w", err)
	}
	defer func() {
		if err := s.correlator.Unregister(context.WithoutCancel(ctx), request); err != nil {
			s.log.Debug("Failed to unregister pending request", "uid", uid, "error", err)
		}
	}()

	text := strings.TrimSpace(strings.TrimSpace(prefix) + " " + uid + " " + strings.TrimSpace(amount))
	seq, err := s.transport.Send(ctx, text)
	if err != nil {
		return TopupOutcome{}, fmt.Errorf("send topup command: %w", err)
	}
	request.MarkSent(seq)

	outcome := TopupOutcome{Status: StatusPending, Success: true, UID: uid, SentSeq: seq}

	reply, err := s.correlator.Await(ctx, request, s.cfg.Relay.ReplyTimeout())
	switch {
	case err == nil:
		return outcomeFromReply(reply, uid, seq), nil
	case errors.Is(err, correlate.ErrTimeout):
		return s.timeoutFallback(ctx, uid, seq, outcome)
	default:
		return outcome, err
	}
}

// timeoutFallback attributes a reply heuristically after the matching
// wait expired. Both lookups are best effort.
func (s *Service) timeoutFallback(ctx context.Context, uid string, seq int64, outcome TopupOutcome) (TopupOutcome, error) {
	reply, ok, err := s.correlator.MostRecentAfter(ctx, seq)
	if err != nil {
		return outcome, err
	}
	if ok && reply.Record != nil && reply.Record.Topup != nil {
		s.log.Info("Attributed reply by recency after timeout", "uid", uid, "message_id", reply.Seq)
		return outcomeFromReply(reply, uid, seq), nil
	}

	cutoff := time.Now().Add(-latestTopupWindow)
	recent, ok, err := s.correlator.LatestWhere(ctx, func(r correlate.Reply) bool {
		return r.Record != nil && r.Record.Topup != nil && !r.At.Before(cutoff)
	})
	if err != nil {
		return outcome, err
	}
	if ok {
		s.log.Info("Attributed reply from recent topup window", "uid", uid, "message_id", recent.Seq)
		return outcomeFromReply(recent, uid, seq), nil
	}

	if doc, err := s.store.LatestTopupSince(ctx, cutoff); err == nil {
		s.log.Info("Attributed reply from stored topups", "uid", uid, "message_id", doc.Seq)
		return outcomeFromDocument(doc, uid, seq), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("Stored topup lookup failed", "uid", uid, "error", err)
	}

	s.log.Warn("No attributable reply before deadline", "uid", uid, "sent_message_id", seq)
	return outcome, nil
}

func outcomeFromReply(reply correlate.Reply, uid string, seq int64) TopupOutcome {
	if reply.Record == nil || reply.Record.Topup == nil {
		return TopupOutcome{Status: StatusPending, Success: true, UID: uid, SentSeq: seq}
	}

	return topupOutcome(reply.Record.Topup, uid, seq)
}

func outcomeFromDocument(doc store.Document, uid string, seq int64) TopupOutcome {
	if doc.Topup == nil {
		return TopupOutcome{Status: StatusPending, Success: true, UID: uid, SentSeq: seq}
	}

	return topupOutcome(doc.Topup, uid, seq)
}

func topupOutcome(topup *extract.TopupResult, uid string, seq int64) TopupOutcome {
	outcome := TopupOutcome{UID: uid, SentSeq: seq}

	switch topup.Status {
	case extract.TopupFailed:
		outcome.Status = StatusFailed
	case extract.TopupSuccess:
		outcome.Status = StatusSuccess
	default:
		outcome.Status = StatusPending
	}
	outcome.Success = outcome.Status != StatusFailed

	if topup.User != nil && topup.User.UID != "" {
		outcome.UID = topup.User.UID
	}
	if topup.Payment != nil {
		outcome.UsedCodes = topup.Payment.UsedCodes
	}

	return outcome
}

// Status summarizes relay health for the diagnostics endpoint.
type Status struct {
	UptimeSeconds int64          `json:"uptime_seconds"`
	Transport     TransportState `json:"transport"`
	LastReplyAt   string         `json:"last_reply_at,omitempty"`
	Pending       int            `json:"pending_requests"`
	Buffered      int            `json:"buffered_replies"`
}

// Status reports uptime, transport state, and correlator statistics.
func (s *Service) Status(ctx context.Context) (Status, error) {
	stats, err := s.correlator.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Transport: s.state,
		Pending:   stats.PendingRequests,
		Buffered:  stats.BufferedReplies,
	}
	if !s.startedAt.IsZero() {
		status.UptimeSeconds = int64(time.Since(s.startedAt).Seconds())
	}
	if !s.lastReplyAt.IsZero() {
		status.LastReplyAt = s.lastReplyAt.UTC().Format(time.RFC3339)
	}

	return status, nil
}

// Ready reports whether the transport loop is currently running.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Running
}

func (s *Service) setState(state TransportState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
