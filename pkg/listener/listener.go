// Package listener consumes a node's SSE feed. It validates the ApiVersion
// handshake, skips records it cannot classify, and reconnects with capped
// exponential backoff, resuming from the last seen event id.
package listener

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/sse"
)

// ErrHandshake is returned when a session does not open with the ApiVersion
// sentinel.
var ErrHandshake = errors.New("listener: stream did not open with ApiVersion")

// Handler receives each domain event from the node. The id pointer is nil
// when the node sent no id line for the frame.
type Handler func(ctx context.Context, id *uint64, ev sse.Event) error

// Listener tails one node event stream.
type Listener struct {
	url     string
	client  *http.Client
	handler Handler
	logger  *slog.Logger

	// OnSkip, when set, observes each skipped record with a reason of
	// "unclassified", "malformed" or "repeated_sentinel". Set before Run.
	OnSkip func(reason string)

	mu          sync.Mutex
	lastEventID *uint64
	nodeVersion *chain.ProtocolVersion
}

// New builds a listener for the stream at url. A nil client uses a default
// with no overall timeout, as the connection is long-lived.
func New(url string, client *http.Client, handler Handler) *Listener {
	if client == nil {
		client = &http.Client{}
	}
	return &Listener{
		url:     url,
		client:  client,
		handler: handler,
		logger:  slog.Default().With("component", "node_listener", "url", url),
	}
}

// NodeVersion reports the version the node announced, once connected.
func (l *Listener) NodeVersion() (chain.ProtocolVersion, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.nodeVersion == nil {
		return chain.ProtocolVersion{}, false
	}
	return *l.nodeVersion, true
}

// Run connects and consumes the stream until ctx is cancelled, reconnecting
// on failure with capped exponential backoff.
func (l *Listener) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	for {
		started := time.Now()
		err := l.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A connection that survived a while was healthy; start the next
		// retry sequence from scratch.
		if time.Since(started) > time.Minute {
			policy.Reset()
		}
		wait := policy.NextBackOff()
		l.logger.Warn("stream interrupted, reconnecting", "error", err, "backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// consume holds one connection open. A successful handshake resets nothing
// here; the caller owns the backoff policy.
func (l *Listener) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	l.mu.Lock()
	if l.lastEventID != nil {
		req.Header.Set("Last-Event-ID", strconv.FormatUint(*l.lastEventID, 10))
	}
	l.mu.Unlock()

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to node stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node stream returned status %d", resp.StatusCode)
	}

	return l.readFrames(ctx, bufio.NewReader(resp.Body))
}

func (l *Listener) readFrames(ctx context.Context, r *bufio.Reader) error {
	var (
		frameID   *uint64
		frameData string
		first     = true
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read node stream: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if frameData == "" {
				continue
			}
			if err := l.dispatch(ctx, frameID, []byte(frameData), first); err != nil {
				return err
			}
			first = false
			frameID, frameData = nil, ""
		case strings.HasPrefix(line, "id:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				frameID = &id
			}
		case strings.HasPrefix(line, "data:"):
			frameData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// Comment frame, used by some servers as keepalive.
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, id *uint64, data []byte, first bool) error {
	ev, err := sse.Decode(data)
	if err != nil {
		if first {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		// Both unclassifiable and malformed records are skipped, never fatal:
		// the node may be newer than this sidecar.
		if errors.Is(err, sse.ErrUnknownVariant) {
			l.logger.Warn("skipping unclassified event", "error", err)
			l.skip("unclassified")
		} else {
			l.logger.Warn("skipping malformed event", "error", err)
			l.skip("malformed")
		}
		return nil
	}

	if av, ok := ev.ApiVersion(); ok {
		if !first {
			l.logger.Warn("ignoring repeated ApiVersion mid-stream", "version", av.Version().String())
			l.skip("repeated_sentinel")
			return nil
		}
		version := av.Version()
		l.mu.Lock()
		l.nodeVersion = &version
		l.mu.Unlock()
		l.logger.Info("node stream connected", "api_version", version.String())
		return nil
	}
	if first {
		return fmt.Errorf("%w: got %s", ErrHandshake, ev.Type())
	}

	if id != nil {
		l.mu.Lock()
		l.lastEventID = id
		l.mu.Unlock()
	}
	if err := l.handler(ctx, id, ev); err != nil {
		return fmt.Errorf("handle %s event: %w", ev.Type(), err)
	}
	return nil
}

func (l *Listener) skip(reason string) {
	if l.OnSkip != nil {
		l.OnSkip(reason)
	}
}
