// Package server exposes the outbound SSE feed. Every session begins with the
// ApiVersion sentinel, which carries no event id; all later frames carry the
// store-assigned id so clients can resume with start_from or Last-Event-ID.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/sse"
	"github.com/blockfeed/sidecar/pkg/store"
	"github.com/blockfeed/sidecar/pkg/stream"
)

// Server serves /events/main to SSE subscribers.
type Server struct {
	version     chain.ProtocolVersion
	broadcaster *stream.Broadcaster
	log         store.Log
	replayLimit int
	logger      *slog.Logger

	// OnSubscriber, when set, observes connects (+1) and disconnects (-1).
	OnSubscriber func(delta int64)
}

// New builds a Server over the given broadcaster and event log.
func New(version chain.ProtocolVersion, b *stream.Broadcaster, log store.Log, replayLimit int) *Server {
	if replayLimit < 1 {
		replayLimit = 1000
	}
	return &Server{
		version:     version,
		broadcaster: b,
		log:         log,
		replayLimit: replayLimit,
		logger:      slog.Default().With("component", "sse_server"),
	}
}

// Handler returns the routed handler. The limiter may be nil.
func (s *Server) Handler(limiter *IPRateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events/main", s.handleEvents)
	mux.HandleFunc("GET /health", s.handleHealth)
	if limiter == nil {
		return mux
	}
	return limiter.Middleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","api_version":%q}`, s.version.String())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	after, replay, err := resumeCursor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before replaying so nothing published during replay is lost.
	subID, deliveries, cancel := s.broadcaster.Subscribe()
	defer cancel()
	if s.OnSubscriber != nil {
		s.OnSubscriber(1)
		defer s.OnSubscriber(-1)
	}
	logger := s.logger.With("subscriber", subID)
	logger.Info("subscriber connected", "replay", replay, "after", after)

	// Sentinel first. It describes the session, not the history, so it never
	// carries an id line.
	sentinel, err := sse.NewApiVersionEvent(s.version).Encode()
	if err != nil {
		logger.Error("encode api version sentinel", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", sentinel)
	flusher.Flush()

	lastSent := uint64(0)
	if replay {
		entries, err := s.log.Since(r.Context(), after, s.replayLimit)
		if err != nil {
			logger.Error("replay from event log", "error", err)
			return
		}
		for _, e := range entries {
			writeFrame(w, e.ID, e.Data)
			lastSent = e.ID
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			logger.Info("subscriber disconnected")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Info("subscriber dropped")
				return
			}
			// Skip anything already covered by the replay.
			if d.ID <= lastSent {
				continue
			}
			writeFrame(w, d.ID, d.Data)
			lastSent = d.ID
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, id uint64, data []byte) {
	fmt.Fprintf(w, "id: %d\ndata: %s\n\n", id, data)
}

// resumeCursor derives the exclusive replay cursor: ?start_from=N replays
// from id N inclusive, while the Last-Event-ID header a reconnecting SSE
// client sends names the last id it already saw.
func resumeCursor(r *http.Request) (after uint64, replay bool, err error) {
	if raw := r.URL.Query().Get("start_from"); raw != "" {
		from, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid start_from %q", raw)
		}
		if from > 0 {
			from--
		}
		return from, true, nil
	}
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		last, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid Last-Event-ID %q", raw)
		}
		return last, true, nil
	}
	return 0, false, nil
}
