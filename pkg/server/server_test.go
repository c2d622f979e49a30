package server_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/server"
	"github.com/blockfeed/sidecar/pkg/sse"
	"github.com/blockfeed/sidecar/pkg/sse/ssetest"
	"github.com/blockfeed/sidecar/pkg/store"
	"github.com/blockfeed/sidecar/pkg/stream"
)

type fixture struct {
	broadcaster *stream.Broadcaster
	log         *store.SQLiteLog
	srv         *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	version, err := chain.ParseProtocolVersion("1.4.2")
	require.NoError(t, err)

	log, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	b := stream.NewBroadcaster(16)
	t.Cleanup(b.Close)

	s := server.New(version, b, log, 100)
	srv := httptest.NewServer(s.Handler(nil))
	t.Cleanup(srv.Close)

	return &fixture{broadcaster: b, log: log, srv: srv}
}

// appendEvent stores a fresh random event and returns its id and wire bytes.
func (f *fixture) appendEvent(t *testing.T, seed int64) (uint64, []byte) {
	t.Helper()
	ev := ssetest.RandomEvent(rand.New(rand.NewSource(seed)))
	data, err := ev.Encode()
	require.NoError(t, err)
	id, err := f.log.Append(context.Background(), ev.Type(), data)
	require.NoError(t, err)
	return id, data
}

type frame struct {
	id   string
	data string
}

// readFrame reads one SSE frame (terminated by a blank line).
func readFrame(t *testing.T, r *bufio.Reader) frame {
	t.Helper()
	var f frame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if f.data != "" {
				return f
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "id: "):
			f.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, url string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func TestSessionBeginsWithIdlessSentinel(t *testing.T) {
	f := newFixture(t)
	r := openStream(t, f.srv.URL+"/events/main")

	first := readFrame(t, r)
	require.Empty(t, first.id)
	require.JSONEq(t, `{"ApiVersion":"1.4.2"}`, first.data)

	decoded, err := sse.Decode([]byte(first.data))
	require.NoError(t, err)
	require.Equal(t, sse.TypeApiVersion, decoded.Type())
}

func TestLiveDeliveriesCarryIDs(t *testing.T) {
	f := newFixture(t)
	r := openStream(t, f.srv.URL+"/events/main")

	// The sentinel is written after the subscription exists, so once it is
	// read the publish below cannot be missed.
	readFrame(t, r)

	id, data := f.appendEvent(t, 1)
	f.broadcaster.Publish(stream.Delivery{ID: id, Type: sse.TypeBlockAdded, Data: data})

	got := readFrame(t, r)
	require.Equal(t, fmt.Sprintf("%d", id), got.id)
	require.Equal(t, string(data), got.data)
}

func TestStartFromReplaysInclusive(t *testing.T) {
	f := newFixture(t)
	var stored [][]byte
	for seed := int64(1); seed <= 3; seed++ {
		_, data := f.appendEvent(t, seed)
		stored = append(stored, data)
	}

	r := openStream(t, f.srv.URL+"/events/main?start_from=2")
	readFrame(t, r) // sentinel

	second := readFrame(t, r)
	require.Equal(t, "2", second.id)
	require.Equal(t, string(stored[1]), second.data)

	third := readFrame(t, r)
	require.Equal(t, "3", third.id)
	require.Equal(t, string(stored[2]), third.data)
}

func TestReplayThenLiveSkipsDuplicates(t *testing.T) {
	f := newFixture(t)
	id1, data1 := f.appendEvent(t, 10)

	r := openStream(t, f.srv.URL+"/events/main?start_from=1")
	readFrame(t, r) // sentinel
	replayed := readFrame(t, r)
	require.Equal(t, "1", replayed.id)

	// Re-publishing the replayed id is suppressed; the next id goes through.
	f.broadcaster.Publish(stream.Delivery{ID: id1, Type: sse.TypeFault, Data: data1})
	id2, data2 := f.appendEvent(t, 11)
	f.broadcaster.Publish(stream.Delivery{ID: id2, Type: sse.TypeFault, Data: data2})

	next := readFrame(t, r)
	require.Equal(t, "2", next.id)
	require.Equal(t, string(data2), next.data)
}

func TestInvalidCursorRejected(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/events/main?start_from=soon")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHealthReportsApiVersion(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok","api_version":"1.4.2"}`, string(body))
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	version, err := chain.ParseProtocolVersion("1.0.0")
	require.NoError(t, err)
	log, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer log.Close()
	b := stream.NewBroadcaster(4)
	defer b.Close()

	limiter := server.NewIPRateLimiter(0.1, 1)
	srv := httptest.NewServer(server.New(version, b, log, 10).Handler(limiter))
	defer srv.Close()

	first, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	second.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	require.Equal(t, "5", second.Header.Get("Retry-After"))
}

func TestDroppedSubscriberEndsStream(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/events/main", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readFrame(t, r) // sentinel

	f.broadcaster.Close()

	// With the broadcaster gone the handler returns and the body reaches EOF.
	_, readErr := r.ReadString('\n')
	require.Error(t, readErr)
}
