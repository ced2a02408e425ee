package graph

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swarmguard/hyperball/internal/resilience"
)

// LoadEdgeList parses a plain-text edge list, one "u v" pair of integers per
// line (blank lines and "#"-prefixed comments ignored), into an
// AdjacencyGraph.
func LoadEdgeList(r io.Reader) (*AdjacencyGraph, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("graph: malformed edge list at line %d: %q", line, text)
		}
		u, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("graph: bad node id at line %d: %w", line, err)
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("graph: bad node id at line %d: %w", line, err)
		}
		b.AddEdge(NodeID(u), NodeID(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("graph: scanning edge list: %w", err)
	}
	return b.Build(), nil
}

// RemoteLoader fetches an edge-list graph over HTTP, guarded by retry with
// backoff and an adaptive circuit breaker so a flaky graph source cannot
// wedge the caller.
type RemoteLoader struct {
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

// NewRemoteLoader constructs a loader with sane defaults: a 10s HTTP
// timeout and a breaker over a 2-minute rolling window (6 buckets of 20s)
// that opens once at least 3 fetches are recorded in the window and the
// share of failures reaches its threshold (starting at half, then adapted),
// cooling down for 30s before up to 2 half-open probes are allowed.
func NewRemoteLoader() *RemoteLoader {
	return &RemoteLoader{
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: resilience.NewCircuitBreakerAdaptive(2*time.Minute, 6, 3, 0.5, 30*time.Second, 2),
	}
}

// Fetch retrieves and parses an edge-list graph from url, retrying up to
// attempts times with exponential backoff + jitter between tries.
func (l *RemoteLoader) Fetch(ctx context.Context, url string, attempts int) (*AdjacencyGraph, error) {
	if !l.breaker.Allow() {
		return nil, fmt.Errorf("graph: circuit open for remote loader")
	}
	g, err := resilience.Retry(ctx, attempts, 200*time.Millisecond, func() (*AdjacencyGraph, error) {
		return l.fetchOnce(ctx, url)
	})
	l.breaker.RecordResult(err == nil)
	return g, err
}

func (l *RemoteLoader) fetchOnce(ctx context.Context, url string) (*AdjacencyGraph, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph: remote fetch %s: status %d", url, resp.StatusCode)
	}
	return LoadEdgeList(resp.Body)
}
