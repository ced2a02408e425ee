// Command hyperballd serves HyperBall distance-distribution estimation and
// its BFS ground-truth/benchmark collaborators over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/swarmguard/hyperball/internal/ball"
	"github.com/swarmguard/hyperball/internal/bench"
	"github.com/swarmguard/hyperball/internal/bfsref"
	"github.com/swarmguard/hyperball/internal/graph"
	"github.com/swarmguard/hyperball/internal/logging"
	"github.com/swarmguard/hyperball/internal/otelinit"
)

func main() {
	service := "hyperballd"
	logging.Init(service)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTrace := otelinit.InitTracer(ctx, service)
	shutdownMetrics, promHandler, _ := otelinit.InitMetrics(ctx, service)

	dbPath := os.Getenv("HYPERBALL_BENCH_DB")
	if dbPath == "" {
		dbPath = "hyperball-bench.db"
	}
	store, err := bench.NewStore(dbPath, otel.Meter("hyperball-go"))
	if err != nil {
		slog.Error("failed to open benchmark store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cronExpr := os.Getenv("HYPERBALL_BENCH_CRON"); cronExpr != "" {
		sched := bench.NewScheduler(store, bench.DefaultConfig(time.Now().UnixNano()), otel.Meter("hyperball-go"))
		if err := sched.Start(ctx, cronExpr); err != nil {
			slog.Error("failed to start benchmark scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	srv := newServer(store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("POST /v1/graphs", srv.handleCreateGraph)
	mux.HandleFunc("POST /v1/graphs/{id}/run", srv.handleRunGraph)
	mux.HandleFunc("GET /v1/graphs/{id}/bfs", srv.handleBFS)
	mux.HandleFunc("POST /v1/bench", srv.handleRunBench)
	mux.HandleFunc("GET /v1/bench/{runID}", srv.handleGetBench)
	if promHandler != nil {
		if h, ok := promHandler.(http.Handler); ok {
			mux.Handle("/metrics", h)
		}
	}

	httpSrv := &http.Server{Addr: listenAddr(), Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()
	slog.Info("hyperballd started", "addr", httpSrv.Addr)

	<-ctx.Done()
	slog.Info("shutdown initiated")
	ctxSd, c2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer c2()
	_ = httpSrv.Shutdown(ctxSd)
	otelinit.Flush(ctxSd, shutdownTrace)
	_ = shutdownMetrics(ctxSd)
	slog.Info("shutdown complete")
}

func listenAddr() string {
	if addr := os.Getenv("HYPERBALL_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// server holds the in-memory graph registry and the shared benchmark
// result store. Registered graphs are immutable once stored, matching the
// engine's own read-only assumption about its Adapter.
type server struct {
	graphs *graphRegistry
	store  *bench.Store
}

func newServer(store *bench.Store) *server {
	return &server{graphs: newGraphRegistry(), store: store}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type createGraphRequest struct {
	Edges [][2]int64 `json:"edges"`
}

type createGraphResponse struct {
	ID    string `json:"id"`
	Nodes int    `json:"nodes"`
}

func (s *server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	b := graph.NewBuilder()
	for _, e := range req.Edges {
		b.AddEdge(graph.NodeID(e[0]), graph.NodeID(e[1]))
	}
	g := b.Build()
	id := s.graphs.put(g)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(createGraphResponse{ID: id, Nodes: g.NodeCount()})
}

type runGraphRequest struct {
	Bits    uint8 `json:"bits"`
	Workers int   `json:"workers"`
}

type runGraphResponse struct {
	Avg        float64 `json:"avg"`
	Count      float64 `json:"count"`
	Iterations int     `json:"iterations"`
}

func (s *server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g, ok := s.graphs.get(id)
	if !ok {
		http.Error(w, "unknown graph id", http.StatusNotFound)
		return
	}
	var req runGraphRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}
	if req.Bits == 0 {
		req.Bits = 12
	}

	var opts []ball.Option
	if req.Workers > 0 {
		opts = append(opts, ball.WithWorkers(req.Workers))
	}
	engine, err := ball.New(req.Bits, g, opts...)
	if err != nil {
		http.Error(w, fmt.Sprintf("engine init failed: %v", err), http.StatusBadRequest)
		return
	}

	var runErr error
	if req.Workers > 0 {
		runErr = engine.RunParallel(r.Context())
	} else {
		runErr = engine.Run(r.Context())
	}
	if runErr != nil {
		http.Error(w, fmt.Sprintf("run failed: %v", runErr), http.StatusInternalServerError)
		return
	}

	avg, _ := engine.Distribution().Avg()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runGraphResponse{
		Avg:        avg,
		Count:      engine.Distribution().Count(),
		Iterations: engine.Iterations(),
	})
}

type bfsResponse struct {
	Avg   float64 `json:"avg"`
	Count float64 `json:"count"`
}

func (s *server) handleBFS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g, ok := s.graphs.get(id)
	if !ok {
		http.Error(w, "unknown graph id", http.StatusNotFound)
		return
	}
	d := bfsref.Distribution(g)
	avg, _ := d.Avg()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(bfsResponse{Avg: avg, Count: d.Count()})
}

func (s *server) handleRunBench(w http.ResponseWriter, r *http.Request) {
	var cfg bench.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if cfg.ProfileType == "" {
		cfg.ProfileType = bench.ProfileTime
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = 1
	}
	res := bench.Run(r.Context(), cfg)
	if err := s.store.Put(r.Context(), res); err != nil {
		http.Error(w, fmt.Sprintf("failed to persist benchmark run: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (s *server) handleGetBench(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	res, found, err := s.store.Get(r.Context(), runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read benchmark run: %v", err), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "unknown run id", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

// graphRegistry is an in-memory store of graphs created via the API,
// keyed by a random UUID assigned at creation time.
type graphRegistry struct {
	mu sync.RWMutex
	m  map[string]*graph.AdjacencyGraph
}

func newGraphRegistry() *graphRegistry {
	return &graphRegistry{m: make(map[string]*graph.AdjacencyGraph)}
}

func (r *graphRegistry) put(g *graph.AdjacencyGraph) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.m[id] = g
	r.mu.Unlock()
	return id
}

func (r *graphRegistry) get(id string) (*graph.AdjacencyGraph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.m[id]
	return g, ok
}
