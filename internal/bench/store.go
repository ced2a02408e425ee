package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var bucketRuns = []byte("bench_runs")

// Store persists benchmark Results to a local BoltDB file, keyed by run ID,
// so a run triggered by the scheduler can be retrieved later over the API.
// Persisting finished benchmark artifacts is unrelated to persisting an
// engine's in-flight sketches or accumulators, which this module never
// does.
type Store struct {
	db *bbolt.DB

	writeLatency metric.Float64Histogram
	readLatency  metric.Float64Histogram
}

// NewStore opens (creating if absent) a BoltDB file at path and ensures the
// results bucket exists.
func NewStore(path string, meter metric.Meter) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bench: open store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bench: create bucket: %w", err)
	}
	writeLatency, _ := meter.Float64Histogram("hyperball_bench_store_write_ms")
	readLatency, _ := meter.Float64Histogram("hyperball_bench_store_read_ms")
	return &Store{db: db, writeLatency: writeLatency, readLatency: readLatency}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// Put stores a completed Result under its RunID.
func (s *Store) Put(ctx context.Context, res Result) error {
	start := time.Now()
	defer func() {
		s.writeLatency.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("op", "put")))
	}()
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("bench: marshal result: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(res.RunID), data)
	})
}

// Get retrieves a Result by run ID.
func (s *Store) Get(ctx context.Context, runID string) (Result, bool, error) {
	start := time.Now()
	defer func() {
		s.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("op", "get")))
	}()
	var res Result
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(runID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &res)
	})
	if err != nil {
		return Result{}, false, fmt.Errorf("bench: read result: %w", err)
	}
	return res, found, nil
}

// List returns up to limit stored Results in key order, skipping entries
// that fail to decode. Most recently stored first is not guaranteed
// (BoltDB iterates lexicographically by key; RunID is a random UUID, so
// callers needing recency should sort on CompletedAt themselves).
func (s *Store) List(ctx context.Context, limit int) ([]Result, error) {
	var out []Result
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.First(); k != nil && len(out) < limit; k, v = c.Next() {
			var res Result
			if err := json.Unmarshal(v, &res); err != nil {
				continue
			}
			out = append(out, res)
		}
		return nil
	})
	return out, err
}
