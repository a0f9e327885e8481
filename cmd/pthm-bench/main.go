// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/optakt/pthm/datamgr"
	"github.com/optakt/pthm/metrics"
	"github.com/optakt/pthm/pthm"
)

func main() {

	var (
		flagData     string
		flagLog      string
		flagWorkers  int
		flagOps      int
		flagCapacity int
		flagMetrics  string
	)

	pflag.StringVarP(&flagData, "data", "d", "", "database directory for the object store (empty keeps it in memory)")
	pflag.StringVarP(&flagLog, "log", "l", "info", "log output level")
	pflag.IntVarP(&flagWorkers, "workers", "w", 4, "number of concurrent workers")
	pflag.IntVarP(&flagOps, "ops", "o", 10_000, "operations per worker")
	pflag.IntVarP(&flagCapacity, "leaf-capacity", "c", 128, "leaf bucket capacity")
	pflag.StringVarP(&flagMetrics, "metrics", "m", ":9090", "address to serve prometheus metrics on")

	pflag.Parse()

	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLog)
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse log level")
	}
	log = log.Level(level)

	storeOpts := []datamgr.Option{datamgr.WithInMemory(flagData == "")}
	if flagData != "" {
		storeOpts = append(storeOpts, datamgr.WithStoragePath(flagData))
	}
	store, err := datamgr.NewStore(log.With().Str("component", "datamgr").Logger(), storeOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open object store")
	}
	defer store.Close()

	collector := metrics.NewCollector()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: flagMetrics, Handler: mux}
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	ctx := context.Background()
	m, err := bootstrapMap(ctx, store, flagCapacity, flagWorkers)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create map")
	}

	stop := make(chan struct{})
	go metrics.ReportPeriodically(log, 2*time.Second, func() (int, uint8) {
		return snapshot(ctx, store, m, log)
	}, stop)

	log.Info().Int("workers", flagWorkers).Int("ops", flagOps).Msg("pthm-bench starting")
	start := time.Now()

	workerErrs := make(chan error, flagWorkers)
	var wg sync.WaitGroup
	for i := 0; i < flagWorkers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			workerErrs <- runWorker(ctx, store, m, collector, log, worker, flagOps)
		}(i)
	}
	wg.Wait()
	close(workerErrs)

	close(stop)
	duration := time.Since(start)

	var merr *multierror.Error
	for err := range workerErrs {
		merr = multierror.Append(merr, err)
	}
	if err := merr.ErrorOrNil(); err != nil {
		log.Error().Err(err).Msg("some workers hit unretryable operation failures")
	}

	size, depth, err := finalSize(ctx, store, m)
	if err != nil {
		log.Error().Err(err).Msg("could not read final size")
	}
	log.Info().
		Str("duration", duration.Round(time.Millisecond).String()).
		Int("final_size", size).
		Uint8("leftmost_depth", depth).
		Msg("pthm-bench done")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func bootstrapMap(ctx context.Context, store *datamgr.Store, capacity int, workers int) (*pthm.Map, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Discard()

	m, err := pthm.New(tx, pthm.WithLeafCapacity(capacity), pthm.WithMinConcurrency(workers))
	if err != nil {
		return nil, fmt.Errorf("could not create map: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("could not commit bootstrap transaction: %w", err)
	}

	return m, nil
}

// runWorker drives a random mix of puts, gets, and removes against the
// shared map, each inside its own transaction, retrying on optimistic
// conflicts the way any Data Manager client is expected to. Operation
// failures that survive retrying are collected rather than logged one by
// one, so the caller gets a single combined error summarizing the whole
// worker's run, the way the teacher's store aggregates errors from its
// asynchronous persistence goroutines.
func runWorker(ctx context.Context, store *datamgr.Store, m *pthm.Map, collector *metrics.Collector, log zerolog.Logger, worker, ops int) error {
	rng := rand.New(rand.NewSource(int64(worker) + 1))

	var merr *multierror.Error
	for i := 0; i < ops; i++ {
		key := fmt.Sprintf("worker-%d-key-%d", worker, rng.Intn(ops))

		err := withRetry(ctx, store, log, func(tx *datamgr.Tx) error {
			switch rng.Intn(10) {
			case 0, 1:
				_, _, err := m.Remove(tx, key)
				if err != nil {
					return err
				}
				collector.Remove()
			case 2, 3, 4, 5, 6, 7:
				_, _, err := m.Put(tx, key, i)
				if err != nil {
					return err
				}
				collector.Put()
			default:
				_, _, err := m.Get(tx, key)
				if err != nil {
					return err
				}
				collector.Get()
			}
			return nil
		})
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("worker %d op %d: %w", worker, i, err))
		}
	}
	return merr.ErrorOrNil()
}

func withRetry(ctx context.Context, store *datamgr.Store, log zerolog.Logger, fn func(tx *datamgr.Tx) error) error {
	for attempt := 0; attempt < 5; attempt++ {
		tx, err := store.Begin(ctx)
		if err != nil {
			return fmt.Errorf("could not begin transaction: %w", err)
		}

		err = fn(tx)
		if err != nil {
			tx.Discard()
			return err
		}

		err = tx.Commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, datamgr.ErrConcurrentTransactionAborted) {
			return err
		}
		log.Debug().Int("attempt", attempt).Msg("retrying after concurrent transaction conflict")
	}
	return errors.New("exhausted retries after repeated concurrent transaction conflicts")
}

func snapshot(ctx context.Context, store *datamgr.Store, m *pthm.Map, log zerolog.Logger) (int, uint8) {
	size, depth, err := finalSize(ctx, store, m)
	if err != nil {
		log.Error().Err(err).Msg("could not take snapshot")
		return 0, 0
	}
	return size, depth
}

func finalSize(ctx context.Context, store *datamgr.Store, m *pthm.Map) (int, uint8, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Discard()

	size, err := m.Size(tx)
	if err != nil {
		return 0, 0, err
	}
	depth, err := m.Depth(tx)
	if err != nil {
		return 0, 0, err
	}
	return size, depth, nil
}
