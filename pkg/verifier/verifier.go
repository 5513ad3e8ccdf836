// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package verifier

import (
	"context"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result summarises a run of the verifier.
type Result struct {
	// Identifies this run in the logs.
	RunId uuid.UUID
	// Number of buckets checked.
	Buckets int
	Stats   check.Stats
	Times   Times
}

// Verifier checks the obligations of a program, bucket by bucket.
type Verifier struct {
	config    Config
	generator Generator
	factory   smt.Factory
	metrics   *Metrics
}

// NewVerifier constructs a verifier which starts solvers using a given
// factory.
func NewVerifier(config Config, generator Generator, factory smt.Factory) *Verifier {
	return &Verifier{config, generator, factory, NewMetrics()}
}

// Metrics returns the metrics recorded by this verifier.
func (p *Verifier) Metrics() *Metrics {
	return p.metrics
}

// Run checks every bucket of the program selected by the configured filter.
// Buckets are checked concurrently when more than one thread is configured,
// in which case the messages of any one bucket are still reported together.
func (p *Verifier) Run(ctx context.Context, reporter report.Reporter) (Result, error) {
	var (
		perf    = util.NewPerfStats()
		program = p.generator.Program()
		result  = Result{RunId: uuid.New()}
	)
	//
	buckets, err := plan.Plan(program, p.config.Filter())
	if err != nil {
		return result, err
	}
	//
	result.Buckets = len(buckets)
	threads := min(int(p.config.NumThreads), len(buckets))
	entry := log.WithField("run", result.RunId.String())
	entry.Debugf("checking %d buckets using %d threads", len(buckets), threads)
	//
	var (
		sccs    = plan.NewCallGraph(program).SCCs()
		dir     = NewLogDir(p.config.LogDir)
		workers = make([]*worker, max(threads, 1))
	)
	//
	for i := range workers {
		workers[i] = &worker{
			config:    &p.config,
			generator: p.generator,
			factory:   p.factory,
			dir:       dir,
			metrics:   p.metrics,
			sccs:      sccs,
		}
	}
	//
	if threads <= 1 {
		err = p.sequential(ctx, workers[0], buckets, reporter)
	} else {
		err = p.parallel(ctx, workers, buckets, reporter)
	}
	//
	for _, w := range workers {
		result.Stats.Merge(w.stats)
		result.Times.Merge(w.times)
	}
	//
	if err == nil && p.config.MetricsFile != "" {
		if werr := p.metrics.WriteFile(p.config.MetricsFile); werr != nil {
			err = &util.IOError{Path: p.config.MetricsFile, Err: werr}
		}
	}
	//
	perf.Log("verification")
	//
	return result, err
}

// sequential checks each bucket in turn, reporting directly to the sink.
func (p *Verifier) sequential(ctx context.Context, worker *worker, buckets []*plan.Bucket,
	reporter report.Reporter) error {
	for _, b := range buckets {
		if err := worker.verify(ctx, b, reporter); err != nil {
			return err
		}
	}
	//
	return nil
}

// parallel checks buckets using a pool of workers, each pulling the index of
// the next bucket from a shared queue.  Messages are sequenced so that those
// of each bucket appear together.
func (p *Verifier) parallel(ctx context.Context, workers []*worker, buckets []*plan.Bucket,
	reporter report.Reporter) error {
	var (
		tasks     = make(chan int, len(buckets))
		events    = make(chan report.Event)
		sequencer = report.NewSequencer(reporter, len(buckets))
		done      = make(chan error, 1)
	)
	//
	for i := range buckets {
		tasks <- i
	}
	//
	close(tasks)
	//
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(len(workers))
	//
	for _, w := range workers {
		w := w
		group.Go(func() error {
			for i := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				//
				queued := report.NewQueued(i, events)
				//
				if err := w.verify(gctx, buckets[i], queued); err != nil {
					return err
				}
				//
				queued.Done()
			}
			//
			return nil
		})
	}
	//
	go func() {
		done <- group.Wait()
		// No worker sends anything once the group is done
		close(events)
	}()
	//
	for !sequencer.Finished() {
		event, ok := <-events
		if !ok {
			break
		}
		//
		sequencer.Handle(event)
	}
	//
	err := <-done
	// Something went wrong, so show whatever was held back
	if err != nil {
		sequencer.Flush()
	}
	//
	return err
}
