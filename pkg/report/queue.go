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
package report

// Event is sent from a worker to the sequencer.  It either carries a message
// for a given bucket, or signals that the bucket is finished.
type Event struct {
	Bucket  int
	Message *Message
	Level   Level
	Now     bool
	Done    bool
}

// Queued is the reporter handed to a worker checking a single bucket.  It
// forwards every message, tagged with its bucket, to a shared channel.
type Queued struct {
	bucket int
	queue  chan<- Event
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Reporter = (*Queued)(nil)

// NewQueued constructs a reporter for a given bucket.
func NewQueued(bucket int, queue chan<- Event) *Queued {
	return &Queued{bucket, queue}
}

// Report implementation for Reporter interface.
func (p *Queued) Report(msg *Message) { p.send(msg, msg.Level, false) }

// ReportAs implementation for Reporter interface.
func (p *Queued) ReportAs(msg *Message, level Level) { p.send(msg, level, false) }

// ReportNow implementation for Reporter interface.
func (p *Queued) ReportNow(msg *Message) { p.send(msg, msg.Level, true) }

// ReportAsNow implementation for Reporter interface.
func (p *Queued) ReportAsNow(msg *Message, level Level) { p.send(msg, level, true) }

// Done signals that no further messages will be sent for this bucket.
func (p *Queued) Done() {
	p.queue <- Event{Bucket: p.bucket, Done: true}
}

func (p *Queued) send(msg *Message, level Level, now bool) {
	p.queue <- Event{Bucket: p.bucket, Message: msg, Level: level, Now: now}
}

// Sequencer consumes events from concurrently checked buckets and forwards
// them to a sink so that the messages of any one bucket appear contiguously.
// Messages from the active bucket are forwarded as they arrive, whilst those
// of other buckets are buffered.  Once the active bucket is done, the first
// bucket with buffered messages is drained and (if still running) becomes
// active.
type Sequencer struct {
	sink    Reporter
	pending [][]Event
	done    []bool
	active  int
	ndone   int
}

// NewSequencer constructs a sequencer for a given number of buckets.
func NewSequencer(sink Reporter, buckets int) *Sequencer {
	return &Sequencer{
		sink:    sink,
		pending: make([][]Event, buckets),
		done:    make([]bool, buckets),
		active:  -1,
	}
}

// Run consumes events until every bucket has signalled completion.
func (p *Sequencer) Run(events <-chan Event) {
	for !p.Finished() {
		p.Handle(<-events)
	}
}

// Finished checks whether every bucket is done.
func (p *Sequencer) Finished() bool {
	return p.ndone == len(p.done)
}

// Handle a single event.
func (p *Sequencer) Handle(event Event) {
	switch {
	case event.Done:
		p.finish(event.Bucket)
	case event.Now:
		// Progress notices are never held back
		p.sink.ReportAs(event.Message, event.Level)
	case p.active == -1:
		p.active = event.Bucket
		p.sink.ReportAs(event.Message, event.Level)
	case p.active == event.Bucket:
		p.sink.ReportAs(event.Message, event.Level)
	default:
		p.pending[event.Bucket] = append(p.pending[event.Bucket], event)
	}
}

// Flush forwards every buffered message, in bucket order.  This is used when
// a run is abandoned before every bucket is done.
func (p *Sequencer) Flush() {
	for i, events := range p.pending {
		for _, e := range events {
			p.sink.ReportAs(e.Message, e.Level)
		}
		//
		p.pending[i] = nil
	}
}

func (p *Sequencer) finish(bucket int) {
	p.done[bucket] = true
	p.ndone++
	//
	if p.active == bucket {
		p.active = -1
	}
	//
	if p.active != -1 {
		return
	}
	// Pick the first bucket with anything buffered
	for i, events := range p.pending {
		if len(events) == 0 {
			continue
		}
		//
		for _, e := range events {
			p.sink.ReportAs(e.Message, e.Level)
		}
		//
		p.pending[i] = nil
		//
		if !p.done[i] {
			p.active = i
			return
		}
	}
}
