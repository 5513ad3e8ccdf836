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

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Sequencer_00(t *testing.T) {
	// Messages of a single bucket pass straight through
	check_Sequencer(t, 1, []Event{msg(0, "a"), msg(0, "b"), done(0)}, "a", "b")
}

func Test_Sequencer_01(t *testing.T) {
	// Bucket 1 is held back until bucket 0 finishes
	events := []Event{msg(0, "a"), msg(1, "x"), msg(0, "b"), msg(1, "y"), done(0), msg(1, "z"), done(1)}
	check_Sequencer(t, 2, events, "a", "b", "x", "y", "z")
}

func Test_Sequencer_02(t *testing.T) {
	// Progress notices are never buffered
	events := []Event{msg(0, "a"), now(1, "slow"), msg(1, "x"), done(0), done(1)}
	check_Sequencer(t, 2, events, "a", "slow", "x")
}

func Test_Sequencer_03(t *testing.T) {
	// Finished buckets are drained in bucket order, and the first unfinished
	// one becomes active.
	events := []Event{msg(2, "p"), msg(1, "x"), done(1), msg(0, "a"), done(2), msg(0, "b"), done(0)}
	check_Sequencer(t, 3, events, "p", "a", "b", "x")
}

func Test_Sequencer_04(t *testing.T) {
	var (
		sink   Collector
		events = make(chan Event, 8)
		seq    = NewSequencer(&sink, 2)
	)
	//
	go func() {
		a := NewQueued(0, events)
		b := NewQueued(1, events)
		//
		b.Report(NewError("b1"))
		a.ReportAs(NewError("a1"), Note)
		a.Done()
		b.Done()
	}()
	//
	seq.Run(events)
	assert.True(t, seq.Finished())
	assert.ElementsMatch(t, []string{"a1", "b1"}, sink.Notes())
	assert.Equal(t, 1, sink.Count(Note))
}

func Test_Message_00(t *testing.T) {
	m := NewError("assertion failed", "lib.rs:10:5").
		WithLabel("lib.rs:4:1", "failed precondition").
		WithHelp("consider adding a requires clause")
	//
	expected := "error: assertion failed\n  --> lib.rs:10:5\n  --> lib.rs:4:1: failed precondition\n" +
		"   = help: consider adding a requires clause"
	assert.Equal(t, expected, m.Format(Error, false))
	assert.Equal(t, 0, len(NewError("x").Labels))
}

func Test_Console_00(t *testing.T) {
	var buf bytes.Buffer
	//
	NewWriterConsole(&buf).ReportAs(NewError("postcondition not satisfied"), Note)
	assert.Equal(t, "note: postcondition not satisfied\n\n", buf.String())
}

// ===================================================================
// Test Helpers
// ===================================================================

func msg(bucket int, note string) Event {
	return Event{Bucket: bucket, Message: NewError(note), Level: Error}
}

func Test_Sequencer_05(t *testing.T) {
	var sink Collector
	// Abandoned runs still see every message
	seq := NewSequencer(&sink, 3)
	//
	for _, e := range []Event{msg(0, "a"), msg(2, "p"), msg(1, "x"), msg(2, "q")} {
		seq.Handle(e)
	}
	//
	seq.Flush()
	assert.False(t, seq.Finished())
	assert.Equal(t, []string{"a", "x", "p", "q"}, sink.Notes())
}

func now(bucket int, note string) Event {
	return Event{Bucket: bucket, Message: NewNote(note), Level: Note, Now: true}
}

func done(bucket int) Event {
	return Event{Bucket: bucket, Done: true}
}

func check_Sequencer(t *testing.T, buckets int, events []Event, expected ...string) {
	var sink Collector
	//
	seq := NewSequencer(&sink, buckets)
	//
	for _, e := range events {
		seq.Handle(e)
	}
	//
	assert.True(t, seq.Finished())
	assert.Equal(t, expected, sink.Notes())
}
