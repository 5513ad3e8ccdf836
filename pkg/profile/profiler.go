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
package profile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/util"
	"github.com/consensys/go-smtcheck/pkg/vc"
	log "github.com/sirupsen/logrus"
)

// TrackedPrefix identifies quantifiers which are eligible for explicit
// instantiation.
const TrackedPrefix = "inst_"

// UserPrefix identifies quantifiers written by the user, whose instantiation
// counts are summarised.
const UserPrefix = "user_"

// Mode determines which queries are profiled.
type Mode uint8

const (
	// Off disables profiling.
	Off Mode = iota
	// CanceledOnly profiles queries which exhausted their resource limit.
	CanceledOnly
	// All profiles every query.
	All
)

var modeNames = []string{"off", "canceled", "all"}

func (m Mode) String() string {
	return modeNames[m]
}

// ParseMode converts the name of a profiling mode into a mode.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	//
	return Off, fmt.Errorf("unknown profiling mode \"%s\" (expected off, canceled or all)", name)
}

// Options returns the solver options required for profiling, given the path
// of the trace file.
func Options(trace string) []*vc.SetOption {
	return []*vc.SetOption{
		{Name: "produce-unsat-cores", Value: "true"},
		{Name: "trace", Value: "true"},
		{Name: "trace_file_name", Value: trace},
	}
}

// Profiler determines which instantiations of tracked quantifiers are needed
// to prove each query.  After a query has been checked, the instantiations
// found in the solver's trace are asserted explicitly in place of their
// quantifiers, and the query checked again.  The unsat core of that check
// identifies the instantiations which were used.  A profiler is owned by a
// single session.
type Profiler struct {
	mode     Mode
	reader   *TraceReader
	metadata *check.Metadata
	// Every instantiation found, indexed by their index.
	instantiations []*vc.Instantiation
	// Quantifiers which have been replaced, by identifier.
	quantifiers map[string]*vc.Bind
	// Instantiation counts absorbed from other profilers.
	absorbed map[string]uint
}

// NewProfiler constructs a profiler reading a given trace.
func NewProfiler(mode Mode, trace string, metadata *check.Metadata) *Profiler {
	return &Profiler{
		mode:        mode,
		reader:      NewTraceReader(trace),
		metadata:    metadata,
		quantifiers: make(map[string]*vc.Bind),
		absorbed:    make(map[string]uint),
	}
}

// Instantiations returns every instantiation found so far.
func (p *Profiler) Instantiations() []*vc.Instantiation {
	return p.instantiations
}

// Profile implementation for the check.Profiler interface.  This is called
// with the scope of the checked query still open, and closes it.
func (p *Profiler) Profile(ctx context.Context, session *smt.Session, query *vc.Query, result smt.ValidityResult,
	reporter report.Reporter) error {
	// Instantiations found whilst checking this query
	fresh, err := p.Process(reporter)
	//
	if err != nil {
		return err
	} else if err := session.FinishQuery(); err != nil {
		return err
	} else if !p.enabled(result) || len(fresh) == 0 {
		return nil
	} else if result.Classify() == smt.CanceledOutcome {
		// No core comes from a canceled check, so the instantiations found are
		// kept for the summary without being checked explicitly.
		log.Debugf("found %d instantiations in canceled query", len(fresh))
		return nil
	}
	//
	instrumented, replaced := Instrument(query, group(fresh))
	if replaced == nil {
		return nil
	}
	//
	for qid, quant := range replaced {
		p.quantifiers[qid] = quant
	}
	//
	log.Debugf("checking query with %d explicit instantiations", len(fresh))
	//
	outcome, err := session.CheckValid(ctx, instrumented, nil)
	if err != nil {
		return err
	}
	// Matches arising from the instrumented query itself are not counted
	if err := p.reader.Skip(); err != nil {
		return &util.IOError{Path: p.reader.Path(), Err: err}
	}
	//
	if outcome.Classify() != result.Classify() {
		_ = session.FinishQuery()
		//
		return check.NewInternalError("instrumented query", fmt.Errorf("outcome %s differs from original outcome %s",
			outcome.Classify(), result.Classify()))
	} else if outcome.Classify() == smt.ValidOutcome {
		core, err := session.GetUnsatCore(ctx)
		if err != nil {
			return err
		}
		//
		p.Reconcile(core)
	}
	//
	return session.FinishQuery()
}

// Process reads the trace for new matches of tracked quantifiers, and records
// them as instantiations.  Matches whose terms cannot be converted are
// dropped with a note.
func (p *Profiler) Process(reporter report.Reporter) ([]*vc.Instantiation, error) {
	var fresh []*vc.Instantiation
	//
	matches, err := p.reader.Read()
	if err != nil {
		return nil, &util.IOError{Path: p.reader.Path(), Err: err}
	}
	//
	for _, m := range matches {
		if !strings.HasPrefix(m.Quant.Name, TrackedPrefix) {
			continue
		}
		//
		terms, err := p.convert(m.Bindings)
		if err != nil {
			reporter.Report(report.NewNote(fmt.Sprintf("cannot instantiate %s explicitly: %s", m.Quant.Name, err)))
			continue
		}
		//
		inst := &vc.Instantiation{Index: len(p.instantiations), Qid: m.Quant.Name, Terms: terms}
		p.instantiations = append(p.instantiations, inst)
		fresh = append(fresh, inst)
	}
	//
	return fresh, nil
}

// Reconcile an unsat core against the instantiations found, marking those
// named in the core as used.
func (p *Profiler) Reconcile(core []string) {
	for _, name := range core {
		var index int
		//
		if _, err := fmt.Sscanf(name, "named-instance-%d", &index); err != nil {
			continue
		} else if index >= 0 && index < len(p.instantiations) {
			p.instantiations[index].Used = true
		}
	}
}

// Absorb the findings of another profiler, such as one owned by a spin-off
// session, so they are included in this profiler's summaries.
func (p *Profiler) Absorb(other *Profiler) {
	for _, inst := range other.instantiations {
		clone := *inst
		clone.Index = len(p.instantiations)
		p.instantiations = append(p.instantiations, &clone)
	}
	//
	for qid, quant := range other.quantifiers {
		p.quantifiers[qid] = quant
	}
	//
	for name, count := range other.counts() {
		p.absorbed[name] += count
	}
}

// Summary reports how often each quantifier was instantiated.
func (p *Profiler) Summary(reporter report.Reporter) {
	var (
		counts = make(map[string][2]uint)
		qids   []string
	)
	//
	for _, inst := range p.instantiations {
		c, ok := counts[inst.Qid]
		if !ok {
			qids = append(qids, inst.Qid)
		}
		//
		c[0]++
		//
		if inst.Used {
			c[1]++
		}
		//
		counts[inst.Qid] = c
	}
	//
	for _, qid := range qids {
		c := counts[qid]
		msg := report.NewNote(fmt.Sprintf("%s was instantiated %d times, of which %d were used", qid, c[0], c[1]))
		//
		if span, ok := p.metadata.QidSpan(qid); ok {
			msg = report.NewNote(msg.Note, span)
		}
		//
		reporter.Report(msg)
	}
	//
	p.userSummary(reporter)
}

func (p *Profiler) userSummary(reporter report.Reporter) {
	var (
		total uint
		names []string
	)
	//
	counts := p.counts()
	//
	for name, count := range counts {
		if strings.HasPrefix(name, UserPrefix) {
			names = append(names, name)
			total += count
		}
	}
	//
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		//
		return names[i] < names[j]
	})
	//
	for _, name := range names {
		note := fmt.Sprintf("instantiated %s %d times (%d%% of the total)", name, counts[name], 100*counts[name]/total)
		msg := report.NewNote(note)
		//
		if span, ok := p.metadata.QidSpan(name); ok {
			msg = report.NewNote(note, span)
		}
		//
		reporter.Report(msg)
	}
}

// Suggest reports, for each quantifier, the conjunction of its used
// instantiations as a ground replacement.
func (p *Profiler) Suggest(reporter report.Reporter) {
	var (
		table = make(vc.Table)
		qids  []string
	)
	//
	for _, inst := range p.instantiations {
		if _, ok := p.quantifiers[inst.Qid]; ok && inst.Used {
			if _, ok := table[inst.Qid]; !ok {
				qids = append(qids, inst.Qid)
			}
			//
			table[inst.Qid] = append(table[inst.Qid], inst)
		}
	}
	//
	for _, qid := range qids {
		ground := vc.Instantiate(table, p.quantifiers[qid])
		msg := report.NewNote(fmt.Sprintf("consider instantiating %s explicitly", qid))
		//
		if span, ok := p.metadata.QidSpan(qid); ok {
			msg = report.NewNote(msg.Note, span)
		}
		//
		reporter.Report(msg.WithHelp(ground.Lisp().String(true)))
	}
}

// counts returns the number of matches per quantifier, including those
// absorbed.
func (p *Profiler) counts() map[string]uint {
	counts := make(map[string]uint)
	//
	for name, count := range p.reader.Counts() {
		counts[name] += count
	}
	//
	for name, count := range p.absorbed {
		counts[name] += count
	}
	//
	return counts
}

func (p *Profiler) enabled(result smt.ValidityResult) bool {
	switch p.mode {
	case All:
		return true
	case CanceledOnly:
		return result.Classify() == smt.CanceledOutcome
	default:
		return false
	}
}

func (p *Profiler) convert(bindings []string) ([]vc.Expr, error) {
	terms := make([]vc.Expr, len(bindings))
	// Bindings are listed in reverse order of the quantifier's variables.
	for i, id := range bindings {
		term, err := p.reader.Convert(id)
		if err != nil {
			return nil, err
		}
		//
		terms[len(bindings)-1-i] = term
	}
	//
	return terms, nil
}

// group instantiations by quantifier.
func group(instantiations []*vc.Instantiation) vc.Table {
	table := make(vc.Table)
	//
	for _, inst := range instantiations {
		table[inst.Qid] = append(table[inst.Qid], inst)
	}
	//
	return table
}
