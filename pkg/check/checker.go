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
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/vc"
	log "github.com/sirupsen/logrus"
)

// NoticesPerSpan determines how many long-running notices are given between
// those which include the span of the offending obligation.
const NoticesPerSpan = 5

// Config determines how obligations are checked.
type Config struct {
	// Number of times a failed query is checked again to find further errors.
	// Zero reports only the first error of each query.
	MultipleErrors uint
	// Record failed assertions so they can be expanded into finer ones.
	ExpandErrors bool
	// Whether profiling was requested, in which case no hint to profile is
	// given for canceled queries.
	Profiling bool
}

// Pass identifies the purpose for which a query is being checked.
type Pass struct {
	// Level at which failures are reported.
	Level report.Level
	// Indicates a pass over expanded assertions, where only failures of
	// split assertions are reported.
	Expand bool
}

// Primary is the pass in which obligations are first checked.
var Primary = Pass{Level: report.Error}

// Profiler is invoked after each query has been checked, whilst its scope is
// still open.
type Profiler interface {
	Profile(ctx context.Context, session *smt.Session, query *vc.Query, result smt.ValidityResult,
		reporter report.Reporter) error
}

// Stats counts the outcome of checks.
type Stats struct {
	// Obligations proven at error level.
	Verified uint
	// Obligations failed (or canceled) at error level.
	Errors uint
	// Queries submitted to the solver, including reruns.
	Submissions uint
}

// Merge another set of statistics into this one.
func (p *Stats) Merge(other Stats) {
	p.Verified += other.Verified
	p.Errors += other.Errors
	p.Submissions += other.Submissions
}

// Checker drives a session through the queries of an obligation, reporting
// failures and rerunning queries to find further failures.
type Checker struct {
	config   Config
	reporter report.Reporter
	profiler Profiler
	stats    Stats
	// Failures recorded for expansion.
	targets []*report.Message
}

// NewChecker constructs a checker reporting to a given reporter.  The
// profiler is optional.
func NewChecker(config Config, reporter report.Reporter, profiler Profiler) *Checker {
	return &Checker{config: config, reporter: reporter, profiler: profiler}
}

// Stats returns the counts accumulated so far.
func (p *Checker) Stats() Stats {
	return p.stats
}

// Reporter returns the reporter this checker reports to.
func (p *Checker) Reporter() report.Reporter {
	return p.reporter
}

// TakeExpandTargets returns (and clears) the failures recorded for expansion.
func (p *Checker) TakeExpandTargets() []*report.Message {
	targets := p.targets
	p.targets = nil
	//
	return targets
}

// Absorb the statistics and expansion targets of another checker, such as one
// used for a spin-off session.
func (p *Checker) Absorb(other *Checker) {
	p.stats.Merge(other.stats)
	p.targets = append(p.targets, other.TakeExpandTargets()...)
}

// Run issues every command of an obligation into a session, checking each
// query in turn.  This returns true if any query failed or was canceled.
func (p *Checker) Run(ctx context.Context, session *smt.Session, cmds *vc.CommandsWithContext, pass Pass) (bool,
	error) {
	var failed = false
	//
	for _, cmd := range cmds.Commands {
		switch c := cmd.(type) {
		case *vc.CheckValid:
			ok, err := p.Check(ctx, session, cmds, c.Query, pass)
			if err != nil {
				return true, err
			}
			//
			failed = failed || !ok
		case *vc.GetUnsatCore:
			// Only meaningful to profiling, which requests cores itself.
		default:
			if err := session.Declare(cmd); err != nil {
				return true, err
			}
		}
	}
	//
	return failed, nil
}

// Check a single query, rerunning it to find further failures as permitted by
// the error budget.  The query's scope is closed afterwards.  This returns
// true if the query was proven.
func (p *Checker) Check(ctx context.Context, session *smt.Session, cmds *vc.CommandsWithContext, query *vc.Query,
	pass Pass) (bool, error) {
	var (
		progress    = p.progress(cmds)
		remaining   = p.config.MultipleErrors
		onlyEarlier = false
		first       = true
		proven      = true
		initial     smt.ValidityResult
	)
	//
	log.Debugf("checking %s (%s)", cmds.Desc, cmds.Span)
	//
	result, err := session.CheckValid(ctx, query, progress)
	//
	for err == nil {
		if v, ok := result.(*smt.Valid); !ok || !v.Skipped {
			p.stats.Submissions++
		}
		//
		if initial == nil {
			initial = result
		}
		//
		switch r := result.(type) {
		case *smt.Valid:
			if pass.Level == report.Error && (first || cmds.Prover == vc.Singular) && !r.Skipped {
				p.stats.Verified++
			}
		case *smt.Invalid:
			proven = false
			p.invalid(r, cmds, pass, first)
			// Check for further failures, if the budget allows.
			if !onlyEarlier && remaining > 0 {
				remaining--
				onlyEarlier = remaining == 0
				result, err = session.CheckValidAgain(ctx, onlyEarlier, progress)
				first = false
				//
				continue
			}
		case *smt.Canceled:
			proven = false
			p.canceled(cmds, pass, first)
		case *smt.TypeError, *smt.UnexpectedOutput:
			return false, NewInternalError(cmds.Desc, &ResultError{result})
		default:
			panic(fmt.Sprintf("unknown validity result %T", result))
		}
		//
		break
	}
	//
	if err != nil {
		return false, err
	} else if onlyEarlier && pass.Level == report.Error {
		p.reporter.Report(report.NewNote(fmt.Sprintf("%s: not all errors may have been reported; rerun with a "+
			"higher value for --multiple-errors to find other potential errors in this function", cmds.Desc),
			cmds.Span))
	}
	//
	if p.profiler != nil {
		if err := p.profiler.Profile(ctx, session, query, initial, p.reporter); err != nil {
			return false, err
		}
	} else if err := session.FinishQuery(); err != nil {
		return false, err
	}
	//
	return proven, nil
}

func (p *Checker) invalid(r *smt.Invalid, cmds *vc.CommandsWithContext, pass Pass, first bool) {
	var msg = r.Error
	//
	if msg == nil {
		msg = report.NewError(fmt.Sprintf("%s failed", cmds.Desc), cmds.Span)
	}
	//
	if first && pass.Level == report.Error {
		p.stats.Errors++
	}
	//
	if !pass.Expand || msg.Split {
		p.reporter.ReportAs(msg, pass.Level)
	}
	//
	if p.config.ExpandErrors && pass.Level == report.Error {
		p.targets = append(p.targets, msg)
	}
	//
	log.Debugf("%s failed with model: %s", cmds.Desc, r.Model)
}

func (p *Checker) canceled(cmds *vc.CommandsWithContext, pass Pass, first bool) {
	msg := report.NewError(fmt.Sprintf("%s: resource limit (rlimit) exceeded", cmds.Desc), cmds.Span)
	//
	if !p.config.Profiling {
		msg = msg.WithHelp("consider rerunning with --profile for more details")
	}
	//
	if first && pass.Level == report.Error {
		p.stats.Errors++
	}
	//
	p.reporter.ReportAs(msg, pass.Level)
}

// progress constructs the callback which gives notice of long-running checks.
func (p *Checker) progress(cmds *vc.CommandsWithContext) smt.Progress {
	var count uint
	//
	return func(elapsed time.Duration) {
		count++
		//
		var (
			note = fmt.Sprintf("%s has been running for %d seconds", cmds.Desc, int(elapsed.Seconds()))
			msg  = report.NewNote(note)
		)
		//
		if count%NoticesPerSpan == 0 {
			msg = report.NewNote(note, cmds.Span)
		}
		//
		p.reporter.ReportNow(msg)
	}
}
