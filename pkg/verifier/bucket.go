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
	"fmt"
	"time"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/profile"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/util"
	"github.com/consensys/go-smtcheck/pkg/vc"
	log "github.com/sirupsen/logrus"
)

// Times records the time spent starting solvers, and waiting on them.
type Times struct {
	Init time.Duration
	Run  time.Duration
}

// Add the time spent by a session.
func (p *Times) Add(session *smt.Session) {
	start, run := session.Time()
	p.Init += start
	p.Run += run
}

// Merge another set of times into this one.
func (p *Times) Merge(other Times) {
	p.Init += other.Init
	p.Run += other.Run
}

// worker checks buckets one after another.  Everything a worker owns (its
// sessions, profilers and statistics) is private to it, so workers never
// share mutable state.
type worker struct {
	config    *Config
	generator Generator
	factory   smt.Factory
	dir       *LogDir
	metrics   *Metrics
	sccs      []plan.SCC
	stats     check.Stats
	times     Times
}

// bucketRun is the state of checking a single bucket.
type bucketRun struct {
	*worker
	bucket   *plan.Bucket
	reporter report.Reporter
	checker  *check.Checker
	session  *smt.Session
	profiler *profile.Profiler
	// Profilers of spin-off sessions, absorbed once the bucket is done.
	spunoff []*profile.Profiler
	logs    []*sessionLogs
	solver  Times
	entry   *log.Entry
}

// verify checks every obligation of a bucket.
func (p *worker) verify(ctx context.Context, bucket *plan.Bucket, reporter report.Reporter) error {
	var (
		perf   = util.NewPerfStats()
		filter = p.config.Filter()
		run    = &bucketRun{worker: p, bucket: bucket, reporter: reporter,
			entry: log.WithField("bucket", bucket.Id.String())}
	)
	//
	if p.config.Trace || len(filter.Modules) > 0 || len(filter.Functions) > 0 {
		selected := ""
		if len(filter.Functions) > 0 {
			selected = " (selected functions)"
		}
		//
		reporter.ReportNow(report.NewNote(fmt.Sprintf("verifying %s%s", bucket.Id, selected)))
	}
	//
	err := run.check(ctx, filter)
	//
	if cerr := run.close(); err == nil {
		err = cerr
	}
	//
	if err != nil {
		return err
	}
	//
	p.stats.Merge(run.checker.Stats())
	p.times.Merge(run.solver)
	//
	if p.metrics != nil {
		p.metrics.ObserveBucket(perf.Elapsed(), run.solver)
		p.metrics.ObserveStats(run.checker.Stats())
	}
	//
	if p.config.Trace {
		reporter.ReportNow(report.NewNote(fmt.Sprintf("done with %s", bucket.Id)))
	}
	//
	perf.Log(fmt.Sprintf("checking %s", bucket.Id))
	//
	return nil
}

// check every obligation of the bucket, summarising any profiling at the end.
func (p *bucketRun) check(ctx context.Context, filter *plan.UserFilter) error {
	program := p.generator.Program()
	//
	if err := p.open(ctx); err != nil {
		return err
	} else if err := p.declarations(ctx, program, filter); err != nil {
		return err
	} else if err := p.bodies(ctx, program, filter); err != nil {
		return err
	}
	//
	if p.profiler != nil {
		for _, child := range p.spunoff {
			p.profiler.Absorb(child)
		}
		//
		p.profiler.Summary(p.reporter)
		p.profiler.Suggest(p.reporter)
	}
	//
	return nil
}

// open the bucket's own session, issuing its options and prelude.
func (p *bucketRun) open(ctx context.Context) error {
	var name = LogName(p.bucket.Id, false, 0, false)
	//
	logs, err := openLogs(p.config, p.dir, name)
	if err != nil {
		return err
	}
	//
	p.logs = append(p.logs, logs)
	//
	if p.session, err = smt.Open(ctx, p.factory, vc.Default, logs.Logs); err != nil {
		return err
	} else if err = p.prime(p.session); err != nil {
		return err
	} else if p.profiler, err = p.startProfiler(p.session, name); err != nil {
		return err
	} else if p.config.SolverVersion != "" {
		if err = p.session.CheckVersion(ctx, p.config.SolverVersion); err != nil {
			return err
		}
	}
	//
	p.checker = check.NewChecker(p.config.CheckConfig(), p.reporter, asProfiler(p.profiler))
	//
	p.session.Comment("Prelude")
	//
	if err := p.declare(p.generator.Prelude()); err != nil {
		return err
	}
	//
	p.session.Comment(fmt.Sprintf("MODULE '%s'", p.bucket.Id))
	//
	for _, section := range p.generator.Context(p.bucket) {
		if err := p.section(section.Comment, section.Commands); err != nil {
			return err
		}
	}
	//
	return nil
}

// prime a fresh session with the options every bucket uses.
func (p *bucketRun) prime(session *smt.Session) error {
	if err := session.SetOption(&vc.SetOption{Name: smt.RecommendedOptionsName, Value: "true"}); err != nil {
		return err
	} else if err := session.SetRlimit(p.config.Rlimit * RlimitPerSecond); err != nil {
		return err
	}
	//
	for _, option := range p.config.Options() {
		if err := session.SetOption(option); err != nil {
			return err
		}
	}
	//
	return nil
}

// startProfiler enables profiling on a session, if requested.
func (p *bucketRun) startProfiler(session *smt.Session, name string) (*profile.Profiler, error) {
	options, trace, err := p.profileOptions(name)
	if err != nil || trace == "" {
		return nil, err
	}
	//
	for _, o := range options {
		if err := session.SetOption(o); err != nil {
			return nil, err
		}
	}
	//
	return profile.NewProfiler(p.config.ProfileMode(), trace, p.generator.Metadata()), nil
}

// profileOptions returns the options enabling profiling for a session, along
// with the path of its trace.  The path is empty when profiling is off.
func (p *bucketRun) profileOptions(name string) ([]*vc.SetOption, string, error) {
	if p.config.ProfileMode() == profile.Off {
		return nil, "", nil
	}
	//
	trace, err := p.dir.Path(name + TraceSuffix)
	if err != nil {
		return nil, "", err
	}
	//
	return profile.Options(trace), trace, nil
}

// declarations issues the declarations of every function in the bucket's
// context, component by component, checking termination as it goes.
func (p *bucketRun) declarations(ctx context.Context, program *plan.Program, filter *plan.UserFilter) error {
	for _, f := range p.bucket.Context {
		if err := p.section("Function-Decl "+f, p.generator.Decl(f)); err != nil {
			return err
		}
	}
	//
	for _, scc := range p.bucket.Order(program, p.sccs) {
		for _, f := range scc {
			if err := p.section("Function-Specs "+f, p.generator.Specs(f)); err != nil {
				return err
			}
		}
		//
		for _, f := range scc {
			if err := p.termination(ctx, program, filter, f); err != nil {
				return err
			}
		}
		//
		for _, f := range scc {
			if err := p.section("Function-Axioms "+f, p.generator.Axioms(f)); err != nil {
				return err
			}
		}
	}
	//
	return nil
}

// termination checks a function terminates, if it is checked by this bucket.
// Failures are followed by a check of the recommends of the function's
// specification.
func (p *bucketRun) termination(ctx context.Context, program *plan.Program, filter *plan.UserFilter,
	name string) error {
	function, _ := program.Function(name)
	//
	if !p.bucket.Owns(program, name) || !filter.IncludesFunction(function) {
		return nil
	}
	//
	var failed bool
	//
	if cmds := p.generator.Termination(name); cmds != nil {
		var err error
		//
		p.session.Comment("Function-Termination " + name)
		//
		if failed, err = p.checker.Run(ctx, p.session, cmds, check.Primary); err != nil {
			return err
		}
	}
	//
	if (failed && !p.config.NoAutoRecommends) || function.CheckRecommends {
		level := report.Warning
		//
		if failed {
			level = report.Note
		}
		//
		p.session.Comment("Function-Decl-Check-Recommends " + name)
		//
		for _, cmds := range p.generator.SpecChecks(name) {
			if _, err := p.checker.Run(ctx, p.session, recommends(cmds), check.Pass{Level: level}); err != nil {
				return err
			}
		}
	}
	//
	return nil
}

// bodies checks the body of every function owned by this bucket, rerunning
// those which fail to expand errors and check recommends.
func (p *bucketRun) bodies(ctx context.Context, program *plan.Program, filter *plan.UserFilter) error {
	for _, name := range p.bucket.Functions {
		if function, _ := program.Function(name); !filter.IncludesFunction(function) {
			continue
		}
		// Discard targets of earlier functions
		p.checker.TakeExpandTargets()
		//
		failed, err := p.body(ctx, name, CheckingBody)
		if err != nil {
			return err
		}
		//
		if failed && p.config.ExpandErrors {
			if _, err := p.body(ctx, name, ExpandingErrors); err != nil {
				return err
			}
		}
		//
		if failed && !p.config.NoAutoRecommends {
			if _, err := p.body(ctx, name, CheckingRecommends); err != nil {
				return err
			}
		}
	}
	//
	return nil
}

// body checks the body of a function in a given phase, returning true if any
// of its checks failed.
func (p *bucketRun) body(ctx context.Context, name string, phase Phase) (bool, error) {
	var (
		targets []*report.Message
		pass    = check.Pass{Level: report.Error, Expand: phase == ExpandingErrors}
		counter uint
		failed  bool
	)
	//
	if phase == ExpandingErrors {
		targets = p.checker.TakeExpandTargets()
	}
	//
	if phase != CheckingBody {
		pass.Level = report.Note
	}
	//
	for _, cmds := range p.generator.Body(name, phase, targets) {
		if phase == CheckingRecommends {
			if cmds.SkipRecommends {
				continue
			}
			//
			cmds = recommends(cmds)
		}
		//
		var (
			invalid bool
			err     error
		)
		//
		if spinoff(cmds.Prover) {
			counter++
			invalid, err = p.spinOff(ctx, cmds, pass, LogName(p.bucket.Id, phase == CheckingRecommends, counter,
				phase == ExpandingErrors))
		} else {
			if phase == CheckingRecommends {
				p.session.Comment("Function-Check-Recommends " + name)
			} else {
				p.session.Comment("Function-Def " + name)
			}
			//
			invalid, err = p.checker.Run(ctx, p.session, cmds, pass)
		}
		//
		if err != nil {
			return true, err
		}
		//
		failed = failed || invalid
	}
	//
	return failed, nil
}

// spinOff checks a set of commands in a session of its own, which inherits
// everything declared in the bucket's session so far.
func (p *bucketRun) spinOff(ctx context.Context, cmds *vc.CommandsWithContext, pass check.Pass,
	name string) (bool, error) {
	logs, err := openLogs(p.config, p.dir, name)
	if err != nil {
		return true, err
	}
	//
	p.logs = append(p.logs, logs)
	//
	options, trace, err := p.profileOptions(name)
	if err != nil {
		return true, err
	}
	//
	session, err := p.session.SpinOff(ctx, cmds.Prover, logs.Logs, options...)
	if err != nil {
		return true, err
	}
	//
	defer func() {
		p.solver.Add(session)
		//
		if err := session.Close(); err != nil {
			p.entry.Warnf("closing %s session: %s", cmds.Prover, err)
		}
	}()
	//
	session.Comment(cmds.Span)
	//
	var profiler *profile.Profiler
	//
	if trace != "" {
		profiler = profile.NewProfiler(p.config.ProfileMode(), trace, p.generator.Metadata())
		p.spunoff = append(p.spunoff, profiler)
	}
	//
	checker := check.NewChecker(p.config.CheckConfig(), p.reporter, asProfiler(profiler))
	failed, err := checker.Run(ctx, session, cmds, pass)
	p.checker.Absorb(checker)
	//
	return failed, err
}

// section issues a group of declarations, headed by a comment.
func (p *bucketRun) section(comment string, cmds []vc.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	//
	p.session.Comment(comment)
	//
	return p.declare(cmds)
}

func (p *bucketRun) declare(cmds []vc.Command) error {
	for _, cmd := range cmds {
		if err := p.session.Declare(cmd); err != nil {
			return err
		}
	}
	//
	return nil
}

// close the bucket's session and every log file opened for the bucket.
func (p *bucketRun) close() error {
	var err error
	//
	if p.session != nil {
		p.solver.Add(p.session)
		//
		if cerr := p.session.Close(); cerr != nil {
			p.entry.Warnf("closing session: %s", cerr)
		}
	}
	//
	for _, logs := range p.logs {
		if cerr := logs.close(nil); cerr != nil && err == nil {
			err = cerr
		}
	}
	//
	return err
}

// ============================================================================
// Helpers
// ============================================================================

// spinoff determines whether checks with a given prover need a session of
// their own.
func spinoff(prover vc.Prover) bool {
	switch prover {
	case vc.Default:
		return false
	case vc.Nonlinear, vc.BitVector, vc.Singular:
		return true
	default:
		panic(fmt.Sprintf("unknown prover %s", prover))
	}
}

// recommends marks a set of commands as checking recommends.
func recommends(cmds *vc.CommandsWithContext) *vc.CommandsWithContext {
	marked := *cmds
	marked.Desc = "recommends check: " + cmds.Desc
	//
	return &marked
}

// asProfiler avoids a nil profiler becoming a non-nil interface.
func asProfiler(profiler *profile.Profiler) check.Profiler {
	if profiler == nil {
		return nil
	}
	//
	return profiler
}
