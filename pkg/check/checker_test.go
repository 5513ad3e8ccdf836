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
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/smt/smttest"
	"github.com/consensys/go-smtcheck/pkg/vc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoFalse = `(check-valid (block (assert "A failed" (P 1)) (assert "B failed" (P 2))))`

func Test_Checker_00(t *testing.T) {
	checker, collector, factory := check_Run(t, Config{MultipleErrors: 2}, Primary, smttest.Unsat, twoFalse)
	//
	assert.Equal(t, Stats{Verified: 1, Submissions: 1}, checker.Stats())
	assert.Empty(t, collector.Entries())
	assert.Len(t, factory.Checks(), 1)
}

func Test_Checker_01(t *testing.T) {
	// Two independent failures with a budget of two
	checker, collector, factory := check_Run(t, Config{MultipleErrors: 2}, Primary, smttest.FailWhen("P"), twoFalse)
	//
	notes := collector.Notes()
	require.Len(t, notes, 3)
	assert.Equal(t, "A failed", notes[0])
	assert.Equal(t, "B failed", notes[1])
	assert.Contains(t, notes[2], "rerun with a higher value for --multiple-errors")
	assert.Equal(t, report.Note, collector.Entries()[2].Level)
	// Third pass is skipped
	assert.Len(t, factory.Checks(), 2)
	assert.Equal(t, Stats{Errors: 1, Submissions: 2}, checker.Stats())
}

func Test_Checker_02(t *testing.T) {
	// Budget of one reports a single failure, then checks earlier assertions
	checker, collector, factory := check_Run(t, Config{MultipleErrors: 1}, Primary, smttest.FailWhen("(P 2)"),
		twoFalse)
	//
	notes := collector.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "B failed", notes[0])
	//
	checks := factory.Checks()
	require.Len(t, checks, 2)
	require.Len(t, checks[1].Goals, 1)
	assert.Equal(t, "(P 1)", checks[1].Goals[0].Conclusion)
	assert.Equal(t, uint(2), checker.Stats().Submissions)
}

func Test_Checker_03(t *testing.T) {
	oracle := smttest.Script(smttest.Answer{Result: "unknown", Reason: "canceled"})
	checker, collector, _ := check_Run(t, Config{MultipleErrors: 2}, Primary, oracle, twoFalse)
	//
	entries := collector.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message.Note, "resource limit (rlimit) exceeded")
	assert.Contains(t, entries[0].Message.Help, "--profile")
	assert.Equal(t, uint(1), checker.Stats().Errors)
}

func Test_Checker_04(t *testing.T) {
	var (
		ierr      *InternalError
		collector report.Collector
		oracle    = smttest.Script(smttest.Answer{Error: "unknown constant P"})
		checker   = NewChecker(Config{}, &collector, nil)
	)
	//
	session := open(t, oracle)
	_, err := checker.Check(context.Background(), session, group(), parse(t, twoFalse), Primary)
	//
	require.True(t, errors.As(err, &ierr))
	assert.Contains(t, err.Error(), "unknown constant P")
}

func Test_Checker_05(t *testing.T) {
	// Secondary passes report at their own level, and are not counted.
	pass := Pass{Level: report.Note}
	checker, collector, _ := check_Run(t, Config{MultipleErrors: 1}, pass, smttest.FailWhen("(P 1)"), twoFalse)
	//
	entries := collector.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "A failed", entries[0].Message.Note)
	assert.Equal(t, report.Note, entries[0].Level)
	assert.Equal(t, uint(0), checker.Stats().Errors)
}

func Test_Checker_06(t *testing.T) {
	var (
		collector report.Collector
		checker   = NewChecker(Config{MultipleErrors: 3}, &collector, nil)
		session   = open(t, smttest.FailWhen("P"))
		split     = report.NewError("split failed", "lib.rs:2:1")
	)
	//
	split.Split = true
	query := &vc.Query{Assertion: &vc.Block{Stmts: []vc.Stmt{
		&vc.Assert{Error: report.NewError("whole failed"), Expr: vc.NewApply("P", vc.NewInt(1))},
		&vc.Assert{Error: split, Expr: vc.NewApply("P", vc.NewInt(2))},
	}}}
	// Only split failures are reported when expanding
	_, err := checker.Check(context.Background(), session, group(), query, Pass{Level: report.Note, Expand: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"split failed"}, collector.Notes()[:1])
}

func Test_Checker_07(t *testing.T) {
	checker, _, _ := check_Run(t, Config{MultipleErrors: 1, ExpandErrors: true}, Primary, smttest.FailWhen("P"),
		twoFalse)
	//
	targets := checker.TakeExpandTargets()
	require.Len(t, targets, 1)
	assert.Equal(t, "A failed", targets[0].Note)
	assert.Empty(t, checker.TakeExpandTargets())
}

func Test_Checker_08(t *testing.T) {
	smt.ProgressInterval = 5 * time.Millisecond
	defer func() { smt.ProgressInterval = 2 * time.Second }()
	//
	oracle := smttest.Script(smttest.Answer{Result: "unsat", Delay: 80 * time.Millisecond})
	_, collector, _ := check_Run(t, Config{}, Primary, oracle, twoFalse)
	//
	var withSpan = false
	//
	for _, e := range collector.Entries() {
		assert.True(t, e.Now)
		assert.Contains(t, e.Message.Note, "has been running for")
		withSpan = withSpan || len(e.Message.Spans) > 0
	}
	//
	assert.GreaterOrEqual(t, len(collector.Entries()), NoticesPerSpan)
	assert.True(t, withSpan)
}

// Retry termination: at most k+1 submissions, whichever failures the solver
// chooses to report.
func Test_Checker_09(t *testing.T) {
	for k := uint(0); k <= 6; k++ {
		for n := 1; n <= 6; n++ {
			for seed := int64(0); seed < 5; seed++ {
				check_Termination(t, k, n, seed)
			}
		}
	}
}

func Test_Checker_10(t *testing.T) {
	// A zero budget reports only the first failure
	checker, collector, factory := check_Run(t, Config{MultipleErrors: 0}, Primary, smttest.FailWhen("(P 2)"),
		twoFalse)
	//
	assert.Equal(t, uint(1), checker.Stats().Submissions)
	assert.Equal(t, uint(1), checker.Stats().Errors)
	assert.Equal(t, []string{"B failed"}, collector.Notes())
	assert.Len(t, factory.Checks(), 1)
}

func Test_Checker_11(t *testing.T) {
	var collector report.Collector
	//
	checker := NewChecker(Config{}, &collector, nil)
	session := open(t, smttest.Unsat)
	commands, err := vc.ParseCommands("test", "(declare-fun P (Int) Bool) "+twoFalse+" "+twoFalse)
	require.NoError(t, err)
	//
	cmds := group()
	cmds.Commands = commands
	failed, err := checker.Run(context.Background(), session, cmds, Primary)
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, uint(2), checker.Stats().Verified)
	assert.True(t, session.Idle())
}

// ============================================================================
// Helpers
// ============================================================================

func check_Termination(t *testing.T, k uint, n int, seed int64) {
	var (
		collector report.Collector
		rng       = rand.New(rand.NewSource(seed))
		stmts     []string
	)
	//
	for i := 0; i < n; i++ {
		stmts = append(stmts, fmt.Sprintf("(assert \"failed %d\" (P %d))", i, i))
	}
	// Always report some enabled goal as failing
	oracle := func(check *smttest.Check) smttest.Answer {
		g := check.Goals[rng.Intn(len(check.Goals))]
		return smttest.Answer{Result: "sat", Fails: g.Conclusion}
	}
	//
	session := open(t, oracle)
	checker := NewChecker(Config{MultipleErrors: k}, &collector, nil)
	query := parse(t, fmt.Sprintf("(check-valid (block %s))", strings.Join(stmts, " ")))
	//
	_, err := checker.Check(context.Background(), session, group(), query, Primary)
	require.NoError(t, err)
	assert.LessOrEqual(t, checker.Stats().Submissions, k+1)
	assert.True(t, session.Idle())
}

func check_Run(t *testing.T, config Config, pass Pass, oracle smttest.Oracle, text string) (*Checker,
	*report.Collector, *smttest.Factory) {
	var collector report.Collector
	//
	factory := smttest.NewFactory(oracle)
	session, err := smt.Open(context.Background(), factory, vc.Default, smt.Logs{})
	require.NoError(t, err)
	//
	checker := NewChecker(config, &collector, nil)
	_, err = checker.Check(context.Background(), session, group(), parse(t, text), pass)
	require.NoError(t, err)
	//
	return checker, &collector, factory
}

func open(t *testing.T, oracle smttest.Oracle) *smt.Session {
	session, err := smt.Open(context.Background(), smttest.NewFactory(oracle), vc.Default, smt.Logs{})
	require.NoError(t, err)
	//
	return session
}

func group() *vc.CommandsWithContext {
	return &vc.CommandsWithContext{Span: "lib.rs:1:1", Desc: "function body check"}
}

func parse(t *testing.T, text string) *vc.Query {
	commands, err := vc.ParseCommands("test", text)
	require.NoError(t, err)
	//
	return commands[0].(*vc.CheckValid).Query
}
