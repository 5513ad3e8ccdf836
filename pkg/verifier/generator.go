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
	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/vc"
)

// Phase identifies why the body of a function is being checked.
type Phase uint8

const (
	// CheckingBody is the first check of a function body.
	CheckingBody Phase = iota
	// CheckingRecommends rechecks a failed body for recommends violations.
	CheckingRecommends
	// ExpandingErrors rechecks a failed body with its failing assertions
	// split into finer ones.
	ExpandingErrors
)

// Section is a named group of commands issued together.
type Section struct {
	// Comment written into the logs ahead of the commands.
	Comment  string
	Commands []vc.Command
}

// Generator supplies the commands which make up the obligations of a program.
// Functions are identified by their qualified name.
type Generator interface {
	// Program describes the functions and modules to be checked.
	Program() *plan.Program
	// Prelude is issued at the start of every session.
	Prelude() []vc.Command
	// Context returns the sections (e.g. datatypes) needed by a given bucket,
	// issued after the prelude.
	Context(bucket *plan.Bucket) []Section
	// Decl declares the symbols of a function.
	Decl(function string) []vc.Command
	// Specs declares the requires and ensures of a function.
	Specs(function string) []vc.Command
	// Axioms declares the consequence axioms of a function.
	Axioms(function string) []vc.Command
	// Termination returns the termination check of a function, or nil if it
	// has none.
	Termination(function string) *vc.CommandsWithContext
	// SpecChecks returns the recommends checks for the body of a function's
	// specification.
	SpecChecks(function string) []*vc.CommandsWithContext
	// Body returns the checks of a function's body for a given phase.  When
	// expanding errors, the failures recorded in the previous pass are given.
	Body(function string, phase Phase, targets []*report.Message) []*vc.CommandsWithContext
	// Metadata describes the quantifiers of the program.
	Metadata() *check.Metadata
}
