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
package obligation

import (
	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/vc"
	"github.com/consensys/go-smtcheck/pkg/verifier"
)

// Bundle is a complete set of obligations for a program, as loaded from a
// file.  Bundles are immutable once loaded, and can therefore be shared
// between workers.
type Bundle struct {
	program  *plan.Program
	prelude  []vc.Command
	contexts []verifier.Section
	entries  map[string]*entry
	metadata *check.Metadata
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ verifier.Generator = (*Bundle)(nil)

// entry holds the obligations of a single function.
type entry struct {
	decl        []vc.Command
	specs       []vc.Command
	axioms      []vc.Command
	termination *vc.CommandsWithContext
	specChecks  []*vc.CommandsWithContext
	body        []*vc.CommandsWithContext
	recommends  []*vc.CommandsWithContext
	expand      []*vc.CommandsWithContext
}

// Program implementation for the verifier.Generator interface.
func (p *Bundle) Program() *plan.Program {
	return p.program
}

// Prelude implementation for the verifier.Generator interface.
func (p *Bundle) Prelude() []vc.Command {
	return p.prelude
}

// Context implementation for the verifier.Generator interface.  Every bucket
// receives every context section.
func (p *Bundle) Context(_ *plan.Bucket) []verifier.Section {
	return p.contexts
}

// Decl implementation for the verifier.Generator interface.
func (p *Bundle) Decl(function string) []vc.Command {
	return p.entry(function).decl
}

// Specs implementation for the verifier.Generator interface.
func (p *Bundle) Specs(function string) []vc.Command {
	return p.entry(function).specs
}

// Axioms implementation for the verifier.Generator interface.
func (p *Bundle) Axioms(function string) []vc.Command {
	return p.entry(function).axioms
}

// Termination implementation for the verifier.Generator interface.
func (p *Bundle) Termination(function string) *vc.CommandsWithContext {
	return p.entry(function).termination
}

// SpecChecks implementation for the verifier.Generator interface.
func (p *Bundle) SpecChecks(function string) []*vc.CommandsWithContext {
	return p.entry(function).specChecks
}

// Body implementation for the verifier.Generator interface.  Recommends are
// checked using the body's checks unless separate ones are given, whilst
// expansion only happens for functions with expanded checks.
func (p *Bundle) Body(function string, phase verifier.Phase, _ []*report.Message) []*vc.CommandsWithContext {
	e := p.entry(function)
	//
	switch phase {
	case verifier.CheckingBody:
		return e.body
	case verifier.CheckingRecommends:
		if len(e.recommends) > 0 {
			return e.recommends
		}
		//
		return e.body
	case verifier.ExpandingErrors:
		return e.expand
	default:
		panic("unknown phase")
	}
}

// Metadata implementation for the verifier.Generator interface.
func (p *Bundle) Metadata() *check.Metadata {
	return p.metadata
}

func (p *Bundle) entry(function string) *entry {
	if e, ok := p.entries[function]; ok {
		return e
	}
	//
	panic("unknown function " + function)
}
