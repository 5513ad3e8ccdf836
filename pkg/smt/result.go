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
package smt

import (
	"fmt"

	"github.com/consensys/go-smtcheck/pkg/report"
)

// Classification abstracts a validity result into its broad outcome.  This is
// what must agree between a query and its instrumented variant.
type Classification uint8

const (
	// ValidOutcome indicates every assertion was proven.
	ValidOutcome Classification = iota
	// InvalidOutcome indicates some assertion could not be proven.
	InvalidOutcome
	// CanceledOutcome indicates the resource limit was exhausted.
	CanceledOutcome
	// FaultOutcome indicates an ill-formed query or solver misbehaviour.
	FaultOutcome
)

func (c Classification) String() string {
	return [...]string{"valid", "invalid", "canceled", "fault"}[c]
}

// ValidityResult is the outcome of checking a query.  Exactly one is produced
// for each submission.
type ValidityResult interface {
	// Classify this result.
	Classify() Classification
	// Prevent types outside this package implementing ValidityResult.
	isResult()
}

// Valid indicates every enabled assertion holds.  A result is skipped when no
// assertion remained to be checked, in which case the solver was not
// consulted.
type Valid struct {
	Skipped bool
}

// Invalid indicates some assertion may not hold.  The model is the solver's
// counterexample (when available), whilst Error is the message attached to the
// failing assertion.
type Invalid struct {
	Model string
	Error *report.Message
	// Position of the failing assertion within the query.
	Goal int
}

// Canceled indicates that the resource limit was hit.
type Canceled struct {
	Reason string
}

// TypeError indicates the solver rejected a command.
type TypeError struct {
	Msg string
}

// UnexpectedOutput indicates a response which could not be understood.
type UnexpectedOutput struct {
	Text string
}

// Classify implementation for ValidityResult interface.
func (p *Valid) Classify() Classification { return ValidOutcome }

// Classify implementation for ValidityResult interface.
func (p *Invalid) Classify() Classification { return InvalidOutcome }

// Classify implementation for ValidityResult interface.
func (p *Canceled) Classify() Classification { return CanceledOutcome }

// Classify implementation for ValidityResult interface.
func (p *TypeError) Classify() Classification { return FaultOutcome }

// Classify implementation for ValidityResult interface.
func (p *UnexpectedOutput) Classify() Classification { return FaultOutcome }

func (p *Valid) isResult()            {}
func (p *Invalid) isResult()          {}
func (p *Canceled) isResult()         {}
func (p *TypeError) isResult()        {}
func (p *UnexpectedOutput) isResult() {}

func (p *TypeError) String() string {
	return fmt.Sprintf("solver rejected command: %s", p.Msg)
}

func (p *UnexpectedOutput) String() string {
	return fmt.Sprintf("unexpected solver output: %s", p.Text)
}
