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
package plan

import (
	"fmt"
)

// Mode indicates how a function may be used.
type Mode uint8

const (
	// Spec functions may only be used in specifications.
	Spec Mode = iota
	// Proof functions are lemmas, erased at runtime.
	Proof
	// Exec functions are executable.
	Exec
)

var modeNames = []string{"spec", "proof", "exec"}

func (m Mode) String() string {
	return modeNames[m]
}

// ParseMode converts a mode name into a mode.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	//
	return Spec, fmt.Errorf("unknown mode \"%s\"", name)
}

// Function describes a function whose obligations are to be checked.
type Function struct {
	// Qualified name of this function (e.g. "lib::list::len").
	Name string
	// Module in which this function is declared.
	Module string
	// Indicates this function is checked in a bucket of its own.
	Spinoff bool
	// Indicates recommends are always checked for this function.
	CheckRecommends bool
	Mode            Mode
	// Functions this function calls, or whose termination it depends on.
	Calls []string
}

// Program is the set of functions being checked, grouped into modules.  Both
// modules and functions retain their declaration order, which is used to
// break ties wherever an ordering is required.
type Program struct {
	modules   []string
	functions []*Function
	index     map[string]int
}

// NewProgram constructs a program, checking that every function belongs to a
// declared module and only calls declared functions.
func NewProgram(modules []string, functions []*Function) (*Program, error) {
	var (
		declared = make(map[string]bool)
		index    = make(map[string]int)
	)
	//
	for _, m := range modules {
		if declared[m] {
			return nil, fmt.Errorf("duplicate module %s", m)
		}
		//
		declared[m] = true
	}
	//
	for i, f := range functions {
		if _, ok := index[f.Name]; ok {
			return nil, fmt.Errorf("duplicate function %s", f.Name)
		} else if !declared[f.Module] {
			return nil, fmt.Errorf("function %s declared in unknown module %s", f.Name, f.Module)
		}
		//
		index[f.Name] = i
	}
	//
	for _, f := range functions {
		for _, c := range f.Calls {
			if _, ok := index[c]; !ok {
				return nil, fmt.Errorf("function %s calls unknown function %s", f.Name, c)
			}
		}
	}
	//
	return &Program{modules, functions, index}, nil
}

// Modules returns the modules of this program, in declaration order.
func (p *Program) Modules() []string {
	return p.modules
}

// Functions returns the functions of this program, in declaration order.
func (p *Program) Functions() []*Function {
	return p.functions
}

// Function looks up a function by name.
func (p *Program) Function(name string) (*Function, bool) {
	if i, ok := p.index[name]; ok {
		return p.functions[i], true
	}
	//
	return nil, false
}

// Position returns the declaration position of a function.
func (p *Program) Position(name string) int {
	if i, ok := p.index[name]; ok {
		return i
	}
	//
	panic(fmt.Sprintf("unknown function %s", name))
}
